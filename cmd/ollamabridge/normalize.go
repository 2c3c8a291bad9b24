package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/hokaccha/go-prettyjson"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/looplj/ollamabridge/conf"
	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/internal/tracing"
	"github.com/looplj/ollamabridge/llm"
	"github.com/looplj/ollamabridge/llm/httpclient"
	"github.com/looplj/ollamabridge/llm/streams"
	"github.com/looplj/ollamabridge/llm/tokenizer"
	"github.com/looplj/ollamabridge/llm/transformer"
	"github.com/looplj/ollamabridge/llm/transformer/ollama"
)

type normalizeOptions struct {
	model   string
	prompt  string
	noColor bool
	chunks  bool
	files   []string
}

var errNoInput = errors.New("at least one FILE is required")

func parseNormalizeArgs(args []string) (normalizeOptions, error) {
	var opts normalizeOptions

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-m", "--model", "-p", "--prompt":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("missing value for %s", arg)
			}

			i++

			if arg == "-m" || arg == "--model" {
				opts.model = args[i]
			} else {
				opts.prompt = args[i]
			}
		case "--no-color":
			opts.noColor = true
		case "--chunks":
			opts.chunks = true
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return opts, fmt.Errorf("unknown option: %s", arg)
			}

			opts.files = append(opts.files, arg)
		}
	}

	if len(opts.files) == 0 {
		return opts, errNoInput
	}

	return opts, nil
}

func handleNormalizeCommand(args []string) {
	opts, err := parseNormalizeArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		fmt.Fprintln(os.Stderr, "Usage: ollamabridge normalize [-m MODEL] [-p PROMPT] [--no-color] [--chunks] FILE...")
		os.Exit(1)
	}

	var (
		config   conf.Config
		registry *tokenizer.Registry
	)

	app := newApp(&config, &registry)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	n := &fileNormalizer{
		config:   &config.Ollama,
		registry: registry,
		stdin:    os.Stdin,
		noColor:  opts.noColor,
	}

	outputs, err := n.normalizeAll(ctx, opts)

	for _, output := range outputs {
		if output != nil {
			fmt.Println(string(output))
		}
	}

	_ = app.Stop(ctx)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to normalize: %v\n", err)
		os.Exit(1)
	}
}

// fileNormalizer normalizes captured Ollama responses, a single JSON document or an NDJSON stream.
type fileNormalizer struct {
	config   *ollama.Config
	registry *tokenizer.Registry
	stdin    io.Reader
	noColor  bool
}

// normalizeAll normalizes the files concurrently, the outputs keep the order of the files.
func (n *fileNormalizer) normalizeAll(ctx context.Context, opts normalizeOptions) ([][]byte, error) {
	outputs := make([][]byte, len(opts.files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, file := range opts.files {
		g.Go(func() error {
			ctx := tracing.WithTraceID(gctx, tracing.GenerateTraceID())
			ctx = tracing.WithOperationName(ctx, "normalize")

			output, err := n.normalize(ctx, file, opts)
			if err != nil {
				log.Error(ctx, "failed to normalize file", log.String("file", file), log.Cause(err))
				return fmt.Errorf("%s: %w", file, err)
			}

			outputs[i] = output

			return nil
		})
	}

	return outputs, g.Wait()
}

func (n *fileNormalizer) normalize(ctx context.Context, file string, opts normalizeOptions) ([]byte, error) {
	data, err := n.read(file)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}

	model := opts.model
	if model == "" {
		model = gjson.GetBytes(firstLine(data), "model").String()
	}

	counter := n.registry.CounterFor(model)

	out, err := ollama.NewOutboundTransformerWithConfig(n.config, counter)
	if err != nil {
		return nil, err
	}

	var body []byte

	if json.Valid(data) {
		log.Debug(ctx, "normalizing ollama response",
			log.String("file", file),
			log.String("model", model),
			log.String("tokenizer", counter.Name()),
		)

		reqBody, err := requestBody(model, opts.prompt)
		if err != nil {
			return nil, err
		}

		resp, err := out.TransformResponse(ctx, &httpclient.Response{
			StatusCode: http.StatusOK,
			Body:       data,
			Request:    &httpclient.Request{Body: reqBody},
		})
		if err != nil {
			return nil, err
		}

		body, err = json.Marshal(resp)
		if err != nil {
			return nil, err
		}
	} else if opts.chunks {
		return n.chunks(ctx, out, data)
	} else {
		events, err := httpclient.DecodeNDJSON(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}

		log.Debug(ctx, "aggregating ollama stream",
			log.String("file", file),
			log.String("model", model),
			log.Int("chunks", len(events)),
		)

		body, _, err = out.AggregateStreamChunks(ctx, events)
		if err != nil {
			return nil, err
		}

		if opts.model != "" {
			body, err = sjson.SetBytes(body, "model", opts.model)
			if err != nil {
				return nil, err
			}
		}
	}

	formatter := prettyjson.NewFormatter()
	formatter.DisabledColor = n.noColor

	return formatter.Format(body)
}

// chunks renders every chunk of the stream as one JSON line.
func (n *fileNormalizer) chunks(ctx context.Context, out transformer.Outbound, data []byte) ([]byte, error) {
	stream, err := out.TransformStream(ctx, httpclient.NewNDJSONStream(bytes.NewReader(data)))
	if err != nil {
		return nil, err
	}

	chunks, err := streams.All(stream)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	for _, chunk := range chunks {
		if chunk == llm.DoneResponse {
			continue
		}

		line, err := json.Marshal(chunk)
		if err != nil {
			return nil, err
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}

		buf.Write(line)
	}

	return buf.Bytes(), nil
}

func (n *fileNormalizer) read(file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(n.stdin)
	}

	return os.ReadFile(file)
}

// requestBody rebuilds the part of the generate request the normalizer reads.
func requestBody(model, prompt string) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "model", model)
	if err != nil {
		return nil, err
	}

	return sjson.SetBytes(body, "prompt", prompt)
}

func firstLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 && !json.Valid(data) {
		return data[:i]
	}

	return data
}
