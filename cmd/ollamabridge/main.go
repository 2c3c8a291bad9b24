package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/andreazorzetto/yh/highlight"
	"github.com/hokaccha/go-prettyjson"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gopkg.in/yaml.v3"

	"github.com/looplj/ollamabridge/conf"
	"github.com/looplj/ollamabridge/internal/build"
	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/internal/tracing"
	"github.com/looplj/ollamabridge/llm/tokenizer"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	switch os.Args[1] {
	case "normalize":
		handleNormalizeCommand(os.Args[2:])
	case "config":
		handleConfigCommand()
	case "version", "--version", "-v":
		showVersion()
	case "build-info":
		showBuildInfo()
	case "help", "--help", "-h":
		showHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showBuildInfo() {
	fmt.Println(build.GetBuildInfo())
}

type logger struct{}

func (l *logger) LogEvent(event fxevent.Event) {
	log.Debug(context.Background(), "fx event", log.Any("event", event))
}

// newApp wires config, logger and tokenizer registry, the targets are populated from the graph.
func newApp(targets ...any) *fx.App {
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &logger{}
		}),
		fx.Provide(conf.Load),
		fx.Provide(newLogger),
		fx.Provide(newRegistry),
		fx.Invoke(func(lc fx.Lifecycle, l *log.Logger) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					// Syncing stderr fails on some platforms.
					_ = l.Sync()
					return nil
				},
			})
		}),
		fx.Populate(targets...),
	)
}

func newLogger(config conf.Config) (*log.Logger, error) {
	l, err := log.New(config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracing.SetupLogger(l)
	log.SetGlobalLogger(l)

	return l, nil
}

func newRegistry(config conf.Config) (*tokenizer.Registry, error) {
	return tokenizer.NewDefaultRegistry(config.Tokenizer)
}

func handleConfigCommand() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ollamabridge config <preview|validate|get>")
		os.Exit(1)
	}

	switch os.Args[2] {
	case "preview":
		configPreview()
	case "validate":
		configValidate()
	case "get":
		configGet()
	default:
		fmt.Println("Usage: ollamabridge config <preview|validate|get>")
		os.Exit(1)
	}
}

func configPreview() {
	format := "yml"

	for i := 3; i < len(os.Args); i++ {
		if os.Args[i] == "--format" || os.Args[i] == "-f" {
			if i+1 < len(os.Args) {
				format = os.Args[i+1]
			}
		}
	}

	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	output, err := renderConfig(config, format)
	if err != nil {
		fmt.Printf("Failed to preview config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

func renderConfig(config conf.Config, format string) (string, error) {
	switch format {
	case "json":
		b, err := prettyjson.Marshal(config)
		if err != nil {
			return "", err
		}

		return string(b), nil
	case "yml", "yaml":
		b, err := yaml.Marshal(config)
		if err != nil {
			return "", err
		}

		return highlight.Highlight(bytes.NewBuffer(b))
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func configValidate() {
	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	problems := conf.Validate(config)

	if len(problems) == 0 {
		fmt.Println("Configuration is valid!")
		return
	}

	fmt.Println("Configuration validation failed:")

	for _, problem := range problems {
		fmt.Printf("  - %s\n", problem)
	}

	os.Exit(1)
}

func configGet() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: ollamabridge config get <key>")
		fmt.Println("")
		fmt.Println("Available keys:")
		fmt.Println("  log.level           Log level")
		fmt.Println("  ollama.base_url     Ollama server URL")
		fmt.Println("  ollama.keep_alive   Model keep alive duration")
		fmt.Println("  tokenizer.type      Tokenizer type (tiktoken, estimator)")
		os.Exit(1)
	}

	value, err := conf.Lookup(os.Args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(value)
}

func showHelp() {
	fmt.Println("ollamabridge normalizes Ollama generate responses")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  ollamabridge normalize [options] FILE...   Normalize captured /api/generate responses")
	fmt.Println("  ollamabridge config preview                Preview configuration")
	fmt.Println("  ollamabridge config validate               Validate configuration")
	fmt.Println("  ollamabridge config get <key>              Get a specific config value")
	fmt.Println("  ollamabridge version                       Show version")
	fmt.Println("  ollamabridge build-info                    Show build information")
	fmt.Println("  ollamabridge help                          Show this help message")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -m, --model MODEL         Model name of the responses, default is the model of the payload")
	fmt.Println("  -p, --prompt TEXT         Prompt sent to the model, counted when the payload has no prompt_eval_count")
	fmt.Println("      --chunks              Print every chunk of a stream instead of the aggregated response")
	fmt.Println("      --no-color            Disable colored JSON output")
	fmt.Println("  -f, --format FORMAT       Output format for config preview (yml, json)")
	fmt.Println("")
	fmt.Println("FILE may be - to read stdin, a file with several NDJSON lines is aggregated as a stream.")
}

func showVersion() {
	fmt.Println(build.Version)
}
