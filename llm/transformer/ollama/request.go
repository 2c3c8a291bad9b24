package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/looplj/ollamabridge/internal/build"
	"github.com/looplj/ollamabridge/llm"
	"github.com/looplj/ollamabridge/llm/httpclient"
	"github.com/looplj/ollamabridge/llm/transformer"
)

// TransformRequest transforms the unified request to a POST /api/generate request.
func (t *OutboundTransformer) TransformRequest(ctx context.Context, llmReq *llm.Request) (*httpclient.Request, error) {
	if llmReq == nil {
		return nil, fmt.Errorf("%w: chat completion request is nil", transformer.ErrInvalidRequest)
	}

	if llmReq.Model == "" {
		return nil, fmt.Errorf("%w: model is required", transformer.ErrInvalidRequest)
	}

	if len(llmReq.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", transformer.ErrInvalidRequest)
	}

	genReq := t.buildGenerateRequest(llmReq)

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to transform request: %w", err)
	}

	body, err = mergeOptions(body, t.config.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to merge options: %w", err)
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("User-Agent", build.UserAgent())

	if lo.FromPtr(genReq.Stream) {
		headers.Set("Accept", "application/x-ndjson")
	} else {
		headers.Set("Accept", "application/json")
	}

	var auth *httpclient.AuthConfig
	if t.config.APIKey != "" {
		auth = &httpclient.AuthConfig{
			Type:   httpclient.AuthTypeBearer,
			APIKey: t.config.APIKey,
		}
	}

	return &httpclient.Request{
		Method:      http.MethodPost,
		URL:         t.config.BaseURL + "/generate",
		Headers:     headers,
		ContentType: "application/json",
		Body:        body,
		Auth:        auth,
		TransformerMetadata: map[string]any{
			"model": llmReq.Model,
		},
	}, nil
}

func (t *OutboundTransformer) buildGenerateRequest(llmReq *llm.Request) *GenerateRequest {
	var (
		system []string
		prompt []string
	)

	for _, msg := range llmReq.Messages {
		text := msg.Text()
		if text == "" {
			continue
		}

		switch msg.Role {
		case llm.RoleSystem, llm.RoleDeveloper:
			system = append(system, text)
		default:
			prompt = append(prompt, text)
		}
	}

	req := &GenerateRequest{
		Model:     llmReq.Model,
		Prompt:    strings.Join(prompt, "\n"),
		System:    strings.Join(system, "\n"),
		Stream:    lo.ToPtr(lo.FromPtr(llmReq.Stream)),
		Think:     t.config.Think,
		Tools:     llmReq.Tools,
		KeepAlive: t.config.KeepAlive,
		Options:   requestOptions(llmReq),
	}

	switch llmReq.ReasoningEffort {
	case "":
	case "none":
		req.Think = lo.ToPtr(false)
	default:
		req.Think = lo.ToPtr(true)
	}

	return req
}

func requestOptions(llmReq *llm.Request) map[string]any {
	options := map[string]any{}

	if llmReq.Temperature != nil {
		options["temperature"] = *llmReq.Temperature
	}

	if llmReq.TopP != nil {
		options["top_p"] = *llmReq.TopP
	}

	if llmReq.Seed != nil {
		options["seed"] = *llmReq.Seed
	}

	if stop := llmReq.Stop.Values(); len(stop) > 0 {
		options["stop"] = stop
	}

	switch {
	case llmReq.MaxCompletionTokens != nil:
		options["num_predict"] = *llmReq.MaxCompletionTokens
	case llmReq.MaxTokens != nil:
		options["num_predict"] = *llmReq.MaxTokens
	}

	if len(options) == 0 {
		return nil
	}

	return options
}

// mergeOptions adds the default options missing from the body.
func mergeOptions(body []byte, defaults map[string]any) ([]byte, error) {
	if len(defaults) == 0 {
		return body, nil
	}

	keys := lo.Keys(defaults)
	sort.Strings(keys)

	var err error

	for _, key := range keys {
		path := "options." + escapePath(key)
		if gjson.GetBytes(body, path).Exists() {
			continue
		}

		body, err = sjson.SetBytes(body, path, defaults[key])
		if err != nil {
			return nil, err
		}
	}

	return body, nil
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
