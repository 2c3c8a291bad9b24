package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/llm"
	"github.com/looplj/ollamabridge/llm/httpclient"
	"github.com/looplj/ollamabridge/llm/tokenizer"
	"github.com/looplj/ollamabridge/llm/transformer"
)

const DefaultBaseURL = "http://localhost:11434"

// Config holds all configuration for the Ollama outbound transformer.
type Config struct {
	// BaseURL is the base URL of the Ollama server, default is http://localhost:11434.
	BaseURL string `conf:"base_url" yaml:"base_url" json:"base_url"`

	// APIKey is sent as a bearer token, only needed when Ollama sits behind an authenticating proxy.
	APIKey string `conf:"api_key" yaml:"-" json:"-"`

	// Think enables the thinking trace of reasoning models when the request does not decide it.
	Think *bool `conf:"think" yaml:"think" json:"think,omitempty"`

	// KeepAlive controls how long the model stays loaded, e.g. "5m".
	KeepAlive string `conf:"keep_alive" yaml:"keep_alive" json:"keep_alive,omitempty"`

	// Options are the default model options, values from the request win.
	Options map[string]any `conf:"options" yaml:"options" json:"options,omitempty"`
}

// OutboundTransformer implements transformer.Outbound for the Ollama generate API.
type OutboundTransformer struct {
	config     *Config
	normalizer *Normalizer
}

// NewOutboundTransformer creates a new Ollama OutboundTransformer with the default config.
func NewOutboundTransformer(baseURL string, counter tokenizer.Counter) (transformer.Outbound, error) {
	return NewOutboundTransformerWithConfig(&Config{BaseURL: baseURL}, counter)
}

// NewOutboundTransformerWithConfig creates a new Ollama OutboundTransformer.
func NewOutboundTransformerWithConfig(config *Config, counter tokenizer.Counter) (transformer.Outbound, error) {
	if config == nil {
		return nil, errors.New("invalid Ollama transformer configuration: config cannot be nil")
	}

	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	cfg.BaseURL = transformer.NormalizeBaseURL(cfg.BaseURL, "api")

	return &OutboundTransformer{
		config:     &cfg,
		normalizer: NewNormalizer(counter),
	}, nil
}

func (t *OutboundTransformer) APIFormat() llm.APIFormat {
	return llm.APIFormatOllamaGenerate
}

// GetConfig returns the normalized config.
func (t *OutboundTransformer) GetConfig() *Config {
	return t.config
}

// TransformResponse transforms the /api/generate response to the unified response.
func (t *OutboundTransformer) TransformResponse(
	ctx context.Context,
	httpResp *httpclient.Response,
) (*llm.Response, error) {
	if httpResp == nil {
		return nil, fmt.Errorf("%w: http response is nil", transformer.ErrInvalidResponse)
	}

	if httpResp.StatusCode >= 400 {
		return nil, t.TransformError(ctx, &httpclient.Error{
			StatusCode: httpResp.StatusCode,
			Status:     http.StatusText(httpResp.StatusCode),
			Body:       httpResp.Body,
		})
	}

	if len(httpResp.Body) == 0 {
		return nil, fmt.Errorf("%w: response body is empty", transformer.ErrInvalidResponse)
	}

	model, prompt := requestContext(httpResp)
	if model == "" {
		model = gjson.GetBytes(httpResp.Body, "model").String()
	}

	dst := newResponse(parseCreatedAt(gjson.GetBytes(httpResp.Body, "created_at").String()))

	return t.normalizer.Normalize(ctx, model, httpResp, dst, prompt)
}

// TransformError transforms the Ollama error body, e.g. {"error": "model \"llama3\" not found"}.
func (t *OutboundTransformer) TransformError(ctx context.Context, rawErr *httpclient.Error) *llm.ResponseError {
	if rawErr == nil {
		return &llm.ResponseError{
			StatusCode: http.StatusInternalServerError,
			Detail: llm.ErrorDetail{
				Message: http.StatusText(http.StatusInternalServerError),
				Type:    "api_error",
			},
		}
	}

	statusCode := rawErr.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	errType := "api_error"
	if statusCode < http.StatusInternalServerError {
		errType = "invalid_request_error"
	}

	var (
		message string
		errResp ErrorResponse
	)

	if err := json.Unmarshal(rawErr.Body, &errResp); err == nil {
		message = errResp.Error
	} else if result := gjson.GetBytes(rawErr.Body, "error"); result.IsObject() {
		// OpenAI compatible proxies in front of Ollama.
		message = result.Get("message").String()
		if typ := result.Get("type").String(); typ != "" {
			errType = typ
		}
	}

	if message == "" {
		log.Debug(ctx, "ollama error body has no message", log.Int("status_code", statusCode))

		message = http.StatusText(statusCode)
		errType = "api_error"
	}

	return &llm.ResponseError{
		StatusCode: statusCode,
		Detail: llm.ErrorDetail{
			Message: message,
			Type:    errType,
		},
	}
}

// requestContext returns the model and the prompt of the originating request.
func requestContext(httpResp *httpclient.Response) (string, string) {
	if httpResp.Request == nil || len(httpResp.Request.Body) == 0 {
		return "", ""
	}

	body := httpResp.Request.Body
	prompt := gjson.GetBytes(body, "prompt").String()

	if system := gjson.GetBytes(body, "system").String(); system != "" {
		prompt = system + "\n" + prompt
	}

	return gjson.GetBytes(body, "model").String(), prompt
}

func parseCreatedAt(value string) int64 {
	if value != "" {
		if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return ts.Unix()
		}
	}

	return time.Now().Unix()
}

func newResponseID() string {
	return "chatcmpl-" + uuid.NewString()
}

func newResponse(created int64) *llm.Response {
	return &llm.Response{
		ID:      newResponseID(),
		Object:  llm.ObjectChatCompletion,
		Created: created,
		Choices: []llm.Choice{
			{
				Index:   0,
				Message: &llm.Message{Role: llm.RoleAssistant},
			},
		},
	}
}
