// Package ollama converts between the unified model and the Ollama generate API.
package ollama

import (
	"encoding/json"
	"time"

	"github.com/looplj/ollamabridge/llm"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	System    string         `json:"system,omitempty"`
	Stream    *bool          `json:"stream,omitempty"`
	Think     *bool          `json:"think,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	Tools     []llm.Tool     `json:"tools,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

// GenerateResponse is the response of /api/generate, also a single chunk when streaming.
type GenerateResponse struct {
	Model              string     `json:"model"`
	CreatedAt          time.Time  `json:"created_at,omitzero"`
	Response           string     `json:"response"`
	Thinking           string     `json:"thinking,omitempty"`
	Done               bool       `json:"done"`
	DoneReason         string     `json:"done_reason,omitempty"`
	ToolCalls          []ToolCall `json:"tool_calls,omitempty"`
	TotalDuration      int64      `json:"total_duration,omitempty"`
	LoadDuration       int64      `json:"load_duration,omitempty"`
	PromptEvalCount    *int64     `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64      `json:"prompt_eval_duration,omitempty"`
	EvalCount          *int64     `json:"eval_count,omitempty"`
	EvalDuration       int64      `json:"eval_duration,omitempty"`
}

// ToolCall is a tool call emitted by the model.
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction holds the function name and its arguments.
// Ollama emits the arguments as an object, some models emit a JSON string instead.
type ToolCallFunction struct {
	Index     int             `json:"index,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ErrorResponse is the body Ollama returns with a non 2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
