package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DoneResponse marks the end of a stream.
var DoneResponse = &Response{
	Object: "[DONE]",
}

// Request is the unified llm request model.
// It is based on the OpenAI chat completion request, only the fields the
// supported backends can honor are kept.
type Request struct {
	// Messages is a list of messages to send to the llm model.
	Messages []Message `json:"messages" validator:"required,min=1"`

	// Model is the model ID used to generate the response.
	Model string `json:"model" validator:"required"`

	// The maximum number of tokens that can be generated in the chat completion.
	MaxTokens *int64 `json:"max_tokens,omitempty"`

	// An upper bound for the number of tokens that can be generated for a completion,
	// including visible output tokens and reasoning tokens.
	MaxCompletionTokens *int64 `json:"max_completion_tokens,omitempty"`

	Seed        *int64   `json:"seed,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`

	// Controls effort on reasoning for reasoning models. It can be set to "low", "medium", or "high".
	ReasoningEffort string `json:"reasoning_effort,omitempty"`

	// Up to 4 sequences where the API will stop generating further tokens.
	Stop *Stop `json:"stop,omitempty"` // string or []string

	Stream *bool  `json:"stream,omitempty"`
	Tools  []Tool `json:"tools,omitempty"`

	// Help fields， will not be sent to the llm service.

	// TransformerMetadata stores transformer-specific metadata for preserving format during transformations.
	TransformerMetadata map[string]any `json:"-"`
}

type Stop struct {
	Stop         *string
	MultipleStop []string
}

func (s Stop) MarshalJSON() ([]byte, error) {
	if s.Stop != nil {
		return json.Marshal(s.Stop)
	}

	if len(s.MultipleStop) > 0 {
		return json.Marshal(s.MultipleStop)
	}

	return []byte("[]"), nil
}

func (s *Stop) UnmarshalJSON(data []byte) error {
	var str string

	err := json.Unmarshal(data, &str)
	if err == nil {
		s.Stop = &str
		return nil
	}

	var strs []string

	err = json.Unmarshal(data, &strs)
	if err == nil {
		s.MultipleStop = strs
		return nil
	}

	return errors.New("invalid stop type")
}

// Values returns the stop sequences as a slice.
func (s *Stop) Values() []string {
	if s == nil {
		return nil
	}

	if s.Stop != nil {
		return []string{*s.Stop}
	}

	return s.MultipleStop
}

// Message represents a message in the conversation.
type Message struct {
	// user, assistant, system, tool, developer
	Role string `json:"role,omitempty"`
	// Content of the message.
	// string or []ContentPart, be careful about the omitzero tag, it required.
	Content MessageContent `json:"content,omitzero"`
	Name    *string        `json:"name,omitempty"`

	ToolCallID *string    `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`

	// ReasoningContent carries the thinking trace of reasoning models,
	// e.g. deepseek-reasoner or the `thinking` field of Ollama.
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

// Text returns the textual content of the message, joining text parts.
func (m Message) Text() string {
	if m.Content.Content != nil {
		return *m.Content.Content
	}

	var sb strings.Builder

	for _, part := range m.Content.MultipleContent {
		if part.Type != "text" || part.Text == nil {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(*part.Text)
	}

	return sb.String()
}

type MessageContent struct {
	Content         *string              `json:"content,omitempty"`
	MultipleContent []MessageContentPart `json:"multiple_content,omitempty"`
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if len(c.MultipleContent) > 0 {
		if len(c.MultipleContent) == 1 && c.MultipleContent[0].Type == "text" {
			return json.Marshal(c.MultipleContent[0].Text)
		}

		return json.Marshal(c.MultipleContent)
	}

	return json.Marshal(c.Content)
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var str string

	err := json.Unmarshal(data, &str)
	if err == nil {
		c.Content = &str
		return nil
	}

	var parts []MessageContentPart

	err = json.Unmarshal(data, &parts)
	if err == nil {
		c.MultipleContent = parts
		return nil
	}

	return errors.New("invalid content type")
}

// MessageContentPart represents different types of content (text, image, etc.)
type MessageContentPart struct {
	// Type is the type of the content part.
	// e.g. "text", "image_url"
	Type string `json:"type"`
	// Text is the text content, required when type is "text"
	Text *string `json:"text,omitempty"`

	// ImageURL is the image URL content, required when type is "image_url"
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	// Either a URL of the image or the base64 encoded image data.
	URL string `json:"url"`

	// Specifies the detail level of the image.
	Detail *string `json:"detail,omitempty"`
}

// Tool represents a function tool.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`
}

// ToolCall represents a tool call in the response.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
	// Index is the position of the tool call, required by the stream chunk.
	Index int `json:"index"`
}

// FunctionCall represents the function call of a tool call.
// Arguments is the JSON encoded arguments object.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Response is the unified response model.
// To reduce the work of converting the response, we use the OpenAI response format.
// And other llm provider should convert the response to this format.
// NOTE: the OpenAI stream and non-stream response reuse same struct.
type Response struct {
	ID string `json:"id"`

	// A list of chat completion choices.
	Choices []Choice `json:"choices"`

	// Object is the type of the response.
	// e.g. "chat.completion", "chat.completion.chunk"
	Object string `json:"object"`

	// Created is the timestamp of when the response was created.
	Created int64 `json:"created"`

	// Model is the model used to generate the response.
	Model string `json:"model"`

	Usage *Usage `json:"usage,omitempty"`

	// Error is the error information, will present if request to llm service failed with status >= 400.
	Error *ResponseError `json:"error,omitempty"`

	// TransformerMetadata stores metadata from transformers that process the response.
	// This field is ignored when serializing to JSON and is only used internally by transformers.
	TransformerMetadata map[string]any `json:"-"`
}

// Choice represents a choice in the response.
type Choice struct {
	// Index is the index of the choice in the list of choices.
	Index int `json:"index"`

	// Message is the message content, will present if stream is false
	Message *Message `json:"message,omitempty"`

	// Delta is the stream event content, will present if stream is true
	Delta *Message `json:"delta,omitempty"`

	// FinishReason is the reason the model stopped generating tokens.
	// e.g. "stop", "length", "content_filter", "function_call", "tool_calls"
	FinishReason *string `json:"finish_reason,omitempty"`
}

type ResponseMeta struct {
	ID    string `json:"id"`
	Usage *Usage `json:"usage"`
}

// Usage Represents the total token usage per request.
type Usage struct {
	PromptTokens            int64                    `json:"prompt_tokens"`
	CompletionTokens        int64                    `json:"completion_tokens"`
	TotalTokens             int64                    `json:"total_tokens"`
	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

func (u *Usage) GetCompletionTokens() *int64 {
	if u == nil {
		return nil
	}

	return &u.CompletionTokens
}

func (u *Usage) GetPromptTokens() *int64 {
	if u == nil {
		return nil
	}

	return &u.PromptTokens
}

// CompletionTokensDetails Breakdown of tokens used in a completion.
type CompletionTokensDetails struct {
	ReasoningTokens int64 `json:"reasoning_tokens"`
}

// PromptTokensDetails Breakdown of tokens used in the prompt.
type PromptTokensDetails struct {
	CachedTokens int64 `json:"cached_tokens"`
}

// ResponseError represents an error response.
type ResponseError struct {
	StatusCode int         `json:"-"`
	Detail     ErrorDetail `json:"error"`
}

func (e ResponseError) Error() string {
	sb := strings.Builder{}
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf("Request failed: %s, ", http.StatusText(e.StatusCode)))
	}

	if e.Detail.Message != "" {
		sb.WriteString("error: ")
		sb.WriteString(e.Detail.Message)
	}

	if e.Detail.Code != "" {
		sb.WriteString(", code: ")
		sb.WriteString(e.Detail.Code)
	}

	if e.Detail.Type != "" {
		sb.WriteString(", type: ")
		sb.WriteString(e.Detail.Type)
	}

	return sb.String()
}

// ErrorDetail represents error details.
type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
}
