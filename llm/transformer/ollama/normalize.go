package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/internal/pkg/xjson"
	"github.com/looplj/ollamabridge/internal/pkg/xmap"
	"github.com/looplj/ollamabridge/llm"
	"github.com/looplj/ollamabridge/llm/tokenizer"
	"github.com/looplj/ollamabridge/llm/transformer"
)

// Normalizer converts the Ollama generate payload into the unified response.
// It is safe for concurrent use as long as every call gets its own destination.
type Normalizer struct {
	counter tokenizer.Counter
}

// NewNormalizer creates a normalizer counting missing usage with the counter.
// A nil counter falls back to the estimator.
func NewNormalizer(counter tokenizer.Counter) *Normalizer {
	if counter == nil {
		counter = tokenizer.NewEstimatorCounter()
	}

	return &Normalizer{counter: counter}
}

// Normalize fills the first choice of dst from the raw payload and returns dst.
// The prompt is the text sent to the model, it is only tokenized when the payload has no prompt_eval_count.
// On error dst is left untouched.
func (n *Normalizer) Normalize(
	ctx context.Context,
	model string,
	raw transformer.RawResponse,
	dst *llm.Response,
	prompt string,
) (*llm.Response, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: raw response is nil", transformer.ErrInvalidResponse)
	}

	payload, err := raw.Payload()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transformer.ErrInvalidResponse, err)
	}

	if payload == nil {
		return nil, fmt.Errorf("%w: payload is not an object", transformer.ErrInvalidResponse)
	}

	if dst == nil || len(dst.Choices) == 0 {
		return nil, fmt.Errorf("%w: destination has no choice", transformer.ErrInvalidResponse)
	}

	content, _ := xmap.GetString(payload, "response")

	message := &llm.Message{
		Role:    llm.RoleAssistant,
		Content: llm.MessageContent{Content: lo.ToPtr(content)},
	}

	if thinking, ok := xmap.GetString(payload, "thinking"); ok && thinking != "" {
		message.ReasoningContent = lo.ToPtr(thinking)
	}

	var finishReason string

	rawToolCalls, err := toolCallsOf(payload)
	if err != nil {
		return nil, err
	}

	if len(rawToolCalls) > 0 {
		toolCalls, err := convertToolCalls(ctx, rawToolCalls)
		if err != nil {
			return nil, err
		}

		message.ToolCalls = toolCalls
		finishReason = llm.FinishReasonToolCalls

		log.Debug(ctx, "ollama response has tool calls", log.Int("count", len(toolCalls)))
	} else {
		doneReason, _ := xmap.GetString(payload, "done_reason")
		finishReason = convertDoneReason(doneReason)
	}

	usage, err := n.usage(ctx, payload, prompt, content)
	if err != nil {
		return nil, err
	}

	choice := dst.Choices[0]
	choice.Message = message
	choice.Delta = nil
	choice.FinishReason = lo.ToPtr(finishReason)

	dst.Model = model
	dst.Choices[0] = choice
	dst.Usage = usage

	return dst, nil
}

func (n *Normalizer) usage(ctx context.Context, payload map[string]any, prompt, content string) (*llm.Usage, error) {
	promptTokens, err := n.countOr(ctx, xmap.GetInt64Ptr(payload, "prompt_eval_count"), prompt, "prompt")
	if err != nil {
		return nil, err
	}

	completionTokens, err := n.countOr(ctx, xmap.GetInt64Ptr(payload, "eval_count"), content, "completion")
	if err != nil {
		return nil, err
	}

	return &llm.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}, nil
}

// countOr returns the reported count, or counts the text when the provider reports nothing.
func (n *Normalizer) countOr(ctx context.Context, reported *int64, text, kind string) (int64, error) {
	if reported != nil {
		return *reported, nil
	}

	count, err := n.counter.CountTokens(text)
	if err != nil {
		return 0, fmt.Errorf("count %s tokens with %s: %w", kind, n.counter.Name(), err)
	}

	log.Debug(ctx, "ollama usage counted locally",
		log.String("kind", kind),
		log.String("tokenizer", n.counter.Name()),
		log.Int("tokens", count),
	)

	return int64(count), nil
}

// convertDoneReason maps the Ollama done_reason to the finish reason.
// load and unload only show up for empty prompts, they are reported as stop.
func convertDoneReason(reason string) string {
	switch reason {
	case "length":
		return llm.FinishReasonLength
	default:
		return llm.FinishReasonStop
	}
}

// toolCallsOf returns the tool_calls list, absent and null mean no tool calls.
func toolCallsOf(payload map[string]any) ([]any, error) {
	v, ok := payload["tool_calls"]
	if !ok || v == nil {
		return nil, nil
	}

	items, ok := xmap.GetSlice(payload, "tool_calls")
	if !ok {
		return nil, fmt.Errorf("%w: tool_calls is %T", transformer.ErrInvalidResponse, v)
	}

	return items, nil
}

var errMissingFunctionName = errors.New("missing function name")

func convertToolCalls(ctx context.Context, items []any) ([]llm.ToolCall, error) {
	toolCalls := make([]llm.ToolCall, 0, len(items))

	for i, item := range items {
		toolCall, err := convertToolCall(ctx, i, item)
		if err != nil {
			return nil, fmt.Errorf("%w: tool call %d: %w", transformer.ErrInvalidToolCall, i, err)
		}

		toolCalls = append(toolCalls, toolCall)
	}

	return toolCalls, nil
}

func convertToolCall(ctx context.Context, index int, item any) (llm.ToolCall, error) {
	desc, ok := item.(map[string]any)
	if !ok {
		return llm.ToolCall{}, fmt.Errorf("expected object, got %T", item)
	}

	function, ok := xmap.GetMap(desc, "function")
	if !ok {
		return llm.ToolCall{}, errMissingFunctionName
	}

	name, ok := xmap.GetString(function, "name")
	if !ok || name == "" {
		return llm.ToolCall{}, errMissingFunctionName
	}

	arguments, repaired, err := encodeArguments(function["arguments"])
	if err != nil {
		return llm.ToolCall{}, fmt.Errorf("encode arguments of %s: %w", name, err)
	}

	if repaired {
		log.Warn(ctx, "repaired invalid tool call arguments",
			log.String("function", name),
			log.Int("index", index),
		)
	}

	id, _ := xmap.GetString(desc, "id")
	if id == "" {
		id = newToolCallID()
	}

	return llm.ToolCall{
		ID:   id,
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
		Index: index,
	}, nil
}

// encodeArguments renders the arguments as a JSON string.
// The second return value reports whether a string argument had to be repaired.
func encodeArguments(v any) (string, bool, error) {
	switch args := v.(type) {
	case nil:
		return string(xjson.EmptyJSON), false, nil
	case string:
		return repairArguments(json.RawMessage(args))
	case json.RawMessage:
		return repairArguments(args)
	default:
		data, err := json.Marshal(args)
		if err != nil {
			return "", false, err
		}

		return string(data), false, nil
	}
}

func repairArguments(args json.RawMessage) (string, bool, error) {
	if xjson.IsNull(args) {
		return string(xjson.EmptyJSON), false, nil
	}

	msg, repaired := xjson.RepairJSON(string(args))

	return string(msg), repaired, nil
}

func newToolCallID() string {
	return "call_" + uuid.NewString()
}
