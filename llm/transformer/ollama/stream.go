package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/internal/pkg/xmap"
	"github.com/looplj/ollamabridge/llm"
	"github.com/looplj/ollamabridge/llm/httpclient"
	"github.com/looplj/ollamabridge/llm/streams"
	"github.com/looplj/ollamabridge/llm/transformer"
)

// TransformStream transforms the NDJSON events of the generate stream to chunks.
// All chunks share one response id, the stream ends with llm.DoneResponse.
func (t *OutboundTransformer) TransformStream(
	ctx context.Context,
	stream streams.Stream[*httpclient.StreamEvent],
) (streams.Stream[*llm.Response], error) {
	filteredStream := streams.Filter(stream, func(event *httpclient.StreamEvent) bool {
		return event != nil && len(bytes.TrimSpace(event.Data)) > 0
	})

	id := newResponseID()

	transformedStream := streams.MapErr(filteredStream, func(event *httpclient.StreamEvent) (*llm.Response, error) {
		chunk, err := t.TransformStreamChunk(ctx, event)
		if err != nil {
			return nil, err
		}

		chunk.ID = id

		return chunk, nil
	})

	return streams.AppendStream(transformedStream, llm.DoneResponse), nil
}

// TransformStreamChunk transforms a single NDJSON line of the generate stream into a chunk.
// The done chunk carries the finish reason and the reported usage.
func (t *OutboundTransformer) TransformStreamChunk(
	ctx context.Context,
	event *httpclient.StreamEvent,
) (*llm.Response, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: stream event is nil", transformer.ErrInvalidResponse)
	}

	payload, err := (&httpclient.Response{Body: event.Data}).Payload()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transformer.ErrInvalidResponse, err)
	}

	delta := &llm.Message{Role: llm.RoleAssistant}

	if content, ok := xmap.GetString(payload, "response"); ok && content != "" {
		delta.Content = llm.MessageContent{Content: lo.ToPtr(content)}
	}

	if thinking, ok := xmap.GetString(payload, "thinking"); ok && thinking != "" {
		delta.ReasoningContent = lo.ToPtr(thinking)
	}

	rawToolCalls, err := toolCallsOf(payload)
	if err != nil {
		return nil, err
	}

	if len(rawToolCalls) > 0 {
		delta.ToolCalls, err = convertToolCalls(ctx, rawToolCalls)
		if err != nil {
			return nil, err
		}
	}

	model, _ := xmap.GetString(payload, "model")
	createdAt, _ := xmap.GetString(payload, "created_at")

	id := event.LastEventID
	if id == "" {
		id = newResponseID()
	}

	chunk := &llm.Response{
		ID:      id,
		Object:  llm.ObjectChatCompletionChunk,
		Created: parseCreatedAt(createdAt),
		Model:   model,
		Choices: []llm.Choice{
			{
				Index: 0,
				Delta: delta,
			},
		},
	}

	if done := xmap.GetBoolPtr(payload, "done"); lo.FromPtr(done) {
		finishReason := llm.FinishReasonToolCalls
		if len(delta.ToolCalls) == 0 {
			doneReason, _ := xmap.GetString(payload, "done_reason")
			finishReason = convertDoneReason(doneReason)
		}

		chunk.Choices[0].FinishReason = lo.ToPtr(finishReason)

		promptTokens := lo.FromPtr(xmap.GetInt64Ptr(payload, "prompt_eval_count"))
		completionTokens := lo.FromPtr(xmap.GetInt64Ptr(payload, "eval_count"))
		chunk.Usage = &llm.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		}
	}

	return chunk, nil
}

// AggregateStreamChunks merges the generate stream into one generate response and normalizes it.
// Invalid chunks are skipped, the counts and done_reason come from the done chunk.
func (t *OutboundTransformer) AggregateStreamChunks(
	ctx context.Context,
	chunks []*httpclient.StreamEvent,
) ([]byte, llm.ResponseMeta, error) {
	if len(chunks) == 0 {
		data, err := json.Marshal(&llm.Response{})
		return data, llm.ResponseMeta{}, err
	}

	var (
		aggregated GenerateResponse
		content    strings.Builder
		thinking   strings.Builder
	)

	for _, chunk := range chunks {
		if chunk == nil || len(bytes.TrimSpace(chunk.Data)) == 0 {
			continue
		}

		var resp GenerateResponse
		if err := json.Unmarshal(chunk.Data, &resp); err != nil {
			log.Warn(ctx, "skip invalid ollama stream chunk", log.Cause(err))
			continue
		}

		content.WriteString(resp.Response)
		thinking.WriteString(resp.Thinking)
		aggregated.ToolCalls = append(aggregated.ToolCalls, resp.ToolCalls...)

		if aggregated.Model == "" {
			aggregated.Model = resp.Model
		}

		if aggregated.CreatedAt.IsZero() {
			aggregated.CreatedAt = resp.CreatedAt
		}

		if resp.Done {
			aggregated.Done = true
			aggregated.DoneReason = resp.DoneReason
			aggregated.TotalDuration = resp.TotalDuration
			aggregated.LoadDuration = resp.LoadDuration
			aggregated.PromptEvalCount = resp.PromptEvalCount
			aggregated.PromptEvalDuration = resp.PromptEvalDuration
			aggregated.EvalCount = resp.EvalCount
			aggregated.EvalDuration = resp.EvalDuration
		}
	}

	aggregated.Response = content.String()
	aggregated.Thinking = thinking.String()

	body, err := json.Marshal(aggregated)
	if err != nil {
		return nil, llm.ResponseMeta{}, fmt.Errorf("failed to marshal aggregated response: %w", err)
	}

	created := parseCreatedAt("")
	if !aggregated.CreatedAt.IsZero() {
		created = aggregated.CreatedAt.Unix()
	}

	resp, err := t.normalizer.Normalize(ctx, aggregated.Model, &httpclient.Response{Body: body}, newResponse(created), "")
	if err != nil {
		return nil, llm.ResponseMeta{}, err
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, llm.ResponseMeta{}, err
	}

	return data, llm.ResponseMeta{
		ID:    resp.ID,
		Usage: resp.Usage,
	}, nil
}
