package transformer

import (
	"context"

	"github.com/looplj/ollamabridge/llm"
	"github.com/looplj/ollamabridge/llm/httpclient"
	"github.com/looplj/ollamabridge/llm/streams"
)

// RawResponse is anything able to produce the raw provider payload as a mapping.
// *httpclient.Response implements it by decoding its body.
type RawResponse interface {
	Payload() (map[string]any, error)
}

// Outbound converts the unified request into the provider request,
// and the provider response back into the unified response.
type Outbound interface {
	// APIFormat returns the API format of the provider.
	APIFormat() llm.APIFormat

	// TransformRequest transforms the unified request into a provider HTTP request.
	TransformRequest(ctx context.Context, request *llm.Request) (*httpclient.Request, error)

	// TransformResponse transforms the provider HTTP response into the unified response.
	TransformResponse(ctx context.Context, response *httpclient.Response) (*llm.Response, error)

	// TransformStream transforms the provider stream events into unified chunks.
	TransformStream(ctx context.Context, stream streams.Stream[*httpclient.StreamEvent]) (streams.Stream[*llm.Response], error)

	// TransformStreamChunk transforms a single provider stream event into a unified chunk.
	TransformStreamChunk(ctx context.Context, event *httpclient.StreamEvent) (*llm.Response, error)

	// AggregateStreamChunks merges the provider stream events into the final unified response body.
	AggregateStreamChunks(ctx context.Context, chunks []*httpclient.StreamEvent) ([]byte, llm.ResponseMeta, error)

	// TransformError transforms a provider error response into the unified error.
	TransformError(ctx context.Context, rawErr *httpclient.Error) *llm.ResponseError
}

var _ RawResponse = (*httpclient.Response)(nil)
