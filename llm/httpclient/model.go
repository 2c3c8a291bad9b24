package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Request represents a generic HTTP request that can be adapted to different providers.
type Request struct {
	// HTTP basics
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	Path        string      `json:"path"`
	Query       url.Values  `json:"query"`
	Headers     http.Header `json:"headers"`
	ContentType string      `json:"content_type"`
	Body        []byte      `json:"body,omitempty"`

	// Authentication
	Auth *AuthConfig `json:"auth,omitempty"`

	// Request tracking
	RequestID string `json:"request_id"`

	// Metadata for advanced use cases
	Metadata map[string]string `json:"-"`

	// TransformerMetadata stores transformer-specific metadata for preserving format during transformations.
	// This supports any type of value for flexibility.
	TransformerMetadata map[string]any `json:"-"`
}

// AuthConfig represents authentication configuration.
type AuthConfig struct {
	// Type represents the type of authentication.
	// Only "bearer" is supported.
	Type string `json:"type"`

	// APIKey is the API key for the request.
	APIKey string `json:"api_key,omitempty"`
}

const AuthTypeBearer = "bearer"

// Response represents a generic HTTP response.
type Response struct {
	// HTTP response basics
	StatusCode int `json:"status_code"`

	// Response headers
	Headers http.Header `json:"headers"`

	// Response body, for the non-streaming response.
	Body []byte `json:"body,omitempty"`

	// Request information
	Request *Request `json:"-"`
}

// ErrNotObject is returned by Payload when the body is not a JSON object.
var ErrNotObject = errors.New("response body is not a JSON object")

// Payload decodes the body into a generic mapping.
// Numbers are kept as json.Number so integer counts survive untouched.
func (r *Response) Payload() (map[string]any, error) {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}

	return m, nil
}

type StreamEvent struct {
	LastEventID string `json:"last_event_id,omitempty"`
	Type        string `json:"type"`
	Data        []byte `json:"data"`
}
