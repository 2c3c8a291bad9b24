package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Payload(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		resp := &Response{Body: []byte(`{"response":"hi","eval_count":65}`)}

		payload, err := resp.Payload()
		require.NoError(t, err)
		assert.Equal(t, "hi", payload["response"])
		assert.Equal(t, json.Number("65"), payload["eval_count"])
	})

	tests := []struct {
		name string
		resp *Response
	}{
		{name: "nil response", resp: nil},
		{name: "empty body", resp: &Response{Body: []byte("  ")}},
		{name: "array body", resp: &Response{Body: []byte(`[1,2]`)}},
		{name: "string body", resp: &Response{Body: []byte(`"text"`)}},
		{name: "broken body", resp: &Response{Body: []byte(`{"response":`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.resp.Payload()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotObject))
		})
	}
}

func TestDecodeNDJSON(t *testing.T) {
	body := "{\"response\":\"he\",\"done\":false}\n\n{\"response\":\"llo\",\"done\":false}\r\n{\"done\":true}\n"

	events, err := DecodeNDJSON(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.JSONEq(t, `{"response":"he","done":false}`, string(events[0].Data))
	assert.JSONEq(t, `{"done":true}`, string(events[2].Data))
}

func TestErrors(t *testing.T) {
	err := &Error{Method: http.MethodPost, URL: "http://localhost:11434/api/generate", StatusCode: 404, Status: "404 Not Found"}
	assert.Equal(t, "POST - http://localhost:11434/api/generate with status 404 Not Found", err.Error())

	var target *Error
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &target)
	assert.Equal(t, http.StatusNotFound, target.StatusCode)
}
