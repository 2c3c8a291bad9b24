package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/looplj/ollamabridge/conf"
	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/llm/tokenizer"
	"github.com/looplj/ollamabridge/llm/transformer/ollama"
)

const toolCallResponse = `{
  "model": "gpt-oss:20b",
  "created_at": "2025-08-06T14:34:31.5276077Z",
  "response": "",
  "thinking": "reasoning text",
  "done": true,
  "done_reason": "stop",
  "tool_calls": [
    {"function": {"name": "container.exec", "arguments": {"cmd": ["bash", "-lc", "ls -la"]}}}
  ],
  "load_duration": 182848939,
  "prompt_eval_count": 121,
  "prompt_eval_duration": 42519048,
  "eval_count": 65,
  "eval_duration": 2234545431
}`

const textStream = `{"model":"llama3","created_at":"2024-07-22T20:33:28.1Z","response":"Hello","done":false}
{"model":"llama3","created_at":"2024-07-22T20:33:28.3Z","response":" world","done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":2}
`

func newTestNormalizer(stdin string) *fileNormalizer {
	return &fileNormalizer{
		config:   &ollama.Config{},
		registry: tokenizer.NewRegistry(tokenizer.NewEstimatorCounter(), 0),
		stdin:    strings.NewReader(stdin),
		noColor:  true,
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParseNormalizeArgs(t *testing.T) {
	opts, err := parseNormalizeArgs([]string{"-m", "llama3", "--prompt", "say hi", "a.json", "-", "--no-color", "--chunks"})
	require.NoError(t, err)
	assert.Equal(t, normalizeOptions{model: "llama3", prompt: "say hi", noColor: true, chunks: true, files: []string{"a.json", "-"}}, opts)

	_, err = parseNormalizeArgs(nil)
	require.ErrorIs(t, err, errNoInput)

	_, err = parseNormalizeArgs([]string{"a.json", "--model"})
	require.Error(t, err)

	_, err = parseNormalizeArgs([]string{"--verbose", "a.json"})
	require.Error(t, err)
}

func TestFileNormalizer_Normalize(t *testing.T) {
	dir := t.TempDir()
	n := newTestNormalizer("")

	out, err := n.normalize(context.Background(), writeFile(t, dir, "tool.json", toolCallResponse), normalizeOptions{})
	require.NoError(t, err)

	result := gjson.ParseBytes(out)
	assert.Equal(t, "gpt-oss:20b", result.Get("model").String())
	assert.Equal(t, "tool_calls", result.Get("choices.0.finish_reason").String())
	assert.Equal(t, "container.exec", result.Get("choices.0.message.tool_calls.0.function.name").String())
	assert.Equal(t, "reasoning text", result.Get("choices.0.message.reasoning_content").String())
	assert.Equal(t, int64(121), result.Get("usage.prompt_tokens").Int())
	assert.Equal(t, int64(65), result.Get("usage.completion_tokens").Int())
	assert.Equal(t, int64(186), result.Get("usage.total_tokens").Int())
}

func TestFileNormalizer_Normalize_Fallback(t *testing.T) {
	n := newTestNormalizer(`{"response":"hello","done_reason":"stop"}`)

	out, err := n.normalize(context.Background(), "-", normalizeOptions{model: "llama3", prompt: "say hello please"})
	require.NoError(t, err)

	result := gjson.ParseBytes(out)
	assert.Equal(t, "llama3", result.Get("model").String())
	assert.Equal(t, "stop", result.Get("choices.0.finish_reason").String())
	assert.False(t, result.Get("choices.0.message.tool_calls").Exists())
	// Estimated: 16 characters of prompt, 5 characters of content.
	assert.Equal(t, int64(4), result.Get("usage.prompt_tokens").Int())
	assert.Equal(t, int64(1), result.Get("usage.completion_tokens").Int())
	assert.Equal(t, int64(5), result.Get("usage.total_tokens").Int())
}

func TestFileNormalizer_Normalize_Stream(t *testing.T) {
	dir := t.TempDir()
	n := newTestNormalizer("")

	out, err := n.normalize(context.Background(), writeFile(t, dir, "stream.ndjson", textStream), normalizeOptions{model: "ollama/llama3"})
	require.NoError(t, err)

	result := gjson.ParseBytes(out)
	assert.Equal(t, "ollama/llama3", result.Get("model").String())
	assert.Equal(t, "Hello world", result.Get("choices.0.message.content").String())
	assert.Equal(t, int64(14), result.Get("usage.total_tokens").Int())
}

func TestFileNormalizer_Normalize_Errors(t *testing.T) {
	dir := t.TempDir()
	n := newTestNormalizer("   ")

	_, err := n.normalize(context.Background(), filepath.Join(dir, "missing.json"), normalizeOptions{})
	require.Error(t, err)

	_, err = n.normalize(context.Background(), "-", normalizeOptions{})
	require.Error(t, err)

	_, err = n.normalize(context.Background(), writeFile(t, dir, "bad.json", `{"tool_calls":[{"function":{}}]}`), normalizeOptions{})
	require.Error(t, err)
}

func TestFileNormalizer_NormalizeAll(t *testing.T) {
	dir := t.TempDir()
	n := newTestNormalizer("")

	files := []string{
		writeFile(t, dir, "a.json", toolCallResponse),
		writeFile(t, dir, "b.ndjson", textStream),
	}

	outputs, err := n.normalizeAll(context.Background(), normalizeOptions{files: files})
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "gpt-oss:20b", gjson.GetBytes(outputs[0], "model").String())
	assert.Equal(t, "llama3", gjson.GetBytes(outputs[1], "model").String())

	files = append(files, filepath.Join(dir, "missing.json"))
	_, err = n.normalizeAll(context.Background(), normalizeOptions{files: files})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")
}

func TestRenderConfig(t *testing.T) {
	config := conf.Config{
		Log:       log.DefaultConfig(),
		Ollama:    ollama.Config{BaseURL: ollama.DefaultBaseURL, APIKey: "secret"},
		Tokenizer: tokenizer.Config{Type: tokenizer.TypeEstimator},
	}

	out, err := renderConfig(config, "json")
	require.NoError(t, err)
	assert.Contains(t, out, "base_url")
	assert.NotContains(t, out, "secret")

	out, err = renderConfig(config, "yml")
	require.NoError(t, err)
	assert.Contains(t, out, "estimator")
	assert.NotContains(t, out, "secret")

	_, err = renderConfig(config, "toml")
	require.Error(t, err)
}

func TestFileNormalizer_Normalize_Chunks(t *testing.T) {
	n := newTestNormalizer(textStream)

	out, err := n.normalize(context.Background(), "-", normalizeOptions{chunks: true})
	require.NoError(t, err)

	lines := strings.Split(string(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Hello", gjson.Get(lines[0], "choices.0.delta.content").String())
	assert.Equal(t, "chat.completion.chunk", gjson.Get(lines[0], "object").String())
	assert.Equal(t, "stop", gjson.Get(lines[1], "choices.0.finish_reason").String())
	assert.Equal(t, int64(14), gjson.Get(lines[1], "usage.total_tokens").Int())
}
