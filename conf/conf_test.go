package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/llm/tokenizer"
	"github.com/looplj/ollamabridge/llm/transformer/ollama"
)

func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, log.DefaultConfig(), config.Log)
	assert.Equal(t, ollama.DefaultBaseURL, config.Ollama.BaseURL)
	assert.Nil(t, config.Ollama.Think)
	assert.Empty(t, config.Ollama.Options)
	assert.Equal(t, tokenizer.TypeTiktoken, config.Tokenizer.Type)
	assert.Equal(t, 256, config.Tokenizer.CacheSize)
	assert.Empty(t, Validate(config))
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)

	content := `
log:
  level: debug
  encoding: console
ollama:
  base_url: http://gpu-box:11434
  think: true
  keep_alive: 30m
  options:
    num_ctx: 8192
tokenizer:
  type: estimator
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o600))

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, config.Log.Level)
	assert.Equal(t, "console", config.Log.Encoding)
	assert.Equal(t, "ollamabridge", config.Log.Name)
	assert.Equal(t, "http://gpu-box:11434", config.Ollama.BaseURL)
	require.NotNil(t, config.Ollama.Think)
	assert.True(t, *config.Ollama.Think)
	assert.Equal(t, "30m", config.Ollama.KeepAlive)
	assert.EqualValues(t, 8192, config.Ollama.Options["num_ctx"])
	assert.Equal(t, tokenizer.TypeEstimator, config.Tokenizer.Type)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("OLLAMABRIDGE_OLLAMA_BASE_URL", "http://env-host:11434")
	t.Setenv("OLLAMABRIDGE_OLLAMA_THINK", "false")
	t.Setenv("OLLAMABRIDGE_TOKENIZER_CACHE_SIZE", "32")
	t.Setenv("OLLAMABRIDGE_LOG_LEVEL", "warn")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:11434", config.Ollama.BaseURL)
	require.NotNil(t, config.Ollama.Think)
	assert.False(t, *config.Ollama.Think)
	assert.Equal(t, 32, config.Tokenizer.CacheSize)
	assert.Equal(t, log.WarnLevel, config.Log.Level)
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bridge.yml")
	require.NoError(t, os.WriteFile(path, []byte("tokenizer:\n  model: gpt-4o\n"), 0o600))

	config, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", config.Tokenizer.Model)
	assert.Equal(t, tokenizer.TypeTiktoken, config.Tokenizer.Type)
}

func TestLookup(t *testing.T) {
	isolate(t)
	t.Setenv("OLLAMABRIDGE_OLLAMA_KEEP_ALIVE", "1h")

	value, err := Lookup("ollama.keep_alive")
	require.NoError(t, err)
	assert.Equal(t, "1h", value)

	value, err = Lookup("tokenizer.type")
	require.NoError(t, err)
	assert.Equal(t, tokenizer.TypeTiktoken, value)

	_, err = Lookup("server.port")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)

	config, err := Load()
	require.NoError(t, err)

	config.Log.Name = ""
	config.Log.Level = "verbose"
	config.Log.Output = "syslog"
	config.Ollama.BaseURL = ""
	config.Tokenizer.Type = "bpe"
	config.Tokenizer.CacheSize = -1

	assert.Equal(t, []string{
		"log.name cannot be empty",
		`log.level "verbose" is not a valid level`,
		`log.output "syslog" must be stdio or file`,
		"ollama.base_url cannot be empty",
		`tokenizer.type "bpe" must be tiktoken or estimator`,
		"tokenizer.cache_size cannot be negative",
	}, Validate(config))

	config = Config{Log: log.DefaultConfig(), Ollama: ollama.Config{BaseURL: "x"}, Tokenizer: tokenizer.Config{Type: tokenizer.TypeEstimator}}
	config.Log.Output = "file"
	config.Log.File.Path = ""
	assert.Equal(t, []string{"log.file.path cannot be empty when log.output is file"}, Validate(config))
}
