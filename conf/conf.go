package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/looplj/ollamabridge/internal/log"
	"github.com/looplj/ollamabridge/llm/tokenizer"
	"github.com/looplj/ollamabridge/llm/transformer/ollama"
)

const envPrefix = "OLLAMABRIDGE"

type Config struct {
	Log       log.Config       `conf:"log" yaml:"log" json:"log"`
	Ollama    ollama.Config    `conf:"ollama" yaml:"ollama" json:"ollama"`
	Tokenizer tokenizer.Config `conf:"tokenizer" yaml:"tokenizer" json:"tokenizer"`
}

// Load loads the configuration from config.yml and the OLLAMABRIDGE_ environment variables.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from the given file, config.yml is searched when path is empty.
func LoadFile(path string) (Config, error) {
	v, err := newViper(path)
	if err != nil {
		return Config{}, err
	}

	var config Config

	err = v.Unmarshal(&config, func(c *mapstructure.DecoderConfig) {
		c.TagName = "conf"
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// Lookup returns the raw value of a dotted config key, e.g. ollama.base_url.
func Lookup(key string) (any, error) {
	v, err := newViper("")
	if err != nil {
		return nil, err
	}

	if !v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}

	return v.Get(key), nil
}

// Validate returns the problems found in the config.
func Validate(config Config) []string {
	var problems []string

	if config.Log.Name == "" {
		problems = append(problems, "log.name cannot be empty")
	}

	if !config.Log.Level.Valid() {
		problems = append(problems, fmt.Sprintf("log.level %q is not a valid level", config.Log.Level))
	}

	switch config.Log.Output {
	case "stdio":
	case "file":
		if config.Log.File.Path == "" {
			problems = append(problems, "log.file.path cannot be empty when log.output is file")
		}
	default:
		problems = append(problems, fmt.Sprintf("log.output %q must be stdio or file", config.Log.Output))
	}

	if config.Ollama.BaseURL == "" {
		problems = append(problems, "ollama.base_url cannot be empty")
	}

	switch config.Tokenizer.Type {
	case tokenizer.TypeTiktoken, tokenizer.TypeEstimator:
	default:
		problems = append(problems, fmt.Sprintf("tokenizer.type %q must be tiktoken or estimator", config.Tokenizer.Type))
	}

	if config.Tokenizer.CacheSize < 0 {
		problems = append(problems, "tokenizer.cache_size cannot be negative")
	}

	return problems
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./conf")
		v.AddConfigPath("/etc/ollamabridge")
		v.AddConfigPath("$HOME/.config/ollamabridge")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// No default, unset means the model decides.
	_ = v.BindEnv("ollama.think")
	_ = v.BindEnv("ollama.api_key")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	logCfg := log.DefaultConfig()
	v.SetDefault("log.name", logCfg.Name)
	v.SetDefault("log.debug", logCfg.Debug)
	v.SetDefault("log.level", string(logCfg.Level))
	v.SetDefault("log.level_key", logCfg.LevelKey)
	v.SetDefault("log.time_key", logCfg.TimeKey)
	v.SetDefault("log.caller_key", logCfg.CallerKey)
	v.SetDefault("log.encoding", logCfg.Encoding)
	v.SetDefault("log.output", logCfg.Output)
	v.SetDefault("log.file.path", logCfg.File.Path)
	v.SetDefault("log.file.max_size", logCfg.File.MaxSize)
	v.SetDefault("log.file.max_age", logCfg.File.MaxAge)
	v.SetDefault("log.file.max_backups", logCfg.File.MaxBackups)
	v.SetDefault("log.file.local_time", logCfg.File.LocalTime)

	v.SetDefault("ollama.base_url", ollama.DefaultBaseURL)
	v.SetDefault("ollama.keep_alive", "")
	v.SetDefault("ollama.options", map[string]any{})

	v.SetDefault("tokenizer.type", tokenizer.TypeTiktoken)
	v.SetDefault("tokenizer.model", "")
	v.SetDefault("tokenizer.encoding", "")
	v.SetDefault("tokenizer.cache_size", 256)
}
