package log

// Config configures the logger.
type Config struct {
	// Name is the logger name, added to every entry.
	Name string `conf:"name" yaml:"name" json:"name"`

	// Debug enables the development mode of zap, caller and stacktrace on warn.
	Debug bool `conf:"debug" yaml:"debug" json:"debug"`

	// Level is one of debug, info, warn, error, panic, fatal.
	Level Level `conf:"level" yaml:"level" json:"level"`

	// LevelKey, TimeKey, CallerKey, ... are the keys of the encoded entry.
	LevelKey  string `conf:"level_key" yaml:"level_key" json:"level_key"`
	TimeKey   string `conf:"time_key" yaml:"time_key" json:"time_key"`
	CallerKey string `conf:"caller_key" yaml:"caller_key" json:"caller_key"`

	// Encoding is json or console.
	Encoding string `conf:"encoding" yaml:"encoding" json:"encoding"`

	// Output is stdio or file.
	Output string `conf:"output" yaml:"output" json:"output"`

	// File configures the rotated log file, used when Output is file.
	File FileConfig `conf:"file" yaml:"file" json:"file"`
}

type FileConfig struct {
	Path       string `conf:"path" yaml:"path" json:"path"`
	MaxSize    int    `conf:"max_size" yaml:"max_size" json:"max_size"`
	MaxAge     int    `conf:"max_age" yaml:"max_age" json:"max_age"`
	MaxBackups int    `conf:"max_backups" yaml:"max_backups" json:"max_backups"`
	LocalTime  bool   `conf:"local_time" yaml:"local_time" json:"local_time"`
}

// DefaultConfig returns the configuration used before Load is called.
func DefaultConfig() Config {
	return Config{
		Name:      "ollamabridge",
		Level:     InfoLevel,
		LevelKey:  "level",
		TimeKey:   "time",
		CallerKey: "label",
		Encoding:  "json",
		Output:    "stdio",
		File: FileConfig{
			Path:       "logs/ollamabridge.log",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
			LocalTime:  true,
		},
	}
}
