package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig selects the log level, encoding and destination.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (l LoggingConfig) validate() error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	switch l.Format {
	case "json", "console", "":
		return nil
	default:
		return fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", l.Format)
	}
}

// NewLogger creates a configured Zap logger. Level is one of debug, info,
// warn, error (default "info"); Format is json or console (default "json");
// Output is a path, stdout or stderr (default "stderr"). Reports go to
// stdout, so logs stay on stderr unless told otherwise.
func NewLogger(l LoggingConfig) (*zap.Logger, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}

	var zapLevel zapcore.Level
	_ = zapLevel.UnmarshalText([]byte(l.Level))

	var cfg zap.Config
	if l.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	out := l.Output
	if out == "" {
		out = "stderr"
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
