package cli

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/clientscore/internal/model"
)

// newLogger builds the process logger. Logs go to stderr so command output
// on stdout stays machine readable.
func newLogger(c model.LogConfig) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", c.Level, err)
	}
	config.Level = zap.NewAtomicLevelAt(level)

	switch c.Format {
	case "", "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("invalid log.format %q (want json or console)", c.Format)
	}

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}
