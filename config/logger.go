package config

import (
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger from cfg. An empty level means info and an
// empty format means json.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid log level").
				WithMetadata(map[string]any{"level": cfg.Level})
		}
		level = parsed
	}

	var zc zap.Config
	switch cfg.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, goerrors.New("invalid log format", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"format": cfg.Format})
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := zc.Build()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "build logger")
	}
	return log, nil
}
