// Package logging builds the process-wide zap logger.
package logging

import (
	"os"

	"github.com/mx-space/fpcollector/internal/pkg/nativelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects encoder and sinks.
type Options struct {
	// Development switches to a colored console encoder at debug level.
	Development bool
	// Dir, when set, tees every entry into a daily file there.
	Dir string
}

// New creates the logger and a cleanup func that flushes and closes sinks.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	var encoder zapcore.Encoder
	if opts.Development {
		level.SetLevel(zap.DebugLevel)
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	var writer *nativelog.Writer
	if opts.Dir != "" {
		var err error
		writer, err = nativelog.NewWriter(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(writer), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	cleanup := func() {
		_ = logger.Sync()
		if writer != nil {
			_ = writer.Close()
		}
	}
	return logger, cleanup, nil
}
