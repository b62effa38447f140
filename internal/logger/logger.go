package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps the zap logger with additional functionality
type Logger struct {
	*zap.Logger
}

// NewLogger creates a new logger instance with production configuration
func NewLogger() (*Logger, error) {
	return NewLoggerWithConfig(zapcore.InfoLevel, []string{"stdout"})
}

// NewLoggerWithConfig creates a production logger at the given level writing to outputPaths.
// outputPaths accepts anything zap accepts ("stdout", "stderr", file paths).
func NewLoggerWithConfig(level zapcore.Level, outputPaths []string) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = outputPaths
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: zapLogger,
	}, nil
}

// NewLoggerWithFile writes JSON to stdout and to a size-rotated file at path.
func NewLoggerWithFile(level zapcore.Level, path string) (*Logger, error) {
	if path == "" {
		return NewLoggerWithConfig(level, []string{"stdout"})
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	fileWriter := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     30, // days
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), level),
	)

	return &Logger{
		Logger: zap.New(core, zap.AddCaller()),
	}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
