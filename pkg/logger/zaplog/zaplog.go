package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements LoggerInstance using zap's JSON encoder. It is the
// backend of choice when logs are shipped to an aggregator rather than read
// off a terminal.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// ZapLoggerParams contains configuration for creating a ZapLogger.
type ZapLoggerParams struct {
	Debug bool
}

// NewZapLogger creates a JSON logger that writes to stderr.
func NewZapLogger(params ZapLoggerParams) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if params.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: logger.Sugar()}, nil
}

// Log writes a message at INFO level; zap has no unleveled print.
func (z *ZapLogger) Log(message string, keyvals ...any) {
	z.logger.Infow(message, keyvals...)
}

// Info writes a message at INFO level.
func (z *ZapLogger) Info(message string, keyvals ...any) {
	z.logger.Infow(message, keyvals...)
}

// Warn writes a message at WARN level.
func (z *ZapLogger) Warn(message string, keyvals ...any) {
	z.logger.Warnw(message, keyvals...)
}

// Error writes a message at ERROR level.
func (z *ZapLogger) Error(message string, keyvals ...any) {
	z.logger.Errorw(message, keyvals...)
}

// Debug writes a message at DEBUG level.
func (z *ZapLogger) Debug(message string, keyvals ...any) {
	z.logger.Debugw(message, keyvals...)
}

// Fatal writes a message at FATAL level and terminates the program.
func (z *ZapLogger) Fatal(message string, keyvals ...any) {
	z.logger.Fatalw(message, keyvals...)
}

// Sync flushes buffered log entries. Call before process exit.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
