package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// OperationIDKey is the context key for the id of the running command.
	OperationIDKey ContextKey = "operation_id"

	// CommandKey is the context key for the CLI command path.
	CommandKey ContextKey = "command"
)

var (
	// globalLogger is the application's global logger instance.
	globalLogger *zap.Logger
)

// Initialize sets up the global logger based on the environment.
// env should be "production" or "development". Production logs warnings and above as
// JSON unless verbose is set; development logs everything to the console.
func Initialize(env string, verbose bool) error {
	var logger *zap.Logger
	var err error

	if env == "production" {
		// Production config: JSON encoding on stderr
		config := zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.MessageKey = "message"
		config.EncoderConfig.LevelKey = "level"
		config.EncoderConfig.CallerKey = "caller"
		config.EncoderConfig.StacktraceKey = "stacktrace"
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}

		logger, err = config.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	} else {
		// Development config: Console encoding, DebugLevel
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		logger, err = config.Build(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}

	if err != nil {
		return err
	}

	globalLogger = logger
	return nil
}

// Get returns the global logger instance.
// If not initialized, returns a no-op logger.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Sync flushes any buffered log entries.
// Should be called before application shutdown.
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// WithContext creates a child logger with the operation id and command from ctx.
func WithContext(ctx context.Context) *zap.Logger {
	logger := Get()

	if opID, ok := ctx.Value(OperationIDKey).(string); ok && opID != "" {
		logger = WithOperation(logger, opID)
	}

	if command, ok := ctx.Value(CommandKey).(string); ok && command != "" {
		logger = logger.With(zap.String("command", command))
	}

	return logger
}

// WithOperation adds an operation id to the logger.
func WithOperation(logger *zap.Logger, operationID string) *zap.Logger {
	return logger.With(zap.String("operation_id", operationID))
}

// WithEntryID adds a vault entry id to the logger.
func WithEntryID(logger *zap.Logger, entryID string) *zap.Logger {
	return logger.With(zap.String("entry_id", entryID))
}

// IsSensitiveField checks if a field name contains sensitive data.
func IsSensitiveField(fieldName string) bool {
	sensitiveFields := map[string]bool{
		"password":       true,
		"pin":            true,
		"old_pin":        true,
		"new_pin":        true,
		"key":            true,
		"encryption_key": true,
		"verifier":       true,
		"hash":           true,
		"plaintext":      true,
		"ciphertext":     true,
		"value":          true,
		"dsn":            true,
	}

	return sensitiveFields[fieldName]
}
