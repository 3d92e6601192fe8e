package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider = "provider"
	FieldModel    = "model"
	// FieldResultID ties log entries to a single analysis result.
	FieldResultID = "result_id"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and skipping entries with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to the logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the model provider used by a component.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

func WithResult(logger *zap.Logger, id string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldResultID, Value: id})...)
}
