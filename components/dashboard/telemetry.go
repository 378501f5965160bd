package dashboard

import (
	"context"

	"go.uber.org/zap"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

type loggerTelemetry struct {
	logger *zap.Logger
}

// NewLoggerTelemetry writes every event as a debug log entry.
func NewLoggerTelemetry(logger *zap.Logger) Telemetry {
	if logger == nil {
		return noopTelemetry{}
	}
	return loggerTelemetry{logger: logger}
}

func (t loggerTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	fields := make([]zap.Field, 0, len(payload)+1)
	fields = append(fields, zap.String("event", event))
	for k, v := range payload {
		fields = append(fields, zap.Any(k, v))
	}
	t.logger.Debug("dashboard telemetry", fields...)
}
