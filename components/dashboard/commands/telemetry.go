package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// Telemetry is the dashboard event sink shared with the service.
type Telemetry = dashboard.Telemetry

// ErrNotWired is returned when a command was built without a dependency it
// needs to run.
var ErrNotWired = errors.New("commands: dependency not wired")

func notWired(command, dependency string) error {
	return fmt.Errorf("%w: %s command requires %s", ErrNotWired, command, dependency)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// track records event once a command finishes. Failures are recorded as
// "<event>.failed" with the error text; both carry the elapsed time.
func track(ctx context.Context, t Telemetry, event string, started time.Time, payload map[string]any, err error) {
	if payload == nil {
		payload = make(map[string]any, 2)
	}
	payload["duration_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		payload["error"] = err.Error()
		t.Record(ctx, event+".failed", payload)
		return
	}
	t.Record(ctx, event, payload)
}
