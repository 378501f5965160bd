package commands

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// RefreshWidgetInput emits refresh notifications for a widget instance.
// Regenerate drops the widget's cached demo dataset first.
type RefreshWidgetInput struct {
	Event      dashboard.WidgetEvent `json:"event"`
	Regenerate bool                  `json:"regenerate,omitempty"`
}

type refreshNotifier interface {
	NotifyWidgetUpdated(ctx context.Context, event dashboard.WidgetEvent) error
}

type datasetInvalidator interface {
	Invalidate(instanceID string) int
}

// RefreshWidgetCommand triggers refresh hooks without forcing transports.
type RefreshWidgetCommand struct {
	service   refreshNotifier
	datasets  datasetInvalidator
	telemetry Telemetry
}

// NewRefreshWidgetCommand creates the command. datasets may be nil.
func NewRefreshWidgetCommand(service refreshNotifier, datasets datasetInvalidator, telemetry Telemetry) *RefreshWidgetCommand {
	return &RefreshWidgetCommand{service: service, datasets: datasets, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshWidgetInput] = (*RefreshWidgetCommand)(nil)

// Execute notifies the dashboard service's refresh hooks.
func (c *RefreshWidgetCommand) Execute(ctx context.Context, msg RefreshWidgetInput) error {
	if c.service == nil {
		return notWired("refresh", "a dashboard service")
	}
	dropped := 0
	if msg.Regenerate && c.datasets != nil && msg.Event.Instance.ID != "" {
		dropped = c.datasets.Invalidate(msg.Event.Instance.ID)
	}
	if msg.Event.Reason == "" {
		msg.Event.Reason = "refresh"
	}
	started := time.Now()
	err := c.service.NotifyWidgetUpdated(ctx, msg.Event)
	track(ctx, c.telemetry, "dashboard.widget.refresh", started, map[string]any{
		"area_code": msg.Event.AreaCode,
		"widget_id": msg.Event.Instance.ID,
		"dropped":   dropped,
	}, err)
	return err
}
