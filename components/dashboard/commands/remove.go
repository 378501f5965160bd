package commands

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
)

// RemoveWidgetInput names the widget instance to take off the dashboard.
type RemoveWidgetInput struct {
	WidgetID string `json:"widget_id"`
	UserID   string `json:"user_id,omitempty"`
}

type removeService interface {
	RemoveWidget(ctx context.Context, widgetID string) error
}

type RemoveWidgetCommand struct {
	service   removeService
	telemetry Telemetry
}

func NewRemoveWidgetCommand(service removeService, telemetry Telemetry) *RemoveWidgetCommand {
	return &RemoveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveWidgetInput] = (*RemoveWidgetCommand)(nil)

func (c *RemoveWidgetCommand) Execute(ctx context.Context, msg RemoveWidgetInput) error {
	if c.service == nil {
		return notWired("remove", "a dashboard service")
	}
	if msg.WidgetID == "" {
		return ErrWidgetIDRequired
	}
	started := time.Now()
	err := c.service.RemoveWidget(ctx, msg.WidgetID)
	track(ctx, c.telemetry, "dashboard.widget.remove", started, map[string]any{
		"widget_id": msg.WidgetID,
		"user_id":   msg.UserID,
	}, err)
	return err
}
