package commands

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// ErrWidgetIDRequired is returned when an update names no widget.
var ErrWidgetIDRequired = errors.New("commands: widget id is required")

type updateService interface {
	UpdateWidget(ctx context.Context, req dashboard.UpdateWidgetRequest) error
}

// UpdateWidgetCommand replaces a widget's settings after schema validation.
type UpdateWidgetCommand struct {
	service   updateService
	telemetry Telemetry
}

func NewUpdateWidgetCommand(service updateService, telemetry Telemetry) *UpdateWidgetCommand {
	return &UpdateWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.UpdateWidgetRequest] = (*UpdateWidgetCommand)(nil)

func (c *UpdateWidgetCommand) Execute(ctx context.Context, msg dashboard.UpdateWidgetRequest) error {
	if c.service == nil {
		return notWired("update", "a dashboard service")
	}
	if msg.WidgetID == "" {
		return ErrWidgetIDRequired
	}
	started := time.Now()
	err := c.service.UpdateWidget(ctx, msg)
	track(ctx, c.telemetry, "dashboard.widget.update", started, map[string]any{
		"widget_id": msg.WidgetID,
		"keys":      len(msg.Configuration),
	}, err)
	return err
}
