package commands

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

type assignService interface {
	AddWidget(ctx context.Context, req dashboard.AddWidgetRequest) error
}

// AssignWidgetCommand places a voice analytics widget in an area.
type AssignWidgetCommand struct {
	service   assignService
	telemetry Telemetry
}

func NewAssignWidgetCommand(service assignService, telemetry Telemetry) *AssignWidgetCommand {
	return &AssignWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.AddWidgetRequest] = (*AssignWidgetCommand)(nil)

func (c *AssignWidgetCommand) Execute(ctx context.Context, msg dashboard.AddWidgetRequest) error {
	if c.service == nil {
		return notWired("assign", "a dashboard service")
	}
	started := time.Now()
	err := c.service.AddWidget(ctx, msg)
	track(ctx, c.telemetry, "dashboard.widget.assign", started, map[string]any{
		"definition_id": msg.DefinitionID,
		"area_code":     msg.AreaCode,
	}, err)
	return err
}
