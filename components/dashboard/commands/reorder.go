package commands

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
)

// ReorderWidgetsInput lists an area's widget ids in their new order.
type ReorderWidgetsInput struct {
	AreaCode  string   `json:"area_code"`
	WidgetIDs []string `json:"widget_ids"`
}

type reorderService interface {
	ReorderWidgets(ctx context.Context, areaCode string, widgetIDs []string) error
}

type ReorderWidgetsCommand struct {
	service   reorderService
	telemetry Telemetry
}

func NewReorderWidgetsCommand(service reorderService, telemetry Telemetry) *ReorderWidgetsCommand {
	return &ReorderWidgetsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ReorderWidgetsInput] = (*ReorderWidgetsCommand)(nil)

// Execute rejects ids listed twice before touching the store.
func (c *ReorderWidgetsCommand) Execute(ctx context.Context, msg ReorderWidgetsInput) error {
	if c.service == nil {
		return notWired("reorder", "a dashboard service")
	}
	if msg.AreaCode == "" {
		return errors.New("commands: reorder requires an area code")
	}
	seen := make(map[string]struct{}, len(msg.WidgetIDs))
	for _, id := range msg.WidgetIDs {
		if _, dup := seen[id]; dup {
			return errors.New("commands: reorder lists widget " + id + " twice")
		}
		seen[id] = struct{}{}
	}
	started := time.Now()
	err := c.service.ReorderWidgets(ctx, msg.AreaCode, msg.WidgetIDs)
	track(ctx, c.telemetry, "dashboard.widget.reorder", started, map[string]any{
		"area_code": msg.AreaCode,
		"count":     len(msg.WidgetIDs),
	}, err)
	return err
}
