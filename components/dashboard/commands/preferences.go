package commands

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// SaveLayoutPreferencesInput carries one viewer's ordering and hidden
// widgets.
type SaveLayoutPreferencesInput struct {
	Viewer        dashboard.ViewerContext `json:"viewer"`
	AreaOrder     map[string][]string     `json:"area_order"`
	HiddenWidgets []string                `json:"hidden_widget_ids"`
}

type preferenceService interface {
	SavePreferences(ctx context.Context, viewer dashboard.ViewerContext, overrides dashboard.LayoutOverrides) error
}

type SaveLayoutPreferencesCommand struct {
	service   preferenceService
	telemetry Telemetry
}

func NewSaveLayoutPreferencesCommand(service preferenceService, telemetry Telemetry) *SaveLayoutPreferencesCommand {
	return &SaveLayoutPreferencesCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveLayoutPreferencesInput] = (*SaveLayoutPreferencesCommand)(nil)

func (c *SaveLayoutPreferencesCommand) Execute(ctx context.Context, msg SaveLayoutPreferencesInput) error {
	if c.service == nil {
		return notWired("preferences", "a dashboard service")
	}
	if msg.Viewer.UserID == "" {
		return errors.New("commands: preferences need a viewer user id")
	}
	started := time.Now()
	err := c.service.SavePreferences(ctx, msg.Viewer, msg.overrides())
	track(ctx, c.telemetry, "dashboard.preferences.save", started, map[string]any{
		"user_id": msg.Viewer.UserID,
		"areas":   len(msg.AreaOrder),
		"hidden":  len(msg.HiddenWidgets),
	}, err)
	return err
}

func (msg SaveLayoutPreferencesInput) overrides() dashboard.LayoutOverrides {
	hidden := make(map[string]bool, len(msg.HiddenWidgets))
	for _, id := range msg.HiddenWidgets {
		if id != "" {
			hidden[id] = true
		}
	}
	return dashboard.LayoutOverrides{AreaOrder: msg.AreaOrder, HiddenWidgets: hidden}
}
