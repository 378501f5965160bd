package commands

import (
	"context"
	"fmt"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

type layoutLibrary interface {
	Get(ctx context.Context, id string) (dashboard.SavedLayout, error)
	Save(ctx context.Context, in dashboard.SaveLayoutInput) (dashboard.SavedLayout, error)
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (dashboard.SavedLayout, error)
	Rename(ctx context.Context, id, name, description string) (dashboard.SavedLayout, error)
}

type layoutService interface {
	CaptureLayout(ctx context.Context, viewer dashboard.ViewerContext) ([]dashboard.LayoutWidget, error)
	ApplyLayout(ctx context.Context, viewer dashboard.ViewerContext, layout dashboard.SavedLayout) error
}

var errMissingLibrary = fmt.Errorf("%w: layout commands require a layout library", ErrNotWired)

// SaveLayoutInput names a snapshot of the dashboard. When Widgets is empty
// the viewer's current layout is captured. Result, when set, receives the
// stored layout.
type SaveLayoutInput struct {
	Viewer      dashboard.ViewerContext  `json:"viewer"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Widgets     []dashboard.LayoutWidget `json:"widgets,omitempty"`
	Result      *dashboard.SavedLayout   `json:"-"`
}

// SaveLayoutCommand stores a named layout.
type SaveLayoutCommand struct {
	library   layoutLibrary
	service   layoutService
	telemetry Telemetry
}

// NewSaveLayoutCommand creates the command. service may be nil when callers
// always pass widgets explicitly.
func NewSaveLayoutCommand(library layoutLibrary, service layoutService, telemetry Telemetry) *SaveLayoutCommand {
	return &SaveLayoutCommand{library: library, service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveLayoutInput] = (*SaveLayoutCommand)(nil)

// Execute captures (if needed) and saves the layout.
func (c *SaveLayoutCommand) Execute(ctx context.Context, msg SaveLayoutInput) error {
	if c.library == nil {
		return errMissingLibrary
	}
	started := time.Now()
	saved, err := c.save(ctx, msg)
	track(ctx, c.telemetry, "dashboard.layout.save", started, map[string]any{
		"layout_id": saved.ID,
		"widgets":   len(saved.Widgets),
		"captured":  len(msg.Widgets) == 0,
	}, err)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = saved
	}
	return nil
}

func (c *SaveLayoutCommand) save(ctx context.Context, msg SaveLayoutInput) (dashboard.SavedLayout, error) {
	widgets := msg.Widgets
	if len(widgets) == 0 && c.service != nil {
		captured, err := c.service.CaptureLayout(ctx, msg.Viewer)
		if err != nil {
			return dashboard.SavedLayout{}, err
		}
		widgets = captured
	}
	return c.library.Save(ctx, dashboard.SaveLayoutInput{
		Name:        msg.Name,
		Description: msg.Description,
		Widgets:     widgets,
	})
}

// ApplyLayoutInput selects a saved layout to apply for a viewer.
type ApplyLayoutInput struct {
	Viewer   dashboard.ViewerContext `json:"viewer"`
	LayoutID string                  `json:"layout_id"`
}

// ApplyLayoutCommand replaces the dashboard with a saved layout.
type ApplyLayoutCommand struct {
	library   layoutLibrary
	service   layoutService
	telemetry Telemetry
}

// NewApplyLayoutCommand creates the command.
func NewApplyLayoutCommand(library layoutLibrary, service layoutService, telemetry Telemetry) *ApplyLayoutCommand {
	return &ApplyLayoutCommand{library: library, service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ApplyLayoutInput] = (*ApplyLayoutCommand)(nil)

// Execute loads the layout and hands it to the service.
func (c *ApplyLayoutCommand) Execute(ctx context.Context, msg ApplyLayoutInput) error {
	if c.library == nil {
		return errMissingLibrary
	}
	if c.service == nil {
		return notWired("apply layout", "a dashboard service")
	}
	started := time.Now()
	layout, err := c.library.Get(ctx, msg.LayoutID)
	if err == nil {
		err = c.service.ApplyLayout(ctx, msg.Viewer, layout)
	}
	track(ctx, c.telemetry, "dashboard.layout.apply", started, map[string]any{
		"layout_id": msg.LayoutID,
		"widgets":   len(layout.Widgets),
	}, err)
	return err
}

// LayoutIDInput identifies a saved layout. Result, when set, receives the
// layout after the change.
type LayoutIDInput struct {
	LayoutID string                 `json:"layout_id"`
	Result   *dashboard.SavedLayout `json:"-"`
}

// DeleteLayoutCommand removes a saved layout.
type DeleteLayoutCommand struct {
	library   layoutLibrary
	telemetry Telemetry
}

// NewDeleteLayoutCommand creates the command.
func NewDeleteLayoutCommand(library layoutLibrary, telemetry Telemetry) *DeleteLayoutCommand {
	return &DeleteLayoutCommand{library: library, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LayoutIDInput] = (*DeleteLayoutCommand)(nil)

// Execute deletes the layout.
func (c *DeleteLayoutCommand) Execute(ctx context.Context, msg LayoutIDInput) error {
	if c.library == nil {
		return errMissingLibrary
	}
	started := time.Now()
	err := c.library.Delete(ctx, msg.LayoutID)
	track(ctx, c.telemetry, "dashboard.layout.delete", started, map[string]any{"layout_id": msg.LayoutID}, err)
	return err
}

// ToggleFavoriteCommand flips a saved layout's favorite flag.
type ToggleFavoriteCommand struct {
	library   layoutLibrary
	telemetry Telemetry
}

// NewToggleFavoriteCommand creates the command.
func NewToggleFavoriteCommand(library layoutLibrary, telemetry Telemetry) *ToggleFavoriteCommand {
	return &ToggleFavoriteCommand{library: library, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LayoutIDInput] = (*ToggleFavoriteCommand)(nil)

// Execute toggles the flag.
func (c *ToggleFavoriteCommand) Execute(ctx context.Context, msg LayoutIDInput) error {
	if c.library == nil {
		return errMissingLibrary
	}
	started := time.Now()
	layout, err := c.library.ToggleFavorite(ctx, msg.LayoutID)
	track(ctx, c.telemetry, "dashboard.layout.favorite", started, map[string]any{
		"layout_id": msg.LayoutID,
		"favorite":  layout.IsFavorite,
	}, err)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = layout
	}
	return nil
}

// RenameLayoutInput changes a saved layout's name and description.
type RenameLayoutInput struct {
	LayoutID    string                 `json:"layout_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Result      *dashboard.SavedLayout `json:"-"`
}

// RenameLayoutCommand renames a saved layout.
type RenameLayoutCommand struct {
	library   layoutLibrary
	telemetry Telemetry
}

// NewRenameLayoutCommand creates the command.
func NewRenameLayoutCommand(library layoutLibrary, telemetry Telemetry) *RenameLayoutCommand {
	return &RenameLayoutCommand{library: library, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RenameLayoutInput] = (*RenameLayoutCommand)(nil)

// Execute renames the layout.
func (c *RenameLayoutCommand) Execute(ctx context.Context, msg RenameLayoutInput) error {
	if c.library == nil {
		return errMissingLibrary
	}
	started := time.Now()
	layout, err := c.library.Rename(ctx, msg.LayoutID, msg.Name, msg.Description)
	track(ctx, c.telemetry, "dashboard.layout.rename", started, map[string]any{"layout_id": msg.LayoutID}, err)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = layout
	}
	return nil
}
