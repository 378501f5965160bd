package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/commands"
	"github.com/pharmai/voicedash/components/dashboard/queries"
)

// Executor is the set of dashboard operations exposed over HTTP. Transports
// (net/http, go-router) depend on this interface only.
type Executor interface {
	Assign(ctx context.Context, req dashboard.AddWidgetRequest) error
	Update(ctx context.Context, req dashboard.UpdateWidgetRequest) error
	Remove(ctx context.Context, input commands.RemoveWidgetInput) error
	Reorder(ctx context.Context, input commands.ReorderWidgetsInput) error
	Refresh(ctx context.Context, input commands.RefreshWidgetInput) error
	Preferences(ctx context.Context, input commands.SaveLayoutPreferencesInput) error
	SaveLayout(ctx context.Context, input commands.SaveLayoutInput) (dashboard.SavedLayout, error)
	ApplyLayout(ctx context.Context, input commands.ApplyLayoutInput) error
	DeleteLayout(ctx context.Context, layoutID string) error
	ToggleFavorite(ctx context.Context, layoutID string) (dashboard.SavedLayout, error)
	RenameLayout(ctx context.Context, input commands.RenameLayoutInput) (dashboard.SavedLayout, error)
	ListLayouts(ctx context.Context, input queries.SavedLayoutsInput) ([]queries.SavedLayoutSummary, error)
	FrictionCSV(ctx context.Context, input queries.FrictionExportInput) (queries.CSVExport, error)
	Dashboard(ctx context.Context, input queries.DashboardInput) (queries.DashboardSnapshot, error)
}

// ErrNotConfigured is returned when an operation has no backing command.
var ErrNotConfigured = errors.New("httpapi: operation not configured")

// CommandExecutor adapts go-command commanders and queriers to Executor.
// Nil fields report ErrNotConfigured.
type CommandExecutor struct {
	AssignCommander       gocommand.Commander[dashboard.AddWidgetRequest]
	UpdateCommander       gocommand.Commander[dashboard.UpdateWidgetRequest]
	RemoveCommander       gocommand.Commander[commands.RemoveWidgetInput]
	ReorderCommander      gocommand.Commander[commands.ReorderWidgetsInput]
	RefreshCommander      gocommand.Commander[commands.RefreshWidgetInput]
	PreferencesCommander  gocommand.Commander[commands.SaveLayoutPreferencesInput]
	SaveLayoutCommander   gocommand.Commander[commands.SaveLayoutInput]
	ApplyLayoutCommander  gocommand.Commander[commands.ApplyLayoutInput]
	DeleteLayoutCommander gocommand.Commander[commands.LayoutIDInput]
	FavoriteCommander     gocommand.Commander[commands.LayoutIDInput]
	RenameCommander       gocommand.Commander[commands.RenameLayoutInput]
	LayoutsQuery          gocommand.Querier[queries.SavedLayoutsInput, []queries.SavedLayoutSummary]
	ExportQuery           gocommand.Querier[queries.FrictionExportInput, queries.CSVExport]
	DashboardQuery        gocommand.Querier[queries.DashboardInput, queries.DashboardSnapshot]
}

var _ Executor = (*CommandExecutor)(nil)

func (e *CommandExecutor) Assign(ctx context.Context, req dashboard.AddWidgetRequest) error {
	return execute(ctx, e.AssignCommander, req)
}

func (e *CommandExecutor) Update(ctx context.Context, req dashboard.UpdateWidgetRequest) error {
	return execute(ctx, e.UpdateCommander, req)
}

func (e *CommandExecutor) Remove(ctx context.Context, input commands.RemoveWidgetInput) error {
	return execute(ctx, e.RemoveCommander, input)
}

func (e *CommandExecutor) Reorder(ctx context.Context, input commands.ReorderWidgetsInput) error {
	return execute(ctx, e.ReorderCommander, input)
}

func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshWidgetInput) error {
	return execute(ctx, e.RefreshCommander, input)
}

func (e *CommandExecutor) Preferences(ctx context.Context, input commands.SaveLayoutPreferencesInput) error {
	return execute(ctx, e.PreferencesCommander, input)
}

func (e *CommandExecutor) SaveLayout(ctx context.Context, input commands.SaveLayoutInput) (dashboard.SavedLayout, error) {
	var out dashboard.SavedLayout
	input.Result = &out
	err := execute(ctx, e.SaveLayoutCommander, input)
	return out, err
}

func (e *CommandExecutor) ApplyLayout(ctx context.Context, input commands.ApplyLayoutInput) error {
	return execute(ctx, e.ApplyLayoutCommander, input)
}

func (e *CommandExecutor) DeleteLayout(ctx context.Context, layoutID string) error {
	return execute(ctx, e.DeleteLayoutCommander, commands.LayoutIDInput{LayoutID: layoutID})
}

func (e *CommandExecutor) ToggleFavorite(ctx context.Context, layoutID string) (dashboard.SavedLayout, error) {
	var out dashboard.SavedLayout
	err := execute(ctx, e.FavoriteCommander, commands.LayoutIDInput{LayoutID: layoutID, Result: &out})
	return out, err
}

func (e *CommandExecutor) RenameLayout(ctx context.Context, input commands.RenameLayoutInput) (dashboard.SavedLayout, error) {
	var out dashboard.SavedLayout
	input.Result = &out
	err := execute(ctx, e.RenameCommander, input)
	return out, err
}

func (e *CommandExecutor) ListLayouts(ctx context.Context, input queries.SavedLayoutsInput) ([]queries.SavedLayoutSummary, error) {
	if e.LayoutsQuery == nil {
		return nil, ErrNotConfigured
	}
	return e.LayoutsQuery.Query(ctx, input)
}

func (e *CommandExecutor) FrictionCSV(ctx context.Context, input queries.FrictionExportInput) (queries.CSVExport, error) {
	if e.ExportQuery == nil {
		return queries.CSVExport{}, ErrNotConfigured
	}
	return e.ExportQuery.Query(ctx, input)
}

func (e *CommandExecutor) Dashboard(ctx context.Context, input queries.DashboardInput) (queries.DashboardSnapshot, error) {
	if e.DashboardQuery == nil {
		return queries.DashboardSnapshot{}, ErrNotConfigured
	}
	return e.DashboardQuery.Query(ctx, input)
}

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return ErrNotConfigured
	}
	return cmd.Execute(ctx, msg)
}
