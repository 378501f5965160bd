package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dashboard "github.com/pharmai/voicedash/components/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededService(t *testing.T) (*dashboard.Service, *dashboard.InMemoryWidgetStore) {
	t.Helper()
	store := dashboard.NewInMemoryWidgetStore()
	reg := dashboard.NewRegistry()
	service := dashboard.NewService(dashboard.Options{WidgetStore: store, Providers: reg})
	cmd := NewSeedDashboardCommand(store, reg, service, nil)
	require.NoError(t, cmd.Execute(context.Background(), SeedDashboardInput{SeedLayout: true}))
	return service, store
}

func countWidgets(t *testing.T, store *dashboard.InMemoryWidgetStore) int {
	t.Helper()
	total := 0
	for _, area := range dashboard.DefaultAreaCodes() {
		resolved, err := store.ResolveArea(context.Background(), dashboard.ResolveAreaInput{AreaCode: area, IncludeAll: true})
		require.NoError(t, err)
		total += len(resolved.Widgets)
	}
	return total
}

func TestSeedDashboardCommand(t *testing.T) {
	store := dashboard.NewInMemoryWidgetStore()
	reg := &stubRegistry{}
	service := dashboard.NewService(dashboard.Options{WidgetStore: store})
	telemetry := &stubTelemetry{}
	cmd := NewSeedDashboardCommand(store, reg, service, telemetry)
	if err := cmd.Execute(context.Background(), SeedDashboardInput{SeedLayout: true}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if reg.count != len(dashboard.DefaultWidgetDefinitions()) {
		t.Fatalf("expected registry count %d, got %d", len(dashboard.DefaultWidgetDefinitions()), reg.count)
	}
	if got := countWidgets(t, store); got != len(dashboard.DefaultSeedWidgets()) {
		t.Fatalf("expected %d seeded widgets, got %d", len(dashboard.DefaultSeedWidgets()), got)
	}
	if telemetry.count("dashboard.seed") != 1 {
		t.Fatalf("expected seed telemetry event")
	}
}

func TestSeedDashboardCommandPlacements(t *testing.T) {
	store := dashboard.NewInMemoryWidgetStore()
	reg := dashboard.NewRegistry()
	service := dashboard.NewService(dashboard.Options{WidgetStore: store, Providers: reg})
	cmd := NewSeedDashboardCommand(store, reg, service, nil).WithLogger(nil)
	input := SeedDashboardInput{
		SeedLayout: true,
		Placements: []dashboard.SeedPlacement{
			{Widget: dashboard.WidgetLeaderboard, Area: dashboard.AreaMain, Configuration: map[string]any{"limit": 3}},
		},
	}
	require.NoError(t, cmd.Execute(context.Background(), input))
	assert.Equal(t, 1, countWidgets(t, store))

	require.NoError(t, cmd.Execute(context.Background(), input))
	assert.Equal(t, 1, countWidgets(t, store), "populated areas are not reseeded")

	input.Force = true
	require.NoError(t, cmd.Execute(context.Background(), input))
	assert.Equal(t, 2, countWidgets(t, store))
}

func TestSeedDashboardCommandRequiresStore(t *testing.T) {
	cmd := NewSeedDashboardCommand(nil, nil, nil, nil)
	if err := cmd.Execute(context.Background(), SeedDashboardInput{}); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestAssignWidgetCommand(t *testing.T) {
	service := &stubService{}
	telemetry := &stubTelemetry{}
	cmd := NewAssignWidgetCommand(service, telemetry)
	req := dashboard.AddWidgetRequest{DefinitionID: dashboard.WidgetLeaderboard, AreaCode: dashboard.AreaSidebar}
	if err := cmd.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.addCalls != 1 {
		t.Fatalf("expected add call")
	}
	if telemetry.count("dashboard.widget.assign") != 1 {
		t.Fatalf("expected assign telemetry")
	}
}

func TestUpdateWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewUpdateWidgetCommand(service, nil)
	err := cmd.Execute(context.Background(), dashboard.UpdateWidgetRequest{
		WidgetID:      "widget-1",
		Configuration: map[string]any{"limit": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, service.updateCalls)

	err = cmd.Execute(context.Background(), dashboard.UpdateWidgetRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, service.updateCalls)
}

func TestUpdateWidgetCommandRejectsInvalidConfiguration(t *testing.T) {
	service, store := newSeededService(t)
	sidebar, err := store.ResolveArea(context.Background(), dashboard.ResolveAreaInput{AreaCode: dashboard.AreaSidebar})
	require.NoError(t, err)
	var leaderboardID string
	for _, w := range sidebar.Widgets {
		if w.DefinitionID == dashboard.WidgetLeaderboard {
			leaderboardID = w.ID
		}
	}
	require.NotEmpty(t, leaderboardID)

	cmd := NewUpdateWidgetCommand(service, nil)
	err = cmd.Execute(context.Background(), dashboard.UpdateWidgetRequest{
		WidgetID:      leaderboardID,
		Configuration: map[string]any{"limit": "many"},
	})
	require.Error(t, err)

	require.NoError(t, cmd.Execute(context.Background(), dashboard.UpdateWidgetRequest{
		WidgetID:      leaderboardID,
		Configuration: map[string]any{"limit": 3},
	}))
	inst, err := store.GetInstance(context.Background(), leaderboardID)
	require.NoError(t, err)
	assert.Equal(t, 3, inst.Configuration["limit"])
}

func TestRemoveWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRemoveWidgetCommand(service, nil)
	if err := cmd.Execute(context.Background(), RemoveWidgetInput{WidgetID: "widget-1"}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.removeCalls != 1 {
		t.Fatalf("expected remove call")
	}
}

func TestReorderWidgetsCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewReorderWidgetsCommand(service, nil)
	if err := cmd.Execute(context.Background(), ReorderWidgetsInput{
		AreaCode:  dashboard.AreaMain,
		WidgetIDs: []string{"w1", "w2"},
	}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.reorderCalls != 1 {
		t.Fatalf("expected reorder call")
	}
}

func TestRefreshWidgetCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewRefreshWidgetCommand(service, nil, nil)
	event := dashboard.WidgetEvent{AreaCode: dashboard.AreaMain}
	if err := cmd.Execute(context.Background(), RefreshWidgetInput{Event: event}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if service.refreshCalls != 1 {
		t.Fatalf("expected refresh call")
	}
	if service.lastEvent.Reason != "refresh" {
		t.Fatalf("expected default reason, got %q", service.lastEvent.Reason)
	}
}

func TestRefreshWidgetCommandRegenerates(t *testing.T) {
	service := &stubService{}
	datasets := dashboard.NewDatasetCache(time.Minute)
	first := dashboard.CachedDataset(datasets, "widget-1", "numbers", func() []int { return []int{1} })
	require.Equal(t, []int{1}, first)

	cmd := NewRefreshWidgetCommand(service, datasets, nil)
	err := cmd.Execute(context.Background(), RefreshWidgetInput{
		Event:      dashboard.WidgetEvent{Instance: dashboard.WidgetInstance{ID: "widget-1"}},
		Regenerate: true,
	})
	require.NoError(t, err)

	cached := dashboard.CachedDataset(datasets, "widget-2", "numbers", func() []int { return []int{1} })
	require.Equal(t, []int{1}, cached)
	second := dashboard.CachedDataset(datasets, "widget-1", "numbers", func() []int { return []int{2} })
	assert.Equal(t, []int{2}, second)
	assert.Equal(t, 2, datasets.Len())
}

func TestSaveLayoutPreferencesCommand(t *testing.T) {
	service := &stubService{}
	cmd := NewSaveLayoutPreferencesCommand(service, nil)
	err := cmd.Execute(context.Background(), SaveLayoutPreferencesInput{
		Viewer:        dashboard.ViewerContext{UserID: "agent-7"},
		AreaOrder:     map[string][]string{dashboard.AreaMain: {"w2", "w1"}},
		HiddenWidgets: []string{"w3"},
	})
	require.NoError(t, err)
	assert.True(t, service.overrides.HiddenWidgets["w3"])
	assert.Equal(t, []string{"w2", "w1"}, service.overrides.AreaOrder[dashboard.AreaMain])

	err = cmd.Execute(context.Background(), SaveLayoutPreferencesInput{})
	require.Error(t, err)
}

func TestSaveAndApplyLayoutCommands(t *testing.T) {
	service, store := newSeededService(t)
	library := dashboard.NewLayoutLibrary(dashboard.LayoutLibraryOptions{Store: newMemoryBlobs()})
	viewer := dashboard.ViewerContext{UserID: "supervisor"}
	ctx := context.Background()

	var saved dashboard.SavedLayout
	save := NewSaveLayoutCommand(library, service, nil)
	require.NoError(t, save.Execute(ctx, SaveLayoutInput{Viewer: viewer, Name: "  Morning ops ", Result: &saved}))
	assert.Equal(t, "Morning ops", saved.Name)
	assert.Len(t, saved.Widgets, len(dashboard.DefaultSeedWidgets()))

	main, err := store.ResolveArea(ctx, dashboard.ResolveAreaInput{AreaCode: dashboard.AreaMain})
	require.NoError(t, err)
	require.NotEmpty(t, main.Widgets)
	require.NoError(t, service.RemoveWidget(ctx, main.Widgets[0].ID))
	require.Equal(t, len(dashboard.DefaultSeedWidgets())-1, countWidgets(t, store))

	apply := NewApplyLayoutCommand(library, service, nil)
	require.NoError(t, apply.Execute(ctx, ApplyLayoutInput{Viewer: viewer, LayoutID: saved.ID}))
	assert.Equal(t, len(dashboard.DefaultSeedWidgets()), countWidgets(t, store))

	restored, err := store.ResolveArea(ctx, dashboard.ResolveAreaInput{AreaCode: dashboard.AreaMain})
	require.NoError(t, err)
	assert.Equal(t, main.Widgets[0].DefinitionID, restored.Widgets[0].DefinitionID)

	err = apply.Execute(ctx, ApplyLayoutInput{Viewer: viewer, LayoutID: "missing"})
	require.ErrorIs(t, err, dashboard.ErrLayoutNotFound)
}

func TestSaveLayoutCommandUsesExplicitWidgets(t *testing.T) {
	library := dashboard.NewLayoutLibrary(dashboard.LayoutLibraryOptions{Store: newMemoryBlobs()})
	var saved dashboard.SavedLayout
	cmd := NewSaveLayoutCommand(library, nil, nil)
	err := cmd.Execute(context.Background(), SaveLayoutInput{
		Name:    "Exec",
		Widgets: []dashboard.LayoutWidget{{DefinitionID: dashboard.WidgetCallTrend, AreaCode: dashboard.AreaMain}},
		Result:  &saved,
	})
	require.NoError(t, err)
	require.Len(t, saved.Widgets, 1)

	err = cmd.Execute(context.Background(), SaveLayoutInput{Name: "   "})
	require.ErrorIs(t, err, dashboard.ErrLayoutNameRequired)
}

func TestLayoutLibraryCommands(t *testing.T) {
	library := dashboard.NewLayoutLibrary(dashboard.LayoutLibraryOptions{Store: newMemoryBlobs()})
	ctx := context.Background()
	saved, err := library.Save(ctx, dashboard.SaveLayoutInput{Name: "Ops"})
	require.NoError(t, err)

	var favorite dashboard.SavedLayout
	require.NoError(t, NewToggleFavoriteCommand(library, nil).Execute(ctx, LayoutIDInput{LayoutID: saved.ID, Result: &favorite}))
	assert.True(t, favorite.IsFavorite)

	var renamed dashboard.SavedLayout
	require.NoError(t, NewRenameLayoutCommand(library, nil).Execute(ctx, RenameLayoutInput{
		LayoutID:    saved.ID,
		Name:        "Ops v2",
		Description: "after hours",
		Result:      &renamed,
	}))
	assert.Equal(t, "Ops v2", renamed.Name)
	assert.True(t, renamed.IsFavorite)

	telemetry := &stubTelemetry{}
	require.NoError(t, NewDeleteLayoutCommand(library, telemetry).Execute(ctx, LayoutIDInput{LayoutID: saved.ID}))
	assert.Equal(t, 1, telemetry.count("dashboard.layout.delete"))
	layouts, err := library.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, layouts)

	err = NewDeleteLayoutCommand(library, nil).Execute(ctx, LayoutIDInput{LayoutID: saved.ID})
	require.ErrorIs(t, err, dashboard.ErrLayoutNotFound)
}

func TestLayoutCommandsRequireLibrary(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, NewSaveLayoutCommand(nil, nil, nil).Execute(ctx, SaveLayoutInput{Name: "x"}), errMissingLibrary)
	assert.ErrorIs(t, NewDeleteLayoutCommand(nil, nil).Execute(ctx, LayoutIDInput{}), errMissingLibrary)
	assert.ErrorIs(t, NewToggleFavoriteCommand(nil, nil).Execute(ctx, LayoutIDInput{}), errMissingLibrary)
	assert.ErrorIs(t, NewRenameLayoutCommand(nil, nil).Execute(ctx, RenameLayoutInput{}), errMissingLibrary)
}

func TestWidgetCommandsRequireService(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, NewAssignWidgetCommand(nil, nil).Execute(ctx, dashboard.AddWidgetRequest{}), ErrNotWired)
	assert.ErrorIs(t, NewUpdateWidgetCommand(nil, nil).Execute(ctx, dashboard.UpdateWidgetRequest{}), ErrNotWired)
	assert.ErrorIs(t, NewRemoveWidgetCommand(nil, nil).Execute(ctx, RemoveWidgetInput{}), ErrNotWired)
	assert.ErrorIs(t, NewReorderWidgetsCommand(nil, nil).Execute(ctx, ReorderWidgetsInput{}), ErrNotWired)
	assert.ErrorIs(t, NewRefreshWidgetCommand(nil, nil, nil).Execute(ctx, RefreshWidgetInput{}), ErrNotWired)
	assert.ErrorIs(t, NewSaveLayoutPreferencesCommand(nil, nil).Execute(ctx, SaveLayoutPreferencesInput{}), ErrNotWired)
	assert.ErrorIs(t, NewApplyLayoutCommand(dashboard.NewLayoutLibrary(dashboard.LayoutLibraryOptions{Store: newMemoryBlobs()}), nil, nil).
		Execute(ctx, ApplyLayoutInput{}), ErrNotWired)
	assert.ErrorIs(t, errMissingLibrary, ErrNotWired)
}

func TestWidgetCommandsRejectIncompleteInput(t *testing.T) {
	ctx := context.Background()
	service := &stubService{}
	assert.ErrorIs(t, NewUpdateWidgetCommand(service, nil).Execute(ctx, dashboard.UpdateWidgetRequest{}), ErrWidgetIDRequired)
	assert.ErrorIs(t, NewRemoveWidgetCommand(service, nil).Execute(ctx, RemoveWidgetInput{}), ErrWidgetIDRequired)

	reorder := NewReorderWidgetsCommand(service, nil)
	assert.Error(t, reorder.Execute(ctx, ReorderWidgetsInput{WidgetIDs: []string{"w1"}}))
	err := reorder.Execute(ctx, ReorderWidgetsInput{AreaCode: dashboard.AreaMain, WidgetIDs: []string{"w1", "w2", "w1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "w1 twice")
	assert.Zero(t, service.updateCalls+service.removeCalls+service.reorderCalls)
}

func TestCommandFailuresAreTracked(t *testing.T) {
	boom := errors.New("store offline")
	service := &stubService{err: boom}
	telemetry := &stubTelemetry{}
	err := NewAssignWidgetCommand(service, telemetry).Execute(context.Background(), dashboard.AddWidgetRequest{
		DefinitionID: dashboard.WidgetCallTrend,
		AreaCode:     dashboard.AreaMain,
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, telemetry.count("dashboard.widget.assign"))
	assert.Equal(t, 1, telemetry.count("dashboard.widget.assign.failed"))
}

func TestTrackAddsDurationAndError(t *testing.T) {
	var got map[string]any
	sink := telemetryFunc(func(_ context.Context, event string, payload map[string]any) {
		assert.Equal(t, "dashboard.layout.delete.failed", event)
		got = payload
	})
	track(context.Background(), sink, "dashboard.layout.delete", time.Now(), nil, dashboard.ErrLayoutNotFound)
	assert.Contains(t, got, "duration_ms")
	assert.Equal(t, dashboard.ErrLayoutNotFound.Error(), got["error"])
}

type telemetryFunc func(ctx context.Context, event string, payload map[string]any)

func (f telemetryFunc) Record(ctx context.Context, event string, payload map[string]any) {
	f(ctx, event, payload)
}

type stubService struct {
	addCalls     int
	updateCalls  int
	removeCalls  int
	reorderCalls int
	refreshCalls int
	lastEvent    dashboard.WidgetEvent
	overrides    dashboard.LayoutOverrides
	err          error
}

func (s *stubService) AddWidget(context.Context, dashboard.AddWidgetRequest) error {
	s.addCalls++
	return s.err
}

func (s *stubService) UpdateWidget(context.Context, dashboard.UpdateWidgetRequest) error {
	s.updateCalls++
	return nil
}

func (s *stubService) RemoveWidget(context.Context, string) error {
	s.removeCalls++
	return nil
}

func (s *stubService) ReorderWidgets(context.Context, string, []string) error {
	s.reorderCalls++
	return nil
}

func (s *stubService) NotifyWidgetUpdated(_ context.Context, event dashboard.WidgetEvent) error {
	s.refreshCalls++
	s.lastEvent = event
	return nil
}

func (s *stubService) SavePreferences(_ context.Context, _ dashboard.ViewerContext, overrides dashboard.LayoutOverrides) error {
	s.overrides = overrides
	return nil
}

type stubRegistry struct {
	count int
}

func (s *stubRegistry) RegisterDefinition(def dashboard.WidgetDefinition) error {
	s.count++
	return nil
}

func (s *stubRegistry) RegisterProvider(string, dashboard.Provider) error { return nil }
func (s *stubRegistry) Definition(string) (dashboard.WidgetDefinition, bool) {
	return dashboard.WidgetDefinition{}, false
}
func (s *stubRegistry) Provider(string) (dashboard.Provider, bool) { return nil, false }
func (s *stubRegistry) Definitions() []dashboard.WidgetDefinition  { return nil }

type stubTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *stubTelemetry) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

type memoryBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{data: map[string][]byte{}}
}

func (m *memoryBlobs) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryBlobs) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("empty key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
