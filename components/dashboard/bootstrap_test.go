package dashboard

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// assignFailingStore rejects assignments into one area.
type assignFailingStore struct {
	*InMemoryWidgetStore
	failArea    string
	assignCalls int
}

func (s *assignFailingStore) AssignInstance(ctx context.Context, input AssignWidgetInput) error {
	s.assignCalls++
	if input.AreaCode == s.failArea {
		return errors.New("area offline")
	}
	return s.InMemoryWidgetStore.AssignInstance(ctx, input)
}

type countingRegistry struct {
	*Registry
	registered int
}

func (r *countingRegistry) RegisterDefinition(def WidgetDefinition) error {
	r.registered++
	return r.Registry.RegisterDefinition(def)
}

func TestRegisterAreasIdempotent(t *testing.T) {
	store := NewInMemoryWidgetStore()
	ctx := context.Background()
	if err := RegisterAreas(ctx, store); err != nil {
		t.Fatalf("RegisterAreas returned error: %v", err)
	}
	if got := len(store.areas); got != len(DefaultAreaDefinitions()) {
		t.Fatalf("expected %d areas, got %d", len(DefaultAreaDefinitions()), got)
	}
	if err := RegisterAreas(ctx, store); err != nil {
		t.Fatalf("second RegisterAreas returned error: %v", err)
	}
	if got := len(store.areas); got != len(DefaultAreaDefinitions()) {
		t.Fatalf("expected idempotent area registration, got %d areas", got)
	}
}

func TestRegisterRequiresStore(t *testing.T) {
	if err := RegisterAreas(context.Background(), nil); !errors.Is(err, errMissingWidgetStore) {
		t.Fatalf("expected missing store error, got %v", err)
	}
	if err := RegisterDefinitions(context.Background(), nil, nil); !errors.Is(err, errMissingWidgetStore) {
		t.Fatalf("expected missing store error, got %v", err)
	}
}

func TestRegisterDefinitionsMirrorsRegistry(t *testing.T) {
	store := NewInMemoryWidgetStore()
	reg := &countingRegistry{Registry: NewRegistry()}
	doc := NewManifest("inline")
	doc.Widgets = []ManifestWidget{{Definition: WidgetDefinition{Code: "voice.widget.hold_times", Name: "Hold Times"}}}
	if err := reg.LoadManifestDocument(doc); err != nil {
		t.Fatalf("LoadManifestDocument returned error: %v", err)
	}
	reg.registered = 0

	if err := RegisterDefinitions(context.Background(), store, reg); err != nil {
		t.Fatalf("RegisterDefinitions returned error: %v", err)
	}
	want := len(DefaultWidgetDefinitions()) + 1
	if len(store.definitions) != want {
		t.Fatalf("expected %d definitions in store, got %d", want, len(store.definitions))
	}
	if _, ok := store.definitions["voice.widget.hold_times"]; !ok {
		t.Fatalf("expected manifest widget in store")
	}
	if reg.registered != 0 {
		t.Fatalf("expected built-ins already in the registry to be left alone, got %d writes", reg.registered)
	}
}

func TestRegisterDefinitionsFillsEmptyRegistry(t *testing.T) {
	store := NewInMemoryWidgetStore()
	reg := &countingRegistry{Registry: &Registry{
		definitions:  map[string]WidgetDefinition{},
		providers:    map[string]Provider{},
		manifestMeta: map[string]ManifestProvider{},
	}}
	if err := RegisterDefinitions(context.Background(), store, reg); err != nil {
		t.Fatalf("RegisterDefinitions returned error: %v", err)
	}
	want := len(DefaultWidgetDefinitions())
	if reg.registered != want {
		t.Fatalf("expected registry to receive %d definitions, got %d", want, reg.registered)
	}
	if _, ok := reg.Definition(WidgetCallHeatmap); !ok {
		t.Fatalf("expected %s in registry", WidgetCallHeatmap)
	}
}

func TestRegisterAreasCustomList(t *testing.T) {
	store := NewInMemoryWidgetStore()
	custom := WidgetAreaDefinition{Code: "voice.dashboard.wallboard", Name: "Wallboard"}
	if err := RegisterAreas(context.Background(), store, custom); err != nil {
		t.Fatalf("RegisterAreas returned error: %v", err)
	}
	if len(store.areas) != 1 {
		t.Fatalf("expected only the custom area, got %d", len(store.areas))
	}
}

func TestSeedLayoutPlacesStarterWidgets(t *testing.T) {
	store := NewInMemoryWidgetStore()
	ctx := context.Background()
	if err := RegisterDefinitions(ctx, store, nil); err != nil {
		t.Fatalf("RegisterDefinitions returned error: %v", err)
	}
	service := NewService(Options{WidgetStore: store})
	if err := SeedLayout(ctx, service, SeedOptions{}); err != nil {
		t.Fatalf("SeedLayout returned error: %v", err)
	}

	perArea := map[string]int{}
	for _, req := range DefaultSeedWidgets() {
		perArea[req.AreaCode]++
	}
	for area, want := range perArea {
		resolved, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: area})
		if err != nil {
			t.Fatalf("ResolveArea(%s) returned error: %v", area, err)
		}
		if len(resolved.Widgets) != want {
			t.Fatalf("expected %d widgets in %s, got %d", want, area, len(resolved.Widgets))
		}
	}
}

func TestSeedLayoutCollectsEveryFailure(t *testing.T) {
	store := &assignFailingStore{InMemoryWidgetStore: NewInMemoryWidgetStore(), failArea: AreaSidebar}
	service := NewService(Options{WidgetStore: store})
	err := SeedLayout(context.Background(), service, SeedOptions{})
	if err == nil {
		t.Fatalf("expected seed error for sidebar widgets")
	}
	if store.assignCalls != len(DefaultSeedWidgets()) {
		t.Fatalf("expected every seed attempted, got %d of %d", store.assignCalls, len(DefaultSeedWidgets()))
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		t.Fatalf("expected joined error, got %T", err)
	}
	sidebar := 0
	for _, req := range DefaultSeedWidgets() {
		if req.AreaCode == AreaSidebar {
			sidebar++
		}
	}
	if got := len(joined.Unwrap()); got != sidebar {
		t.Fatalf("expected %d failures, got %d", sidebar, got)
	}
}

func TestSeedLayoutRequiresService(t *testing.T) {
	if err := SeedLayout(context.Background(), nil, SeedOptions{}); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestSeedLayoutSkipsPopulatedAreas(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := NewInMemoryWidgetStore()
	service := NewService(Options{WidgetStore: store})
	ctx := context.Background()
	if err := service.AddWidget(ctx, AddWidgetRequest{DefinitionID: WidgetCallTrend, AreaCode: AreaSidebar}); err != nil {
		t.Fatalf("AddWidget returned error: %v", err)
	}

	if err := SeedLayout(ctx, service, SeedOptions{Logger: zap.New(core)}); err != nil {
		t.Fatalf("SeedLayout returned error: %v", err)
	}
	sidebar, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaSidebar, IncludeAll: true})
	if err != nil {
		t.Fatalf("ResolveArea returned error: %v", err)
	}
	if len(sidebar.Widgets) != 1 || sidebar.Widgets[0].DefinitionID != WidgetCallTrend {
		t.Fatalf("expected the existing sidebar to be kept, got %+v", sidebar.Widgets)
	}
	if got := logs.FilterMessage("seed skipped populated area").Len(); got != 1 {
		t.Fatalf("expected one skipped area log, got %d", got)
	}

	if err := SeedLayout(ctx, service, SeedOptions{}); err != nil {
		t.Fatalf("second SeedLayout returned error: %v", err)
	}
	mainArea, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaMain, IncludeAll: true})
	if err != nil {
		t.Fatalf("ResolveArea returned error: %v", err)
	}
	perArea := map[string]int{}
	for _, req := range DefaultSeedWidgets() {
		perArea[req.AreaCode]++
	}
	if len(mainArea.Widgets) != perArea[AreaMain] {
		t.Fatalf("expected reseeding to be a no-op, got %d main widgets", len(mainArea.Widgets))
	}
}

func TestSeedLayoutFromPlacements(t *testing.T) {
	store := NewInMemoryWidgetStore()
	service := NewService(Options{WidgetStore: store})
	ctx := context.Background()
	placements := []SeedPlacement{
		{Widget: WidgetLeaderboard, Area: AreaMain, Configuration: map[string]any{"limit": 3}},
		{Widget: WidgetSentimentDonut, Area: AreaMain},
	}
	if err := SeedLayout(ctx, service, SeedOptions{Requests: SeedRequests(placements)}); err != nil {
		t.Fatalf("SeedLayout returned error: %v", err)
	}
	if err := SeedLayout(ctx, service, SeedOptions{Requests: SeedRequests(placements[:1]), Force: true}); err != nil {
		t.Fatalf("forced SeedLayout returned error: %v", err)
	}
	mainArea, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaMain, IncludeAll: true})
	if err != nil {
		t.Fatalf("ResolveArea returned error: %v", err)
	}
	got := make([]string, len(mainArea.Widgets))
	for i, w := range mainArea.Widgets {
		got[i] = w.DefinitionID
	}
	want := []string{WidgetLeaderboard, WidgetSentimentDonut, WidgetLeaderboard}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	sidebar, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: AreaSidebar, IncludeAll: true})
	if err != nil {
		t.Fatalf("ResolveArea returned error: %v", err)
	}
	if len(sidebar.Widgets) != 0 {
		t.Fatalf("placements replace the default starter layout, got %d sidebar widgets", len(sidebar.Widgets))
	}
}
