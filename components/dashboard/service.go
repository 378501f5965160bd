package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	errMissingWidgetStore = errors.New("dashboard: widget store not configured")
	errInvalidArea        = errors.New("dashboard: area code is required")
	errInvalidDefinition  = errors.New("dashboard: definition id is required")
	errInvalidWidgetID    = errors.New("dashboard: widget id is required")
)

// ErrUnknownArea is returned when a layout places a widget in an area the
// service does not manage.
var ErrUnknownArea = errors.New("dashboard: unknown area")

const defaultFetchConcurrency = 4

// Options configures the dashboard Service. Every collaborator is an
// interface so callers can swap storage, auth and transports.
type Options struct {
	WidgetStore      WidgetStore
	Authorizer       Authorizer
	PreferenceStore  PreferenceStore
	Providers        ProviderRegistry
	ConfigValidator  ConfigValidator
	RefreshHook      RefreshHook
	Telemetry        Telemetry
	Logger           *zap.Logger
	Areas            []string
	FetchConcurrency int
}

// Service orchestrates dashboard widgets, viewer preferences and provider data.
type Service struct {
	opts Options
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Authorizer == nil {
		opts.Authorizer = allowAllAuthorizer{}
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Providers == nil {
		opts.Providers = NewRegistry()
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	if opts.PreferenceStore == nil {
		opts.PreferenceStore = NewInMemoryPreferenceStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = defaultFetchConcurrency
	}
	return &Service{opts: opts}
}

// Registry exposes the provider registry.
func (s *Service) Registry() ProviderRegistry {
	return s.opts.Providers
}

// AddWidgetRequest captures the data required to create widget assignments.
type AddWidgetRequest struct {
	DefinitionID  string         `json:"definition_id"`
	AreaCode      string         `json:"area_code"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Position      *int           `json:"position,omitempty"`
	Roles         []string       `json:"roles,omitempty"`
	StartAt       *time.Time     `json:"start_at,omitempty"`
	EndAt         *time.Time     `json:"end_at,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
}

// UpdateWidgetRequest replaces a widget's configuration.
type UpdateWidgetRequest struct {
	WidgetID      string         `json:"widget_id"`
	Configuration map[string]any `json:"configuration"`
	UserID        string         `json:"user_id,omitempty"`
}

// AddWidget creates a widget instance and assigns it to an area.
func (s *Service) AddWidget(ctx context.Context, req AddWidgetRequest) error {
	_, err := s.addWidget(ctx, req)
	return err
}

func (s *Service) addWidget(ctx context.Context, req AddWidgetRequest) (WidgetInstance, error) {
	store, err := s.widgetStore()
	if err != nil {
		return WidgetInstance{}, err
	}
	if req.AreaCode == "" {
		return WidgetInstance{}, errInvalidArea
	}
	if req.DefinitionID == "" {
		return WidgetInstance{}, errInvalidDefinition
	}
	if err := s.validateConfiguration(req.DefinitionID, req.Configuration); err != nil {
		return WidgetInstance{}, err
	}
	instance, err := store.CreateInstance(ctx, CreateWidgetInstanceInput{
		DefinitionID:  req.DefinitionID,
		Configuration: req.Configuration,
		Visibility: WidgetVisibility{
			Roles:   req.Roles,
			StartAt: req.StartAt,
			EndAt:   req.EndAt,
		},
		Metadata: map[string]any{
			"user_id": req.UserID,
		},
	})
	if err != nil {
		return WidgetInstance{}, err
	}
	if err := store.AssignInstance(ctx, AssignWidgetInput{
		AreaCode:   req.AreaCode,
		InstanceID: instance.ID,
		Position:   req.Position,
	}); err != nil {
		return WidgetInstance{}, err
	}
	instance.AreaCode = req.AreaCode
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: req.AreaCode,
		Instance: instance,
		Reason:   "add",
	}); err != nil {
		return WidgetInstance{}, err
	}
	s.recordTelemetry(ctx, "dashboard.widget.add", map[string]any{
		"area_code":     req.AreaCode,
		"definition_id": req.DefinitionID,
	})
	return instance, nil
}

// UpdateWidget validates and stores a new configuration for a widget.
func (s *Service) UpdateWidget(ctx context.Context, req UpdateWidgetRequest) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if req.WidgetID == "" {
		return errInvalidWidgetID
	}
	current, err := store.GetInstance(ctx, req.WidgetID)
	if err != nil {
		return err
	}
	if err := s.validateConfiguration(current.DefinitionID, req.Configuration); err != nil {
		return err
	}
	updated, err := store.UpdateInstance(ctx, UpdateWidgetInstanceInput{
		InstanceID:    req.WidgetID,
		Configuration: req.Configuration,
		Metadata:      map[string]any{"updated_by": req.UserID},
	})
	if err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: updated.AreaCode,
		Instance: updated,
		Reason:   "update",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.update", map[string]any{
		"widget_id":     req.WidgetID,
		"definition_id": updated.DefinitionID,
	})
	return nil
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

// RemoveWidget deletes the widget instance.
func (s *Service) RemoveWidget(ctx context.Context, widgetID string) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if widgetID == "" {
		return errInvalidWidgetID
	}
	if err := store.DeleteInstance(ctx, widgetID); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		Instance: WidgetInstance{ID: widgetID},
		Reason:   "delete",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.remove", map[string]any{"widget_id": widgetID})
	return nil
}

// ReorderWidgets changes widget ordering within an area.
func (s *Service) ReorderWidgets(ctx context.Context, areaCode string, widgetIDs []string) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	if areaCode == "" {
		return errInvalidArea
	}
	if err := store.ReorderArea(ctx, ReorderAreaInput{
		AreaCode:  areaCode,
		WidgetIDs: widgetIDs,
	}); err != nil {
		return err
	}
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, WidgetEvent{
		AreaCode: areaCode,
		Reason:   "reorder",
	}); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.reorder", map[string]any{
		"area_code": areaCode,
		"count":     len(widgetIDs),
	})
	return nil
}

// ConfigureLayout resolves widgets for each dashboard area respecting
// preferences and authorization, and attaches provider data.
func (s *Service) ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error) {
	layout, err := s.resolveLayout(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	for area, widgets := range layout.Areas {
		layout.Areas[area] = s.attachProviderData(ctx, viewer, widgets)
	}
	s.recordTelemetry(ctx, "dashboard.layout.resolve", map[string]any{
		"viewer": viewer.UserID,
	})
	return layout, nil
}

func (s *Service) resolveLayout(ctx context.Context, viewer ViewerContext) (Layout, error) {
	store, err := s.widgetStore()
	if err != nil {
		return Layout{}, err
	}
	overrides, err := s.opts.PreferenceStore.LayoutOverrides(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	layout := Layout{Areas: make(map[string][]WidgetInstance)}
	for _, area := range s.areaList() {
		resolved, err := store.ResolveArea(ctx, ResolveAreaInput{
			AreaCode: area,
			Audience: viewer.Roles,
		})
		if err != nil {
			return Layout{}, err
		}
		for i := range resolved.Widgets {
			resolved.Widgets[i].AreaCode = area
		}
		filtered := s.filterAuthorized(ctx, viewer, resolved.Widgets)
		ordered := applyOrderOverride(filtered, overrides.AreaOrder[area])
		layout.Areas[area] = applyHiddenFilter(ordered, overrides.HiddenWidgets)
	}
	return layout, nil
}

// ResolveArea retrieves a single area layout for the viewer.
func (s *Service) ResolveArea(ctx context.Context, viewer ViewerContext, areaCode string) (ResolvedArea, error) {
	store, err := s.widgetStore()
	if err != nil {
		return ResolvedArea{}, err
	}
	if areaCode == "" {
		return ResolvedArea{}, errInvalidArea
	}
	resolved, err := store.ResolveArea(ctx, ResolveAreaInput{
		AreaCode: areaCode,
		Audience: viewer.Roles,
	})
	if err != nil {
		return ResolvedArea{}, err
	}
	resolved.Widgets = s.attachProviderData(ctx, viewer, s.filterAuthorized(ctx, viewer, resolved.Widgets))
	s.recordTelemetry(ctx, "dashboard.area.resolve", map[string]any{
		"viewer":    viewer.UserID,
		"area_code": areaCode,
	})
	return resolved, nil
}

// CaptureLayout snapshots the viewer's current widgets as saved-layout
// placements. Provider data is not captured.
func (s *Service) CaptureLayout(ctx context.Context, viewer ViewerContext) ([]LayoutWidget, error) {
	layout, err := s.resolveLayout(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return captureWidgets(s.areaList(), layout), nil
}

// ApplyLayout replaces every widget in the dashboard areas with the saved
// placements. Areas, definitions and configurations are validated before
// anything is removed.
func (s *Service) ApplyLayout(ctx context.Context, viewer ViewerContext, layout SavedLayout) error {
	store, err := s.widgetStore()
	if err != nil {
		return err
	}
	placements := orderedPlacements(layout.Widgets)
	areas := make(map[string]bool, len(s.areaList()))
	for _, area := range s.areaList() {
		areas[area] = true
	}
	for _, w := range placements {
		if w.AreaCode == "" {
			return errInvalidArea
		}
		if !areas[w.AreaCode] {
			return fmt.Errorf("%w: layout %s places %s in %s", ErrUnknownArea, layout.ID, w.DefinitionID, w.AreaCode)
		}
		if _, ok := s.opts.Providers.Definition(w.DefinitionID); !ok {
			return fmt.Errorf("dashboard: layout %s references unknown widget %s", layout.ID, w.DefinitionID)
		}
		if err := s.validateConfiguration(w.DefinitionID, w.Configuration); err != nil {
			return err
		}
	}
	for _, area := range s.areaList() {
		resolved, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: area, IncludeAll: true})
		if err != nil {
			return err
		}
		for _, w := range resolved.Widgets {
			if err := store.DeleteInstance(ctx, w.ID); err != nil && !errors.Is(err, ErrWidgetNotFound) {
				return err
			}
		}
	}
	for _, w := range placements {
		if _, err := s.addWidget(ctx, AddWidgetRequest{
			DefinitionID:  w.DefinitionID,
			AreaCode:      w.AreaCode,
			Configuration: w.Configuration,
			UserID:        viewer.UserID,
		}); err != nil {
			return fmt.Errorf("dashboard: apply layout %s: %w", layout.ID, err)
		}
	}
	if viewer.UserID != "" {
		if err := s.opts.PreferenceStore.SaveLayoutOverrides(ctx, viewer, emptyOverrides()); err != nil {
			return err
		}
	}
	s.opts.Logger.Info("applied saved layout",
		zap.String("layout_id", layout.ID),
		zap.String("viewer", viewer.UserID),
		zap.Int("widgets", len(placements)))
	s.recordTelemetry(ctx, "dashboard.layout.apply", map[string]any{
		"layout_id": layout.ID,
		"widgets":   len(placements),
	})
	return nil
}

func (s *Service) widgetStore() (WidgetStore, error) {
	if s.opts.WidgetStore == nil {
		return nil, errMissingWidgetStore
	}
	return s.opts.WidgetStore, nil
}

func (s *Service) validateConfiguration(definitionID string, config map[string]any) error {
	if s.opts.ConfigValidator == nil || s.opts.Providers == nil {
		return nil
	}
	def, ok := s.opts.Providers.Definition(definitionID)
	if !ok {
		return nil
	}
	return s.opts.ConfigValidator.Validate(def, config)
}

func (s *Service) areaList() []string {
	if len(s.opts.Areas) > 0 {
		return s.opts.Areas
	}
	return DefaultAreaCodes()
}

func (s *Service) filterAuthorized(ctx context.Context, viewer ViewerContext, widgets []WidgetInstance) []WidgetInstance {
	if len(widgets) == 0 {
		return widgets
	}
	var filtered []WidgetInstance
	for _, w := range widgets {
		if s.opts.Authorizer.CanViewWidget(ctx, viewer, w) {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// attachProviderData fetches provider payloads concurrently. A failing
// provider leaves its widget in place with an "error" entry in Metadata.
func (s *Service) attachProviderData(ctx context.Context, viewer ViewerContext, widgets []WidgetInstance) []WidgetInstance {
	if len(widgets) == 0 || s.opts.Providers == nil {
		return widgets
	}
	enriched := make([]WidgetInstance, len(widgets))
	copy(enriched, widgets)
	failures := make([]error, len(widgets))

	var g errgroup.Group
	g.SetLimit(s.opts.FetchConcurrency)
	for i := range enriched {
		provider, ok := s.opts.Providers.Provider(enriched[i].DefinitionID)
		if !ok || provider == nil {
			continue
		}
		g.Go(func() error {
			inst := enriched[i]
			data, err := provider.Fetch(ctx, WidgetContext{
				Instance: inst,
				Viewer:   viewer,
			})
			meta := make(map[string]any, len(inst.Metadata)+1)
			for k, v := range inst.Metadata {
				meta[k] = v
			}
			if err != nil {
				failures[i] = err
				meta["error"] = err.Error()
			} else {
				meta["data"] = data
			}
			enriched[i].Metadata = meta
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range failures {
		if err == nil {
			continue
		}
		s.opts.Logger.Warn("widget provider failed",
			zap.String("widget_id", enriched[i].ID),
			zap.String("definition_id", enriched[i].DefinitionID),
			zap.Error(err))
		s.recordTelemetry(ctx, "dashboard.widget.provider_error", map[string]any{
			"definition_id": enriched[i].DefinitionID,
			"error":         err.Error(),
		})
	}
	return enriched
}

// NotifyWidgetUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyWidgetUpdated(ctx context.Context, event WidgetEvent) error {
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, event); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.widget.event", map[string]any{
		"area_code": event.AreaCode,
		"widget_id": event.Instance.ID,
		"reason":    event.Reason,
	})
	return nil
}

// SavePreferences persists per-viewer layout overrides.
func (s *Service) SavePreferences(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if viewer.UserID == "" {
		return errors.New("dashboard: viewer context missing user id")
	}
	normalizeOverrides(&overrides)
	return s.opts.PreferenceStore.SaveLayoutOverrides(ctx, viewer, overrides)
}

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) CanViewWidget(context.Context, ViewerContext, WidgetInstance) bool {
	return true
}

type noopRefreshHook struct{}

func (noopRefreshHook) WidgetUpdated(context.Context, WidgetEvent) error {
	return nil
}
