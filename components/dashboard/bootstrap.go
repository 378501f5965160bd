package dashboard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SeedPlacement is one starter widget listed in a manifest's seed section.
type SeedPlacement struct {
	Widget        string         `json:"widget" yaml:"widget"`
	Area          string         `json:"area" yaml:"area"`
	Configuration map[string]any `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	Roles         []string       `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Request converts the placement into an AddWidget request.
func (p SeedPlacement) Request() AddWidgetRequest {
	return AddWidgetRequest{
		DefinitionID:  p.Widget,
		AreaCode:      p.Area,
		Configuration: cloneConfig(p.Configuration),
		Roles:         append([]string(nil), p.Roles...),
	}
}

// SeedRequests converts placements, falling back to DefaultSeedWidgets when
// the list is empty.
func SeedRequests(placements []SeedPlacement) []AddWidgetRequest {
	if len(placements) == 0 {
		return DefaultSeedWidgets()
	}
	out := make([]AddWidgetRequest, len(placements))
	for i, p := range placements {
		out[i] = p.Request()
	}
	return out
}

// RegisterAreas ensures the dashboard areas exist in the store. With no areas
// given the voice dashboard defaults are used.
func RegisterAreas(ctx context.Context, store WidgetStore, areas ...WidgetAreaDefinition) error {
	if store == nil {
		return errMissingWidgetStore
	}
	if len(areas) == 0 {
		areas = DefaultAreaDefinitions()
	}
	for _, area := range areas {
		if _, err := store.EnsureArea(ctx, area); err != nil {
			return fmt.Errorf("register area %s: %w", area.Code, err)
		}
	}
	return nil
}

// RegisterDefinitions stores the built-in definitions plus every definition
// the registry knows, so widgets loaded from a manifest can be placed like the
// built-in ones. Built-ins missing from the registry are added to it.
func RegisterDefinitions(ctx context.Context, store WidgetStore, registry ProviderRegistry) error {
	if store == nil {
		return errMissingWidgetStore
	}
	defs := DefaultWidgetDefinitions()
	if registry != nil {
		for _, def := range defs {
			if _, ok := registry.Definition(def.Code); ok {
				continue
			}
			if err := registry.RegisterDefinition(def); err != nil {
				return fmt.Errorf("register definition in registry %s: %w", def.Code, err)
			}
		}
		defs = append(defs, registry.Definitions()...)
	}
	for _, def := range defs {
		if _, err := store.EnsureDefinition(ctx, def); err != nil {
			return fmt.Errorf("register definition %s: %w", def.Code, err)
		}
	}
	return nil
}

// SeedOptions controls SeedLayout.
type SeedOptions struct {
	// Requests defaults to DefaultSeedWidgets.
	Requests []AddWidgetRequest
	// Force seeds areas that already hold widgets.
	Force  bool
	Logger *zap.Logger
}

// SeedLayout places starter widgets into empty areas. Areas that already
// hold widgets are left alone unless Force is set. Every failure is
// collected.
func SeedLayout(ctx context.Context, service *Service, opts SeedOptions) error {
	if service == nil {
		return errors.New("dashboard: service is required to seed layout")
	}
	store, err := service.widgetStore()
	if err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	requests := opts.Requests
	if len(requests) == 0 {
		requests = DefaultSeedWidgets()
	}

	occupied := map[string]bool{}
	if !opts.Force {
		for _, req := range requests {
			if _, seen := occupied[req.AreaCode]; seen || req.AreaCode == "" {
				continue
			}
			area, err := store.ResolveArea(ctx, ResolveAreaInput{AreaCode: req.AreaCode, IncludeAll: true})
			if err != nil {
				return fmt.Errorf("dashboard: inspect area %s: %w", req.AreaCode, err)
			}
			occupied[req.AreaCode] = len(area.Widgets) > 0
		}
	}

	var seedErr error
	placed := map[string]int{}
	for _, req := range requests {
		if occupied[req.AreaCode] {
			continue
		}
		if err := service.AddWidget(ctx, req); err != nil {
			seedErr = errors.Join(seedErr, fmt.Errorf("seed %s in %s: %w", req.DefinitionID, req.AreaCode, err))
			continue
		}
		placed[req.AreaCode]++
	}
	for area, skip := range occupied {
		if skip {
			logger.Info("seed skipped populated area", zap.String("area", area))
		}
	}
	for area, n := range placed {
		logger.Info("seeded dashboard area", zap.String("area", area), zap.Int("widgets", n))
	}
	return seedErr
}
