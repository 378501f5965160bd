package dashboard

import (
	"context"
	"errors"
	"time"
)

// LayoutResolver resolves a viewer's layout. *Service implements it.
type LayoutResolver interface {
	ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error)
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Service     LayoutResolver
	Definitions ProviderRegistry
	Areas       []WidgetAreaDefinition
	Now         func() time.Time
}

// Controller turns resolved layouts into transport payloads.
type Controller struct {
	service     LayoutResolver
	definitions ProviderRegistry
	areas       []WidgetAreaDefinition
	now         func() time.Time
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	c := &Controller{
		service:     opts.Service,
		definitions: opts.Definitions,
		areas:       opts.Areas,
		now:         opts.Now,
	}
	if len(c.areas) == 0 {
		c.areas = DefaultAreaDefinitions()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// LayoutPayload is the JSON shape served to dashboard clients.
type LayoutPayload struct {
	Areas       []AreaPayload `json:"areas"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// AreaPayload is one rendered dashboard area.
type AreaPayload struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Widgets []WidgetPayload `json:"widgets"`
}

// WidgetPayload is one widget with its provider data.
type WidgetPayload struct {
	ID            string         `json:"id"`
	DefinitionID  string         `json:"definition_id"`
	Name          string         `json:"name,omitempty"`
	Position      int            `json:"position"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Data          WidgetData     `json:"data,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Render resolves the layout for a viewer.
func (c *Controller) Render(ctx context.Context, viewer ViewerContext) (Layout, error) {
	if c.service == nil {
		return Layout{}, errors.New("dashboard: controller requires a layout resolver")
	}
	return c.service.ConfigureLayout(ctx, viewer)
}

// LayoutPayload resolves the layout and flattens it into area payloads in
// area definition order.
func (c *Controller) LayoutPayload(ctx context.Context, viewer ViewerContext) (LayoutPayload, error) {
	layout, err := c.Render(ctx, viewer)
	if err != nil {
		return LayoutPayload{}, err
	}
	payload := LayoutPayload{
		Areas:       make([]AreaPayload, 0, len(c.areas)),
		GeneratedAt: c.now().UTC(),
	}
	for _, area := range c.areas {
		widgets := layout.Areas[area.Code]
		out := AreaPayload{
			Code:    area.Code,
			Name:    area.Name,
			Widgets: make([]WidgetPayload, 0, len(widgets)),
		}
		for i, w := range widgets {
			wp := WidgetPayload{
				ID:            w.ID,
				DefinitionID:  w.DefinitionID,
				Position:      i,
				Configuration: w.Configuration,
			}
			if c.definitions != nil {
				if def, ok := c.definitions.Definition(w.DefinitionID); ok {
					wp.Name = def.Name
				}
			}
			if data, ok := w.Metadata["data"].(WidgetData); ok {
				wp.Data = data
			}
			if msg, ok := w.Metadata["error"].(string); ok {
				wp.Error = msg
			}
			out.Widgets = append(out.Widgets, wp)
		}
		payload.Areas = append(payload.Areas, out)
	}
	return payload, nil
}
