package commands

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
	"go.uber.org/zap"
)

// SeedDashboardInput toggles placing the starter call analytics widgets.
// Placements override the default starter layout; Force seeds areas that
// already hold widgets.
type SeedDashboardInput struct {
	SeedLayout bool                      `json:"seed_layout"`
	Placements []dashboard.SeedPlacement `json:"placements,omitempty"`
	Force      bool                      `json:"force,omitempty"`
}

// SeedDashboardCommand registers the voice dashboard areas and widget
// definitions. With SeedLayout it also fills empty areas with the starter
// widgets.
type SeedDashboardCommand struct {
	store     dashboard.WidgetStore
	registry  dashboard.ProviderRegistry
	service   *dashboard.Service
	telemetry Telemetry
	logger    *zap.Logger
}

func NewSeedDashboardCommand(store dashboard.WidgetStore, registry dashboard.ProviderRegistry, service *dashboard.Service, telemetry Telemetry) *SeedDashboardCommand {
	return &SeedDashboardCommand{
		store:     store,
		registry:  registry,
		service:   service,
		telemetry: normalizeTelemetry(telemetry),
		logger:    zap.NewNop(),
	}
}

// WithLogger reports seeded and skipped areas.
func (c *SeedDashboardCommand) WithLogger(logger *zap.Logger) *SeedDashboardCommand {
	if logger != nil {
		c.logger = logger
	}
	return c
}

var _ gocommand.Commander[SeedDashboardInput] = (*SeedDashboardCommand)(nil)

func (c *SeedDashboardCommand) Execute(ctx context.Context, msg SeedDashboardInput) error {
	if c.store == nil {
		return notWired("seed", "a widget store")
	}
	started := time.Now()
	err := c.run(ctx, msg)
	track(ctx, c.telemetry, "dashboard.seed", started, map[string]any{
		"seed_layout": msg.SeedLayout,
		"placements":  len(msg.Placements),
	}, err)
	return err
}

func (c *SeedDashboardCommand) run(ctx context.Context, msg SeedDashboardInput) error {
	if err := dashboard.RegisterAreas(ctx, c.store); err != nil {
		return err
	}
	if err := dashboard.RegisterDefinitions(ctx, c.store, c.registry); err != nil {
		return err
	}
	if !msg.SeedLayout || c.service == nil {
		return nil
	}
	return dashboard.SeedLayout(ctx, c.service, dashboard.SeedOptions{
		Requests: dashboard.SeedRequests(msg.Placements),
		Force:    msg.Force,
		Logger:   c.logger,
	})
}
