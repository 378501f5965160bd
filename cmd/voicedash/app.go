package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/commands"
	"github.com/pharmai/voicedash/components/dashboard/httpapi"
	"github.com/pharmai/voicedash/components/dashboard/queries"
	"github.com/pharmai/voicedash/pkg/analytics"
	"github.com/pharmai/voicedash/pkg/blobstore"
	"github.com/pharmai/voicedash/pkg/config"
)

// app holds the wired dashboard dependencies shared by serve and layouts.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	blobs     blobstore.Store
	library   *dashboard.LayoutLibrary
	demo      *dashboard.DemoRepository
	repos     dashboard.Repositories
	store     *dashboard.InMemoryWidgetStore
	registry  *dashboard.Registry
	hook      *dashboard.BroadcastHook
	service   *dashboard.Service
	telemetry dashboard.Telemetry
	seeds     []dashboard.SeedPlacement
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	blobs, err := blobstore.Open(cfg.Storage.Kind, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	demo, repos, err := newRepositories(cfg, logger)
	if err != nil {
		blobs.Close()
		return nil, err
	}
	a := &app{
		cfg:       cfg,
		logger:    logger,
		blobs:     blobs,
		library:   dashboard.NewLayoutLibrary(dashboard.LayoutLibraryOptions{Store: blobs, Logger: logger}),
		demo:      demo,
		repos:     repos,
		store:     dashboard.NewInMemoryWidgetStore(),
		hook:      newBroadcastHook(cfg.Server, logger),
		telemetry: dashboard.NewLoggerTelemetry(logger),
	}

	a.registry = dashboard.NewRegistry(dashboard.WithRepositories(a.repos))
	if cfg.Dashboard.Manifest != "" {
		doc, err := a.registry.LoadManifestFile(cfg.Dashboard.Manifest)
		if err != nil {
			blobs.Close()
			return nil, err
		}
		a.seeds = doc.Seed
		logger.Info("widget manifest loaded",
			zap.String("path", doc.Source),
			zap.Int("widgets", len(doc.Widgets)),
			zap.Int("seed", len(doc.Seed)))
	}

	hooks := dashboard.MultiRefreshHook{
		a.hook,
		dashboard.DatasetInvalidationHook{Cache: demo.Cache()},
	}
	a.service = dashboard.NewService(dashboard.Options{
		WidgetStore:      a.store,
		PreferenceStore:  dashboard.NewBlobPreferenceStore(blobs),
		Providers:        a.registry,
		RefreshHook:      hooks,
		Telemetry:        a.telemetry,
		Logger:           logger,
		Areas:            dashboard.DefaultAreaCodes(),
		FetchConcurrency: cfg.Dashboard.FetchConcurrency,
	})
	return a, nil
}

// newRepositories builds the demo repository and, when an analytics URL is
// configured, a remote-first repository that falls back to it.
func newBroadcastHook(cfg config.ServerConfig, logger *zap.Logger) *dashboard.BroadcastHook {
	opts := []dashboard.BroadcastOption{dashboard.WithBroadcastLogger(logger)}
	if len(cfg.AllowedOrigins) > 0 {
		opts = append(opts, dashboard.WithBroadcastOriginCheck(dashboard.AllowOrigins(cfg.AllowedOrigins...)))
	}
	return dashboard.NewBroadcastHook(opts...)
}

func newRepositories(cfg config.Config, logger *zap.Logger) (*dashboard.DemoRepository, dashboard.Repositories, error) {
	var rnd dashboard.Random
	if cfg.Dashboard.Seed != 0 {
		rnd = dashboard.NewSeededRandom(cfg.Dashboard.Seed)
	}
	demo := dashboard.NewDemoRepository(
		dashboard.NewDemoGenerator(rnd),
		dashboard.WithDemoCache(dashboard.NewDatasetCache(cfg.Dashboard.DatasetTTL)),
		dashboard.WithDemoSettings(cfg.Demo),
	)
	if cfg.Analytics.BaseURL == "" {
		return demo, demo, nil
	}
	client, err := analytics.NewHTTPClient(analytics.HTTPConfig{
		BaseURL: cfg.Analytics.BaseURL,
		APIKey:  cfg.Analytics.APIKey,
		Timeout: cfg.Analytics.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("remote analytics enabled", zap.String("base_url", cfg.Analytics.BaseURL))
	return demo, analytics.NewFallbackRepository(client, demo, logger), nil
}

// seed registers areas and definitions and places the starter widgets when
// configured to.
func (a *app) seed(ctx context.Context) error {
	cmd := commands.NewSeedDashboardCommand(a.store, a.registry, a.service, a.telemetry).WithLogger(a.logger)
	input := commands.SeedDashboardInput{
		SeedLayout: a.cfg.Dashboard.SeedLayout,
		Placements: a.seeds,
	}
	if err := cmd.Execute(ctx, input); err != nil {
		return fmt.Errorf("voicedash: seed dashboard: %w", err)
	}
	return nil
}

func (a *app) executor() *httpapi.CommandExecutor {
	return &httpapi.CommandExecutor{
		AssignCommander:       commands.NewAssignWidgetCommand(a.service, a.telemetry),
		UpdateCommander:       commands.NewUpdateWidgetCommand(a.service, a.telemetry),
		RemoveCommander:       commands.NewRemoveWidgetCommand(a.service, a.telemetry),
		ReorderCommander:      commands.NewReorderWidgetsCommand(a.service, a.telemetry),
		RefreshCommander:      commands.NewRefreshWidgetCommand(a.service, a.demo.Cache(), a.telemetry),
		PreferencesCommander:  commands.NewSaveLayoutPreferencesCommand(a.service, a.telemetry),
		SaveLayoutCommander:   commands.NewSaveLayoutCommand(a.library, a.service, a.telemetry),
		ApplyLayoutCommander:  commands.NewApplyLayoutCommand(a.library, a.service, a.telemetry),
		DeleteLayoutCommander: commands.NewDeleteLayoutCommand(a.library, a.telemetry),
		FavoriteCommander:     commands.NewToggleFavoriteCommand(a.library, a.telemetry),
		RenameCommander:       commands.NewRenameLayoutCommand(a.library, a.telemetry),
		LayoutsQuery:          queries.NewSavedLayoutsQuery(a.library),
		ExportQuery:           queries.NewFrictionExportQuery(a.repos),
		DashboardQuery:        queries.NewDashboardQuery(a.service),
	}
}

func (a *app) Close() error {
	a.hook.Close()
	return a.blobs.Close()
}
