package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/queries"
)

type demoCmd struct {
	Dataset string `arg:"" enum:"heatmap,volume,friction,activity-week,activity-day,states,leaderboard,trend,sentiment,calls" help:"Dataset to generate (${enum})."`
	Seed    uint64 `help:"Seed for reproducible output; 0 draws a fresh seed."`
	Days    int    `default:"7" help:"Days in the call heatmap."`
	Metric  string `default:"conversion" help:"Leaderboard or trend metric."`
	Limit   int    `default:"10" help:"Leaderboard length."`
	Period  string `default:"30d" enum:"7d,14d,30d,60d,90d" help:"Trend period (${enum})."`

	now func() time.Time
	out io.Writer
}

func (cmd *demoCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	if cmd.Seed != 0 {
		cfg.Dashboard.Seed = cmd.Seed
	}
	data, err := cmd.generate(ctx, cfg.Demo, cfg.Dashboard.Seed)
	if err != nil {
		return err
	}
	return writeJSON(writerOr(cmd.out), data)
}

func (cmd *demoCmd) generate(ctx context.Context, settings dashboard.GeneratorSettings, seed uint64) (any, error) {
	now := time.Now
	if cmd.now != nil {
		now = cmd.now
	}
	var rnd dashboard.Random
	if seed != 0 {
		rnd = dashboard.NewSeededRandom(seed)
	}
	gen := dashboard.NewDemoGenerator(rnd)
	repo := dashboard.NewDemoRepository(gen,
		dashboard.WithDemoSettings(settings),
		dashboard.WithDemoClock(now),
	)

	switch cmd.Dataset {
	case "heatmap":
		return repo.FetchCallHeatmap(ctx, dashboard.CallHeatmapQuery{Days: cmd.Days})
	case "volume":
		return repo.FetchCallVolume(ctx, dashboard.CallVolumeQuery{Range: "live"})
	case "friction":
		return repo.FetchFriction(ctx, dashboard.FrictionQuery{
			Topics: dashboard.DefaultFrictionTopics,
			Slots:  dashboard.DefaultFrictionSlots,
		})
	case "activity-week":
		return repo.FetchActivity(ctx, dashboard.ActivityQuery{View: dashboard.ActivityViewWeek})
	case "activity-day":
		return repo.FetchActivity(ctx, dashboard.ActivityQuery{View: dashboard.ActivityViewDay})
	case "states":
		return repo.FetchStates(ctx)
	case "leaderboard":
		return repo.FetchLeaderboard(ctx, dashboard.LeaderboardQuery{Metric: cmd.Metric, Limit: cmd.Limit})
	case "trend":
		return repo.FetchCallTrend(ctx, dashboard.CallTrendQuery{Period: cmd.Period, Metric: cmd.Metric})
	case "sentiment":
		return repo.FetchSentiment(ctx, dashboard.SentimentQuery{})
	case "calls":
		return gen.SampleCalls(settings, now()), nil
	default:
		return nil, fmt.Errorf("voicedash: unknown dataset %q", cmd.Dataset)
	}
}

type exportCmd struct {
	Topic  []string `help:"Topics to include (repeatable); defaults to the built-in list."`
	Slot   []string `help:"Time slots to include (repeatable); defaults to the built-in list."`
	Seed   uint64   `help:"Seed for reproducible output."`
	Output string   `short:"o" type:"path" help:"Write to a file; \"-\" or empty writes to stdout."`

	out io.Writer
}

func (cmd *exportCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	if cmd.Seed != 0 {
		cfg.Dashboard.Seed = cmd.Seed
	}
	_, repos, err := newRepositories(cfg, logger)
	if err != nil {
		return err
	}
	export, err := queries.NewFrictionExportQuery(repos).Query(ctx, queries.FrictionExportInput{
		Topics: cmd.Topic,
		Slots:  cmd.Slot,
	})
	if err != nil {
		return err
	}

	if cmd.Output == "" || cmd.Output == "-" {
		_, err := writerOr(cmd.out).Write(export.Body)
		return err
	}
	if err := os.WriteFile(cmd.Output, export.Body, 0o644); err != nil {
		return fmt.Errorf("voicedash: write %s: %w", cmd.Output, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", cmd.Output, len(export.Body))
	return nil
}
