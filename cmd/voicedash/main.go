package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pharmai/voicedash/pkg/config"
)

type Globals struct {
	Config string `short:"c" type:"path" help:"Path to a voicedash.yaml file."`
	Debug  bool   `help:"Enable debug logging."`
}

type cli struct {
	Globals

	Serve    serveCmd    `cmd:"" help:"Serve the dashboard API and WebSocket feed."`
	Heat     heatCmd     `cmd:"" help:"Print the heat color for a value."`
	Donut    donutCmd    `cmd:"" help:"Render a donut chart as SVG."`
	Demo     demoCmd     `cmd:"" help:"Print a generated demo dataset as JSON."`
	Export   exportCmd   `cmd:"" help:"Export the friction grid as CSV."`
	Layouts  layoutsCmd  `cmd:"" help:"Manage saved layouts."`
	Scaffold scaffoldCmd `cmd:"" help:"Scaffold a widget definition, provider stub, and manifest entry."`
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("voicedash"),
		kong.Description("Voice AI call analytics dashboard."),
		kong.UsageOnError(),
		kong.Bind(&c.Globals),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// load reads the configuration and builds a logger for it.
func (g *Globals) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.Log, g.Debug)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig, debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("voicedash: log level: %w", err)
	}
	if debug {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
