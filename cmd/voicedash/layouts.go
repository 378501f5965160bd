package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/commands"
	"github.com/pharmai/voicedash/components/dashboard/queries"
	"github.com/pharmai/voicedash/pkg/blobstore"
	"github.com/pharmai/voicedash/pkg/config"
)

type layoutsCmd struct {
	List     layoutsListCmd     `cmd:"" default:"1" help:"List saved layouts, favorites first."`
	Delete   layoutsDeleteCmd   `cmd:"" help:"Delete a saved layout."`
	Favorite layoutsFavoriteCmd `cmd:"" help:"Toggle a layout's favorite flag."`
	Rename   layoutsRenameCmd   `cmd:"" help:"Rename a saved layout."`
}

// openLibrary opens the configured blob store and wraps it in a layout
// library. The returned close func releases the store.
func openLibrary(g *Globals) (*dashboard.LayoutLibrary, *zap.Logger, func(), error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, nil, nil, err
	}
	return libraryFor(cfg, logger)
}

func libraryFor(cfg config.Config, logger *zap.Logger) (*dashboard.LayoutLibrary, *zap.Logger, func(), error) {
	blobs, err := blobstore.Open(cfg.Storage.Kind, cfg.Storage.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	library := dashboard.NewLayoutLibrary(dashboard.LayoutLibraryOptions{Store: blobs, Logger: logger})
	return library, logger, func() {
		blobs.Close()
		logger.Sync() //nolint:errcheck
	}, nil
}

type layoutsListCmd struct {
	Favorites bool   `help:"Only show favorite layouts."`
	Format    string `default:"table" enum:"table,json" help:"Output format (${enum})."`

	out io.Writer
}

func (cmd *layoutsListCmd) Run(ctx context.Context, g *Globals) error {
	library, _, done, err := openLibrary(g)
	if err != nil {
		return err
	}
	defer done()
	return cmd.render(ctx, queries.NewSavedLayoutsQuery(library))
}

func (cmd *layoutsListCmd) render(ctx context.Context, query *queries.SavedLayoutsQuery) error {
	layouts, err := query.Query(ctx, queries.SavedLayoutsInput{FavoritesOnly: cmd.Favorites})
	if err != nil {
		return err
	}
	w := writerOr(cmd.out)
	if cmd.Format == "json" {
		return writeJSON(w, layouts)
	}
	if len(layouts) == 0 {
		_, err := fmt.Fprintln(w, "(no saved layouts)")
		return err
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Widgets", "Favorite", "Updated"})
	for _, l := range layouts {
		star := ""
		if l.IsFavorite {
			star = "*"
		}
		t.AppendRow(table.Row{l.ID, l.Name, len(l.Widgets), star, l.Updated})
	}
	t.Render()
	return nil
}

type layoutsDeleteCmd struct {
	ID string `arg:"" help:"Layout id."`

	out io.Writer
}

func (cmd *layoutsDeleteCmd) Run(ctx context.Context, g *Globals) error {
	library, logger, done, err := openLibrary(g)
	if err != nil {
		return err
	}
	defer done()
	del := commands.NewDeleteLayoutCommand(library, dashboard.NewLoggerTelemetry(logger))
	if err := del.Execute(ctx, commands.LayoutIDInput{LayoutID: cmd.ID}); err != nil {
		return err
	}
	_, err = fmt.Fprintf(writerOr(cmd.out), "deleted %s\n", cmd.ID)
	return err
}

type layoutsFavoriteCmd struct {
	ID string `arg:"" help:"Layout id."`

	out io.Writer
}

func (cmd *layoutsFavoriteCmd) Run(ctx context.Context, g *Globals) error {
	library, logger, done, err := openLibrary(g)
	if err != nil {
		return err
	}
	defer done()
	var layout dashboard.SavedLayout
	fav := commands.NewToggleFavoriteCommand(library, dashboard.NewLoggerTelemetry(logger))
	if err := fav.Execute(ctx, commands.LayoutIDInput{LayoutID: cmd.ID, Result: &layout}); err != nil {
		return err
	}
	state := "unfavorited"
	if layout.IsFavorite {
		state = "favorited"
	}
	_, err = fmt.Fprintf(writerOr(cmd.out), "%s %s\n", state, layout.Name)
	return err
}

type layoutsRenameCmd struct {
	ID          string `arg:"" help:"Layout id."`
	Name        string `arg:"" help:"New name."`
	Description string `help:"New description."`

	out io.Writer
}

func (cmd *layoutsRenameCmd) Run(ctx context.Context, g *Globals) error {
	library, logger, done, err := openLibrary(g)
	if err != nil {
		return err
	}
	defer done()
	var layout dashboard.SavedLayout
	rename := commands.NewRenameLayoutCommand(library, dashboard.NewLoggerTelemetry(logger))
	if err := rename.Execute(ctx, commands.RenameLayoutInput{
		LayoutID:    cmd.ID,
		Name:        cmd.Name,
		Description: cmd.Description,
		Result:      &layout,
	}); err != nil {
		return err
	}
	_, err = fmt.Fprintf(writerOr(cmd.out), "renamed %s to %q\n", layout.ID, layout.Name)
	return err
}
