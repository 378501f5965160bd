package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/commands"
	"github.com/pharmai/voicedash/components/dashboard/queries"
	"github.com/pharmai/voicedash/pkg/config"
)

// isolate runs the test in an empty directory with memory storage so no
// voicedash.yaml or developer environment leaks in.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("VOICEDASH_STORAGE__KIND", "memory")
}

func TestParseSegments(t *testing.T) {
	got, err := parseSegments([]string{"Positive=62", " Neutral = 28 ", "Negative=10=#EF4444"})
	require.NoError(t, err)
	want := []dashboard.SegmentInput{
		{Label: "Positive", Value: 62},
		{Label: "Neutral", Value: 28},
		{Label: "Negative", Value: 10, Color: "#EF4444"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"Positive", "=4", "Positive=lots"} {
		_, err := parseSegments([]string{bad})
		assert.Errorf(t, err, "expected %q to be rejected", bad)
	}
}

func TestHeatCmdJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := heatCmd{Value: 80, Max: 100, Scale: "call_volume", Legend: 3, Format: "json", out: &buf}
	require.NoError(t, cmd.Run(context.Background()))

	var cells []dashboard.HeatCell
	require.NoError(t, json.Unmarshal(buf.Bytes(), &cells))
	require.Len(t, cells, 4)
	assert.Equal(t, 4, cells[0].Bucket)
	assert.Equal(t, "#0e4429", cells[0].Color)
	assert.Equal(t, "#FFFFFF", cells[0].Label)
	assert.Equal(t, dashboard.CallVolumeScale.Empty, cells[1].Color, "legend starts at zero")
}

func TestHeatCmdTable(t *testing.T) {
	var buf bytes.Buffer
	cmd := heatCmd{Value: 0, Max: 100, Scale: "friction", Format: "table", out: &buf}
	require.NoError(t, cmd.Run(context.Background()))
	assert.Contains(t, buf.String(), dashboard.FrictionScale.Empty)
	assert.Contains(t, buf.String(), "Intensity")
}

func TestDonutCmdSVGAndTable(t *testing.T) {
	var svg bytes.Buffer
	cmd := donutCmd{
		Segments:    []string{"Positive=62", "Neutral=28", "Negative=10"},
		Size:        300,
		InnerRatio:  0.6,
		CenterValue: "62%",
		out:         &svg,
	}
	require.NoError(t, cmd.Run(context.Background()))
	assert.True(t, strings.HasPrefix(svg.String(), "<svg"))
	assert.Equal(t, 3, strings.Count(svg.String(), "<path"))
	assert.Contains(t, svg.String(), ">62%<")

	var tbl bytes.Buffer
	cmd.Table = true
	cmd.out = &tbl
	require.NoError(t, cmd.Run(context.Background()))
	assert.Contains(t, tbl.String(), "Positive")
	assert.Contains(t, tbl.String(), "-90")

	cmd.Segments = []string{"Empty=0"}
	assert.ErrorIs(t, cmd.Run(context.Background()), dashboard.ErrZeroTotal)
}

func TestDonutCmdWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment.svg")
	cmd := donutCmd{Segments: []string{"A=1", "B=1"}, Size: 200, InnerRatio: 0.5, Output: path}
	require.NoError(t, cmd.Run(context.Background()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `viewBox="0 0 200 200"`)
}

func TestDemoGenerateIsReproducible(t *testing.T) {
	fixed := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	settings := dashboard.DefaultGeneratorSettings()
	for _, dataset := range []string{"heatmap", "friction", "leaderboard", "trend", "activity-week", "calls"} {
		t.Run(dataset, func(t *testing.T) {
			cmd := demoCmd{Dataset: dataset, Days: 7, Metric: "conversion", Limit: 5, Period: "7d", now: func() time.Time { return fixed }}
			first, err := cmd.generate(context.Background(), settings, 42)
			require.NoError(t, err)
			second, err := cmd.generate(context.Background(), settings, 42)
			require.NoError(t, err)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("seeded output differs (-first +second):\n%s", diff)
			}
		})
	}
}

func TestDemoCmdRunWritesJSON(t *testing.T) {
	isolate(t)
	var buf bytes.Buffer
	cmd := demoCmd{Dataset: "leaderboard", Seed: 9, Metric: "calls", Limit: 3, out: &buf}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	var entries []dashboard.LeaderboardEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "gold", entries[0].Medal)
}

func TestExportCmdWritesCSV(t *testing.T) {
	isolate(t)
	var buf bytes.Buffer
	cmd := exportCmd{Topic: []string{"Refills", "Cost"}, Slot: []string{"8-10am"}, Seed: 3, out: &buf}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Topic,Time Slot,Count,Avg Duration (s),Sentiment", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Refills,8-10am,"))
	assert.True(t, strings.HasPrefix(lines[2], "Cost,8-10am,"))

	out := filepath.Join(t.TempDir(), "friction.csv")
	cmd = exportCmd{Output: out}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1+len(dashboard.DefaultFrictionTopics)*len(dashboard.DefaultFrictionSlots),
		strings.Count(string(data), "\n"))
}

func TestScaffoldWritesManifestAndStub(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "widgets.yaml")
	stub := filepath.Join(dir, "hold_times_provider.go")
	var buf bytes.Buffer
	cmd := scaffoldCmd{
		Code:            "voice.widget.hold_times",
		Description:     "Average time callers wait in the queue.",
		Category:        "analytics",
		ManifestPath:    manifest,
		ProviderPackage: defaultProviderPackage,
		ProviderOut:     stub,
		Tag:             []string{"queue"},
		out:             &buf,
	}
	require.NoError(t, cmd.Run(context.Background()))
	assert.Contains(t, buf.String(), "generated "+stub)

	doc, err := dashboard.ReadManifest(manifest)
	require.NoError(t, err)
	require.Len(t, doc.Widgets, 1)
	widget := doc.Widgets[0]
	assert.Equal(t, "Hold Times", widget.Definition.Name)
	assert.Equal(t, defaultProviderPackage+".NewHoldTimesProvider", widget.Provider.Entry)
	assert.Equal(t, "object", widget.Definition.Schema["type"])

	source, err := os.ReadFile(stub)
	require.NoError(t, err)
	assert.Contains(t, string(source), "type HoldTimesProvider struct")
	assert.Contains(t, string(source), "func NewHoldTimesProvider(repo CallVolumeRepository) Provider")

	err = cmd.Run(context.Background())
	require.ErrorIs(t, err, dashboard.ErrManifestWidgetExists)

	cmd.Overwrite = true
	cmd.Name = "Queue Wait"
	require.NoError(t, cmd.Run(context.Background()))
	doc, err = dashboard.ReadManifest(manifest)
	require.NoError(t, err)
	require.Len(t, doc.Widgets, 1)
	assert.Equal(t, "Queue Wait", doc.Widgets[0].Definition.Name)
}

func TestScaffoldRejectsFlatCode(t *testing.T) {
	cmd := scaffoldCmd{Code: "hold_times", ManifestPath: filepath.Join(t.TempDir(), "m.yaml")}
	assert.Error(t, cmd.Run(context.Background()))
}

func TestLayoutsListRendersTable(t *testing.T) {
	cfg := config.Config{Storage: config.StorageConfig{Kind: "memory"}}
	library, _, done, err := libraryFor(cfg, zap.NewNop())
	require.NoError(t, err)
	defer done()

	ctx := context.Background()
	saved, err := library.Save(ctx, dashboard.SaveLayoutInput{
		Name:    "Morning shift",
		Widgets: []dashboard.LayoutWidget{{DefinitionID: dashboard.WidgetCallTrend, AreaCode: dashboard.AreaMain}},
	})
	require.NoError(t, err)
	_, err = library.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	list := layoutsListCmd{Format: "table", out: &buf}
	require.NoError(t, list.render(ctx, queries.NewSavedLayoutsQuery(library)))
	assert.Contains(t, buf.String(), "Morning shift")
	assert.Contains(t, buf.String(), saved.ID)

	buf.Reset()
	require.NoError(t, library.Delete(ctx, saved.ID))
	require.NoError(t, list.render(ctx, queries.NewSavedLayoutsQuery(library)))
	assert.Equal(t, "(no saved layouts)\n", buf.String())
}

func TestLayoutsCommandsAgainstFileStore(t *testing.T) {
	isolate(t)
	t.Setenv("VOICEDASH_STORAGE__KIND", "file")
	t.Setenv("VOICEDASH_STORAGE__PATH", filepath.Join(t.TempDir(), "blobs"))
	g := &Globals{}

	library, _, done, err := openLibrary(g)
	require.NoError(t, err)
	saved, err := library.Save(context.Background(), dashboard.SaveLayoutInput{Name: "Evening"})
	require.NoError(t, err)
	done()

	var buf bytes.Buffer
	fav := layoutsFavoriteCmd{ID: saved.ID, out: &buf}
	require.NoError(t, fav.Run(context.Background(), g))
	assert.Equal(t, "favorited Evening\n", buf.String())

	buf.Reset()
	rename := layoutsRenameCmd{ID: saved.ID, Name: "Late shift", out: &buf}
	require.NoError(t, rename.Run(context.Background(), g))
	assert.Contains(t, buf.String(), `"Late shift"`)

	buf.Reset()
	list := layoutsListCmd{Favorites: true, Format: "json", out: &buf}
	require.NoError(t, list.Run(context.Background(), g))
	var listed []queries.SavedLayoutSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Late shift", listed[0].Name)

	del := layoutsDeleteCmd{ID: saved.ID, out: &buf}
	require.NoError(t, del.Run(context.Background(), g))
	err = del.Run(context.Background(), g)
	assert.ErrorIs(t, err, dashboard.ErrLayoutNotFound)
}

func TestAppWiresDashboard(t *testing.T) {
	isolate(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Dashboard.Seed = 11

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.seed(ctx))

	viewer := dashboard.ViewerContext{UserID: "pharmacist-1"}
	layout, err := a.service.ConfigureLayout(ctx, viewer)
	require.NoError(t, err)
	total := 0
	for _, widgets := range layout.Areas {
		total += len(widgets)
	}
	assert.Equal(t, len(dashboard.DefaultSeedWidgets()), total)

	exec := a.executor()
	saved, err := exec.SaveLayout(ctx, commands.SaveLayoutInput{Viewer: viewer, Name: "Seeded"})
	require.NoError(t, err)
	assert.Len(t, saved.Widgets, total)

	listed, err := exec.ListLayouts(ctx, queries.SavedLayoutsInput{})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	export, err := exec.FrictionCSV(ctx, queries.FrictionExportInput{Topics: []string{"Refills"}, Slots: []string{"8-10am"}})
	require.NoError(t, err)
	assert.Equal(t, dashboard.FrictionCSVFilename, export.Filename)

	require.NoError(t, exec.Refresh(ctx, commands.RefreshWidgetInput{Regenerate: true}))
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "warn"}, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	logger, err = newLogger(config.LogConfig{Level: "warn"}, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)
}
