package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pharmai/voicedash/components/dashboard"
)

type heatCmd struct {
	Value  float64 `arg:"" help:"Cell value."`
	Max    float64 `arg:"" help:"Largest value in the grid."`
	Scale  string  `default:"call_volume" enum:"call_volume,call_heatmap,friction,activity,barrier" help:"Color scale (${enum})."`
	Legend int     `help:"Also print a legend with this many swatches."`
	Format string  `default:"table" enum:"table,json" help:"Output format (${enum})."`

	out io.Writer
}

func (cmd *heatCmd) Run(_ context.Context) error {
	scale, ok := dashboard.HeatScaleByName(cmd.Scale)
	if !ok {
		return fmt.Errorf("voicedash: unknown scale %q", cmd.Scale)
	}
	cells := []dashboard.HeatCell{scale.Cell("value", "", cmd.Value, cmd.Max)}
	if cmd.Legend > 0 {
		cells = append(cells, scale.Legend(cmd.Max, cmd.Legend)...)
	}
	w := writerOr(cmd.out)
	if cmd.Format == "json" {
		return writeJSON(w, cells)
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Row", "Value", "Intensity", "Bucket", "Color", "Label"})
	for _, c := range cells {
		row := c.Row
		if c.Column != "" {
			row += " " + c.Column
		}
		t.AppendRow(table.Row{row, num(c.Value), fmt.Sprintf("%.2f", c.Intensity), c.Bucket, c.Color, c.Label})
	}
	t.Render()
	return nil
}

type donutCmd struct {
	Segments    []string `arg:"" sep:"none" help:"Segments as label=value or label=value=#color."`
	Size        float64  `default:"300" help:"SVG width and height."`
	InnerRatio  float64  `default:"0.6" help:"Inner radius as a share of the outer radius."`
	CenterLabel string   `help:"Text under the center value."`
	CenterValue string   `help:"Text in the center of the ring."`
	Output      string   `short:"o" type:"path" help:"Write to a file instead of stdout."`
	Table       bool     `help:"Print the computed angles instead of SVG."`

	out io.Writer
}

func (cmd *donutCmd) Run(_ context.Context) error {
	inputs, err := parseSegments(cmd.Segments)
	if err != nil {
		return err
	}
	segments, err := dashboard.ComputeSegments(inputs, nil)
	if err != nil {
		return err
	}

	w := writerOr(cmd.out)
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return fmt.Errorf("voicedash: create %s: %w", cmd.Output, err)
		}
		defer f.Close()
		w = f
	}

	if cmd.Table {
		t := newTable(w)
		t.AppendHeader(table.Row{"Label", "Value", "%", "Start", "End", "Color"})
		for _, s := range segments {
			t.AppendRow(table.Row{s.Label, num(s.Value), fmt.Sprintf("%.1f", s.Percentage), num(s.StartAngle), num(s.EndAngle), s.Color})
		}
		t.Render()
		return nil
	}
	return dashboard.RenderDonutSVG(w, dashboard.DonutOptions{
		Size:        cmd.Size,
		InnerRatio:  cmd.InnerRatio,
		CenterLabel: cmd.CenterLabel,
		CenterValue: cmd.CenterValue,
	}, segments)
}

// parseSegments reads label=value[=color] arguments.
func parseSegments(raw []string) ([]dashboard.SegmentInput, error) {
	out := make([]dashboard.SegmentInput, 0, len(raw))
	for _, item := range raw {
		parts := strings.SplitN(item, "=", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("voicedash: segment %q must look like label=value", item)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("voicedash: segment %q: %w", item, err)
		}
		seg := dashboard.SegmentInput{Label: strings.TrimSpace(parts[0]), Value: value}
		if len(parts) == 3 {
			seg.Color = strings.TrimSpace(parts[2])
		}
		out = append(out, seg)
	}
	return out, nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
