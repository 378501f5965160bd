package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// ChartKind selects the go-echarts rendition used by an EChartsProvider.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartPie     ChartKind = "pie"
	ChartDonut   ChartKind = "donut"
	ChartHeatmap ChartKind = "heatmap"
	ChartGauge   ChartKind = "gauge"
)

// ErrUnsupportedChart is returned for chart kinds with no renderer.
var ErrUnsupportedChart = errors.New("dashboard: unsupported chart kind")

// chartWidgets maps the generic chart widget codes to the kind they render.
var chartWidgets = map[string]ChartKind{
	"voice.widget.bar_chart":     ChartBar,
	"voice.widget.line_chart":    ChartLine,
	"voice.widget.pie_chart":     ChartPie,
	"voice.widget.donut_chart":   ChartDonut,
	"voice.widget.heatmap_chart": ChartHeatmap,
	"voice.widget.gauge_chart":   ChartGauge,
}

const (
	defaultChartHeight = "360px"
	defaultChartTheme  = types.ThemeWesteros
)

var sharedChartCache = NewChartCache(5 * time.Minute)

// EChartsProvider turns chart settings into embeddable go-echarts HTML.
// Rendered markup is cached per widget instance and settings hash.
type EChartsProvider struct {
	kind       ChartKind
	cache      RenderCache
	theme      string
	height     string
	assetsHost string
}

type EChartsProviderOption func(*EChartsProvider)

func WithChartCache(cache RenderCache) EChartsProviderOption {
	return func(p *EChartsProvider) { p.cache = cache }
}

// WithChartTheme sets the theme used when a widget does not pick one.
func WithChartTheme(theme string) EChartsProviderOption {
	return func(p *EChartsProvider) {
		if theme != "" {
			p.theme = theme
		}
	}
}

func WithChartHeight(height string) EChartsProviderOption {
	return func(p *EChartsProvider) {
		if height != "" {
			p.height = height
		}
	}
}

// WithChartAssetsHost points the echarts script tags at another host.
func WithChartAssetsHost(host string) EChartsProviderOption {
	return func(p *EChartsProvider) { p.assetsHost = host }
}

func NewEChartsProvider(kind ChartKind, options ...EChartsProviderOption) *EChartsProvider {
	p := &EChartsProvider{
		kind:   ChartKind(strings.ToLower(string(kind))),
		cache:  sharedChartCache,
		theme:  defaultChartTheme,
		height: defaultChartHeight,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Kind reports the chart kind this provider renders.
func (p *EChartsProvider) Kind() ChartKind { return p.kind }

// Fetch implements Provider.
func (p *EChartsProvider) Fetch(_ context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	if cfg == nil {
		cfg = map[string]any{}
	}
	spec, err := p.specFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	render := func() (string, error) { return p.render(spec) }
	var html string
	if p.cache != nil {
		key := strings.Join([]string{meta.Instance.DefinitionID, meta.Instance.ID, string(p.kind), configHash(cfg)}, ":")
		html, err = p.cache.GetOrRender(key, render)
	} else {
		html, err = render()
	}
	if err != nil {
		return nil, err
	}

	data := WidgetData{
		"chart_html": html,
		"chart_type": string(p.kind),
		"title":      spec.title,
		"subtitle":   spec.subtitle,
		"theme":      spec.theme,
	}
	if boolValue(cfg["dynamic"]) {
		data["dynamic"] = true
		if endpoint := stringValue(cfg["refresh_endpoint"], ""); endpoint != "" {
			data["refresh_endpoint"] = endpoint
		}
	}
	return data, nil
}

// RenderHeatmap draws a category heatmap colored with scale.
func (p *EChartsProvider) RenderHeatmap(title string, xAxis, yAxis []string, cells []HeatmapPoint, scale HeatScale, peak float64) (string, error) {
	return p.renderHeatmap(chartSpec{
		title:  title,
		theme:  p.theme,
		xAxis:  xAxis,
		yAxis:  yAxis,
		cells:  cells,
		colors: append([]string{scale.Empty}, scale.Palette...),
		peak:   peak,
	})
}

// HeatmapPoint addresses one heatmap cell by axis index.
type HeatmapPoint struct {
	X     int
	Y     int
	Value float64
}

// ChartSeries is one legend entry.
type ChartSeries struct {
	Name   string
	Points []ChartPoint
}

type ChartPoint struct {
	Label string
	Value float64
}

type chartSpec struct {
	title    string
	subtitle string
	theme    string
	xAxis    []string
	yAxis    []string
	series   []ChartSeries
	cells    []HeatmapPoint
	colors   []string
	peak     float64
}

func (p *EChartsProvider) specFromConfig(cfg map[string]any) (chartSpec, error) {
	spec := chartSpec{
		title:    stringValue(cfg["title"], "Chart"),
		subtitle: stringValue(cfg["subtitle"], ""),
		theme:    strings.TrimSpace(stringValue(cfg["theme"], p.theme)),
		xAxis:    stringSliceValue(cfg["x_axis"]),
		yAxis:    stringSliceValue(cfg["y_axis"]),
		colors:   stringSliceValue(cfg["colors"]),
		peak:     float64Value(cfg["max"]),
	}
	if p.kind == ChartHeatmap {
		spec.cells = heatmapCells(cfg["cells"])
		if len(spec.cells) == 0 {
			return spec, fmt.Errorf("dashboard: %s chart needs cells", p.kind)
		}
		return spec, nil
	}
	spec.series = chartSeries(cfg["series"])
	if len(spec.series) == 0 {
		return spec, fmt.Errorf("dashboard: %s chart needs at least one series", p.kind)
	}
	if len(spec.xAxis) == 0 {
		spec.xAxis = axisFromSeries(spec.series)
	}
	return spec, nil
}

func (p *EChartsProvider) render(spec chartSpec) (string, error) {
	switch p.kind {
	case ChartBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(p.globalOptions(spec)...)
		bar.SetXAxis(spec.xAxis)
		for idx, s := range spec.series {
			data := make([]opts.BarData, len(s.Points))
			for i, pt := range s.Points {
				data[i] = opts.BarData{Name: pt.Label, Value: pt.Value}
			}
			bar.AddSeries(s.Name, data, spec.seriesColor(idx)...)
		}
		return renderChart(bar)
	case ChartLine:
		line := charts.NewLine()
		line.SetGlobalOptions(p.globalOptions(spec)...)
		line.SetXAxis(spec.xAxis)
		for idx, s := range spec.series {
			data := make([]opts.LineData, len(s.Points))
			for i, pt := range s.Points {
				data[i] = opts.LineData{Name: pt.Label, Value: pt.Value}
			}
			line.AddSeries(s.Name, data, spec.seriesColor(idx)...)
		}
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	case ChartPie:
		return p.renderPie(spec, nil)
	case ChartDonut:
		return p.renderPie(spec, []string{"60%", "85%"})
	case ChartGauge:
		gauge := charts.NewGauge()
		gauge.SetGlobalOptions(p.globalOptions(spec)...)
		for _, s := range spec.series {
			if len(s.Points) > 0 {
				gauge.AddSeries(s.Name, []opts.GaugeData{{Name: s.Name, Value: s.Points[0].Value}})
			}
		}
		return renderChart(gauge)
	case ChartHeatmap:
		return p.renderHeatmap(spec)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedChart, p.kind)
}

func (p *EChartsProvider) renderPie(spec chartSpec, radius []string) (string, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(p.globalOptions(spec)...)
	for _, s := range spec.series {
		data := make([]opts.PieData, len(s.Points))
		for i, pt := range s.Points {
			name := pt.Label
			if name == "" {
				name = "Segment " + strconv.Itoa(i+1)
			}
			data[i] = opts.PieData{Name: name, Value: pt.Value}
			if len(spec.colors) > 0 {
				data[i].ItemStyle = &opts.ItemStyle{Color: spec.colors[i%len(spec.colors)]}
			}
		}
		if radius != nil {
			pie.AddSeries(s.Name, data, charts.WithPieChartOpts(opts.PieChart{Radius: radius}))
			continue
		}
		pie.AddSeries(s.Name, data)
	}
	return renderChart(pie)
}

// renderHeatmap scales the visual map to the configured peak, or to the
// hottest cell when no peak is set.
func (p *EChartsProvider) renderHeatmap(spec chartSpec) (string, error) {
	peak := spec.peak
	if peak <= 0 {
		for _, c := range spec.cells {
			peak = MaxValue(peak, c.Value)
		}
	}
	colors := spec.colors
	if len(colors) == 0 {
		colors = append([]string{CallHeatmapScale.Empty}, CallHeatmapScale.Palette...)
	}
	heat := charts.NewHeatMap()
	heat.SetGlobalOptions(append(p.globalOptions(chartSpec{title: spec.title, subtitle: spec.subtitle, theme: spec.theme}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: spec.yAxis, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(peak),
			InRange:    &opts.VisualMapInRange{Color: colors},
		}),
	)...)
	heat.SetXAxis(spec.xAxis)
	data := make([]opts.HeatMapData, len(spec.cells))
	for i, c := range spec.cells {
		data[i] = opts.HeatMapData{Value: [3]interface{}{c.X, c.Y, c.Value}}
	}
	heat.AddSeries(spec.title, data)
	return renderChart(heat)
}

func (p *EChartsProvider) globalOptions(spec chartSpec) []charts.GlobalOpts {
	initOpts := opts.Initialization{Theme: spec.theme, Width: "100%", Height: p.height}
	if p.assetsHost != "" {
		initOpts.AssetsHost = p.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: spec.title, Subtitle: spec.subtitle}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

// seriesColor pins series idx to the configured palette, cycling.
func (spec chartSpec) seriesColor(idx int) []charts.SeriesOpts {
	if len(spec.colors) == 0 {
		return nil
	}
	return []charts.SeriesOpts{charts.WithItemStyleOpts(opts.ItemStyle{Color: spec.colors[idx%len(spec.colors)]})}
}

func renderChart(chart interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return "", fmt.Errorf("dashboard: render chart: %w", err)
	}
	return buf.String(), nil
}

// chartSeries reads [{name, data}] where data holds numbers or
// {name, value} objects.
func chartSeries(v any) []ChartSeries {
	var items []map[string]any
	switch val := v.(type) {
	case []map[string]any:
		items = val
	case []any:
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}
	out := make([]ChartSeries, 0, len(items))
	for _, item := range items {
		points := chartPoints(item["data"])
		if len(points) == 0 {
			continue
		}
		out = append(out, ChartSeries{Name: stringValue(item["name"], "Series"), Points: points})
	}
	return out
}

func chartPoints(v any) []ChartPoint {
	var out []ChartPoint
	add := func(item any) {
		if m, ok := item.(map[string]any); ok {
			out = append(out, ChartPoint{Label: stringValue(m["name"], ""), Value: float64Value(m["value"])})
			return
		}
		if f, ok := number(item); ok {
			out = append(out, ChartPoint{Value: f})
		}
	}
	switch val := v.(type) {
	case []float64:
		for _, f := range val {
			add(f)
		}
	case []int:
		for _, n := range val {
			add(n)
		}
	case []map[string]any:
		for _, m := range val {
			add(m)
		}
	case []any:
		for _, item := range val {
			add(item)
		}
	}
	return out
}

// heatmapCells reads [[x, y, value], ...].
func heatmapCells(v any) []HeatmapPoint {
	switch val := v.(type) {
	case []HeatmapPoint:
		return append([]HeatmapPoint(nil), val...)
	case [][]float64:
		out := make([]HeatmapPoint, 0, len(val))
		for _, t := range val {
			if len(t) >= 3 {
				out = append(out, HeatmapPoint{X: int(t[0]), Y: int(t[1]), Value: t[2]})
			}
		}
		return out
	case []any:
		out := make([]HeatmapPoint, 0, len(val))
		for _, item := range val {
			t, ok := item.([]any)
			if !ok || len(t) < 3 {
				continue
			}
			out = append(out, HeatmapPoint{X: intValue(t[0], 0), Y: intValue(t[1], 0), Value: float64Value(t[2])})
		}
		return out
	}
	return nil
}

// axisFromSeries labels the x axis from the longest series, numbering
// unlabeled points from 1.
func axisFromSeries(series []ChartSeries) []string {
	var longest ChartSeries
	for _, s := range series {
		if len(s.Points) > len(longest.Points) {
			longest = s
		}
	}
	labels := make([]string, len(longest.Points))
	for i, pt := range longest.Points {
		labels[i] = pt.Label
		if labels[i] == "" {
			labels[i] = strconv.Itoa(i + 1)
		}
	}
	return labels
}

func init() {
	RegisterWidgetHook(func(reg *Registry) error {
		for code, kind := range chartWidgets {
			if _, ok := reg.Provider(code); ok {
				continue
			}
			if _, ok := reg.Definition(code); !ok {
				continue
			}
			if err := reg.RegisterProvider(code, NewEChartsProvider(kind)); err != nil {
				return err
			}
		}
		return nil
	})
}
