package dashboard

import (
	"context"
	"fmt"
	"strings"
)

// CallTrendProvider renders a daily call metric as an echarts line chart.
type CallTrendProvider struct {
	repo     CallTrendRepository
	renderer *EChartsProvider
}

// NewCallTrendProvider builds a provider backed by the given repository.
func NewCallTrendProvider(repo CallTrendRepository, renderer *EChartsProvider) Provider {
	if renderer == nil {
		renderer = NewEChartsProvider(ChartLine)
	}
	return &CallTrendProvider{
		repo:     repo,
		renderer: renderer,
	}
}

// Fetch renders the call trend widget.
func (p *CallTrendProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	if p.repo == nil {
		return nil, fmt.Errorf("call trend provider: repository is required")
	}

	cfg := meta.Instance.Configuration
	if cfg == nil {
		cfg = map[string]any{}
	}

	period := strings.ToLower(stringValue(cfg["period"], "30d"))
	metric := strings.ToLower(stringValue(cfg["metric"], TrendMetricCalls))
	comparison := strings.ToLower(stringValue(cfg["comparison_metric"], ""))

	points, err := p.repo.FetchCallTrend(ctx, CallTrendQuery{Period: period, Metric: metric})
	if err != nil {
		return nil, fmt.Errorf("call trend provider: %w", err)
	}

	seriesData := []map[string]any{{
		"name": titleize(metric),
		"data": trendValues(points),
	}}
	xAxis := trendLabels(points)

	if comparison != "" && comparison != metric {
		alt, altErr := p.repo.FetchCallTrend(ctx, CallTrendQuery{Period: period, Metric: comparison})
		if altErr != nil {
			return nil, fmt.Errorf("call trend comparison: %w", altErr)
		}
		seriesData = append(seriesData, map[string]any{
			"name": titleize(comparison),
			"data": trendValues(alt),
		})
		if len(alt) > len(points) {
			xAxis = trendLabels(alt)
		}
	}

	chart := meta
	chart.Instance.Configuration = map[string]any{
		"title":            stringValue(cfg["title"], titleize(metric)+" trend"),
		"subtitle":         strings.ToUpper(period),
		"x_axis":           xAxis,
		"series":           seriesData,
		"dynamic":          boolValue(cfg["dynamic"]),
		"refresh_endpoint": cfg["refresh_endpoint"],
		"theme":            cfg["theme"],
	}

	data, err := p.renderer.Fetch(ctx, chart)
	if err != nil {
		return nil, err
	}

	data["source"] = map[string]any{
		"metric": metric,
		"period": period,
	}
	data["summary"] = trendSummary(points)
	return data, nil
}

func trendSummary(points []TrendPoint) map[string]float64 {
	out := map[string]float64{"latest": 0, "total": 0, "change": 0}
	if len(points) == 0 {
		return out
	}
	for _, p := range points {
		out["total"] += p.Value
	}
	first, last := points[0].Value, points[len(points)-1].Value
	out["latest"] = last
	if first != 0 {
		out["change"] = (last - first) / first * 100
	}
	return out
}

func trendValues(points []TrendPoint) []float64 {
	values := make([]float64, len(points))
	for i, point := range points {
		values[i] = point.Value
	}
	return values
}

func trendLabels(points []TrendPoint) []string {
	labels := make([]string, len(points))
	for i, point := range points {
		labels[i] = point.Timestamp.Format("Jan 2")
	}
	return labels
}

func titleize(value string) string {
	if value == "" {
		return value
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(string(lower[0])) + lower[1:]
}
