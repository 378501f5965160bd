package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DonutProvider renders sentiment distribution as an inline SVG donut, with
// an optional echarts rendition of the same segments.
type DonutProvider struct {
	repo     SentimentRepository
	renderer *EChartsProvider
}

// NewDonutProvider builds a donut provider. A nil renderer disables the
// echarts output.
func NewDonutProvider(repo SentimentRepository, renderer *EChartsProvider) Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	return &DonutProvider{repo: repo, renderer: renderer}
}

// Fetch implements Provider.
func (p *DonutProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	inputs := segmentInputs(cfg["segments"])
	if len(inputs) == 0 {
		var err error
		inputs, err = p.repo.FetchSentiment(ctx, SentimentQuery{Range: stringValue(cfg["range"], "7d")})
		if err != nil {
			return nil, fmt.Errorf("donut provider: %w", err)
		}
	}
	palette := stringSliceValue(cfg["colors"])
	if len(palette) == 0 {
		palette = DefaultDonutPalette
	}
	segments, err := ComputeSegments(inputs, palette)
	if err != nil {
		return nil, fmt.Errorf("donut provider: %w", err)
	}

	total := 0.0
	for _, s := range segments {
		total += s.Value
	}
	centerValue := stringValue(cfg["center_value"], strconv.FormatFloat(total, 'f', -1, 64))
	var svg strings.Builder
	if err := RenderDonutSVG(&svg, DonutOptions{
		Size:        float64Value(cfg["size"]),
		InnerRatio:  float64Value(cfg["inner_ratio"]),
		CenterLabel: stringValue(cfg["center_label"], "Total"),
		CenterValue: centerValue,
	}, segments); err != nil {
		return nil, fmt.Errorf("donut provider: render svg: %w", err)
	}

	data := WidgetData{
		"title":    stringValue(cfg["title"], "Sentiment"),
		"segments": segments,
		"total":    total,
		"svg":      svg.String(),
	}
	if p.renderer != nil && boolValue(cfg["chart"]) {
		points := make([]any, len(segments))
		colors := make([]string, len(segments))
		for i, s := range segments {
			points[i] = map[string]any{"name": s.Label, "value": s.Value}
			colors[i] = s.Color
		}
		chart := meta
		chart.Instance.Configuration = map[string]any{
			"title":  data["title"],
			"series": []any{map[string]any{"name": data["title"], "data": points}},
			"colors": colors,
			"theme":  cfg["theme"],
		}
		rendered, err := p.renderer.Fetch(ctx, chart)
		if err != nil {
			return nil, fmt.Errorf("donut provider: %w", err)
		}
		data["chart_html"] = rendered["chart_html"]
	}
	return data, nil
}

func segmentInputs(v any) []SegmentInput {
	switch val := v.(type) {
	case []SegmentInput:
		return append([]SegmentInput(nil), val...)
	case []any:
		out := make([]SegmentInput, 0, len(val))
		for _, item := range val {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, SegmentInput{
				Label: stringValue(m["label"], ""),
				Value: float64Value(m["value"]),
				Color: stringValue(m["color"], ""),
			})
		}
		return out
	case []map[string]any:
		items := make([]any, len(val))
		for i, m := range val {
			items[i] = m
		}
		return segmentInputs(items)
	default:
		return nil
	}
}
