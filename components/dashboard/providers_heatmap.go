package dashboard

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

type callVolumeHeatmapProvider struct {
	repo CallVolumeRepository
}

// NewCallVolumeHeatmapProvider renders inbound/outbound volume per weekday.
func NewCallVolumeHeatmapProvider(repo CallVolumeRepository) Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	return &callVolumeHeatmapProvider{repo: repo}
}

func (p *callVolumeHeatmapProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	week, err := p.repo.FetchCallVolume(ctx, CallVolumeQuery{Range: stringValue(cfg["range"], "7d")})
	if err != nil {
		return nil, fmt.Errorf("call volume heatmap: %w", err)
	}
	values := make([]float64, 0, len(week)*2)
	for _, d := range week {
		values = append(values, float64(d.Inbound), float64(d.Outbound))
	}
	peak := MaxValue(values...)
	rows := []string{"Inbound", "Outbound"}
	columns := make([]string, len(week))
	cells := make([][]HeatCell, len(rows))
	for i := range cells {
		cells[i] = make([]HeatCell, len(week))
	}
	inbound, outbound := 0, 0
	for j, d := range week {
		columns[j] = d.Day
		cells[0][j] = CallVolumeScale.Cell(rows[0], d.Day, float64(d.Inbound), peak)
		cells[1][j] = CallVolumeScale.Cell(rows[1], d.Day, float64(d.Outbound), peak)
		inbound += d.Inbound
		outbound += d.Outbound
	}
	return WidgetData{
		"title":   stringValue(cfg["title"], "Call Volume"),
		"rows":    rows,
		"columns": columns,
		"cells":   cells,
		"max":     peak,
		"legend":  CallVolumeScale.Legend(peak, 5),
		"totals": map[string]int{
			"inbound":  inbound,
			"outbound": outbound,
			"total":    inbound + outbound,
		},
	}, nil
}

type callHeatmapProvider struct {
	repo     CallHeatmapRepository
	renderer *EChartsProvider
}

// NewCallHeatmapProvider renders a days-by-hour heatmap of call counts.
func NewCallHeatmapProvider(repo CallHeatmapRepository, renderer *EChartsProvider) Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	if renderer == nil {
		renderer = NewEChartsProvider(ChartHeatmap)
	}
	return &callHeatmapProvider{repo: repo, renderer: renderer}
}

func (p *callHeatmapProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	grid, err := p.repo.FetchCallHeatmap(ctx, CallHeatmapQuery{
		InstanceID: meta.Instance.ID,
		Days:       intValue(cfg["days"], 30),
	})
	if err != nil {
		return nil, fmt.Errorf("call heatmap: %w", err)
	}
	peak := float64(grid.Max)
	rows := make([]string, len(grid.Days))
	columns := make([]string, len(grid.Hours))
	for j, h := range grid.Hours {
		columns[j] = fmt.Sprintf("%02d:00", h)
	}
	cells := make([][]HeatCell, len(grid.Days))
	points := make([]HeatmapPoint, 0, len(grid.Days)*len(grid.Hours))
	for i, day := range grid.Days {
		rows[i] = day.Format("Jan 2")
		cells[i] = make([]HeatCell, len(grid.Hours))
		for j, v := range grid.Values[i] {
			cells[i][j] = CallHeatmapScale.Cell(rows[i], columns[j], float64(v), peak)
			points = append(points, HeatmapPoint{X: j, Y: i, Value: float64(v)})
		}
	}
	data := WidgetData{
		"title":   stringValue(cfg["title"], "Call Activity"),
		"rows":    rows,
		"columns": columns,
		"cells":   cells,
		"max":     peak,
		"total":   grid.Total,
		"legend":  CallHeatmapScale.Legend(peak, 5),
	}
	if boolValue(cfg["chart"]) {
		html, err := p.renderer.RenderHeatmap(stringValue(cfg["title"], "Call Activity"), columns, rows, points, CallHeatmapScale, peak)
		if err != nil {
			return nil, fmt.Errorf("call heatmap: render chart: %w", err)
		}
		data["chart_html"] = html
	}
	return data, nil
}

type frictionHeatmapProvider struct {
	repo FrictionRepository
}

// NewFrictionHeatmapProvider renders friction counts by topic and time slot.
func NewFrictionHeatmapProvider(repo FrictionRepository) Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	return &frictionHeatmapProvider{repo: repo}
}

func (p *frictionHeatmapProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	topics := stringSliceValue(cfg["topics"])
	if len(topics) == 0 {
		topics = DefaultFrictionTopics
	}
	slots := stringSliceValue(cfg["time_slots"])
	if len(slots) == 0 {
		slots = DefaultFrictionSlots
	}
	points, err := p.repo.FetchFriction(ctx, FrictionQuery{
		InstanceID: meta.Instance.ID,
		Topics:     topics,
		Slots:      slots,
	})
	if err != nil {
		return nil, fmt.Errorf("friction heatmap: %w", err)
	}
	data := FrictionHeatmapData(points, topics, slots)
	data["title"] = stringValue(cfg["title"], "Friction Heatmap")
	if url := stringValue(cfg["export_url"], ""); url != "" {
		data["export_url"] = url
		data["export_filename"] = FrictionCSVFilename
	}
	return data, nil
}

// FrictionHeatmapData lays friction points out on the topic x slot grid.
// Missing combinations render as empty cells.
func FrictionHeatmapData(points []FrictionPoint, topics, slots []string) WidgetData {
	index := make(map[[2]string]FrictionPoint, len(points))
	for _, pt := range points {
		index[[2]string{pt.Topic, pt.TimeSlot}] = pt
	}
	peak := FrictionMax(points)
	cells := make([][]HeatCell, len(topics))
	var hottest *FrictionPoint
	total := 0
	for i, topic := range topics {
		cells[i] = make([]HeatCell, len(slots))
		for j, slot := range slots {
			pt, ok := index[[2]string{topic, slot}]
			if !ok {
				cells[i][j] = FrictionScale.Cell(topic, slot, 0, peak)
				continue
			}
			cells[i][j] = FrictionScale.Cell(topic, slot, float64(pt.Count), peak)
			total += pt.Count
			if hottest == nil || pt.Count > hottest.Count {
				hot := pt
				hottest = &hot
			}
		}
	}
	data := WidgetData{
		"rows":    topics,
		"columns": slots,
		"cells":   cells,
		"max":     peak,
		"total":   total,
		"legend":  FrictionScale.Legend(peak, 5),
	}
	if hottest != nil {
		data["hottest"] = *hottest
	}
	return data
}

type liveActivityProvider struct {
	repo ActivityRepository
}

// NewLiveActivityProvider renders the week or day activity grid.
func NewLiveActivityProvider(repo ActivityRepository) Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	return &liveActivityProvider{repo: repo}
}

func (p *liveActivityProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	view := stringValue(cfg["view"], ActivityViewWeek)
	grid, err := p.repo.FetchActivity(ctx, ActivityQuery{InstanceID: meta.Instance.ID, View: view})
	if err != nil {
		return nil, fmt.Errorf("live activity: %w", err)
	}
	cells := make([][]HeatCell, len(grid.Cells))
	var sentiment SentimentSplit
	total := 0
	for i, row := range grid.Cells {
		cells[i] = make([]HeatCell, len(row))
		for j, c := range row {
			cells[i][j] = ActivityScale.Cell(grid.Rows[i], grid.Columns[j], float64(c.Value), grid.Max)
			total += c.Value
			sentiment.Positive += c.Sentiment.Positive
			sentiment.Neutral += c.Sentiment.Neutral
			sentiment.Negative += c.Sentiment.Negative
		}
	}
	return WidgetData{
		"title":     stringValue(cfg["title"], "Live Activity"),
		"view":      grid.View,
		"rows":      grid.Rows,
		"columns":   grid.Columns,
		"cells":     cells,
		"max":       grid.Max,
		"total":     total,
		"sentiment": sentiment,
		"legend":    ActivityScale.Legend(grid.Max, 5),
	}, nil
}

type geographicProvider struct {
	repo StateRepository
}

// NewGeographicProvider renders state-level volume, SDOH or barrier heat.
func NewGeographicProvider(repo StateRepository) Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	return &geographicProvider{repo: repo}
}

func (p *geographicProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	mode := stringValue(cfg["mode"], GeoModeVolume)
	scale := ActivityScale
	switch mode {
	case GeoModeVolume:
	case GeoModeSDOH, GeoModeBarriers:
		scale = BarrierScale
	default:
		return nil, fmt.Errorf("geographic activity: unknown mode %q", mode)
	}
	states, err := p.repo.FetchStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("geographic activity: %w", err)
	}
	values := make([]float64, len(states))
	for i, s := range states {
		values[i] = s.Metric(mode)
	}
	peak := MaxValue(values...)
	cells := make([]HeatCell, len(states))
	totalCalls, sdohSum, highRisk := 0, 0, 0
	for i, s := range states {
		cells[i] = scale.Cell(s.Code, mode, values[i], peak)
		totalCalls += s.CallVolume
		sdohSum += s.SDOHScore
		if s.SDOHScore > HighRiskSDOH {
			highRisk++
		}
	}
	avgSDOH := 0.0
	if len(states) > 0 {
		avgSDOH = math.Round(float64(sdohSum)/float64(len(states))*10) / 10
	}
	return WidgetData{
		"title":  stringValue(cfg["title"], "Geographic Activity"),
		"mode":   mode,
		"states": states,
		"cells":  cells,
		"max":    peak,
		"legend": scale.Legend(peak, 5),
		"summary": map[string]string{
			"total_calls":      strconv.Itoa(totalCalls),
			"avg_sdoh":         strconv.FormatFloat(avgSDOH, 'f', 1, 64),
			"high_risk_states": strconv.Itoa(highRisk),
			"states_monitored": strconv.Itoa(len(states)),
		},
	}, nil
}
