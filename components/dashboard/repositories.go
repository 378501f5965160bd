package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// CallVolumeRepository loads weekly inbound/outbound call volume.
type CallVolumeRepository interface {
	FetchCallVolume(ctx context.Context, query CallVolumeQuery) ([]CallVolumeDay, error)
}

// CallHeatmapRepository loads day-by-hour call counts.
type CallHeatmapRepository interface {
	FetchCallHeatmap(ctx context.Context, query CallHeatmapQuery) (CallGrid, error)
}

// FrictionRepository loads friction counts per topic and time slot.
type FrictionRepository interface {
	FetchFriction(ctx context.Context, query FrictionQuery) ([]FrictionPoint, error)
}

// ActivityRepository loads the live activity grid.
type ActivityRepository interface {
	FetchActivity(ctx context.Context, query ActivityQuery) (ActivityGrid, error)
}

// StateRepository loads per-state access metrics.
type StateRepository interface {
	FetchStates(ctx context.Context) ([]StateStat, error)
}

// SentimentRepository loads the call sentiment distribution.
type SentimentRepository interface {
	FetchSentiment(ctx context.Context, query SentimentQuery) ([]SegmentInput, error)
}

// LeaderboardRepository loads ranked agent performance.
type LeaderboardRepository interface {
	FetchLeaderboard(ctx context.Context, query LeaderboardQuery) ([]LeaderboardEntry, error)
}

// CallTrendRepository loads a daily time series for one call metric.
type CallTrendRepository interface {
	FetchCallTrend(ctx context.Context, query CallTrendQuery) ([]TrendPoint, error)
}

// CallVolumeQuery selects the weekly volume window.
type CallVolumeQuery struct {
	Range string `json:"range"`
}

// CallHeatmapQuery selects how many days of hourly data to load.
type CallHeatmapQuery struct {
	InstanceID string `json:"-"`
	Days       int    `json:"days"`
}

// FrictionQuery selects friction topics and slots.
type FrictionQuery struct {
	InstanceID string   `json:"-"`
	Topics     []string `json:"topics"`
	Slots      []string `json:"slots"`
}

// ActivityQuery selects the week or day activity view.
type ActivityQuery struct {
	InstanceID string `json:"-"`
	View       string `json:"view"`
}

// SentimentQuery selects the sentiment window.
type SentimentQuery struct {
	Range string `json:"range"`
}

// LeaderboardQuery selects the ranking metric and length.
type LeaderboardQuery struct {
	InstanceID string `json:"-"`
	Metric     string `json:"metric"`
	Limit      int    `json:"limit"`
}

// CallTrendQuery describes the requested metric.
type CallTrendQuery struct {
	Period string `json:"period"`
	Metric string `json:"metric"`
}

// TrendPoint is one value of a daily time series.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Activity views.
const (
	ActivityViewWeek = "week"
	ActivityViewDay  = "day"
)

// Call trend metrics.
const (
	TrendMetricCalls      = "calls"
	TrendMetricDuration   = "duration"
	TrendMetricConversion = "conversion"
	TrendMetricSentiment  = "sentiment"
)

// DemoRepository serves generated data for every widget repository. Datasets
// are memoized per widget instance.
type DemoRepository struct {
	gen      *DemoGenerator
	cache    *DatasetCache
	settings GeneratorSettings
	now      func() time.Time
}

// DemoRepositoryOption customizes a DemoRepository.
type DemoRepositoryOption func(*DemoRepository)

// WithDemoCache overrides the dataset cache.
func WithDemoCache(cache *DatasetCache) DemoRepositoryOption {
	return func(r *DemoRepository) {
		r.cache = cache
	}
}

// WithDemoSettings overrides the generator settings.
func WithDemoSettings(settings GeneratorSettings) DemoRepositoryOption {
	return func(r *DemoRepository) {
		r.settings = settings
	}
}

// WithDemoClock overrides the clock used for date axes.
func WithDemoClock(now func() time.Time) DemoRepositoryOption {
	return func(r *DemoRepository) {
		r.now = now
	}
}

// NewDemoRepository builds a repository over the generator.
func NewDemoRepository(gen *DemoGenerator, opts ...DemoRepositoryOption) *DemoRepository {
	if gen == nil {
		gen = NewDemoGenerator(nil)
	}
	r := &DemoRepository{
		gen:      gen,
		cache:    NewDatasetCache(10 * time.Minute),
		settings: DefaultGeneratorSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generator exposes the underlying generator.
func (r *DemoRepository) Generator() *DemoGenerator {
	return r.gen
}

// Cache exposes the dataset cache so refresh commands can invalidate it.
func (r *DemoRepository) Cache() *DatasetCache {
	return r.cache
}

// FetchCallVolume implements CallVolumeRepository.
// The "live" range jitters the reference week on every call.
func (r *DemoRepository) FetchCallVolume(_ context.Context, query CallVolumeQuery) ([]CallVolumeDay, error) {
	if query.Range == "live" {
		return r.gen.CallVolumeWeek(), nil
	}
	return DefaultCallVolumeWeek(), nil
}

// FetchCallHeatmap implements CallHeatmapRepository.
func (r *DemoRepository) FetchCallHeatmap(_ context.Context, query CallHeatmapQuery) (CallGrid, error) {
	key := fmt.Sprintf("call_heatmap:%d", query.Days)
	return CachedDataset(r.cache, query.InstanceID, key, func() CallGrid {
		return r.gen.CallHeatmap(r.now(), query.Days, nil)
	}), nil
}

// FetchFriction implements FrictionRepository.
func (r *DemoRepository) FetchFriction(_ context.Context, query FrictionQuery) ([]FrictionPoint, error) {
	key := "friction:" + strings.Join(query.Topics, "|") + ":" + strings.Join(query.Slots, "|")
	return CachedDataset(r.cache, query.InstanceID, key, func() []FrictionPoint {
		return r.gen.FrictionPoints(query.Topics, query.Slots)
	}), nil
}

// FetchActivity implements ActivityRepository.
func (r *DemoRepository) FetchActivity(_ context.Context, query ActivityQuery) (ActivityGrid, error) {
	switch query.View {
	case ActivityViewDay:
		return CachedDataset(r.cache, query.InstanceID, "activity:day", r.gen.DailyActivity), nil
	case "", ActivityViewWeek:
		return CachedDataset(r.cache, query.InstanceID, "activity:week", r.gen.WeeklyActivity), nil
	default:
		return ActivityGrid{}, fmt.Errorf("dashboard: unknown activity view %q", query.View)
	}
}

// FetchStates implements StateRepository.
func (r *DemoRepository) FetchStates(context.Context) ([]StateStat, error) {
	return StateActivity(), nil
}

// FetchSentiment implements SentimentRepository using the generator settings.
func (r *DemoRepository) FetchSentiment(_ context.Context, _ SentimentQuery) ([]SegmentInput, error) {
	s := r.settings
	return []SegmentInput{
		{Label: "Positive", Value: s.Positive, Color: "#10B981"},
		{Label: "Neutral", Value: s.Neutral, Color: "#737373"},
		{Label: "Negative", Value: s.Negative, Color: "#EF4444"},
	}, nil
}

// FetchLeaderboard implements LeaderboardRepository.
func (r *DemoRepository) FetchLeaderboard(_ context.Context, query LeaderboardQuery) ([]LeaderboardEntry, error) {
	key := fmt.Sprintf("leaderboard:%s:%d", query.Metric, query.Limit)
	return CachedDataset(r.cache, query.InstanceID, key, func() []LeaderboardEntry {
		return r.gen.Leaderboard(nil, query.Metric, query.Limit)
	}), nil
}

// FetchCallTrend implements CallTrendRepository.
func (r *DemoRepository) FetchCallTrend(_ context.Context, query CallTrendQuery) ([]TrendPoint, error) {
	days, err := periodDays(query.Period)
	if err != nil {
		return nil, err
	}
	end := r.now().UTC()
	points := make([]TrendPoint, days)
	for i := range points {
		day := end.AddDate(0, 0, i-days+1)
		points[i] = TrendPoint{
			Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Value:     r.trendValue(query.Metric, day.Weekday()),
		}
	}
	return points, nil
}

func (r *DemoRepository) trendValue(metric string, day time.Weekday) float64 {
	s := r.settings
	switch metric {
	case TrendMetricDuration:
		return math.Round(s.AverageDuration*(0.8+r.gen.float()*0.4)*10) / 10
	case TrendMetricConversion:
		return math.Round(s.ConversionRate*(0.85+r.gen.float()*0.3)*10) / 10
	case TrendMetricSentiment:
		return math.Round(s.Positive*(0.9+r.gen.float()*0.2)*10) / 10
	default:
		total := 0
		for _, h := range DefaultCallHours() {
			total += r.gen.HourlyCalls(day, h)
		}
		return float64(total)
	}
}

func periodDays(period string) (int, error) {
	switch period {
	case "", "30d":
		return 30, nil
	case "7d":
		return 7, nil
	case "14d":
		return 14, nil
	case "60d":
		return 60, nil
	case "90d":
		return 90, nil
	default:
		return 0, fmt.Errorf("dashboard: unsupported period %q", period)
	}
}

var (
	_ CallVolumeRepository  = (*DemoRepository)(nil)
	_ CallHeatmapRepository = (*DemoRepository)(nil)
	_ FrictionRepository    = (*DemoRepository)(nil)
	_ ActivityRepository    = (*DemoRepository)(nil)
	_ StateRepository       = (*DemoRepository)(nil)
	_ SentimentRepository   = (*DemoRepository)(nil)
	_ LeaderboardRepository = (*DemoRepository)(nil)
	_ CallTrendRepository   = (*DemoRepository)(nil)
	_ Repositories          = (*DemoRepository)(nil)
)
