package dashboard

import "time"

// Repositories is every data source the built-in widgets read from.
// DemoRepository implements it; remote clients can wrap or replace parts.
type Repositories interface {
	CallVolumeRepository
	CallHeatmapRepository
	FrictionRepository
	ActivityRepository
	StateRepository
	SentimentRepository
	LeaderboardRepository
	CallTrendRepository
}

// DefaultProviders binds every built-in widget definition to a provider backed
// by repo. A nil repo uses a fresh demo repository.
func DefaultProviders(repo Repositories) map[string]Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	return map[string]Provider{
		WidgetCallVolumeHeatmap:  NewCallVolumeHeatmapProvider(repo),
		WidgetCallHeatmap:        NewCallHeatmapProvider(repo, NewEChartsProvider(ChartHeatmap)),
		WidgetFrictionHeatmap:    NewFrictionHeatmapProvider(repo),
		WidgetLiveActivity:       NewLiveActivityProvider(repo),
		WidgetGeographicActivity: NewGeographicProvider(repo),
		WidgetSentimentDonut:     NewDonutProvider(repo, NewEChartsProvider(ChartDonut)),
		WidgetLeaderboard:        NewLeaderboardProvider(repo),
		WidgetCallTrend:          NewCallTrendProvider(repo, NewEChartsProvider(ChartLine)),
	}
}

// NewSeededDemoRepository returns a deterministic repository for demos and tests.
func NewSeededDemoRepository(seed uint64, now time.Time) *DemoRepository {
	return NewDemoRepository(
		NewDemoGenerator(NewSeededRandom(seed)),
		WithDemoClock(func() time.Time { return now }),
	)
}
