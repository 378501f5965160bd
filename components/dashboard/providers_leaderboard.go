package dashboard

import (
	"context"
	"fmt"
)

type leaderboardProvider struct {
	repo LeaderboardRepository
}

// NewLeaderboardProvider ranks voice agents by the configured metric.
func NewLeaderboardProvider(repo LeaderboardRepository) Provider {
	if repo == nil {
		repo = NewDemoRepository(nil)
	}
	return &leaderboardProvider{repo: repo}
}

func (p *leaderboardProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cfg := meta.Instance.Configuration
	metric := stringValue(cfg["metric"], "conversion")
	limit := intValue(cfg["limit"], 5)
	entries, err := p.repo.FetchLeaderboard(ctx, LeaderboardQuery{
		InstanceID: meta.Instance.ID,
		Metric:     metric,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return WidgetData{
		"title":   stringValue(cfg["title"], "Top Agents"),
		"metric":  metric,
		"entries": entries,
	}, nil
}
