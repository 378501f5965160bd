package analytics

import (
	"context"

	"go.uber.org/zap"

	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// FallbackRepository serves widget data from a remote Client and falls back
// to the demo repository when the remote call fails. Heatmap, activity and
// state data always come from the demo repository.
type FallbackRepository struct {
	*dashboard.DemoRepository
	remote Client
	logger *zap.Logger
}

// NewFallbackRepository wraps remote with demo fallback. A nil demo
// repository uses a fresh one.
func NewFallbackRepository(remote Client, demo *dashboard.DemoRepository, logger *zap.Logger) *FallbackRepository {
	if demo == nil {
		demo = dashboard.NewDemoRepository(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackRepository{DemoRepository: demo, remote: remote, logger: logger}
}

var _ dashboard.Repositories = (*FallbackRepository)(nil)

// FetchCallVolume prefers the remote weekly volume.
func (r *FallbackRepository) FetchCallVolume(ctx context.Context, query dashboard.CallVolumeQuery) ([]dashboard.CallVolumeDay, error) {
	return fallback(ctx, r, "call_volume", func() ([]dashboard.CallVolumeDay, error) {
		return r.remote.FetchCallVolume(ctx, query)
	}, func() ([]dashboard.CallVolumeDay, error) {
		return r.DemoRepository.FetchCallVolume(ctx, query)
	})
}

// FetchFriction prefers remote friction points.
func (r *FallbackRepository) FetchFriction(ctx context.Context, query dashboard.FrictionQuery) ([]dashboard.FrictionPoint, error) {
	return fallback(ctx, r, "friction", func() ([]dashboard.FrictionPoint, error) {
		return r.remote.FetchFriction(ctx, query)
	}, func() ([]dashboard.FrictionPoint, error) {
		return r.DemoRepository.FetchFriction(ctx, query)
	})
}

// FetchSentiment prefers the remote sentiment split.
func (r *FallbackRepository) FetchSentiment(ctx context.Context, query dashboard.SentimentQuery) ([]dashboard.SegmentInput, error) {
	return fallback(ctx, r, "sentiment", func() ([]dashboard.SegmentInput, error) {
		return r.remote.FetchSentiment(ctx, query)
	}, func() ([]dashboard.SegmentInput, error) {
		return r.DemoRepository.FetchSentiment(ctx, query)
	})
}

// FetchCallTrend prefers the remote trend series.
func (r *FallbackRepository) FetchCallTrend(ctx context.Context, query dashboard.CallTrendQuery) ([]dashboard.TrendPoint, error) {
	return fallback(ctx, r, "call_trend", func() ([]dashboard.TrendPoint, error) {
		return r.remote.FetchCallTrend(ctx, query)
	}, func() ([]dashboard.TrendPoint, error) {
		return r.DemoRepository.FetchCallTrend(ctx, query)
	})
}

// FetchLeaderboard prefers the remote agent ranking.
func (r *FallbackRepository) FetchLeaderboard(ctx context.Context, query dashboard.LeaderboardQuery) ([]dashboard.LeaderboardEntry, error) {
	return fallback(ctx, r, "leaderboard", func() ([]dashboard.LeaderboardEntry, error) {
		return r.remote.FetchLeaderboard(ctx, query)
	}, func() ([]dashboard.LeaderboardEntry, error) {
		return r.DemoRepository.FetchLeaderboard(ctx, query)
	})
}

func fallback[T any](ctx context.Context, r *FallbackRepository, source string, remote, demo func() (T, error)) (T, error) {
	if r.remote != nil {
		v, err := remote()
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			var zero T
			return zero, ctx.Err()
		}
		r.logger.Warn("remote analytics unavailable, serving demo data",
			zap.String("source", source),
			zap.Error(err))
	}
	return demo()
}
