package analytics

import (
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// Client is the set of dashboard repositories a remote call-analytics
// service can back.
type Client interface {
	dashboard.CallVolumeRepository
	dashboard.FrictionRepository
	dashboard.SentimentRepository
	dashboard.CallTrendRepository
	dashboard.LeaderboardRepository
}
