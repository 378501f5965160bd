package queries

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

type layoutLister interface {
	List(ctx context.Context) ([]dashboard.SavedLayout, error)
}

// SavedLayoutsInput filters the saved layout listing.
type SavedLayoutsInput struct {
	FavoritesOnly bool `json:"favorites_only"`
}

// SavedLayoutSummary is a saved layout plus its relative update time.
type SavedLayoutSummary struct {
	dashboard.SavedLayout
	Updated string `json:"updated"`
}

// SavedLayoutsQuery lists saved layouts, favorites first.
type SavedLayoutsQuery struct {
	library layoutLister
	now     func() time.Time
}

// NewSavedLayoutsQuery builds the query.
func NewSavedLayoutsQuery(library layoutLister) *SavedLayoutsQuery {
	return &SavedLayoutsQuery{library: library, now: time.Now}
}

var _ gocommand.Querier[SavedLayoutsInput, []SavedLayoutSummary] = (*SavedLayoutsQuery)(nil)

// Query returns the listing.
func (q *SavedLayoutsQuery) Query(ctx context.Context, input SavedLayoutsInput) ([]SavedLayoutSummary, error) {
	layouts, err := q.library.List(ctx)
	if err != nil {
		return nil, err
	}
	now := q.now()
	out := make([]SavedLayoutSummary, 0, len(layouts))
	for _, l := range layouts {
		if input.FavoritesOnly && !l.IsFavorite {
			continue
		}
		out = append(out, SavedLayoutSummary{SavedLayout: l, Updated: dashboard.FormatRelative(now, l.UpdatedAt)})
	}
	return out, nil
}
