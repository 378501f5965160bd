package queries

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/pharmai/voicedash/components/dashboard"
)

// DashboardInput selects what a viewer sees. An empty AreaCode resolves every
// area.
type DashboardInput struct {
	Viewer   dashboard.ViewerContext `json:"viewer"`
	AreaCode string                  `json:"area_code,omitempty"`
}

// DashboardSnapshot is the resolved widget placement for one viewer.
type DashboardSnapshot struct {
	Areas       map[string][]dashboard.WidgetInstance `json:"areas"`
	Widgets     int                                   `json:"widgets"`
	GeneratedAt time.Time                             `json:"generated_at"`
}

type dashboardService interface {
	ConfigureLayout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error)
	ResolveArea(ctx context.Context, viewer dashboard.ViewerContext, areaCode string) (dashboard.ResolvedArea, error)
}

// DashboardQuery resolves the layout (or a single area) with provider data
// attached.
type DashboardQuery struct {
	service dashboardService
	now     func() time.Time
}

func NewDashboardQuery(service dashboardService) *DashboardQuery {
	return &DashboardQuery{service: service, now: time.Now}
}

var _ gocommand.Querier[DashboardInput, DashboardSnapshot] = (*DashboardQuery)(nil)

func (q *DashboardQuery) Query(ctx context.Context, input DashboardInput) (DashboardSnapshot, error) {
	if q.service == nil {
		return DashboardSnapshot{}, errors.New("queries: dashboard query requires a service")
	}
	snapshot := DashboardSnapshot{GeneratedAt: q.now().UTC()}
	if input.AreaCode != "" {
		area, err := q.service.ResolveArea(ctx, input.Viewer, input.AreaCode)
		if err != nil {
			return DashboardSnapshot{}, err
		}
		snapshot.Areas = map[string][]dashboard.WidgetInstance{area.AreaCode: area.Widgets}
	} else {
		layout, err := q.service.ConfigureLayout(ctx, input.Viewer)
		if err != nil {
			return DashboardSnapshot{}, err
		}
		snapshot.Areas = layout.Areas
	}
	if snapshot.Areas == nil {
		snapshot.Areas = map[string][]dashboard.WidgetInstance{}
	}
	for _, widgets := range snapshot.Areas {
		snapshot.Widgets += len(widgets)
	}
	return snapshot, nil
}
