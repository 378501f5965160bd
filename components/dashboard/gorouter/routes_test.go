package gorouter

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	router "github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/commands"
	"github.com/pharmai/voicedash/components/dashboard/httpapi"
	"github.com/pharmai/voicedash/components/dashboard/queries"
)

func TestRegisterValidatesConfig(t *testing.T) {
	err := Register(Config[struct{}]{})
	if err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
}

func TestRegisterLayoutRoute(t *testing.T) {
	mock := newMockRouter()
	resolver := &stubLayoutResolver{layout: dashboard.Layout{
		Areas: map[string][]dashboard.WidgetInstance{
			dashboard.AreaMain: {
				{ID: "w1", DefinitionID: dashboard.WidgetCallHeatmap},
				{ID: "w2", DefinitionID: dashboard.WidgetLeaderboard},
			},
		},
	}}
	controller := dashboard.NewController(dashboard.ControllerOptions{Service: resolver})
	require.NoError(t, Register(Config[struct{}]{
		Router:         mock,
		Controller:     controller,
		ViewerResolver: staticViewer("pharm-7", "supervisor"),
	}))

	ctx := newMockContext()
	require.NoError(t, mock.handler(t, "GET:/voice/dashboard/_layout")(ctx))
	assert.Equal(t, http.StatusOK, ctx.status)
	assert.Equal(t, "pharm-7", resolver.viewer.UserID)

	var payload dashboard.LayoutPayload
	require.NoError(t, json.Unmarshal(ctx.body, &payload))
	require.NotEmpty(t, payload.Areas)
	assert.Equal(t, dashboard.AreaMain, payload.Areas[0].Code)
	require.Len(t, payload.Areas[0].Widgets, 2)
	assert.Equal(t, "w2", payload.Areas[0].Widgets[1].ID)
	assert.Equal(t, 1, payload.Areas[0].Widgets[1].Position)

	_, registered := mock.routes["POST:/voice/dashboard/widgets"]
	assert.False(t, registered, "widget routes need an executor")
}

func TestRegisterLayoutRouteError(t *testing.T) {
	mock := newMockRouter()
	resolver := &stubLayoutResolver{err: dashboard.ErrLayoutNotFound}
	require.NoError(t, Register(Config[struct{}]{
		Router:     mock,
		Controller: dashboard.NewController(dashboard.ControllerOptions{Service: resolver}),
	}))

	ctx := newMockContext()
	ctx.locals["user_id"] = "pharm-1"
	require.NoError(t, mock.handler(t, "GET:/voice/dashboard/_layout")(ctx))
	assert.Equal(t, http.StatusNotFound, ctx.status)
	assert.Contains(t, string(ctx.body), "error")
	assert.Equal(t, "pharm-1", resolver.viewer.UserID)
}

func TestWidgetPostRoute(t *testing.T) {
	mock, api := registerWithExecutor(t)

	ctx := newMockContext()
	ctx.body = []byte(`{"definition_id":"voice.widget.leaderboard","area_code":"voice.dashboard.sidebar","configuration":{"limit":5}}`)
	require.NoError(t, mock.handler(t, "POST:/voice/dashboard/widgets")(ctx))
	assert.Equal(t, http.StatusCreated, ctx.status)
	require.Len(t, api.assigned, 1)
	assert.Equal(t, dashboard.WidgetLeaderboard, api.assigned[0].DefinitionID)
	assert.Equal(t, dashboard.AreaSidebar, api.assigned[0].AreaCode)
	assert.Equal(t, "pharm-7", api.assigned[0].UserID, "user comes from the viewer when omitted")

	bad := newMockContext()
	bad.body = []byte(`{`)
	require.NoError(t, mock.handler(t, "POST:/voice/dashboard/widgets")(bad))
	assert.Equal(t, http.StatusBadRequest, bad.status)
	assert.Len(t, api.assigned, 1)

	api.err = dashboard.ErrWidgetNotFound
	missing := newMockContext()
	missing.body = []byte(`{"definition_id":"voice.widget.leaderboard"}`)
	require.NoError(t, mock.handler(t, "POST:/voice/dashboard/widgets")(missing))
	assert.Equal(t, http.StatusNotFound, missing.status)
}

func TestFrictionCSVRoute(t *testing.T) {
	mock, api := registerWithExecutor(t)
	api.export = queries.CSVExport{
		Filename: "friction-2024-03-04.csv",
		Body:     []byte("Topic,Morning\nRefills,4\n"),
	}

	ctx := newMockContext()
	ctx.query["widget_id"] = "w9"
	ctx.query["topics"] = "Refills, Prior Auth"
	require.NoError(t, mock.handler(t, "GET:/voice/dashboard/friction.csv")(ctx))

	assert.Equal(t, httpapi.CSVContentType, ctx.headers["Content-Type"])
	assert.Equal(t, `attachment; filename="friction-2024-03-04.csv"`, ctx.headers["Content-Disposition"])
	assert.Equal(t, "Topic,Morning\nRefills,4\n", string(ctx.body))
	assert.Equal(t, "w9", api.exportInput.InstanceID)
	assert.Equal(t, []string{"Refills", "Prior Auth"}, api.exportInput.Topics)
	assert.Nil(t, api.exportInput.Slots)
}

func TestLayoutApplyAndRenameRoutes(t *testing.T) {
	mock, api := registerWithExecutor(t)

	apply := newMockContext()
	apply.params["id"] = "layout_3"
	require.NoError(t, mock.handler(t, "POST:/voice/dashboard/layouts/:id/apply")(apply))
	assert.Equal(t, http.StatusOK, apply.status)
	assert.Equal(t, "layout_3", api.applied.LayoutID)
	assert.Equal(t, "pharm-7", api.applied.Viewer.UserID)

	api.err = dashboard.ErrUnknownArea
	rejected := newMockContext()
	rejected.params["id"] = "layout_4"
	require.NoError(t, mock.handler(t, "POST:/voice/dashboard/layouts/:id/apply")(rejected))
	assert.Equal(t, http.StatusBadRequest, rejected.status)
	api.err = nil

	rename := newMockContext()
	rename.params["id"] = "layout_3"
	rename.body = []byte(`{"layout_id":"ignored","name":"Night shift","description":"Overnight queue"}`)
	require.NoError(t, mock.handler(t, "POST:/voice/dashboard/layouts/:id/rename")(rename))
	assert.Equal(t, http.StatusOK, rename.status)
	assert.Equal(t, "layout_3", api.renamed.LayoutID, "the path id wins over the body")
	assert.Equal(t, "Night shift", api.renamed.Name)

	var saved dashboard.SavedLayout
	require.NoError(t, json.Unmarshal(rename.body, &saved))
	assert.Equal(t, "Night shift", saved.Name)
	assert.Equal(t, "Overnight queue", saved.Description)

	api.err = dashboard.ErrLayoutNameRequired
	blank := newMockContext()
	blank.params["id"] = "layout_3"
	blank.body = []byte(`{"name":" "}`)
	require.NoError(t, mock.handler(t, "POST:/voice/dashboard/layouts/:id/rename")(blank))
	assert.Equal(t, http.StatusBadRequest, blank.status)
}

func TestRegisterHonoursBasePathAndRoutes(t *testing.T) {
	mock := newMockRouter()
	require.NoError(t, Register(Config[struct{}]{
		Router:     mock,
		Controller: dashboard.NewController(dashboard.ControllerOptions{Service: &stubLayoutResolver{}}),
		API:        &recordingExecutor{},
		BasePath:   "/ops",
		Routes:     RouteConfig{FrictionCSV: "/export.csv"},
	}))
	assert.Contains(t, mock.routes, "GET:/ops/export.csv")
	assert.Contains(t, mock.routes, "GET:/ops/dashboard/_layout")
	assert.Contains(t, mock.routes, "DELETE:/ops/dashboard/layouts/:id")
	assert.Empty(t, mock.ws, "websocket route needs a broadcast hook")
}

func TestDefaultRouteConfigKeepsOverrides(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{FrictionCSV: "/export.csv"})
	assert.Equal(t, "/export.csv", routes.FrictionCSV)
	assert.Equal(t, "/dashboard/_layout", routes.Layout)
	assert.Equal(t, "/dashboard/layouts/:id/apply", routes.LayoutApply)
	assert.Equal(t, "/dashboard/ws", routes.WebSocket)
	assert.Equal(t, "/dashboard/snapshot", routes.Snapshot)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Refills", "Prior Auth"}, splitList(" Refills, ,Prior Auth "))
	assert.Nil(t, splitList(""))
}

// --- Test helpers ---

func registerWithExecutor(t *testing.T) (*mockRouter, *recordingExecutor) {
	t.Helper()
	mock := newMockRouter()
	api := &recordingExecutor{}
	require.NoError(t, Register(Config[struct{}]{
		Router:         mock,
		Controller:     dashboard.NewController(dashboard.ControllerOptions{Service: &stubLayoutResolver{}}),
		API:            api,
		ViewerResolver: staticViewer("pharm-7"),
	}))
	return mock, api
}

func staticViewer(userID string, roles ...string) ViewerResolver {
	return func(router.Context) dashboard.ViewerContext {
		return dashboard.ViewerContext{UserID: userID, Roles: roles}
	}
}

type mockRouter struct {
	router.Router[struct{}]
	prefix string
	routes map[string]router.HandlerFunc
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		routes: map[string]router.HandlerFunc{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRouter) handler(t *testing.T, key string) router.HandlerFunc {
	t.Helper()
	h, ok := m.routes[key]
	require.True(t, ok, "route %s not registered", key)
	return h
}

func (m *mockRouter) Group(prefix string) router.Router[struct{}] {
	return &mockRouter{
		prefix: m.prefix + prefix,
		routes: m.routes,
		ws:     m.ws,
	}
}

func (m *mockRouter) record(method, path string, handler router.HandlerFunc) {
	m.routes[method+":"+m.prefix+path] = handler
}

func (m *mockRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.GET), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.POST), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.DELETE), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo {
	m.ws[m.prefix+path] = handler
	return mockRouteInfo{}
}

type mockRouteInfo struct {
	router.RouteInfo
}

func (mockRouteInfo) SetName(string) router.RouteInfo { return mockRouteInfo{} }

// routerContext aliases router.Context so the embedded field name does not
// collide with the Context() method below.
type routerContext = router.Context

type mockContext struct {
	routerContext
	ctx     context.Context
	headers map[string]string
	query   map[string]string
	body    []byte
	locals  map[any]any
	params  map[string]string
	status  int
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		query:   map[string]string{},
		locals:  map[any]any{},
		params:  map[string]string{},
	}
}

func (m *mockContext) Context() context.Context {
	return m.ctx
}

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return m
}

func (m *mockContext) Header(k string) string {
	return m.headers[k]
}

func (m *mockContext) Send(b []byte) error {
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Query(name string, defaultValue ...string) string {
	if v, ok := m.query[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.locals[key]
	}
	m.locals[key] = value[0]
	return value[0]
}

type stubLayoutResolver struct {
	layout dashboard.Layout
	err    error
	viewer dashboard.ViewerContext
}

func (s *stubLayoutResolver) ConfigureLayout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error) {
	s.viewer = viewer
	return s.layout, s.err
}

// recordingExecutor captures the inputs handed to it and fails with err when set.
type recordingExecutor struct {
	err         error
	assigned    []dashboard.AddWidgetRequest
	applied     commands.ApplyLayoutInput
	renamed     commands.RenameLayoutInput
	export      queries.CSVExport
	exportInput queries.FrictionExportInput
}

func (r *recordingExecutor) Assign(_ context.Context, req dashboard.AddWidgetRequest) error {
	if r.err != nil {
		return r.err
	}
	r.assigned = append(r.assigned, req)
	return nil
}

func (r *recordingExecutor) Update(context.Context, dashboard.UpdateWidgetRequest) error { return r.err }
func (r *recordingExecutor) Remove(context.Context, commands.RemoveWidgetInput) error    { return r.err }
func (r *recordingExecutor) Reorder(context.Context, commands.ReorderWidgetsInput) error {
	return r.err
}
func (r *recordingExecutor) Refresh(context.Context, commands.RefreshWidgetInput) error { return r.err }
func (r *recordingExecutor) Preferences(context.Context, commands.SaveLayoutPreferencesInput) error {
	return r.err
}

func (r *recordingExecutor) SaveLayout(_ context.Context, input commands.SaveLayoutInput) (dashboard.SavedLayout, error) {
	return dashboard.SavedLayout{Name: input.Name}, r.err
}

func (r *recordingExecutor) ApplyLayout(_ context.Context, input commands.ApplyLayoutInput) error {
	r.applied = input
	return r.err
}

func (r *recordingExecutor) DeleteLayout(context.Context, string) error { return r.err }

func (r *recordingExecutor) ToggleFavorite(_ context.Context, id string) (dashboard.SavedLayout, error) {
	return dashboard.SavedLayout{ID: id, IsFavorite: true}, r.err
}

func (r *recordingExecutor) RenameLayout(_ context.Context, input commands.RenameLayoutInput) (dashboard.SavedLayout, error) {
	r.renamed = input
	if r.err != nil {
		return dashboard.SavedLayout{}, r.err
	}
	return dashboard.SavedLayout{ID: input.LayoutID, Name: input.Name, Description: input.Description}, nil
}

func (r *recordingExecutor) ListLayouts(context.Context, queries.SavedLayoutsInput) ([]queries.SavedLayoutSummary, error) {
	return nil, r.err
}

func (r *recordingExecutor) FrictionCSV(_ context.Context, input queries.FrictionExportInput) (queries.CSVExport, error) {
	r.exportInput = input
	return r.export, r.err
}

func (r *recordingExecutor) Dashboard(context.Context, queries.DashboardInput) (queries.DashboardSnapshot, error) {
	return queries.DashboardSnapshot{}, r.err
}
