package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/commands"
	"github.com/pharmai/voicedash/components/dashboard/httpapi"
	"github.com/pharmai/voicedash/components/dashboard/queries"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the dashboard controller, API and refresh hook.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *dashboard.Controller
	API            httpapi.Executor
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	Layout         string
	Widgets        string
	WidgetID       string
	Reorder        string
	Refresh        string
	Preferences    string
	Layouts        string
	LayoutID       string
	LayoutFavorite string
	LayoutRename   string
	LayoutApply    string
	FrictionCSV    string
	Snapshot       string
	WebSocket      string
}

// DefaultBasePath prefixes every dashboard route.
const DefaultBasePath = "/voice"

// Register mounts dashboard routes (JSON, REST, CSV, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = DefaultBasePath
	}
	viewerResolver := cfg.ViewerResolver
	if viewerResolver == nil {
		viewerResolver = defaultViewerResolver
	}

	group := cfg.Router.Group(base)

	group.Get(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		viewer := viewerResolver(ctx)
		payload, err := cfg.Controller.LayoutPayload(ctx.Context(), viewer)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, payload)
	}))

	if cfg.API != nil {
		registerWidgetAPI(group, cfg.API, viewerResolver, routes)
		registerLayoutAPI(group, cfg.API, viewerResolver, routes)
	}

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}

	return nil
}

func registerWidgetAPI[T any](r router.Router[T], api httpapi.Executor, resolver ViewerResolver, routes RouteConfig) {
	r.Get(routes.Snapshot, router.WrapHandler(func(ctx router.Context) error {
		snapshot, err := api.Dashboard(ctx.Context(), queries.DashboardInput{
			Viewer:   resolver(ctx),
			AreaCode: ctx.Query("area"),
		})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, snapshot)
	}))

	r.Post(routes.Widgets, router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.AddWidgetRequest
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if payload.UserID == "" {
			payload.UserID = resolver(ctx).UserID
		}
		if err := api.Assign(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, map[string]string{"status": "created"})
	}))

	r.Post(routes.WidgetID, router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.UpdateWidgetRequest
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.WidgetID = ctx.Param("id")
		payload.UserID = resolver(ctx).UserID
		if err := api.Update(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "updated"})
	}))

	r.Delete(routes.WidgetID, router.WrapHandler(func(ctx router.Context) error {
		id := ctx.Param("id")
		if id == "" {
			return respondStatus(ctx, http.StatusBadRequest, errors.New("widget id is required"))
		}
		input := commands.RemoveWidgetInput{WidgetID: id, UserID: resolver(ctx).UserID}
		if err := api.Remove(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "removed"})
	}))

	r.Post(routes.Reorder, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.ReorderWidgetsInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Reorder(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "reordered"})
	}))

	r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.RefreshWidgetInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		if err := api.Refresh(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
	}))

	r.Post(routes.Preferences, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SaveLayoutPreferencesInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.Viewer = resolver(ctx)
		if err := api.Preferences(ctx.Context(), payload); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
	}))

	r.Get(routes.FrictionCSV, router.WrapHandler(func(ctx router.Context) error {
		export, err := api.FrictionCSV(ctx.Context(), queries.FrictionExportInput{
			InstanceID: ctx.Query("widget_id"),
			Topics:     splitList(ctx.Query("topics")),
			Slots:      splitList(ctx.Query("slots")),
		})
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", httpapi.CSVContentType)
		ctx.SetHeader("Content-Disposition", httpapi.ContentDisposition(export.Filename))
		return ctx.Send(export.Body)
	}))
}

func registerLayoutAPI[T any](r router.Router[T], api httpapi.Executor, resolver ViewerResolver, routes RouteConfig) {
	r.Get(routes.Layouts, router.WrapHandler(func(ctx router.Context) error {
		favorites, _ := strconv.ParseBool(ctx.Query("favorites"))
		layouts, err := api.ListLayouts(ctx.Context(), queries.SavedLayoutsInput{FavoritesOnly: favorites})
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layouts)
	}))

	r.Post(routes.Layouts, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SaveLayoutInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.Viewer = resolver(ctx)
		saved, err := api.SaveLayout(ctx.Context(), payload)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, saved)
	}))

	r.Delete(routes.LayoutID, router.WrapHandler(func(ctx router.Context) error {
		if err := api.DeleteLayout(ctx.Context(), ctx.Param("id")); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "deleted"})
	}))

	r.Post(routes.LayoutFavorite, router.WrapHandler(func(ctx router.Context) error {
		layout, err := api.ToggleFavorite(ctx.Context(), ctx.Param("id"))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	}))

	r.Post(routes.LayoutRename, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.RenameLayoutInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondStatus(ctx, http.StatusBadRequest, err)
		}
		payload.LayoutID = ctx.Param("id")
		layout, err := api.RenameLayout(ctx.Context(), payload)
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, layout)
	}))

	r.Post(routes.LayoutApply, router.WrapHandler(func(ctx router.Context) error {
		input := commands.ApplyLayoutInput{Viewer: resolver(ctx), LayoutID: ctx.Param("id")}
		if err := api.ApplyLayout(ctx.Context(), input); err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "applied"})
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultViewerResolver(ctx router.Context) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if roles, ok := ctx.Locals("roles").([]string); ok {
		viewer.Roles = roles
	}
	if viewer.UserID == "" {
		viewer.UserID = strings.TrimSpace(ctx.Header("X-User-ID"))
	}
	if len(viewer.Roles) == 0 {
		viewer.Roles = splitList(ctx.Header("X-User-Roles"))
	}
	return viewer
}

// splitList parses a comma separated list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" {
			out = append(out, token)
		}
	}
	return out
}

func respondError(ctx router.Context, err error) error {
	return ctx.JSON(httpapi.StatusFor(err), httpapi.ErrorBody(err))
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Layout == "" {
		routes.Layout = "/dashboard/_layout"
	}
	if routes.Widgets == "" {
		routes.Widgets = "/dashboard/widgets"
	}
	if routes.WidgetID == "" {
		routes.WidgetID = "/dashboard/widgets/:id"
	}
	if routes.Reorder == "" {
		routes.Reorder = "/dashboard/widgets/reorder"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/dashboard/widgets/refresh"
	}
	if routes.Preferences == "" {
		routes.Preferences = "/dashboard/preferences"
	}
	if routes.Layouts == "" {
		routes.Layouts = "/dashboard/layouts"
	}
	if routes.LayoutID == "" {
		routes.LayoutID = "/dashboard/layouts/:id"
	}
	if routes.LayoutFavorite == "" {
		routes.LayoutFavorite = "/dashboard/layouts/:id/favorite"
	}
	if routes.LayoutRename == "" {
		routes.LayoutRename = "/dashboard/layouts/:id/rename"
	}
	if routes.LayoutApply == "" {
		routes.LayoutApply = "/dashboard/layouts/:id/apply"
	}
	if routes.FrictionCSV == "" {
		routes.FrictionCSV = "/dashboard/friction.csv"
	}
	if routes.Snapshot == "" {
		routes.Snapshot = "/dashboard/snapshot"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/dashboard/ws"
	}
	return routes
}
