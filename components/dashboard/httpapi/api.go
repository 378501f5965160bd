package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/commands"
	"github.com/pharmai/voicedash/components/dashboard/queries"
)

// ViewerFunc extracts the viewer from a request.
type ViewerFunc func(*http.Request) dashboard.ViewerContext

// Handlers exposes HTTP endpoints backed by an Executor.
type Handlers struct {
	API    Executor
	Viewer ViewerFunc
	Events *dashboard.BroadcastHook
}

// NewHandlers builds handlers. A nil viewer func reads X-User-ID.
func NewHandlers(api Executor, viewer ViewerFunc) *Handlers {
	if viewer == nil {
		viewer = HeaderViewer
	}
	return &Handlers{API: api, Viewer: viewer}
}

// HeaderViewer reads the viewer from X-User-ID and repeated X-User-Role headers.
func HeaderViewer(r *http.Request) dashboard.ViewerContext {
	return dashboard.ViewerContext{
		UserID: r.Header.Get("X-User-ID"),
		Roles:  r.Header.Values("X-User-Role"),
	}
}

// Mux mounts every handler on a ServeMux using method patterns.
func (h *Handlers) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dashboard", h.HandleDashboard)
	mux.HandleFunc("POST /widgets", h.HandleAssignWidget)
	mux.HandleFunc("PUT /widgets/{id}", h.HandleUpdateWidget)
	mux.HandleFunc("DELETE /widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleRemoveWidget(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("POST /widgets/reorder", h.HandleReorderWidgets)
	mux.HandleFunc("POST /widgets/refresh", h.HandleRefreshWidget)
	mux.HandleFunc("POST /preferences", h.HandleSavePreferences)
	mux.HandleFunc("GET /layouts", h.HandleListLayouts)
	mux.HandleFunc("POST /layouts", h.HandleSaveLayout)
	mux.HandleFunc("DELETE /layouts/{id}", h.HandleDeleteLayout)
	mux.HandleFunc("POST /layouts/{id}/favorite", h.HandleToggleFavorite)
	mux.HandleFunc("POST /layouts/{id}/rename", h.HandleRenameLayout)
	mux.HandleFunc("POST /layouts/{id}/apply", h.HandleApplyLayout)
	mux.HandleFunc("GET /friction.csv", h.HandleFrictionCSV)
	if h.Events != nil {
		mux.HandleFunc("GET /events", h.Events.ServeSSE)
		mux.HandleFunc("GET /ws", h.Events.ServeWebSocket)
	}
	return mux
}

// HandleDashboard resolves the viewer's widgets; ?area= narrows to one area.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.API.Dashboard(r.Context(), queries.DashboardInput{
		Viewer:   h.viewer(r),
		AreaCode: r.URL.Query().Get("area"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handlers) HandleAssignWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddWidgetRequest
	if !decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" {
		payload.UserID = h.viewer(r).UserID
	}
	if err := h.API.Assign(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) HandleUpdateWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.UpdateWidgetRequest
	if !decode(w, r, &payload) {
		return
	}
	if id := r.PathValue("id"); id != "" {
		payload.WidgetID = id
	}
	payload.UserID = h.viewer(r).UserID
	if err := h.API.Update(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleRemoveWidget(w http.ResponseWriter, r *http.Request, widgetID string) {
	input := commands.RemoveWidgetInput{WidgetID: widgetID, UserID: h.viewer(r).UserID}
	if err := h.API.Remove(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleReorderWidgets(w http.ResponseWriter, r *http.Request) {
	var payload commands.ReorderWidgetsInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.API.Reorder(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleRefreshWidget(w http.ResponseWriter, r *http.Request) {
	var payload commands.RefreshWidgetInput
	if !decode(w, r, &payload) {
		return
	}
	if err := h.API.Refresh(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) HandleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var payload commands.SaveLayoutPreferencesInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	if err := h.API.Preferences(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleListLayouts(w http.ResponseWriter, r *http.Request) {
	favorites, _ := strconv.ParseBool(r.URL.Query().Get("favorites"))
	layouts, err := h.API.ListLayouts(r.Context(), queries.SavedLayoutsInput{FavoritesOnly: favorites})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layouts)
}

func (h *Handlers) HandleSaveLayout(w http.ResponseWriter, r *http.Request) {
	var payload commands.SaveLayoutInput
	if !decode(w, r, &payload) {
		return
	}
	payload.Viewer = h.viewer(r)
	saved, err := h.API.SaveLayout(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handlers) HandleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := h.API.DeleteLayout(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	layout, err := h.API.ToggleFavorite(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (h *Handlers) HandleRenameLayout(w http.ResponseWriter, r *http.Request) {
	var payload commands.RenameLayoutInput
	if !decode(w, r, &payload) {
		return
	}
	payload.LayoutID = r.PathValue("id")
	layout, err := h.API.RenameLayout(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (h *Handlers) HandleApplyLayout(w http.ResponseWriter, r *http.Request) {
	input := commands.ApplyLayoutInput{Viewer: h.viewer(r), LayoutID: r.PathValue("id")}
	if err := h.API.ApplyLayout(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleFrictionCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	export, err := h.API.FrictionCSV(r.Context(), queries.FrictionExportInput{
		InstanceID: q.Get("widget_id"),
		Topics:     q["topic"],
		Slots:      q["slot"],
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", CSVContentType)
	w.Header().Set("Content-Disposition", ContentDisposition(export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Body)
}

// CSVContentType is the media type of CSV downloads.
const CSVContentType = "text/csv; charset=utf-8"

// ContentDisposition builds an attachment header for filename.
func ContentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

// StatusFor maps dashboard errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrLayoutNotFound), errors.Is(err, dashboard.ErrWidgetNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrLayoutNameRequired), errors.Is(err, dashboard.ErrInvalidConfig),
		errors.Is(err, dashboard.ErrUnknownArea):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotConfigured):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	if h.Viewer == nil {
		return HeaderViewer(r)
	}
	return h.Viewer(r)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), ErrorBody(err))
}

// ErrorBody is the JSON error payload. Schema failures list each field.
func ErrorBody(err error) map[string]any {
	body := map[string]any{"error": err.Error()}
	var cfgErr *dashboard.ConfigError
	if errors.As(err, &cfgErr) {
		body["fields"] = cfgErr.Fields
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
