package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultBroadcastBuffer = 16
	maxClientFrameBytes    = 4096
)

// BroadcastHook pushes widget events to every live dashboard session. Slow
// sessions lose events instead of blocking the service.
type BroadcastHook struct {
	mu      sync.Mutex
	subs    map[uint64]chan WidgetEvent
	seq     uint64
	closed  bool
	buffer  int
	dropped atomic.Int64
	logger  *zap.Logger
	origin  func(*http.Request) bool
}

// BroadcastOption customizes a BroadcastHook.
type BroadcastOption func(*BroadcastHook)

// WithBroadcastBuffer sets the per-session queue length.
func WithBroadcastBuffer(n int) BroadcastOption {
	return func(h *BroadcastHook) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithBroadcastLogger logs dropped events and stream failures.
func WithBroadcastLogger(logger *zap.Logger) BroadcastOption {
	return func(h *BroadcastHook) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithBroadcastOriginCheck decides which cross-origin WebSocket handshakes are
// accepted. Without it only same-origin (or Origin-less) requests upgrade.
func WithBroadcastOriginCheck(check func(*http.Request) bool) BroadcastOption {
	return func(h *BroadcastHook) {
		h.origin = check
	}
}

// AllowOrigins returns an origin check that accepts the listed origins.
func AllowOrigins(origins ...string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func NewBroadcastHook(opts ...BroadcastOption) *BroadcastHook {
	h := &BroadcastHook{
		subs:   make(map[uint64]chan WidgetEvent),
		buffer: defaultBroadcastBuffer,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WidgetUpdated queues event for every subscriber.
func (h *BroadcastHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.dropped.Add(1)
			h.logger.Debug("dashboard event dropped",
				zap.Uint64("subscriber", id),
				zap.String("reason", event.Reason),
				zap.String("area", event.AreaCode))
		}
	}
	return nil
}

// Subscribe registers a session. The channel closes when cancel is called or
// the hook is closed; cancel is safe to call more than once.
func (h *BroadcastHook) Subscribe() (<-chan WidgetEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan WidgetEvent, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.seq++
	id := h.seq
	h.subs[id] = ch
	return ch, func() { h.unsubscribe(id) }
}

func (h *BroadcastHook) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers reports the number of live sessions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped reports how many events were discarded for full queues.
func (h *BroadcastHook) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every session and ignores later events.
func (h *BroadcastHook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// ServeWebSocket streams events as JSON text frames until the client leaves.
// Client frames are discarded; a read error or close frame ends the session.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: h.origin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("dashboard websocket upgrade failed", zap.Error(err))
		return
	}
	gone := make(chan struct{})
	defer func() {
		conn.Close()
		<-gone
	}()
	conn.SetReadLimit(maxClientFrameBytes)
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events, cancel := h.Subscribe()
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case event, ok := <-events:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "dashboard closed"))
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("dashboard websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// ServeSSE streams events as server-sent "widget" events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.Subscribe()
	defer cancel()
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("dashboard event encode failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: widget\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// MultiRefreshHook calls each hook in order and joins their errors.
type MultiRefreshHook []RefreshHook

func (m MultiRefreshHook) WidgetUpdated(ctx context.Context, event WidgetEvent) error {
	var errs []error
	for _, hook := range m {
		if hook == nil {
			continue
		}
		if err := hook.WidgetUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DatasetInvalidationHook forgets cached demo data for a widget once its
// configuration changes or it is removed, so the next fetch reflects the
// new settings.
type DatasetInvalidationHook struct {
	Cache *DatasetCache
}

func (h DatasetInvalidationHook) WidgetUpdated(_ context.Context, event WidgetEvent) error {
	if event.Instance.ID == "" {
		return nil
	}
	switch event.Reason {
	case "update", "delete":
		h.Cache.Invalidate(event.Instance.ID)
	}
	return nil
}
