package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SavedLayoutsKey is the blob key holding every saved layout as one JSON array.
const SavedLayoutsKey = "pharmai_saved_layouts"

var (
	// ErrLayoutNameRequired is returned when saving a layout without a name.
	ErrLayoutNameRequired = errors.New("dashboard: layout name is required")

	// ErrLayoutNotFound is returned for unknown layout ids.
	ErrLayoutNotFound = errors.New("dashboard: saved layout not found")

	errMissingBlobStore = errors.New("dashboard: blob store not configured")
)

// BlobStore persists opaque values under string keys.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// LayoutWidget is a widget placement captured in a saved layout.
type LayoutWidget struct {
	DefinitionID  string         `json:"definitionId"`
	AreaCode      string         `json:"areaCode"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Position      int            `json:"position"`
}

// SavedLayout is a named snapshot of dashboard widgets.
type SavedLayout struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Widgets     []LayoutWidget `json:"widgets"`
	IsFavorite  bool           `json:"isFavorite"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// SaveLayoutInput describes a new saved layout.
type SaveLayoutInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Widgets     []LayoutWidget `json:"widgets"`
}

// LayoutLibraryOptions configures a LayoutLibrary.
type LayoutLibraryOptions struct {
	Store  BlobStore
	Logger *zap.Logger
	Key    string
	Now    func() time.Time
	NewID  func() string
}

// LayoutLibrary manages saved layouts. Every mutation reads the full list,
// applies the change and writes the whole array back.
type LayoutLibrary struct {
	mu     sync.Mutex
	store  BlobStore
	logger *zap.Logger
	key    string
	now    func() time.Time
	newID  func() string
}

// NewLayoutLibrary builds a library over the given store.
func NewLayoutLibrary(opts LayoutLibraryOptions) *LayoutLibrary {
	lib := &LayoutLibrary{
		store:  opts.Store,
		logger: opts.Logger,
		key:    opts.Key,
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if lib.logger == nil {
		lib.logger = zap.NewNop()
	}
	if lib.key == "" {
		lib.key = SavedLayoutsKey
	}
	if lib.now == nil {
		lib.now = time.Now
	}
	if lib.newID == nil {
		lib.newID = func() string { return "layout_" + uuid.NewString() }
	}
	return lib
}

// List returns saved layouts, favorites first and then most recently updated.
// A missing, unreadable or corrupt blob yields an empty list.
func (l *LayoutLibrary) List(ctx context.Context) ([]SavedLayout, error) {
	if l.store == nil {
		return nil, errMissingBlobStore
	}
	l.mu.Lock()
	layouts := l.load(ctx)
	l.mu.Unlock()
	SortSavedLayouts(layouts)
	return layouts, nil
}

// Get returns one saved layout.
func (l *LayoutLibrary) Get(ctx context.Context, id string) (SavedLayout, error) {
	layouts, err := l.List(ctx)
	if err != nil {
		return SavedLayout{}, err
	}
	for _, layout := range layouts {
		if layout.ID == id {
			return layout, nil
		}
	}
	return SavedLayout{}, fmt.Errorf("%w: %s", ErrLayoutNotFound, id)
}

// Save appends a new layout.
func (l *LayoutLibrary) Save(ctx context.Context, in SaveLayoutInput) (SavedLayout, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return SavedLayout{}, ErrLayoutNameRequired
	}
	if l.store == nil {
		return SavedLayout{}, errMissingBlobStore
	}
	now := l.timestamp()
	layout := SavedLayout{
		ID:          l.newID(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Widgets:     cloneLayoutWidgets(in.Widgets),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	layouts, err := l.loadStrict(ctx)
	if err != nil {
		return SavedLayout{}, err
	}
	layouts = append(layouts, layout)
	if err := l.write(ctx, layouts); err != nil {
		return SavedLayout{}, err
	}
	l.logger.Info("saved layout", zap.String("id", layout.ID), zap.String("name", layout.Name), zap.Int("widgets", len(layout.Widgets)))
	return layout, nil
}

// Delete removes a layout by id.
func (l *LayoutLibrary) Delete(ctx context.Context, id string) error {
	_, err := l.mutate(ctx, id, func([]SavedLayout, int) bool { return false })
	return err
}

// ToggleFavorite flips the favorite flag. UpdatedAt is left untouched so
// starring a layout does not reorder it among its peers.
func (l *LayoutLibrary) ToggleFavorite(ctx context.Context, id string) (SavedLayout, error) {
	return l.mutate(ctx, id, func(layouts []SavedLayout, i int) bool {
		layouts[i].IsFavorite = !layouts[i].IsFavorite
		return true
	})
}

// Rename changes the name and description and bumps UpdatedAt.
func (l *LayoutLibrary) Rename(ctx context.Context, id, name, description string) (SavedLayout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedLayout{}, ErrLayoutNameRequired
	}
	now := l.timestamp()
	return l.mutate(ctx, id, func(layouts []SavedLayout, i int) bool {
		layouts[i].Name = name
		layouts[i].Description = strings.TrimSpace(description)
		layouts[i].UpdatedAt = now
		return true
	})
}

// mutate applies fn to the layout with the given id. Returning false from fn
// removes the layout.
func (l *LayoutLibrary) mutate(ctx context.Context, id string, fn func([]SavedLayout, int) bool) (SavedLayout, error) {
	if l.store == nil {
		return SavedLayout{}, errMissingBlobStore
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	layouts, err := l.loadStrict(ctx)
	if err != nil {
		return SavedLayout{}, err
	}
	idx := -1
	for i := range layouts {
		if layouts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return SavedLayout{}, fmt.Errorf("%w: %s", ErrLayoutNotFound, id)
	}
	var result SavedLayout
	if fn(layouts, idx) {
		result = layouts[idx]
	} else {
		result = layouts[idx]
		layouts = append(layouts[:idx], layouts[idx+1:]...)
	}
	if err := l.write(ctx, layouts); err != nil {
		return SavedLayout{}, err
	}
	return result, nil
}

func (l *LayoutLibrary) load(ctx context.Context) []SavedLayout {
	layouts, err := l.loadStrict(ctx)
	if err != nil {
		l.logger.Warn("failed to load layouts", zap.String("key", l.key), zap.Error(err))
		return []SavedLayout{}
	}
	return layouts
}

// loadStrict reports store read failures so mutations never rewrite the blob
// from a partial view. A blob that does not parse is treated as empty and is
// replaced by the next write.
func (l *LayoutLibrary) loadStrict(ctx context.Context) ([]SavedLayout, error) {
	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("dashboard: read saved layouts: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []SavedLayout{}, nil
	}
	var stored []SavedLayout
	if err := json.Unmarshal(raw, &stored); err != nil {
		l.logger.Warn("failed to load layouts", zap.String("key", l.key), zap.Error(err))
		return []SavedLayout{}, nil
	}
	out := make([]SavedLayout, 0, len(stored))
	for i, layout := range stored {
		if layout.ID == "" {
			l.logger.Warn("skipping saved layout without id", zap.Int("index", i))
			continue
		}
		out = append(out, layout)
	}
	return out, nil
}

func (l *LayoutLibrary) write(ctx context.Context, layouts []SavedLayout) error {
	if layouts == nil {
		layouts = []SavedLayout{}
	}
	raw, err := json.Marshal(layouts)
	if err != nil {
		return fmt.Errorf("dashboard: encode saved layouts: %w", err)
	}
	if err := l.store.Put(ctx, l.key, raw); err != nil {
		return fmt.Errorf("dashboard: write saved layouts: %w", err)
	}
	return nil
}

// timestamp returns the current UTC time at millisecond precision, matching
// what survives an ISO-8601 round trip.
func (l *LayoutLibrary) timestamp() time.Time {
	return l.now().UTC().Truncate(time.Millisecond)
}

// SortSavedLayouts orders favorites first, then by UpdatedAt descending.
func SortSavedLayouts(layouts []SavedLayout) {
	sort.SliceStable(layouts, func(i, j int) bool {
		if layouts[i].IsFavorite != layouts[j].IsFavorite {
			return layouts[i].IsFavorite
		}
		return layouts[i].UpdatedAt.After(layouts[j].UpdatedAt)
	})
}

func cloneLayoutWidgets(in []LayoutWidget) []LayoutWidget {
	out := make([]LayoutWidget, len(in))
	for i, w := range in {
		w.Configuration = cloneConfig(w.Configuration)
		out[i] = w
	}
	return out
}

func cloneConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

// FormatRelative renders t relative to now the way the layout picker does.
func FormatRelative(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return t.Format("Jan 2, 2006")
	}
}
