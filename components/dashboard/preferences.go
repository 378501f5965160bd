package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// PreferencesKeyPrefix namespaces per-viewer overrides in a BlobStore.
const PreferencesKeyPrefix = "voicedash_preferences:"

// InMemoryPreferenceStore keeps overrides in process memory.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]LayoutOverrides
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]LayoutOverrides),
	}
}

// LayoutOverrides returns stored overrides or empty defaults.
func (s *InMemoryPreferenceStore) LayoutOverrides(_ context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	if viewer.UserID == "" {
		return emptyOverrides(), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	overrides, ok := s.data[viewer.UserID]
	if !ok {
		return emptyOverrides(), nil
	}
	normalizeOverrides(&overrides)
	return overrides, nil
}

// SaveLayoutOverrides persists overrides for a viewer.
func (s *InMemoryPreferenceStore) SaveLayoutOverrides(_ context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if viewer.UserID == "" {
		return fmt.Errorf("preference store requires viewer user id")
	}
	normalizeOverrides(&overrides)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[viewer.UserID] = overrides
	return nil
}

// BlobPreferenceStore persists overrides as JSON, one key per viewer.
type BlobPreferenceStore struct {
	store BlobStore
}

// NewBlobPreferenceStore wraps a BlobStore.
func NewBlobPreferenceStore(store BlobStore) *BlobPreferenceStore {
	return &BlobPreferenceStore{store: store}
}

// LayoutOverrides implements PreferenceStore.
func (s *BlobPreferenceStore) LayoutOverrides(ctx context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	if viewer.UserID == "" {
		return emptyOverrides(), nil
	}
	if s.store == nil {
		return LayoutOverrides{}, errMissingBlobStore
	}
	raw, ok, err := s.store.Get(ctx, PreferencesKeyPrefix+viewer.UserID)
	if err != nil {
		return LayoutOverrides{}, fmt.Errorf("dashboard: load preferences for %s: %w", viewer.UserID, err)
	}
	if !ok {
		return emptyOverrides(), nil
	}
	var overrides LayoutOverrides
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return LayoutOverrides{}, fmt.Errorf("dashboard: decode preferences for %s: %w", viewer.UserID, err)
	}
	normalizeOverrides(&overrides)
	return overrides, nil
}

// SaveLayoutOverrides implements PreferenceStore.
func (s *BlobPreferenceStore) SaveLayoutOverrides(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if viewer.UserID == "" {
		return fmt.Errorf("preference store requires viewer user id")
	}
	if s.store == nil {
		return errMissingBlobStore
	}
	normalizeOverrides(&overrides)
	raw, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("dashboard: encode preferences: %w", err)
	}
	return s.store.Put(ctx, PreferencesKeyPrefix+viewer.UserID, raw)
}

func emptyOverrides() LayoutOverrides {
	return LayoutOverrides{
		AreaOrder:     map[string][]string{},
		HiddenWidgets: map[string]bool{},
	}
}

func normalizeOverrides(overrides *LayoutOverrides) {
	if overrides.AreaOrder == nil {
		overrides.AreaOrder = map[string][]string{}
	}
	if overrides.HiddenWidgets == nil {
		overrides.HiddenWidgets = map[string]bool{}
	}
}
