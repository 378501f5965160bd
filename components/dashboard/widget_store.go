package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrWidgetNotFound is returned for unknown widget instance ids.
var ErrWidgetNotFound = errors.New("dashboard: widget instance not found")

// InMemoryWidgetStore is a process-local WidgetStore. Widgets live for the
// lifetime of the process.
type InMemoryWidgetStore struct {
	mu          sync.RWMutex
	areas       map[string]WidgetAreaDefinition
	definitions map[string]WidgetDefinition
	instances   map[string]WidgetInstance
	order       map[string][]string
	now         func() time.Time
	newID       func() string
}

// NewInMemoryWidgetStore builds an empty store.
func NewInMemoryWidgetStore() *InMemoryWidgetStore {
	return &InMemoryWidgetStore{
		areas:       map[string]WidgetAreaDefinition{},
		definitions: map[string]WidgetDefinition{},
		instances:   map[string]WidgetInstance{},
		order:       map[string][]string{},
		now:         time.Now,
		newID:       func() string { return "widget_" + uuid.NewString() },
	}
}

// EnsureArea registers an area, reporting whether it was new.
func (s *InMemoryWidgetStore) EnsureArea(_ context.Context, def WidgetAreaDefinition) (bool, error) {
	if def.Code == "" {
		return false, errInvalidArea
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.areas[def.Code]
	s.areas[def.Code] = def
	return !exists, nil
}

// EnsureDefinition registers a definition, reporting whether it was new.
func (s *InMemoryWidgetStore) EnsureDefinition(_ context.Context, def WidgetDefinition) (bool, error) {
	if def.Code == "" {
		return false, errInvalidDefinition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.definitions[def.Code]
	s.definitions[def.Code] = def
	return !exists, nil
}

// CreateInstance stores an unassigned widget instance.
func (s *InMemoryWidgetStore) CreateInstance(_ context.Context, input CreateWidgetInstanceInput) (WidgetInstance, error) {
	if input.DefinitionID == "" {
		return WidgetInstance{}, errInvalidDefinition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.definitions) > 0 {
		if _, ok := s.definitions[input.DefinitionID]; !ok {
			return WidgetInstance{}, fmt.Errorf("dashboard: unknown widget definition %s", input.DefinitionID)
		}
	}
	inst := WidgetInstance{
		ID:            s.newID(),
		DefinitionID:  input.DefinitionID,
		Configuration: cloneConfig(input.Configuration),
		Visibility:    input.Visibility,
		Metadata:      cloneConfig(input.Metadata),
	}
	s.instances[inst.ID] = inst
	return inst, nil
}

// GetInstance returns one instance.
func (s *InMemoryWidgetStore) GetInstance(_ context.Context, instanceID string) (WidgetInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return WidgetInstance{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, instanceID)
	}
	return s.withPosition(inst), nil
}

// UpdateInstance replaces configuration and merges metadata.
func (s *InMemoryWidgetStore) UpdateInstance(_ context.Context, input UpdateWidgetInstanceInput) (WidgetInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[input.InstanceID]
	if !ok {
		return WidgetInstance{}, fmt.Errorf("%w: %s", ErrWidgetNotFound, input.InstanceID)
	}
	inst.Configuration = cloneConfig(input.Configuration)
	if len(input.Metadata) > 0 {
		if inst.Metadata == nil {
			inst.Metadata = map[string]any{}
		}
		for k, v := range input.Metadata {
			inst.Metadata[k] = v
		}
	}
	s.instances[inst.ID] = inst
	return s.withPosition(inst), nil
}

// DeleteInstance removes an instance and its area assignment.
func (s *InMemoryWidgetStore) DeleteInstance(_ context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, instanceID)
	}
	if inst.AreaCode != "" {
		s.order[inst.AreaCode] = removeID(s.order[inst.AreaCode], instanceID)
	}
	delete(s.instances, instanceID)
	return nil
}

// AssignInstance moves an instance into an area. A nil or out of range
// position appends.
func (s *InMemoryWidgetStore) AssignInstance(_ context.Context, input AssignWidgetInput) error {
	if input.AreaCode == "" {
		return errInvalidArea
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[input.InstanceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, input.InstanceID)
	}
	if inst.AreaCode != "" {
		s.order[inst.AreaCode] = removeID(s.order[inst.AreaCode], inst.ID)
	}
	ids := s.order[input.AreaCode]
	pos := len(ids)
	if input.Position != nil && *input.Position >= 0 && *input.Position < len(ids) {
		pos = *input.Position
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = inst.ID
	s.order[input.AreaCode] = ids
	inst.AreaCode = input.AreaCode
	s.instances[inst.ID] = inst
	return nil
}

// ReorderArea places the listed ids first in the given order. Ids that are
// not in the area are ignored and unlisted widgets keep their relative order.
func (s *InMemoryWidgetStore) ReorderArea(_ context.Context, input ReorderAreaInput) error {
	if input.AreaCode == "" {
		return errInvalidArea
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.order[input.AreaCode]
	inArea := make(map[string]bool, len(current))
	for _, id := range current {
		inArea[id] = true
	}
	next := make([]string, 0, len(current))
	placed := make(map[string]bool, len(input.WidgetIDs))
	for _, id := range input.WidgetIDs {
		if inArea[id] && !placed[id] {
			next = append(next, id)
			placed[id] = true
		}
	}
	for _, id := range current {
		if !placed[id] {
			next = append(next, id)
		}
	}
	s.order[input.AreaCode] = next
	return nil
}

// ResolveArea returns the visible instances of an area in order.
func (s *InMemoryWidgetStore) ResolveArea(_ context.Context, input ResolveAreaInput) (ResolvedArea, error) {
	if input.AreaCode == "" {
		return ResolvedArea{}, errInvalidArea
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	ids := s.order[input.AreaCode]
	widgets := make([]WidgetInstance, 0, len(ids))
	for i, id := range ids {
		inst := s.instances[id]
		if !input.IncludeAll && !inst.Visibility.Visible(input.Audience, now) {
			continue
		}
		inst.Position = i
		inst.Configuration = cloneConfig(inst.Configuration)
		inst.Metadata = cloneConfig(inst.Metadata)
		widgets = append(widgets, inst)
	}
	return ResolvedArea{AreaCode: input.AreaCode, Widgets: widgets}, nil
}

func (s *InMemoryWidgetStore) withPosition(inst WidgetInstance) WidgetInstance {
	for i, id := range s.order[inst.AreaCode] {
		if id == inst.ID {
			inst.Position = i
			break
		}
	}
	inst.Configuration = cloneConfig(inst.Configuration)
	inst.Metadata = cloneConfig(inst.Metadata)
	return inst
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

var _ WidgetStore = (*InMemoryWidgetStore)(nil)
