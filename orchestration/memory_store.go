package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryInstanceStore struct {
	mu        sync.RWMutex
	instances map[string]Instance
}

func NewMemoryInstanceStore() *MemoryInstanceStore {
	return &MemoryInstanceStore{instances: map[string]Instance{}}
}

func (s *MemoryInstanceStore) CreateInstance(_ context.Context, instance Instance) (Instance, error) {
	id := strings.TrimSpace(instance.ID)
	if id == "" {
		return Instance{}, fmt.Errorf("orchestration: instance id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[id]; exists {
		return Instance{}, fmt.Errorf("orchestration: instance %q already exists", id)
	}
	s.instances[id] = cloneInstance(instance)
	return cloneInstance(instance), nil
}

func (s *MemoryInstanceStore) GetInstance(_ context.Context, id string) (Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.instances[strings.TrimSpace(id)]
	if !ok {
		return Instance{}, ErrInstanceNotFound
	}
	return cloneInstance(instance), nil
}

func (s *MemoryInstanceStore) UpdateInstance(_ context.Context, instance Instance) (Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[instance.ID]; !ok {
		return Instance{}, ErrInstanceNotFound
	}
	s.instances[instance.ID] = cloneInstance(instance)
	return cloneInstance(instance), nil
}

type MemoryStepStore struct {
	mu    sync.RWMutex
	steps map[string]map[string]StepRecord
}

func NewMemoryStepStore() *MemoryStepStore {
	return &MemoryStepStore{steps: map[string]map[string]StepRecord{}}
}

func (s *MemoryStepStore) GetStep(_ context.Context, instanceID string, name string) (StepRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.steps[instanceID][name]
	if !ok {
		return StepRecord{}, false, nil
	}
	return cloneStep(record), true, nil
}

func (s *MemoryStepStore) SaveStep(_ context.Context, record StepRecord) (StepRecord, error) {
	if strings.TrimSpace(record.InstanceID) == "" || strings.TrimSpace(record.Name) == "" {
		return StepRecord{}, fmt.Errorf("orchestration: step record requires instance id and name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byName, ok := s.steps[record.InstanceID]
	if !ok {
		byName = map[string]StepRecord{}
		s.steps[record.InstanceID] = byName
	}
	byName[record.Name] = cloneStep(record)
	return cloneStep(record), nil
}

func (s *MemoryStepStore) ListSteps(_ context.Context, instanceID string) ([]StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StepRecord, 0, len(s.steps[instanceID]))
	for _, record := range s.steps[instanceID] {
		out = append(out, cloneStep(record))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneInstance(in Instance) Instance {
	out := in
	out.Input = cloneRaw(in.Input)
	out.Output = cloneRaw(in.Output)
	if in.CompletedAt != nil {
		completedAt := *in.CompletedAt
		out.CompletedAt = &completedAt
	}
	return out
}

func cloneStep(in StepRecord) StepRecord {
	out := in
	out.Input = cloneRaw(in.Input)
	out.Output = cloneRaw(in.Output)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if in == nil {
		return nil
	}
	return append(json.RawMessage(nil), in...)
}

var (
	_ InstanceStore = (*MemoryInstanceStore)(nil)
	_ StepStore     = (*MemoryStepStore)(nil)
)
