package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps encoded records in maps. Records are stored encoded so
// callers never share state with the store.
type MemoryStore struct {
	codec *Codec

	mu        sync.RWMutex
	models    map[string][]byte
	snapshots map[string]map[int][]byte
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore(codec *Codec) *MemoryStore {
	if codec == nil {
		codec = DefaultCodec()
	}
	return &MemoryStore{
		codec:     codec,
		models:    make(map[string][]byte),
		snapshots: make(map[string]map[int][]byte),
	}
}

func (s *MemoryStore) Init(context.Context) error {
	return nil
}

func (s *MemoryStore) SaveModel(_ context.Context, model ModelRecord) error {
	if err := model.validate(); err != nil {
		return err
	}
	data, err := s.codec.EncodeModel(model)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[model.ID] = data
	return nil
}

func (s *MemoryStore) GetModel(_ context.Context, id string) (ModelRecord, bool, error) {
	s.mu.RLock()
	data, ok := s.models[id]
	s.mu.RUnlock()
	if !ok {
		return ModelRecord{}, false, nil
	}

	model, err := s.codec.DecodeModel(data)
	if err != nil {
		return ModelRecord{}, false, err
	}
	return model, true, nil
}

func (s *MemoryStore) ListModels(_ context.Context) ([]ModelRecord, error) {
	s.mu.RLock()
	encoded := make([][]byte, 0, len(s.models))
	for _, data := range s.models {
		encoded = append(encoded, data)
	}
	s.mu.RUnlock()

	models := make([]ModelRecord, 0, len(encoded))
	for _, data := range encoded {
		model, err := s.codec.DecodeModel(data)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	sortModels(models)
	return models, nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}
	data, err := s.codec.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	versions, ok := s.snapshots[snapshot.ModelID]
	if !ok {
		versions = make(map[int][]byte)
		s.snapshots[snapshot.ModelID] = versions
	}
	versions[snapshot.Version] = data
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, modelID string, version int) (Snapshot, bool, error) {
	s.mu.RLock()
	data, ok := s.snapshots[modelID][version]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false, nil
	}

	snapshot, err := s.codec.DecodeSnapshot(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snapshot, true, nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context, modelID string) ([]Snapshot, error) {
	s.mu.RLock()
	encoded := make([][]byte, 0, len(s.snapshots[modelID]))
	for _, data := range s.snapshots[modelID] {
		encoded = append(encoded, data)
	}
	s.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(encoded))
	for _, data := range encoded {
		snapshot, err := s.codec.DecodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	sortSnapshots(snapshots)
	return snapshots, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sortModels orders newest first, ties by id
func sortModels(models []ModelRecord) {
	sort.Slice(models, func(i, j int) bool {
		if !models[i].CreatedAt.Equal(models[j].CreatedAt) {
			return models[i].CreatedAt.After(models[j].CreatedAt)
		}
		return models[i].ID < models[j].ID
	})
}

func sortSnapshots(snapshots []Snapshot) {
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Version < snapshots[j].Version
	})
}
