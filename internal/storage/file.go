package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	modelFile      = "model.rec"
	snapshotPrefix = "snapshot-"
	recordSuffix   = ".rec"
)

var safeID = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore writes one directory per model under root:
//
//	<root>/<model id>/model.rec
//	<root>/<model id>/snapshot-<version>.rec
type FileStore struct {
	root  string
	codec *Codec
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string, codec *Codec) *FileStore {
	if codec == nil {
		codec = DefaultCodec()
	}
	return &FileStore{root: dir, codec: codec}
}

func (s *FileStore) Init(context.Context) error {
	if s.root == "" {
		return errors.New("file store directory is required")
	}
	return os.MkdirAll(s.root, 0755)
}

func (s *FileStore) modelDir(id string) (string, error) {
	if !safeID.MatchString(id) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: unsafe model id %q", ErrInvalidRecord, id)
	}
	return filepath.Join(s.root, id), nil
}

func (s *FileStore) SaveModel(_ context.Context, model ModelRecord) error {
	if err := model.validate(); err != nil {
		return err
	}
	dir, err := s.modelDir(model.ID)
	if err != nil {
		return err
	}
	data, err := s.codec.EncodeModel(model)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, modelFile), data)
}

func (s *FileStore) GetModel(_ context.Context, id string) (ModelRecord, bool, error) {
	dir, err := s.modelDir(id)
	if err != nil {
		return ModelRecord{}, false, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, modelFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ModelRecord{}, false, nil
		}
		return ModelRecord{}, false, err
	}
	model, err := s.codec.DecodeModel(data)
	if err != nil {
		return ModelRecord{}, false, fmt.Errorf("decode model %s: %w", id, err)
	}
	return model, true, nil
}

func (s *FileStore) ListModels(ctx context.Context) ([]ModelRecord, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	models := make([]ModelRecord, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		model, ok, err := s.GetModel(ctx, e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			models = append(models, model)
		}
	}
	sortModels(models)
	return models, nil
}

func (s *FileStore) SaveSnapshot(_ context.Context, snapshot Snapshot) error {
	if err := snapshot.validate(); err != nil {
		return err
	}
	dir, err := s.modelDir(snapshot.ModelID)
	if err != nil {
		return err
	}
	data, err := s.codec.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, snapshotName(snapshot.Version)), data)
}

func (s *FileStore) GetSnapshot(_ context.Context, modelID string, version int) (Snapshot, bool, error) {
	dir, err := s.modelDir(modelID)
	if err != nil {
		return Snapshot{}, false, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, snapshotName(version)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	snapshot, err := s.codec.DecodeSnapshot(data)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s/%d: %w", modelID, version, err)
	}
	return snapshot, true, nil
}

func (s *FileStore) ListSnapshots(ctx context.Context, modelID string) ([]Snapshot, error) {
	dir, err := s.modelDir(modelID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var snapshots []Snapshot
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		version, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), recordSuffix))
		if err != nil {
			continue
		}
		snapshot, ok, err := s.GetSnapshot(ctx, modelID, version)
		if err != nil {
			return nil, err
		}
		if ok {
			snapshots = append(snapshots, snapshot)
		}
	}
	sortSnapshots(snapshots)
	return snapshots, nil
}

func (s *FileStore) Close() error {
	return nil
}

func snapshotName(version int) string {
	return snapshotPrefix + strconv.Itoa(version) + recordSuffix
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
