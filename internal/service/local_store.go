package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TWRT/tasksync/internal/models"
	"github.com/TWRT/tasksync/internal/repository"
)

// PersistenceParseError reports stored bytes that could not be decoded. The
// caller still receives a usable empty collection.
type PersistenceParseError struct {
	Key string
	Err error
}

func (e *PersistenceParseError) Error() string {
	return fmt.Sprintf("parse stored tasks %s: %v", e.Key, e.Err)
}

func (e *PersistenceParseError) Unwrap() error {
	return e.Err
}

// LocalStore keeps the whole collection as one blob under a single key.
type LocalStore struct {
	blobs repository.BlobStore
	key   string
}

func NewLocalStore(blobs repository.BlobStore, key string) *LocalStore {
	return &LocalStore{blobs: blobs, key: key}
}

func (s *LocalStore) Key() string {
	return s.key
}

// Load always returns a non-nil collection. A non-nil error is a signal to log;
// it never means the returned collection is unusable.
func (s *LocalStore) Load(ctx context.Context) (models.Collection, error) {
	data, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Collection{}, nil
	}
	if err != nil {
		return models.Collection{}, fmt.Errorf("load tasks %s: %w", s.key, err)
	}

	tasks, err := DecodeCollection(data)
	if err != nil {
		return models.Collection{}, &PersistenceParseError{Key: s.key, Err: err}
	}
	return tasks, nil
}

func (s *LocalStore) Save(ctx context.Context, tasks models.Collection) error {
	data, err := EncodeCollection(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("save tasks %s: %w", s.key, err)
	}
	return nil
}

func EncodeCollection(tasks models.Collection) ([]byte, error) {
	if tasks == nil {
		tasks = models.Collection{}
	}
	return json.Marshal(tasks)
}

// DecodeCollection parses the JSON array form and drops repeated ids.
func DecodeCollection(data []byte) (models.Collection, error) {
	var tasks models.Collection
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		return models.Collection{}, nil
	}
	return tasks.Dedupe(), nil
}
