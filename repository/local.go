package repository

import (
	"context"
	"dreamreel/constant"
	"dreamreel/entities"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"sync"
)

// BlobDreamStore serializes every dream as one JSON list under a single key.
type BlobDreamStore struct {
	backend BlobBackend
	key     string
	mu      sync.Mutex
}

func NewBlobDreamStore(backend BlobBackend) *BlobDreamStore {
	return &BlobDreamStore{backend: backend, key: constant.DreamsKey}
}

func (s *BlobDreamStore) Open(ctx context.Context) error {
	if b, ok := s.backend.(interface {
		EnsureBucket(ctx context.Context) error
	}); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
	}
	_, err := s.load(ctx)
	return err
}

func (s *BlobDreamStore) Close() error {
	return nil
}

func (s *BlobDreamStore) List(ctx context.Context) ([]entities.Dream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dreams, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(dreams)
	return dreams, nil
}

func (s *BlobDreamStore) Insert(ctx context.Context, dream entities.Dream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dreams, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.save(ctx, append([]entities.Dream{dream}, dreams...))
}

func (s *BlobDreamStore) Update(ctx context.Context, id uuid.UUID, patch entities.DreamPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dreams, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range dreams {
		if dreams[i].ID == id {
			applyPatch(&dreams[i], patch)
			return s.save(ctx, dreams)
		}
	}
	return ErrNotFound
}

func (s *BlobDreamStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dreams, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range dreams {
		if dreams[i].ID == id {
			return s.save(ctx, append(dreams[:i], dreams[i+1:]...))
		}
	}
	return ErrNotFound
}

func (s *BlobDreamStore) load(ctx context.Context) ([]entities.Dream, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrBlobNotFound) || (err == nil && len(data) == 0) {
		return []entities.Dream{}, nil
	}
	if err != nil {
		return nil, err
	}
	var dreams []entities.Dream
	if err := json.Unmarshal(data, &dreams); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return dreams, nil
}

func (s *BlobDreamStore) save(ctx context.Context, dreams []entities.Dream) error {
	data, err := json.Marshal(dreams)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, s.key, data)
}
