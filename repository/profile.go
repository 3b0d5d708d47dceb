package repository

import (
	"context"
	"dreamreel/constant"
	"dreamreel/entities"
	"encoding/json"
	"errors"
)

type ProfileStore struct {
	backend BlobBackend
}

func NewProfileStore(backend BlobBackend) *ProfileStore {
	return &ProfileStore{backend: backend}
}

// Get returns an empty profile when none was saved yet.
func (s *ProfileStore) Get(ctx context.Context) (entities.Profile, error) {
	var p entities.Profile
	data, err := s.backend.Get(ctx, constant.ProfileKey)
	if errors.Is(err, ErrBlobNotFound) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return entities.Profile{}, err
	}
	return p, nil
}

func (s *ProfileStore) Save(ctx context.Context, p entities.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, constant.ProfileKey, data)
}

func (s *ProfileStore) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, constant.ProfileKey)
}
