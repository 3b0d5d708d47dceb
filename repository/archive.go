package repository

import (
	"context"
	"dreamreel/entities"
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"sync"
	"time"
)

// Archive is the single entry point for dream records. It keeps the last
// listing in memory and writes through to its DreamStore.
type Archive struct {
	store DreamStore

	mu     sync.Mutex
	dreams []entities.Dream
	open   bool

	now   func() time.Time
	newID func() uuid.UUID
}

func NewArchive(store DreamStore) *Archive {
	return &Archive{
		store: store,
		now:   time.Now,
		newID: uuid.New,
	}
}

func (a *Archive) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Open(ctx); err != nil {
		return fmt.Errorf("open dream store: %w", err)
	}
	dreams, err := a.store.List(ctx)
	if err != nil {
		_ = a.store.Close()
		return fmt.Errorf("load dreams: %w", err)
	}
	a.dreams = dreams
	a.open = true
	zerolog.Ctx(ctx).Info().Int("dreams", len(dreams)).Msg("archive initialized")
	return nil
}

func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return nil
	}
	a.open = false
	a.dreams = nil
	return a.store.Close()
}

func (a *Archive) List(ctx context.Context) ([]entities.Dream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dreams, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	a.dreams = dreams
	return append([]entities.Dream(nil), dreams...), nil
}

func (a *Archive) Get(ctx context.Context, id uuid.UUID) (*entities.Dream, error) {
	dreams, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range dreams {
		if dreams[i].ID == id {
			return &dreams[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create assigns the id and creation time; values set by the caller are overwritten.
func (a *Archive) Create(ctx context.Context, dream entities.Dream) (*entities.Dream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dream.ID = a.uniqueID()
	dream.CreatedAt = a.now().UTC()
	if dream.Emojis == nil {
		dream.Emojis = []string{}
	}

	if err := a.store.Insert(ctx, dream); err != nil {
		return nil, fmt.Errorf("insert dream: %w", err)
	}
	a.dreams = append([]entities.Dream{dream}, a.dreams...)

	zerolog.Ctx(ctx).Info().Str("dream_id", dream.ID.String()).Str("title", dream.AITitle).Msg("dream archived")
	return &dream, nil
}

func (a *Archive) Update(ctx context.Context, id uuid.UUID, patch entities.DreamPatch) (*entities.Dream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Update(ctx, id, patch); err != nil {
		return nil, err
	}

	for i := range a.dreams {
		if a.dreams[i].ID == id {
			applyPatch(&a.dreams[i], patch)
			updated := a.dreams[i]
			return &updated, nil
		}
	}

	dreams, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	a.dreams = dreams
	for i := range dreams {
		if dreams[i].ID == id {
			return &dreams[i], nil
		}
	}
	return nil, ErrNotFound
}

func (a *Archive) Delete(ctx context.Context, id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	kept := a.dreams[:0]
	for _, d := range a.dreams {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	a.dreams = kept
	zerolog.Ctx(ctx).Info().Str("dream_id", id.String()).Msg("dream deleted")
	return nil
}

func (a *Archive) uniqueID() uuid.UUID {
	for {
		id := a.newID()
		taken := false
		for _, d := range a.dreams {
			if d.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}
