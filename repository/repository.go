package repository

import (
	"context"
	"dreamreel/entities"
	"errors"
	"github.com/google/uuid"
	"sort"
)

var ErrNotFound = errors.New("dream not found")

// DreamStore is the backing store behind the Archive. Every implementation
// returns List ordered by CreatedAt, newest first.
type DreamStore interface {
	Open(ctx context.Context) error
	Close() error
	List(ctx context.Context) ([]entities.Dream, error)
	Insert(ctx context.Context, dream entities.Dream) error
	Update(ctx context.Context, id uuid.UUID, patch entities.DreamPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
}

func sortNewestFirst(dreams []entities.Dream) {
	sort.SliceStable(dreams, func(i, j int) bool {
		return dreams[i].CreatedAt.After(dreams[j].CreatedAt)
	})
}

func applyPatch(d *entities.Dream, patch entities.DreamPatch) {
	if patch.UserTitle != nil {
		title := *patch.UserTitle
		d.UserTitle = &title
	}
}
