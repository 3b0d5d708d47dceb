package repository

import (
	"context"
	"dreamreel/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	blob, err := NewFileBlob(t.TempDir())
	require.NoError(t, err)
	store := NewProfileStore(blob)

	p, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())

	want := entities.Profile{
		SelfDescription:       "A night owl who loves the sea",
		TriggersAndBoundaries: "spiders",
		VisualStyle:           entities.VisualStyleSurreal,
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	err = store.Save(ctx, entities.Profile{VisualStyle: "noir"})
	assert.Error(t, err)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestFileBlob_MissingKey(t *testing.T) {
	blob, err := NewFileBlob(t.TempDir())
	require.NoError(t, err)

	_, err = blob.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}
