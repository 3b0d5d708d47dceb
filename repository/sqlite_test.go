package repository

import (
	"context"
	"dreamreel/entities"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteDreamStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteDreamStore(filepath.Join(t.TempDir(), "nested", "dreams.sqlite"))
	require.NoError(t, store.Open(ctx))
	defer store.Close()

	older := sampleDream("older")
	older.ID = uuid.New()
	older.CreatedAt = time.Date(2026, 3, 1, 8, 0, 0, 123, time.UTC)

	newer := sampleDream("newer")
	newer.ID = uuid.New()
	newer.CreatedAt = older.CreatedAt.Add(time.Nanosecond)
	thumb := "data:image/jpeg;base64,AAAA"
	newer.VideoThumbnail = &thumb

	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))

	dreams, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, dreams, 2)
	assert.Equal(t, newer.ID, dreams[0].ID)
	assert.Equal(t, newer.CreatedAt, dreams[0].CreatedAt)
	require.NotNil(t, dreams[0].VideoThumbnail)
	assert.Equal(t, thumb, *dreams[0].VideoThumbnail)
	assert.Nil(t, dreams[1].VideoThumbnail)
	assert.Nil(t, dreams[1].UserTitle)
	assert.Equal(t, "older", dreams[1].TranscriptJSON.Title())
	assert.Equal(t, []string{"🕊️"}, dreams[1].Emojis)
}

func TestSQLiteDreamStore_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteDreamStore(filepath.Join(t.TempDir(), "dreams.sqlite"))
	require.NoError(t, store.Open(ctx))
	defer store.Close()

	d := sampleDream("x")
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	require.NoError(t, store.Insert(ctx, d))

	title := "renamed"
	require.NoError(t, store.Update(ctx, d.ID, entities.DreamPatch{UserTitle: &title}))
	require.NoError(t, store.Update(ctx, d.ID, entities.DreamPatch{}))

	dreams, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, dreams, 1)
	assert.Equal(t, "renamed", dreams[0].DisplayTitle())

	missing := uuid.New()
	assert.ErrorIs(t, store.Update(ctx, missing, entities.DreamPatch{UserTitle: &title}), ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, missing, entities.DreamPatch{}), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, missing), ErrNotFound)

	require.NoError(t, store.Delete(ctx, d.ID))
	dreams, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, dreams)
}
