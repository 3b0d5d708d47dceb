package repository

import (
	"context"
	"dreamreel/entities"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func newTestArchive(t *testing.T) (*Archive, string) {
	t.Helper()
	dir := t.TempDir()
	blob, err := NewFileBlob(dir)
	require.NoError(t, err)

	a := NewArchive(NewBlobDreamStore(blob))
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a, dir
}

func sampleDream(title string) entities.Dream {
	return entities.Dream{
		AITitle:        title,
		AIDescription:  "desc",
		TranscriptRaw:  "I was flying",
		TranscriptJSON: entities.StructuredDream{"title": title},
		VideoURL:       "https://example.com/v.mp4",
		Emojis:         []string{"🕊️"},
	}
}

func TestArchive_CreateAssignsIDAndTime(t *testing.T) {
	a, _ := newTestArchive(t)
	ctx := context.Background()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	in := sampleDream("Flight")
	in.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	created, err := a.Create(ctx, in)
	require.NoError(t, err)

	assert.NotEqual(t, in.ID, created.ID)
	assert.Equal(t, fixed, created.CreatedAt)
	assert.Equal(t, "Flight", created.AITitle)
}

func TestArchive_ListNewestFirst(t *testing.T) {
	a, _ := newTestArchive(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		offset := time.Duration(i) * time.Minute
		a.now = func() time.Time { return base.Add(offset) }
		_, err := a.Create(ctx, sampleDream(title))
		require.NoError(t, err)
	}

	dreams, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, dreams, 3)
	assert.Equal(t, "third", dreams[0].AITitle)
	assert.Equal(t, "second", dreams[1].AITitle)
	assert.Equal(t, "first", dreams[2].AITitle)
}

func TestArchive_UniqueIDOnCollision(t *testing.T) {
	a, _ := newTestArchive(t)
	ctx := context.Background()

	dup := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	fresh := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	ids := []uuid.UUID{dup, dup, fresh}
	a.newID = func() uuid.UUID {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, err := a.Create(ctx, sampleDream("a"))
	require.NoError(t, err)
	second, err := a.Create(ctx, sampleDream("b"))
	require.NoError(t, err)

	assert.Equal(t, dup, first.ID)
	assert.Equal(t, fresh, second.ID)
}

func TestArchive_UpdateTitle(t *testing.T) {
	a, _ := newTestArchive(t)
	ctx := context.Background()

	created, err := a.Create(ctx, sampleDream("Flight"))
	require.NoError(t, err)

	title := "My flight"
	updated, err := a.Update(ctx, created.ID, entities.DreamPatch{UserTitle: &title})
	require.NoError(t, err)
	assert.Equal(t, "My flight", updated.DisplayTitle())

	got, err := a.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UserTitle)
	assert.Equal(t, "My flight", *got.UserTitle)
	assert.Equal(t, "Flight", got.AITitle)
}

func TestArchive_UnknownIDs(t *testing.T) {
	a, _ := newTestArchive(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := a.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	title := "x"
	_, err = a.Update(ctx, id, entities.DreamPatch{UserTitle: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, a.Delete(ctx, id), ErrNotFound)
}

func TestArchive_DeleteAndPersistAcrossReopen(t *testing.T) {
	a, dir := newTestArchive(t)
	ctx := context.Background()

	keep, err := a.Create(ctx, sampleDream("keep"))
	require.NoError(t, err)
	drop, err := a.Create(ctx, sampleDream("drop"))
	require.NoError(t, err)
	require.NoError(t, a.Delete(ctx, drop.ID))
	require.NoError(t, a.Close())

	blob, err := NewFileBlob(dir)
	require.NoError(t, err)
	reopened := NewArchive(NewBlobDreamStore(blob))
	require.NoError(t, reopened.Init(ctx))
	defer reopened.Close()

	dreams, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, dreams, 1)
	assert.Equal(t, keep.ID, dreams[0].ID)
	assert.Equal(t, []string{"🕊️"}, dreams[0].Emojis)
}
