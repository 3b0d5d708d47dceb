package tui

import (
	"context"
	"dreamreel/capture"
	"dreamreel/entities"
	"errors"
	"fmt"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type fakeRecorder struct {
	events   chan capture.Event
	startErr error
	resets   int
	stops    int
	emojis   []string
	live     string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{events: make(chan capture.Event, 8)}
}

func (f *fakeRecorder) Events() <-chan capture.Event { return f.events }
func (f *fakeRecorder) Start(context.Context) (uuid.UUID, error) {
	return uuid.New(), f.startErr
}
func (f *fakeRecorder) Stop() error            { f.stops++; return nil }
func (f *fakeRecorder) Reset()                 { f.resets++ }
func (f *fakeRecorder) Emojis() []string       { return f.emojis }
func (f *fakeRecorder) Transcript() string      { return f.live }
func (f *fakeRecorder) Elapsed() time.Duration { return 3 * time.Second }
func (f *fakeRecorder) Submit(context.Context, capture.SessionFinished) (*entities.Dream, error) {
	return nil, errors.New("not used")
}

type fakeAPI struct {
	saved   entities.Profile
	deleted []uuid.UUID
	cleared bool
}

func (f *fakeAPI) ListDreams(context.Context) ([]entities.Dream, error) { return nil, nil }
func (f *fakeAPI) UpdateTitle(_ context.Context, id uuid.UUID, title string) (*entities.Dream, error) {
	return &entities.Dream{ID: id, UserTitle: &title}, nil
}
func (f *fakeAPI) DeleteDream(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeAPI) GetProfile(context.Context) (entities.Profile, error) { return entities.Profile{}, nil }
func (f *fakeAPI) SaveProfile(_ context.Context, p entities.Profile) error {
	f.saved = p
	return nil
}
func (f *fakeAPI) ClearProfile(context.Context) error {
	f.cleared = true
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

// recording drives a model into an active recording.
func recording(t *testing.T, rec *fakeRecorder) Model {
	t.Helper()
	m := New(context.Background(), rec, &fakeAPI{})
	m, cmd := update(t, m, key("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, screenRecording, m.screen)
	assert.Equal(t, phaseStarting, m.phase)

	m, _ = update(t, m, cmd())
	require.Equal(t, phaseRecording, m.phase)
	return m
}

func TestNewModel(t *testing.T) {
	m := New(context.Background(), newFakeRecorder(), &fakeAPI{})
	assert.Equal(t, screenHome, m.screen)
	assert.Equal(t, phaseIdle, m.phase)
	assert.Contains(t, m.View(), "dreamreel")
}

func TestRecording_MicrophoneFailure(t *testing.T) {
	rec := newFakeRecorder()
	rec.startErr = errors.New("permission denied")
	m := New(context.Background(), rec, &fakeAPI{})

	m, cmd := update(t, m, key("r"))
	m, _ = update(t, m, cmd())
	assert.Equal(t, phaseFailed, m.phase)
	assert.Contains(t, m.View(), "permission denied")

	m, _ = update(t, m, key("esc"))
	assert.Equal(t, screenHome, m.screen)
	assert.Equal(t, phaseIdle, m.phase)
}

func TestRecording_StopAndSucceed(t *testing.T) {
	rec := newFakeRecorder()
	rec.emojis = []string{"🌊", "🐋"}
	rec.live = "a whale sang under the pier"
	m := recording(t, rec)

	m, _ = update(t, m, tickMsg(time.Now()))
	assert.Equal(t, 3*time.Second, m.elapsed)
	assert.Equal(t, []string{"🌊", "🐋"}, m.emojis)
	assert.Contains(t, m.View(), "a whale sang under the pier")

	m, _ = update(t, m, key(" "))
	assert.Equal(t, 1, rec.stops)

	m, cmd := update(t, m, captureEventMsg{Event: capture.SessionFinished{Audio: []byte{1}}})
	require.NotNil(t, cmd)
	assert.Equal(t, phaseProcessing, m.phase)

	dream := &entities.Dream{ID: uuid.New(), AITitle: "Whales"}
	m, _ = update(t, m, pipelineDoneMsg{Gen: m.gen, Dream: dream})
	assert.Equal(t, screenDetail, m.screen)
	assert.Equal(t, phaseIdle, m.phase)
	require.Len(t, m.dreams, 1)
	assert.Contains(t, m.View(), "Whales")
}

func TestRecording_StaleResultIsDiscarded(t *testing.T) {
	rec := newFakeRecorder()
	m := recording(t, rec)

	m, _ = update(t, m, captureEventMsg{Event: capture.SessionFinished{Audio: []byte{1}}})
	staleGen := m.gen
	resetsBefore := rec.resets

	m, _ = update(t, m, key("esc"))
	assert.Equal(t, screenHome, m.screen)
	assert.Greater(t, rec.resets, resetsBefore)

	m, _ = update(t, m, pipelineDoneMsg{Gen: staleGen, Dream: &entities.Dream{ID: uuid.New()}})
	assert.Equal(t, screenHome, m.screen)
	assert.Empty(t, m.dreams)
}

func TestRecording_PipelineFailureOffersRetry(t *testing.T) {
	rec := newFakeRecorder()
	m := recording(t, rec)
	m, _ = update(t, m, captureEventMsg{Event: capture.SessionFinished{}})

	m, _ = update(t, m, pipelineDoneMsg{Gen: m.gen, Err: errors.New("upstream")})
	assert.Equal(t, phaseFailed, m.phase)
	assert.NotContains(t, m.View(), "upstream")

	m, cmd := update(t, m, key("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, phaseStarting, m.phase)
}

func TestArchive_NavigateEditDelete(t *testing.T) {
	api := &fakeAPI{}
	m := New(context.Background(), newFakeRecorder(), api)
	m, _ = update(t, m, key("a"))
	assert.Equal(t, screenArchive, m.screen)

	first, second := entities.Dream{ID: uuid.New(), AITitle: "One"}, entities.Dream{ID: uuid.New(), AITitle: "Two"}
	m, _ = update(t, m, dreamsLoadedMsg{Dreams: []entities.Dream{first, second}})

	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("j"))
	assert.Equal(t, 1, m.cursor)

	m, _ = update(t, m, key("e"))
	require.True(t, m.editing)
	m.titleInput.SetValue("Renamed")
	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, "Renamed", m.dreams[1].DisplayTitle())

	m, _ = update(t, m, key("enter"))
	assert.Equal(t, screenDetail, m.screen)
	assert.Equal(t, second.ID, m.selected.ID)

	m, cmd = update(t, m, key("d"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []uuid.UUID{second.ID}, api.deleted)
	assert.Equal(t, screenArchive, m.screen)
}

func TestArchive_Paging(t *testing.T) {
	m := New(context.Background(), newFakeRecorder(), &fakeAPI{})
	m, _ = update(t, m, key("a"))

	dreams := make([]entities.Dream, 40)
	for i := range dreams {
		dreams[i] = entities.Dream{ID: uuid.New(), AITitle: fmt.Sprintf("Dream %02d", i)}
	}
	m, _ = update(t, m, dreamsLoadedMsg{Dreams: dreams})

	view := m.View()
	assert.Contains(t, view, "Dream 15")
	assert.NotContains(t, view, "Dream 16")
	assert.Contains(t, view, "page 1/3")

	m, _ = update(t, m, key("l"))
	assert.Equal(t, 16, m.cursor)
	view = m.View()
	assert.Contains(t, view, "Dream 16")
	assert.NotContains(t, view, "Dream 15")
	assert.Contains(t, view, "page 2/3")

	m, _ = update(t, m, key("l"))
	m, _ = update(t, m, key("l"))
	assert.Equal(t, 39, m.cursor)
	assert.Contains(t, m.View(), "page 3/3")

	m, _ = update(t, m, key("h"))
	assert.Equal(t, 23, m.cursor)
	m, _ = update(t, m, key("h"))
	m, _ = update(t, m, key("h"))
	assert.Equal(t, 0, m.cursor)
}

func TestSettings_SaveProfile(t *testing.T) {
	api := &fakeAPI{}
	m := New(context.Background(), newFakeRecorder(), api)
	m, _ = update(t, m, key("s"))
	assert.Equal(t, screenSettings, m.screen)

	m, _ = update(t, m, profileLoadedMsg{Profile: entities.Profile{SelfDescription: "sailor", VisualStyle: entities.VisualStyleRealistic}})
	assert.Equal(t, 2, m.styleIndex)

	m, _ = update(t, m, key("tab"))
	m, _ = update(t, m, key("tab"))
	require.Equal(t, styleField, m.focus)
	m, _ = update(t, m, key("right"))

	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, entities.Profile{SelfDescription: "sailor", VisualStyle: entities.VisualStyleCartoonish}, api.saved)
	assert.Equal(t, "Profile saved", m.notice)

	m, cmd = update(t, m, key("ctrl+x"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.True(t, api.cleared)
	assert.Equal(t, "Profile cleared", m.notice)
	assert.Zero(t, m.styleIndex)
	assert.Empty(t, m.profileInputs[0].Value())
}
