package tui

import (
	"context"
	"dreamreel/capture"
	"dreamreel/entities"
	"fmt"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"strings"
	"time"
)

type screen int

const (
	screenHome screen = iota
	screenRecording
	screenArchive
	screenDetail
	screenSettings
)

type phase int

const (
	phaseIdle phase = iota
	phaseStarting
	phaseRecording
	phaseProcessing
	phaseFailed
)

const tickInterval = 200 * time.Millisecond

// Recorder drives one capture session and submits the result.
type Recorder interface {
	Events() <-chan capture.Event
	Start(ctx context.Context) (uuid.UUID, error)
	Stop() error
	Reset()
	Emojis() []string
	Transcript() string
	Elapsed() time.Duration
	Submit(ctx context.Context, finished capture.SessionFinished) (*entities.Dream, error)
}

type API interface {
	ListDreams(ctx context.Context) ([]entities.Dream, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*entities.Dream, error)
	DeleteDream(ctx context.Context, id uuid.UUID) error
	GetProfile(ctx context.Context) (entities.Profile, error)
	SaveProfile(ctx context.Context, p entities.Profile) error
	ClearProfile(ctx context.Context) error
}

type Model struct {
	ctx      context.Context
	recorder Recorder
	api      API
	styles   styles
	screen   screen
	width    int
	height   int

	// Recording
	phase     phase
	elapsed   time.Duration
	emojis    []string
	live      string
	chunks    int
	gen       int
	cancelRun context.CancelFunc
	status    string
	failure   string

	// Archive
	dreams     []entities.Dream
	cursor     int
	selected   *entities.Dream
	editing    bool
	titleInput textinput.Model

	// Settings
	profileInputs []textinput.Model
	styleIndex    int
	focus         int

	notice string
	err    string
}

func New(ctx context.Context, recorder Recorder, api API) Model {
	title := textinput.New()
	title.Placeholder = "Dream title"
	title.CharLimit = 120
	title.Width = 50

	self := textinput.New()
	self.Placeholder = "Who are you in your dreams?"
	self.CharLimit = 500
	self.Width = 60
	triggers := textinput.New()
	triggers.Placeholder = "Anything the videos must avoid"
	triggers.CharLimit = 500
	triggers.Width = 60

	return Model{
		ctx:           ctx,
		recorder:      recorder,
		api:           api,
		styles:        defaultStyles(),
		screen:        screenHome,
		titleInput:    title,
		profileInputs: []textinput.Model{self, triggers},
	}
}

func (m Model) Init() tea.Cmd {
	return listenCmd(m.recorder.Events())
}

func listenCmd(events <-chan capture.Event) tea.Cmd {
	return func() tea.Msg {
		return captureEventMsg{Event: <-events}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) startCmd() tea.Cmd {
	ctx, rec := m.ctx, m.recorder
	return func() tea.Msg {
		_, err := rec.Start(ctx)
		return recordingStartedMsg{Err: err}
	}
}

func submitCmd(ctx context.Context, rec Recorder, gen int, finished capture.SessionFinished) tea.Cmd {
	return func() tea.Msg {
		dream, err := rec.Submit(ctx, finished)
		return pipelineDoneMsg{Gen: gen, Dream: dream, Err: err}
	}
}

func (m Model) loadDreamsCmd() tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		dreams, err := api.ListDreams(ctx)
		return dreamsLoadedMsg{Dreams: dreams, Err: err}
	}
}

func (m Model) loadProfileCmd() tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		p, err := api.GetProfile(ctx)
		return profileLoadedMsg{Profile: p, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case captureEventMsg:
		return m.handleCaptureEvent(msg.Event)

	case tickMsg:
		if m.phase != phaseRecording {
			return m, nil
		}
		m.elapsed = m.recorder.Elapsed()
		m.emojis = m.recorder.Emojis()
		m.live = m.recorder.Transcript()
		return m, tickCmd()

	case recordingStartedMsg:
		if m.phase != phaseStarting {
			return m, nil
		}
		if msg.Err != nil {
			m.phase = phaseFailed
			m.failure = "Microphone unavailable: " + msg.Err.Error()
			return m, nil
		}
		m.phase = phaseRecording
		m.status = "Recording… press space to stop"
		return m, tickCmd()

	case pipelineDoneMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.finishRun()
		if msg.Err != nil {
			m.phase = phaseFailed
			m.failure = "We couldn't turn that recording into a dream."
			return m, nil
		}
		m.phase = phaseIdle
		m.dreams = append([]entities.Dream{*msg.Dream}, m.dreams...)
		m.cursor = 0
		m.selected = msg.Dream
		m.screen = screenDetail
		m.notice = "Dream saved"
		return m, nil

	case dreamsLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.err = ""
		m.dreams = msg.Dreams
		if m.cursor >= len(m.dreams) {
			m.cursor = max(len(m.dreams)-1, 0)
		}
		return m, nil

	case dreamUpdatedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		if msg.Dream != nil {
			m.replaceDream(*msg.Dream)
		}
		m.notice = "Title updated"
		return m, nil

	case dreamDeletedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.notice = "Dream deleted"
		return m, m.loadDreamsCmd()

	case profileLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.setProfile(msg.Profile)
		return m, nil

	case profileSavedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.err = ""
		m.notice = "Profile saved"
		return m, nil

	case profileClearedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.err = ""
		m.setProfile(entities.Profile{})
		m.notice = "Profile cleared"
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.abortRun()
			return m, tea.Quit
		}
		m.notice = ""
		switch m.screen {
		case screenHome:
			return m.updateHome(msg)
		case screenRecording:
			return m.updateRecording(msg)
		case screenArchive:
			return m.updateArchive(msg)
		case screenDetail:
			return m.updateDetail(msg)
		case screenSettings:
			return m.updateSettings(msg)
		}
	}
	return m, nil
}

func (m Model) handleCaptureEvent(ev capture.Event) (tea.Model, tea.Cmd) {
	listen := listenCmd(m.recorder.Events())
	switch ev := ev.(type) {
	case capture.ChunkCompleted:
		m.chunks++
	case capture.SessionStopping:
		if ev.Reason == capture.StopReasonCeiling {
			m.status = "Time's up, wrapping up…"
		} else {
			m.status = "Stopping…"
		}
	case capture.SessionFinished:
		if m.phase != phaseRecording {
			return m, listen
		}
		m.elapsed = ev.Elapsed
		m.emojis = m.recorder.Emojis()
		m.live = m.recorder.Transcript()
		m.phase = phaseProcessing
		m.status = "Dreaming up your video… this can take a few minutes"
		m.gen++
		ctx, cancel := context.WithCancel(m.ctx)
		m.cancelRun = cancel
		return m, tea.Batch(listen, submitCmd(ctx, m.recorder, m.gen, ev))
	}
	return m, listen
}

// finishRun releases the pipeline context and returns the capture controller to idle.
func (m *Model) finishRun() {
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}
	m.recorder.Reset()
}

// abortRun discards the session; any pipeline result still in flight is stale.
func (m *Model) abortRun() {
	m.gen++
	m.finishRun()
	m.phase = phaseIdle
	m.elapsed = 0
	m.emojis = nil
	m.live = ""
	m.chunks = 0
	m.status = ""
	m.failure = ""
}

func (m Model) beginRecording() (tea.Model, tea.Cmd) {
	m.abortRun()
	m.screen = screenRecording
	m.phase = phaseStarting
	m.status = "Opening microphone…"
	return m, m.startCmd()
}

func (m Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r", "enter":
		return m.beginRecording()
	case "a":
		m.screen = screenArchive
		return m, m.loadDreamsCmd()
	case "s":
		m.screen = screenSettings
		m.focus = 0
		return m, tea.Batch(m.loadProfileCmd(), m.focusSettings())
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateRecording(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ", "space", "enter":
		if m.phase == phaseRecording {
			if err := m.recorder.Stop(); err != nil {
				m.err = err.Error()
			}
		}
	case "r":
		if m.phase == phaseFailed {
			return m.beginRecording()
		}
	case "esc":
		m.abortRun()
		m.screen = screenHome
	}
	return m, nil
}

func (m Model) updateArchive(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.updateTitleEdit(msg)
	}
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.dreams)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "l", "right":
		m.cursor = min(m.cursor+archivePageSize, max(len(m.dreams)-1, 0))
	case "h", "left":
		m.cursor = max(m.cursor-archivePageSize, 0)
	case "enter":
		if d := m.current(); d != nil {
			m.selected = d
			m.screen = screenDetail
		}
	case "d":
		if d := m.current(); d != nil {
			return m, m.deleteCmd(d.ID)
		}
	case "e":
		if d := m.current(); d != nil {
			return m, m.startTitleEdit(d)
		}
	case "esc", "q":
		m.screen = screenHome
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.updateTitleEdit(msg)
	}
	switch msg.String() {
	case "e":
		if m.selected != nil {
			return m, m.startTitleEdit(m.selected)
		}
	case "d":
		if m.selected != nil {
			id := m.selected.ID
			m.selected = nil
			m.screen = screenArchive
			return m, m.deleteCmd(id)
		}
	case "esc", "q":
		m.screen = screenArchive
		return m, m.loadDreamsCmd()
	}
	return m, nil
}

func (m *Model) startTitleEdit(d *entities.Dream) tea.Cmd {
	m.editing = true
	m.titleInput.SetValue(d.DisplayTitle())
	m.titleInput.CursorEnd()
	return m.titleInput.Focus()
}

func (m Model) updateTitleEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.titleInput.Blur()
		return m, nil
	case "enter":
		m.editing = false
		m.titleInput.Blur()
		target := m.selected
		if m.screen == screenArchive {
			target = m.current()
		}
		title := strings.TrimSpace(m.titleInput.Value())
		if target == nil || title == "" {
			return m, nil
		}
		ctx, api, id := m.ctx, m.api, target.ID
		return m, func() tea.Msg {
			d, err := api.UpdateTitle(ctx, id, title)
			return dreamUpdatedMsg{Dream: d, Err: err}
		}
	}
	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) deleteCmd(id uuid.UUID) tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		return dreamDeletedMsg{Err: api.DeleteDream(ctx, id)}
	}
}

func (m Model) current() *entities.Dream {
	if m.cursor < 0 || m.cursor >= len(m.dreams) {
		return nil
	}
	d := m.dreams[m.cursor]
	return &d
}

func (m *Model) replaceDream(d entities.Dream) {
	for i := range m.dreams {
		if m.dreams[i].ID == d.ID {
			m.dreams[i] = d
		}
	}
	if m.selected != nil && m.selected.ID == d.ID {
		m.selected = &d
	}
}

const styleField = 2

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.blurSettings()
		m.screen = screenHome
		return m, nil
	case "tab", "down":
		m.focus = (m.focus + 1) % (styleField + 1)
		return m, m.focusSettings()
	case "shift+tab", "up":
		m.focus = (m.focus + styleField) % (styleField + 1)
		return m, m.focusSettings()
	case "ctrl+s":
		return m, m.saveProfileCmd()
	case "ctrl+x":
		return m, m.clearProfileCmd()
	}

	if m.focus == styleField {
		switch msg.String() {
		case "left", "h":
			m.styleIndex = (m.styleIndex + len(entities.VisualStyles)) % (len(entities.VisualStyles) + 1)
		case "right", "l":
			m.styleIndex = (m.styleIndex + 1) % (len(entities.VisualStyles) + 1)
		case "enter":
			return m, m.saveProfileCmd()
		}
		return m, nil
	}

	if msg.String() == "enter" {
		m.focus++
		return m, m.focusSettings()
	}
	var cmd tea.Cmd
	m.profileInputs[m.focus], cmd = m.profileInputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) focusSettings() tea.Cmd {
	m.blurSettings()
	if m.focus < len(m.profileInputs) {
		return m.profileInputs[m.focus].Focus()
	}
	return nil
}

func (m *Model) blurSettings() {
	for i := range m.profileInputs {
		m.profileInputs[i].Blur()
	}
}

// styleIndex 0 means no style; i > 0 selects VisualStyles[i-1].
func (m *Model) setProfile(p entities.Profile) {
	m.profileInputs[0].SetValue(p.SelfDescription)
	m.profileInputs[1].SetValue(p.TriggersAndBoundaries)
	m.styleIndex = 0
	for i, s := range entities.VisualStyles {
		if s == p.VisualStyle {
			m.styleIndex = i + 1
		}
	}
}

func (m Model) profile() entities.Profile {
	p := entities.Profile{
		SelfDescription:       strings.TrimSpace(m.profileInputs[0].Value()),
		TriggersAndBoundaries: strings.TrimSpace(m.profileInputs[1].Value()),
	}
	if m.styleIndex > 0 {
		p.VisualStyle = entities.VisualStyles[m.styleIndex-1]
	}
	return p
}

func (m Model) saveProfileCmd() tea.Cmd {
	ctx, api, p := m.ctx, m.api, m.profile()
	return func() tea.Msg {
		return profileSavedMsg{Err: api.SaveProfile(ctx, p)}
	}
}

func (m Model) clearProfileCmd() tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		return profileClearedMsg{Err: api.ClearProfile(ctx)}
	}
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
