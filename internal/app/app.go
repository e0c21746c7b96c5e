// Package app hosts the session controller inside a Bubble Tea program.
// Stream messages arrive one at a time and each is dispatched to completion
// before the next read is scheduled.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/client"
	"github.com/meetz/fansession/internal/event"
	pkglog "github.com/meetz/fansession/internal/log"
	"github.com/meetz/fansession/internal/session"
	"github.com/meetz/fansession/internal/theme"
	"github.com/meetz/fansession/internal/views/debug"
	"github.com/meetz/fansession/internal/views/live"
	"github.com/meetz/fansession/internal/views/loading"
	"github.com/meetz/fansession/internal/views/setting"
	"github.com/meetz/fansession/internal/views/status"
	"github.com/meetz/fansession/internal/views/switching"
)

// Stream produces listener messages until ctx is cancelled.
type Stream interface {
	Start(ctx context.Context) <-chan tea.Msg
}

// Options wires the model to its collaborators.
type Options struct {
	Stream       Stream
	Setup        *session.Setup
	Photographer session.Photographer
	Logger       zerolog.Logger

	// MarkdownStyle is the glamour style of the setup instructions.
	MarkdownStyle string
	// TickInterval drives the local countdown. Zero means one second.
	TickInterval time.Duration
}

type tickMsg time.Time

type streamStartedMsg struct {
	events <-chan tea.Msg
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	stream Stream
	events <-chan tea.Msg

	ctrl   *session.Controller
	store  *session.Store
	setup  *session.Setup
	photos *photoTracker
	alerts *alertQueue
	logger zerolog.Logger
	tick   time.Duration

	keys   KeyMap
	width  int
	height int

	statusBar status.Model
	setting   setting.Model
	loading   loading.Model
	live      live.Model
	debug     debug.Model
	showDebug bool
	stopped   bool
}

// New creates the root model and the session controller it drives.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Setup == nil {
		opts.Setup = session.NewSetup(false)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}

	photos := &photoTracker{inner: opts.Photographer}
	alerts := &alertQueue{}
	store := session.NewStore()
	ctrl := session.NewController(store, opts.Setup, alerts, photos, session.WithLogger(opts.Logger))

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		stream:    opts.Stream,
		ctrl:      ctrl,
		store:     store,
		setup:     opts.Setup,
		photos:    photos,
		alerts:    alerts,
		logger:    opts.Logger,
		tick:      opts.TickInterval,
		keys:      DefaultKeyMap(),
		statusBar: status.New(),
		setting:   setting.New(opts.MarkdownStyle),
		loading:   loading.New(),
		live:      live.New(),
		debug:     debug.New(),
	}
}

// Store exposes the session store for read-only consumers.
func (m Model) Store() *session.Store { return m.store }

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the listener, the local countdown and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startStream(), m.tickCmd(), m.loading.Tick)
}

func (m Model) startStream() tea.Cmd {
	ctx := pkglog.WithLogger(m.ctx, m.logger)
	stream := m.stream
	return func() tea.Msg {
		return streamStartedMsg{events: stream.Start(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.setting.SetWidth(msg.Width)
		m.live.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamStartedMsg:
		m.events = msg.events
		return m, client.Next(m.events)

	case tickMsg:
		if m.stopped {
			return m, nil
		}
		m.ctrl.Tick()
		frame := m.syncLive()
		return m, tea.Batch(m.tickCmd(), frame)

	case live.FrameMsg:
		var cmd tea.Cmd
		m.live, cmd = m.live.Update(msg)
		return m, cmd

	case client.ConnectedMsg:
		m.statusBar.State = status.Connected
		m.statusBar.Transport = msg.Transport
		m.statusBar.Failures = 0
		m.debug.Addf(debug.KindConn, "connected via %s (attempt %d)", msg.Transport, msg.Attempt)
		return m, client.Next(m.events)

	case client.DisconnectedMsg:
		m.statusBar.State = status.Reconnecting
		m.statusBar.Failures = msg.Failures
		m.debug.Addf(debug.KindConn, "disconnected: %v (retry in %s)", msg.Err, msg.Retry)
		return m, client.Next(m.events)

	case client.EventMsg:
		return m.dispatch(msg)

	case client.DecodeErrorMsg:
		m.debug.Addf(debug.KindDecode, "dropped payload: %v", msg.Err)
		return m, client.Next(m.events)

	case client.GaveUpMsg:
		m.statusBar.State = status.Offline
		m.debug.Addf(debug.KindConn, "gave up: %v", msg.Err)
		return m, client.Next(m.events)

	case client.ClosedMsg:
		m.stopped = true
		m.statusBar.State = status.Offline
		m.debug.Addf(debug.KindConn, "stream closed")
		return m, nil
	}

	var cmd tea.Cmd
	m.loading, cmd = m.loading.Update(msg)
	return m, cmd
}

func (m Model) dispatch(msg client.EventMsg) (tea.Model, tea.Cmd) {
	before := m.store.View()
	raised := m.alerts.raised

	view := m.ctrl.Dispatch(m.ctx, msg.Event)

	m.debug.Addf(debug.KindEvent, "%s id=%s", msg.Event.Kind, msg.Event.ID)
	if view != before {
		m.debug.Addf(debug.KindView, "%s -> %s", before, view)
	}
	if m.alerts.raised > raised {
		m.debug.Addf(debug.KindAlert, "%s", session.SetupRequiredMessage)
	}
	m.statusBar.Photos, m.statusBar.Pending = m.photos.counts()
	if msg.Event.Kind == event.KindSwitching {
		if d := m.photos.lastDelivery(); d.Err != nil {
			m.debug.Addf(debug.KindPhoto, "send failed: %v", d.Err)
		}
	}

	frame := m.syncLive()
	return m, tea.Batch(client.Next(m.events), frame)
}

// syncLive points the timer bar at the store and starts the spring when
// it has somewhere to go.
func (m *Model) syncLive() tea.Cmd {
	m.live.Sync(m.store.Attributes())
	return m.live.Animate()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		m.ctrl.Close()
		return m, tea.Quit
	}

	if _, ok := m.alerts.current(); ok {
		if key.Matches(msg, m.keys.Dismiss) {
			m.alerts.dismiss()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Camera):
		on := m.setup.ToggleCamera()
		m.debug.Addf(debug.KindView, "camera confirmed=%t", on)
	case key.Matches(msg, m.keys.Microphone):
		on := m.setup.ToggleMicrophone()
		m.debug.Addf(debug.KindView, "microphone confirmed=%t", on)
	case key.Matches(msg, m.keys.Debug):
		m.showDebug = !m.showDebug
	case m.showDebug && key.Matches(msg, m.keys.Up):
		m.debug.ScrollUp(1)
	case m.showDebug && key.Matches(msg, m.keys.Down):
		m.debug.ScrollDown(1)
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	snap := m.store.Snapshot()
	m.statusBar.Mode = snap.View.String()
	m.statusBar.Camera = m.setup.Camera()
	m.statusBar.Mic = m.setup.Microphone()

	var body string
	switch {
	case m.showDebug:
		body = m.debug.View(m.width, m.height-4)
	default:
		body = m.renderView(snap)
	}
	if msg, ok := m.alerts.current(); ok {
		body = lipgloss.Place(m.width, max(m.height-4, 5), lipgloss.Center, lipgloss.Center,
			theme.StyleAlert.Render(msg+"\n\n"+theme.StyleDimmed.Render("enter: OK")))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		lipgloss.NewStyle().Padding(1, 2).Render(body),
		theme.StyleDimmed.Render("  c:camera  m:mic  d:stream log  q:quit"),
	)
}

func (m Model) renderView(snap session.Snapshot) string {
	switch snap.View {
	case session.ViewLoading:
		return m.loading.View(snap.Attributes, !m.setup.SetupDone())
	case session.ViewLiveSession:
		return m.live.View(snap.Attributes)
	case session.ViewSwitching:
		return switching.View(snap.Attributes, m.photos.lastDelivery())
	default:
		return m.setting.View(m.setup.Camera(), m.setup.Microphone())
	}
}

// Run starts the program and blocks until the user quits.
func Run(opts Options, programOpts ...tea.ProgramOption) error {
	if opts.Stream == nil {
		return errors.New("app: no event stream configured")
	}
	if opts.Photographer == nil {
		return errors.New("app: no photographer configured")
	}
	_, err := tea.NewProgram(New(opts), programOpts...).Run()
	return err
}
