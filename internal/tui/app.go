package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jask/oslcbugs/internal/config"
	"github.com/jask/oslcbugs/internal/creation"
	"github.com/jask/oslcbugs/internal/preview"
	"github.com/jask/oslcbugs/internal/ui"
)

// Service is what the App needs from the OSLC client.
type Service interface {
	preview.Fetcher
	FetchListing(ctx context.Context) (string, error)
	Origin() string
	Resolve(ref string) string
	ContainerURL() string
}

// Deps are the collaborators wired in by main.
type Deps struct {
	Service  Service
	Pipeline *creation.Pipeline
	Batch    creation.Batch
	// Launch opens the dialog outside the terminal; nil keeps it in the overlay only.
	Launch func(url string) error
	Log    zerolog.Logger
}

// App is the page: a notification area, the container listing, the dialog
// overlay and link popups. It implements ui.Sink for writers on the event loop.
type App struct {
	ctx      context.Context
	cfg      config.Config
	service  Service
	pipeline *creation.Pipeline
	batch    creation.Batch
	preview  *preview.Coordinator
	log      zerolog.Logger
	keys     keyMap

	notice        ui.Notice
	listing       string
	status        string
	width         int
	height        int
	pointer       pointer
	focus         int
	jumpOpen      bool
	jumpInput     string
	refreshQueued bool
}

var _ ui.Sink = (*App)(nil)

// New builds the App and its preview coordinator.
func New(ctx context.Context, cfg config.Config, deps Deps) *App {
	a := &App{
		ctx:      ctx,
		cfg:      cfg,
		service:  deps.Service,
		pipeline: deps.Pipeline,
		batch:    deps.Batch,
		log:      deps.Log,
		keys:     newKeyMap(),
		focus:    -1,
	}
	a.preview = preview.New(ctx, deps.Service, a, preview.Options{
		Origin:        deps.Service.Origin(),
		DialogURL:     deps.Service.Resolve(cfg.Dialog.Path),
		DismissDelay:  cfg.Preview.DismissDelay,
		DefaultWidth:  cfg.Preview.DefaultWidth,
		DefaultHeight: cfg.Preview.DefaultHeight,
		Launch:        deps.Launch,
		Log:           deps.Log,
	})
	return a
}

// ShowMessage replaces the notification area. Links that disappear take
// their preview sessions with them.
func (a *App) ShowMessage(text string, links ...ui.Link) {
	a.notice = ui.Notice{Text: text, Links: append([]ui.Link(nil), links...)}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	a.preview.Retain(ids...)
	if a.pointer.kind != zoneNone {
		if _, ok := a.preview.Session(a.pointer.linkID); !ok {
			a.pointer = pointer{}
		}
	}
	a.focus = -1
}

// ShowListing replaces the container listing.
func (a *App) ShowListing(text string) { a.listing = text }

// RefreshListing queues a listing fetch for the end of the current update.
func (a *App) RefreshListing() { a.refreshQueued = true }

func (a *App) Init() tea.Cmd {
	return a.loadListing()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	if a.refreshQueued {
		a.refreshQueued = false
		cmd = tea.Batch(cmd, a.loadListing())
	}
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		return nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case tea.MouseMsg:
		return a.handleMouse(m)
	case preview.FrameMessage:
		a.preview.HandleFrameMessage(m)
		return nil
	case noticeMsg:
		a.ShowMessage(m.Text, m.Links...)
		return nil
	case refreshRequestMsg:
		a.RefreshListing()
		return nil
	case listingMsg:
		if m.err != nil {
			a.log.Warn().Err(m.err).Msg("load listing")
			a.status = fmt.Sprintf("Could not load bugs: %v", m.err)
			return nil
		}
		a.status = ""
		a.ShowListing(m.text)
		return nil
	case batchDoneMsg:
		// the pipeline already wrote its outcome to the notification area
		a.status = ""
		if errors.Is(m.err, creation.ErrRunning) {
			a.status = "Sample bugs are already being created."
		}
		return nil
	}
	if cmd, ok := a.preview.Update(msg); ok {
		return cmd
	}
	return nil
}

// commands

func (a *App) loadListing() tea.Cmd {
	ctx, svc := a.ctx, a.service
	return func() tea.Msg {
		text, err := svc.FetchListing(ctx)
		return listingMsg{text: text, err: err}
	}
}

func (a *App) createSamplesCmd() tea.Cmd {
	if a.pipeline.Running() {
		a.status = "Sample bugs are already being created."
		return nil
	}
	a.status = fmt.Sprintf("Creating %d sample bugs...", len(a.batch))
	ctx, p, batch := a.ctx, a.pipeline, a.batch
	return func() tea.Msg {
		rep, err := p.Run(ctx, batch)
		return batchDoneMsg{report: rep, err: err}
	}
}

// messages

type listingMsg struct {
	text string
	err  error
}

type noticeMsg ui.Notice

type refreshRequestMsg struct{}

type batchDoneMsg struct {
	report creation.Report
	err    error
}
