// Package preview coordinates the delegated creation dialog and the hover
// previews of the links it produces. All methods run on the bubbletea
// event loop; only the fetch commands run elsewhere and they report back
// as messages.
package preview

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/oslcbugs/internal/oslc"
	"github.com/jask/oslcbugs/internal/ui"
)

// Fetcher reads compact representations and preview documents.
type Fetcher interface {
	FetchCompact(ctx context.Context, uri string) (*oslc.Compact, error)
	FetchDocument(ctx context.Context, uri string) (string, error)
}

// Options configures a Coordinator.
type Options struct {
	// Origin is the hosting origin frame messages must come from.
	Origin string
	// DialogURL is the dialog document embedded by OpenDialog.
	DialogURL     string
	DismissDelay  time.Duration
	DefaultWidth  string
	DefaultHeight string
	// Launch, when set, also opens the dialog outside the terminal.
	Launch func(url string) error
	Log    zerolog.Logger
}

type compactMsg struct {
	linkID string
	popup  *Popup
	err    error
}

type dismissMsg struct {
	linkID string
	serial uint64
}

type dialogLaunchedMsg struct {
	url string
	err error
}

// Coordinator owns the dialog and one hover Session per displayed link.
type Coordinator struct {
	ctx      context.Context
	fetch    Fetcher
	sink     ui.Sink
	opts     Options
	tick     func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
	dialog   Dialog
	sessions map[string]*Session
	order    []string
}

// New returns a coordinator. Zero size hints default to 400px by 300px and a
// zero delay to 500ms.
func New(ctx context.Context, fetch Fetcher, sink ui.Sink, opts Options) *Coordinator {
	if opts.DismissDelay <= 0 {
		opts.DismissDelay = 500 * time.Millisecond
	}
	if opts.DefaultWidth == "" {
		opts.DefaultWidth = "400px"
	}
	if opts.DefaultHeight == "" {
		opts.DefaultHeight = "300px"
	}
	return &Coordinator{
		ctx:      ctx,
		fetch:    fetch,
		sink:     sink,
		opts:     opts,
		tick:     tea.Tick,
		sessions: map[string]*Session{},
	}
}

// Dialog returns the dialog state.
func (c *Coordinator) Dialog() *Dialog { return &c.dialog }

// OpenDialog embeds the dialog frame. It is a no-op while a dialog is open.
func (c *Coordinator) OpenDialog() tea.Cmd {
	if !c.dialog.Open(c.opts.DialogURL) {
		return nil
	}
	c.opts.Log.Debug().Str("url", c.opts.DialogURL).Msg("dialog opened")
	if c.opts.Launch == nil {
		return nil
	}
	url, launch := c.opts.DialogURL, c.opts.Launch
	return func() tea.Msg {
		return dialogLaunchedMsg{url: url, err: launch(url)}
	}
}

// HandleFrameMessage processes a message from the dialog frame. Invalid or
// foreign messages are dropped without a trace.
func (c *Coordinator) HandleFrameMessage(msg FrameMessage) {
	results, ok := c.dialog.Accept(msg, c.opts.Origin)
	if !ok {
		return
	}
	links := make([]ui.Link, 0, len(results))
	for _, r := range results {
		link := ui.Link{ID: uuid.NewString(), Label: r.DisplayLabel(), Href: r.Resource}
		c.sessions[link.ID] = newSession(link)
		c.order = append(c.order, link.ID)
		links = append(links, link)
	}
	c.opts.Log.Info().Int("results", len(results)).Msg("dialog returned")
	c.sink.ShowMessage("New bug:", links...)
	c.sink.RefreshListing()
}

// Retain forgets every session whose link is not in ids. Results still in
// flight for forgotten links are discarded when they arrive.
func (c *Coordinator) Retain(ids ...string) {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	order := c.order[:0]
	for _, id := range c.order {
		if _, ok := keep[id]; ok {
			order = append(order, id)
			continue
		}
		delete(c.sessions, id)
	}
	c.order = order
}

// Session returns the session of a link.
func (c *Coordinator) Session(linkID string) (*Session, bool) {
	s, ok := c.sessions[linkID]
	return s, ok
}

// Links returns the registered links in display order, with resolved titles.
func (c *Coordinator) Links() []ui.Link {
	out := make([]ui.Link, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.sessions[id].Link())
	}
	return out
}

// VisiblePopup pairs an on-screen popup with its link.
type VisiblePopup struct {
	LinkID string
	Popup  *Popup
}

// VisiblePopups returns the popups on screen in link order.
func (c *Coordinator) VisiblePopups() []VisiblePopup {
	var out []VisiblePopup
	for _, id := range c.order {
		if s := c.sessions[id]; s.Visible() {
			out = append(out, VisiblePopup{LinkID: id, Popup: s.Popup()})
		}
	}
	return out
}

// PointerEnterLink handles the pointer entering a link.
func (c *Coordinator) PointerEnterLink(linkID string) tea.Cmd {
	s, ok := c.sessions[linkID]
	if !ok {
		return nil
	}
	return c.apply(linkID, s, s.EnterLink())
}

// PointerLeaveLink handles the pointer leaving a link.
func (c *Coordinator) PointerLeaveLink(linkID string) tea.Cmd {
	s, ok := c.sessions[linkID]
	if !ok {
		return nil
	}
	return c.apply(linkID, s, s.LeaveLink())
}

// PointerEnterPopup handles the pointer entering a link's popup.
func (c *Coordinator) PointerEnterPopup(linkID string) {
	if s, ok := c.sessions[linkID]; ok {
		s.EnterPopup()
	}
}

// PointerLeavePopup handles the pointer leaving a link's popup.
func (c *Coordinator) PointerLeavePopup(linkID string) {
	if s, ok := c.sessions[linkID]; ok {
		s.LeavePopup()
	}
}

// Update consumes the coordinator's own messages. It reports whether msg
// was one of them.
func (c *Coordinator) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch m := msg.(type) {
	case compactMsg:
		s, ok := c.sessions[m.linkID]
		if !ok {
			return nil, true
		}
		if m.err != nil {
			c.opts.Log.Warn().Err(m.err).Str("uri", s.Link().Href).Msg("compact fetch failed")
		}
		return c.apply(m.linkID, s, s.Resolve(m.popup)), true
	case dismissMsg:
		s, ok := c.sessions[m.linkID]
		if !ok {
			return nil, true
		}
		return c.apply(m.linkID, s, s.Dismiss(m.serial)), true
	case dialogLaunchedMsg:
		if m.err != nil {
			c.opts.Log.Warn().Err(m.err).Str("url", m.url).Msg("open dialog in browser")
		}
		return nil, true
	}
	return nil, false
}

func (c *Coordinator) apply(linkID string, s *Session, eff Effect) tea.Cmd {
	var cmds []tea.Cmd
	if eff.Has(EffectFetch) {
		cmds = append(cmds, c.fetchCmd(linkID, s.Link().Href))
	}
	if eff.Has(EffectScheduleDismiss) {
		serial := s.DismissSerial()
		cmds = append(cmds, c.tick(c.opts.DismissDelay, func(time.Time) tea.Msg {
			return dismissMsg{linkID: linkID, serial: serial}
		}))
	}
	if eff.Has(EffectFadeIn) || eff.Has(EffectFadeOut) {
		c.opts.Log.Debug().Str("link", linkID).Str("state", s.State().String()).Msg("preview")
	}
	return tea.Batch(cmds...)
}

func (c *Coordinator) fetchCmd(linkID, uri string) tea.Cmd {
	ctx, fetch := c.ctx, c.fetch
	width, height := c.opts.DefaultWidth, c.opts.DefaultHeight
	log := c.opts.Log
	return func() tea.Msg {
		compact, err := fetch.FetchCompact(ctx, uri)
		if err != nil {
			return compactMsg{linkID: linkID, err: err}
		}
		p := newPopup(compact, width, height)
		if p != nil && p.Document != "" {
			body, err := fetch.FetchDocument(ctx, p.Document)
			if err != nil {
				log.Debug().Err(err).Str("document", p.Document).Msg("preview document")
			} else {
				p.Body = body
			}
		}
		return compactMsg{linkID: linkID, popup: p}
	}
}
