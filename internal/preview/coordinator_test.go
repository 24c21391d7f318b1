package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jask/oslcbugs/internal/oslc"
	"github.com/jask/oslcbugs/internal/ui"
)

type fakeFetcher struct {
	mu        sync.Mutex
	compacts  map[string]*oslc.Compact
	err       error
	calls     []string
	documents []string
}

func (f *fakeFetcher) FetchCompact(ctx context.Context, uri string) (*oslc.Compact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, uri)
	if f.err != nil {
		return nil, f.err
	}
	return f.compacts[uri], nil
}

func (f *fakeFetcher) FetchDocument(ctx context.Context, uri string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, uri)
	return "# " + uri, nil
}

func newTestCoordinator(t *testing.T, fetch *fakeFetcher) (*Coordinator, *ui.Recorder) {
	t.Helper()
	sink := &ui.Recorder{}
	c := New(context.Background(), fetch, sink, Options{
		Origin:    testOrigin,
		DialogURL: testOrigin + "/newBug.html",
		Log:       zerolog.Nop(),
	})
	// fire timers as soon as the command runs
	c.tick = func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		return func() tea.Msg { return fn(time.Time{}) }
	}
	return c, sink
}

// runCmd executes cmd (flattening batches) and returns the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func deliver(t *testing.T, c *Coordinator, msgs []tea.Msg) {
	t.Helper()
	for _, m := range msgs {
		_, handled := c.Update(m)
		require.True(t, handled, "unexpected message %T", m)
	}
}

func validMessage(results string) FrameMessage {
	return FrameMessage{Origin: testOrigin, Data: ResponsePrefix + `{"oslc:results":` + results + `}`}
}

func openWithLink(t *testing.T, c *Coordinator) string {
	t.Helper()
	require.Nil(t, c.OpenDialog())
	c.HandleFrameMessage(validMessage(`[{"oslc:label":"Bug A","rdf:resource":"urn:x"}]`))
	links := c.Links()
	require.Len(t, links, 1)
	return links[0].ID
}

func TestDialogResultCreatesLinks(t *testing.T) {
	c, sink := newTestCoordinator(t, &fakeFetcher{})

	require.Nil(t, c.OpenDialog())
	require.Equal(t, DialogAwaitingResult, c.Dialog().State())
	require.Equal(t, testOrigin+"/newBug.html", c.Dialog().URL())

	c.HandleFrameMessage(validMessage(`[{"oslc:label":"Bug A","rdf:resource":"urn:x"}]`))

	require.Equal(t, DialogClosed, c.Dialog().State())
	require.Equal(t, 1, sink.Refreshes)
	require.Len(t, sink.Notices, 1)
	notice := sink.Notices[0]
	require.Equal(t, "New bug:", notice.Text)
	require.Len(t, notice.Links, 1)
	require.Equal(t, "Bug A", notice.Links[0].Label)
	require.Equal(t, "urn:x", notice.Links[0].Href)
	require.NotEmpty(t, notice.Links[0].ID)

	s, ok := c.Session(notice.Links[0].ID)
	require.True(t, ok)
	require.Equal(t, Idle, s.State())
}

func TestDialogLabelFallsBackToURI(t *testing.T) {
	c, sink := newTestCoordinator(t, &fakeFetcher{})
	c.OpenDialog()
	c.HandleFrameMessage(validMessage(`[{"rdf:resource":"urn:a"},{"oslc:label":"B","rdf:resource":"urn:b"}]`))

	links := sink.Notices[0].Links
	require.Len(t, links, 2)
	require.Equal(t, "urn:a", links[0].Label)
	require.Equal(t, "B", links[1].Label)
	require.Equal(t, 1, sink.Refreshes)
}

func TestDialogIgnoresInvalidMessages(t *testing.T) {
	c, sink := newTestCoordinator(t, &fakeFetcher{})
	c.OpenDialog()

	for _, msg := range []FrameMessage{
		{Origin: "http://evil.example", Data: validMessage(`[{"rdf:resource":"urn:x"}]`).Data},
		{Origin: testOrigin, Data: `hello`},
		{Origin: testOrigin, Data: `{"oslc:results":[{"rdf:resource":"urn:x"}]}`},
		{Origin: testOrigin, Data: ResponsePrefix + `[`},
	} {
		c.HandleFrameMessage(msg)
		require.Equal(t, DialogAwaitingResult, c.Dialog().State())
	}
	require.Empty(t, sink.Notices)
	require.Zero(t, sink.Refreshes)
	require.Empty(t, c.Links())
}

func TestOpenDialogLaunches(t *testing.T) {
	var launched []string
	c := New(context.Background(), &fakeFetcher{}, &ui.Recorder{}, Options{
		DialogURL: "http://localhost:8080/newBug.html",
		Launch: func(url string) error {
			launched = append(launched, url)
			return errors.New("no browser")
		},
		Log: zerolog.Nop(),
	})

	cmd := c.OpenDialog()
	require.NotNil(t, cmd)
	deliver(t, c, runCmd(cmd))
	require.Equal(t, []string{"http://localhost:8080/newBug.html"}, launched)
	require.Nil(t, c.OpenDialog(), "reopening while awaiting is a no-op")
	require.Equal(t, DialogAwaitingResult, c.Dialog().State())
}

func TestHoverShowsPopupAndRenamesLink(t *testing.T) {
	fetch := &fakeFetcher{compacts: map[string]*oslc.Compact{
		"urn:x": {
			Title:        "Product Z is too blue.",
			SmallPreview: &oslc.Preview{Document: "urn:x/preview"},
		},
	}}
	c, _ := newTestCoordinator(t, fetch)
	id := openWithLink(t, c)

	deliver(t, c, runCmd(c.PointerEnterLink(id)))

	s, _ := c.Session(id)
	require.Equal(t, Shown, s.State())
	require.Equal(t, "Product Z is too blue.", c.Links()[0].Label)
	visible := c.VisiblePopups()
	require.Len(t, visible, 1)
	require.Equal(t, id, visible[0].LinkID)
	p := visible[0].Popup
	require.Equal(t, "Product Z is too blue.", p.Title)
	require.Equal(t, "400px", p.Width)
	require.Equal(t, "300px", p.Height)
	require.Equal(t, "# urn:x/preview", p.Body)
	require.Equal(t, []string{"urn:x/preview"}, fetch.documents)
}

func TestHoverLeftBeforeFetchResolvesStillShows(t *testing.T) {
	fetch := &fakeFetcher{compacts: map[string]*oslc.Compact{"urn:x": {Title: "Bug A"}}}
	c, _ := newTestCoordinator(t, fetch)
	id := openWithLink(t, c)

	pending := c.PointerEnterLink(id)
	require.Nil(t, c.PointerLeaveLink(id), "nothing to dismiss while loading")
	deliver(t, c, runCmd(pending))

	s, _ := c.Session(id)
	require.Equal(t, Shown, s.State())
	require.Len(t, c.VisiblePopups(), 1)
}

func TestSecondHoverReusesPopup(t *testing.T) {
	fetch := &fakeFetcher{compacts: map[string]*oslc.Compact{"urn:x": {Title: "Bug A"}}}
	c, _ := newTestCoordinator(t, fetch)
	id := openWithLink(t, c)

	deliver(t, c, runCmd(c.PointerEnterLink(id)))
	s, _ := c.Session(id)
	first := s.Popup()

	deliver(t, c, runCmd(c.PointerLeaveLink(id)))
	require.Equal(t, Hidden, s.State())
	require.Empty(t, c.VisiblePopups())

	require.Nil(t, c.PointerEnterLink(id))
	require.Equal(t, Shown, s.State())
	require.Same(t, first, s.Popup())
	require.Len(t, fetch.calls, 1)
}

func TestAbsentDescriptorShowsNothing(t *testing.T) {
	fetch := &fakeFetcher{}
	c, _ := newTestCoordinator(t, fetch)
	id := openWithLink(t, c)

	deliver(t, c, runCmd(c.PointerEnterLink(id)))
	s, _ := c.Session(id)
	require.Equal(t, Idle, s.State())
	require.Empty(t, c.VisiblePopups())
	require.Equal(t, "Bug A", c.Links()[0].Label)

	c.PointerLeaveLink(id)
	deliver(t, c, runCmd(c.PointerEnterLink(id)))
	require.Len(t, fetch.calls, 2)
}

func TestFetchErrorTreatedAsAbsent(t *testing.T) {
	fetch := &fakeFetcher{err: errors.New("connection refused")}
	c, _ := newTestCoordinator(t, fetch)
	id := openWithLink(t, c)

	deliver(t, c, runCmd(c.PointerEnterLink(id)))
	s, _ := c.Session(id)
	require.Equal(t, Idle, s.State())
}

func TestPointerInPopupKeepsItOpen(t *testing.T) {
	fetch := &fakeFetcher{compacts: map[string]*oslc.Compact{"urn:x": {Title: "Bug A"}}}
	c, _ := newTestCoordinator(t, fetch)
	id := openWithLink(t, c)
	deliver(t, c, runCmd(c.PointerEnterLink(id)))

	timer := c.PointerLeaveLink(id)
	require.NotNil(t, timer)
	c.PointerEnterPopup(id)
	deliver(t, c, runCmd(timer))

	s, _ := c.Session(id)
	require.Equal(t, Shown, s.State())
	require.True(t, s.PointerInsidePopup())

	c.PointerLeavePopup(id)
	require.False(t, s.PointerInsidePopup())
	require.Len(t, c.VisiblePopups(), 1)
}

func TestRetainDropsSessions(t *testing.T) {
	fetch := &fakeFetcher{compacts: map[string]*oslc.Compact{"urn:x": {Title: "Bug A"}}}
	c, _ := newTestCoordinator(t, fetch)
	id := openWithLink(t, c)

	pending := c.PointerEnterLink(id)
	c.Retain()
	require.Empty(t, c.Links())
	_, ok := c.Session(id)
	require.False(t, ok)

	// the late result is swallowed
	deliver(t, c, runCmd(pending))
	require.Empty(t, c.VisiblePopups())
	require.Nil(t, c.PointerEnterLink(id))
}

func TestIndependentLinksFetchIndependently(t *testing.T) {
	fetch := &fakeFetcher{compacts: map[string]*oslc.Compact{
		"urn:a": {Title: "A"},
		"urn:b": {Title: "B"},
	}}
	c, _ := newTestCoordinator(t, fetch)
	c.OpenDialog()
	c.HandleFrameMessage(validMessage(`[{"rdf:resource":"urn:a"},{"rdf:resource":"urn:b"}]`))
	links := c.Links()

	a := c.PointerEnterLink(links[0].ID)
	c.PointerLeaveLink(links[0].ID)
	b := c.PointerEnterLink(links[1].ID)

	// resolve out of order
	deliver(t, c, runCmd(b))
	deliver(t, c, runCmd(a))

	visible := c.VisiblePopups()
	require.Len(t, visible, 2)
	require.Equal(t, links[0].ID, visible[0].LinkID)
	require.Equal(t, "A", c.Links()[0].Label)
	require.Equal(t, "B", c.Links()[1].Label)
}

func TestUpdateIgnoresForeignMessages(t *testing.T) {
	c, _ := newTestCoordinator(t, &fakeFetcher{})
	_, handled := c.Update(tea.KeyMsg{})
	require.False(t, handled)
}
