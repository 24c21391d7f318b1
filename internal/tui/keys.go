package tui

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/oslcbugs/internal/ui"
)

type keyMap struct {
	OpenDialog key.Binding
	Samples    key.Binding
	Refresh    key.Binding
	NextLink   key.Binding
	PrevLink   key.Binding
	IntoPopup  key.Binding
	Away       key.Binding
	Jump       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		OpenDialog: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open bug dialog")),
		Samples:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "create sample bugs")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload bugs")),
		NextLink:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "hover next link")),
		PrevLink:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "hover previous link")),
		IntoPopup:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "into preview")),
		Away:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "pointer away")),
		Jump:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "jump to link")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.OpenDialog, k.Samples, k.Refresh, k.NextLink, k.IntoPopup, k.Jump, k.Quit}
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if a.jumpOpen {
		return a.handleJumpKey(msg)
	}
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.OpenDialog):
		return a.preview.OpenDialog()
	case key.Matches(msg, a.keys.Samples):
		return a.createSamplesCmd()
	case key.Matches(msg, a.keys.Refresh):
		return a.loadListing()
	case key.Matches(msg, a.keys.NextLink):
		return a.focusLink(1)
	case key.Matches(msg, a.keys.PrevLink):
		return a.focusLink(-1)
	case key.Matches(msg, a.keys.IntoPopup):
		if a.pointer.kind != zoneLink {
			return nil
		}
		s, ok := a.preview.Session(a.pointer.linkID)
		if !ok || !s.Visible() {
			return nil
		}
		return a.movePointer(pointer{kind: zonePopup, linkID: a.pointer.linkID})
	case key.Matches(msg, a.keys.Away):
		a.focus = -1
		return a.movePointer(pointer{})
	case key.Matches(msg, a.keys.Jump):
		a.jumpOpen = true
		a.jumpInput = ""
		return nil
	}
	return nil
}

func (a *App) handleJumpKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		a.jumpOpen = false
		return nil
	case tea.KeyEnter:
		a.jumpOpen = false
		links := a.preview.Links()
		i := nearestLink(links, a.jumpInput)
		if i < 0 {
			a.status = "No link matches " + a.jumpInput
			return nil
		}
		a.focus = i
		return a.movePointer(pointer{kind: zoneLink, linkID: links[i].ID})
	case tea.KeyBackspace:
		if r := []rune(a.jumpInput); len(r) > 0 {
			a.jumpInput = string(r[:len(r)-1])
		}
		return nil
	case tea.KeySpace:
		a.jumpInput += " "
		return nil
	case tea.KeyRunes:
		a.jumpInput += string(msg.Runes)
		return nil
	}
	return nil
}

// focusLink moves the virtual pointer to the next or previous link.
func (a *App) focusLink(step int) tea.Cmd {
	links := a.preview.Links()
	if len(links) == 0 {
		return nil
	}
	n := len(links)
	switch {
	case a.focus < 0 && step > 0:
		a.focus = 0
	case a.focus < 0:
		a.focus = n - 1
	default:
		a.focus = ((a.focus+step)%n + n) % n
	}
	return a.movePointer(pointer{kind: zoneLink, linkID: links[a.focus].ID})
}

// nearestLink returns the index of the link whose label is closest to query,
// preferring labels that contain it. It returns -1 for an empty query or no links.
func nearestLink(links []ui.Link, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return -1
	}
	best, bestDist := -1, 0
	for i, l := range links {
		label := strings.ToLower(l.Label)
		d := levenshtein.ComputeDistance(q, label)
		if strings.Contains(label, q) {
			d = 0
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
