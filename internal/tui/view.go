package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/oslcbugs/internal/preview"
)

// Catppuccin Mocha, as in the rest of our terminal tools.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorLavender lipgloss.Color = "#b4befe"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	dimStyle         = lipgloss.NewStyle().Foreground(colorOverlay1)
	sectionStyle     = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(colorText)
	statusStyle      = lipgloss.NewStyle().Foreground(colorYellow)
	linkStyle        = lipgloss.NewStyle().Underline(true).Foreground(colorBlue)
	hoverLinkStyle   = linkStyle.Foreground(colorLavender).Bold(true)
	popupStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorLavender).Padding(0, 1)
	popupTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	dialogStyle      = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(colorPink).Padding(0, 1)
	helpKeyStyle     = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface1).Padding(0, 1)
	helpDescStyle    = dimStyle
	popupIndent      = 2
	pxPerColumn      = 8
	pxPerRow         = 20
	defaultPopupCols = 50
	defaultPopupRows = 15
)

type zoneKind int

const (
	zoneNone zoneKind = iota
	zoneLink
	zonePopup
)

// pointer is the surface under the (real or virtual) pointer.
type pointer struct {
	kind   zoneKind
	linkID string
}

// zone is a rectangle of the rendered view a pointer can be inside.
type zone struct {
	at         pointer
	x, y, w, h int
}

func (z zone) contains(x, y int) bool {
	return x >= z.x && x < z.x+z.w && y >= z.y && y < z.y+z.h
}

func (a *App) View() string {
	lines, _ := a.layout()
	return strings.Join(lines, "\n")
}

// layout renders the view line by line and records where links and popups
// ended up, so mouse motion can be mapped back to them.
func (a *App) layout() ([]string, []zone) {
	lines := []string{
		titleStyle.Render("OSLC bugs") + "  " + dimStyle.Render(a.service.ContainerURL()),
		a.renderHelp(),
		"",
	}

	noticeLine, zones, anchors := a.renderNotice(len(lines))
	lines = append(lines, noticeLine)

	for _, vp := range a.preview.VisiblePopups() {
		box := renderPopup(vp.Popup)
		x := anchors[vp.LinkID] + popupIndent
		boxLines := strings.Split(box, "\n")
		zones = append(zones, zone{
			at: pointer{kind: zonePopup, linkID: vp.LinkID},
			x:  x, y: len(lines), w: lipgloss.Width(box), h: len(boxLines),
		})
		pad := strings.Repeat(" ", x)
		for _, l := range boxLines {
			lines = append(lines, pad+l)
		}
	}

	if d := a.preview.Dialog(); d.State() == preview.DialogAwaitingResult {
		box := dialogStyle.Render(strings.Join([]string{
			titleStyle.Render("New bug"),
			d.URL(),
			dimStyle.Render("Waiting for the dialog to post its result to http://" + a.cfg.Dialog.ListenAddr + "/message"),
		}, "\n"))
		lines = append(lines, "")
		lines = append(lines, strings.Split(box, "\n")...)
	}

	if a.jumpOpen {
		lines = append(lines, "", "/"+a.jumpInput+"▏")
	}
	if a.status != "" {
		lines = append(lines, "", statusStyle.Render(a.status))
	}

	lines = append(lines, "", sectionStyle.Render("Bugs"))
	if a.listing == "" {
		lines = append(lines, dimStyle.Render("(nothing loaded)"))
	} else {
		lines = append(lines, strings.Split(strings.TrimRight(a.listing, "\n"), "\n")...)
	}

	if a.height > 0 && len(lines) > a.height {
		lines = lines[:a.height]
	}
	return lines, zones
}

// renderNotice renders the notification area at row y. It returns the link
// zones and the x offset of each link.
func (a *App) renderNotice(y int) (string, []zone, map[string]int) {
	var b strings.Builder
	var zones []zone
	anchors := map[string]int{}

	b.WriteString(a.notice.Text)
	x := lipgloss.Width(a.notice.Text)
	for i, l := range a.notice.Links {
		sep := " "
		if i > 0 {
			sep = "  "
		}
		b.WriteString(sep)
		x += len(sep)

		label := l.Label
		if s, ok := a.preview.Session(l.ID); ok {
			label = s.Link().Label
		}
		style := linkStyle
		if a.pointer.linkID == l.ID && a.pointer.kind != zoneNone {
			style = hoverLinkStyle
		}
		b.WriteString(style.Render(label))

		w := lipgloss.Width(label)
		zones = append(zones, zone{at: pointer{kind: zoneLink, linkID: l.ID}, x: x, y: y, w: w, h: 1})
		anchors[l.ID] = x
		x += w
	}
	return b.String(), zones, anchors
}

func (a *App) renderHelp() string {
	parts := make([]string, 0, len(a.keys.ShortHelp()))
	for _, k := range a.keys.ShortHelp() {
		parts = append(parts, helpText(k))
	}
	return strings.Join(parts, " ")
}

func helpText(k key.Binding) string {
	h := k.Help()
	return helpKeyStyle.Render(h.Key) + " " + helpDescStyle.Render(h.Desc)
}

// renderPopup draws a popup: the title, then the preview document in a frame
// sized from the size hints.
func renderPopup(p *preview.Popup) string {
	var parts []string
	if p.Title != "" {
		parts = append(parts, popupTitleStyle.Render(p.Title))
	}
	if p.Document != "" {
		cols := clamp(hintCells(p.Width, pxPerColumn, defaultPopupCols), 20, 100)
		rows := clamp(hintCells(p.Height, pxPerRow, defaultPopupRows), 2, 30)
		body := p.Body
		if body == "" {
			body = p.Document
		}
		frame := lipgloss.NewStyle().Width(cols).MaxHeight(rows).Render(body)
		parts = append(parts, frame, dimStyle.Render(fmt.Sprintf("%s  %s × %s", p.Document, p.Width, p.Height)))
	}
	return popupStyle.Render(strings.Join(parts, "\n"))
}

// hintCells converts a CSS-ish size hint such as "400px" to terminal cells.
func hintCells(hint string, pxPerCell, def int) int {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(hint), "px"))
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n / pxPerCell
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func (a *App) handleMouse(m tea.MouseMsg) tea.Cmd {
	if m.Action != tea.MouseActionMotion && m.Action != tea.MouseActionPress {
		return nil
	}
	_, zones := a.layout()
	return a.movePointer(hitTest(zones, m.X, m.Y))
}

// hitTest returns the topmost zone at x, y.
func hitTest(zones []zone, x, y int) pointer {
	for i := len(zones) - 1; i >= 0; i-- {
		if zones[i].contains(x, y) {
			return zones[i].at
		}
	}
	return pointer{}
}

// movePointer emits leave for the surface the pointer was on and enter for
// the one it is on now.
func (a *App) movePointer(to pointer) tea.Cmd {
	if to == a.pointer {
		return nil
	}
	from := a.pointer
	a.pointer = to

	var cmds []tea.Cmd
	switch from.kind {
	case zoneLink:
		cmds = append(cmds, a.preview.PointerLeaveLink(from.linkID))
	case zonePopup:
		a.preview.PointerLeavePopup(from.linkID)
	}
	switch to.kind {
	case zoneLink:
		for i, l := range a.preview.Links() {
			if l.ID == to.linkID {
				a.focus = i
			}
		}
		cmds = append(cmds, a.preview.PointerEnterLink(to.linkID))
	case zonePopup:
		a.preview.PointerEnterPopup(to.linkID)
	}
	return tea.Batch(cmds...)
}
