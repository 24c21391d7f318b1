package preview

import "github.com/jask/oslcbugs/internal/ui"

// HoverState is the preview state of one link.
type HoverState int

const (
	// Idle: no popup, nothing in flight.
	Idle HoverState = iota
	// Loading: the compact representation is being fetched.
	Loading
	// Shown: the popup is visible.
	Shown
	// HiddenPending: the popup is visible and a dismissal is scheduled.
	HiddenPending
	// Hidden: the popup faded out but is kept for the next hover.
	Hidden
)

func (s HoverState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Shown:
		return "shown"
	case HiddenPending:
		return "hidden-pending"
	case Hidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// Effect is what a transition asks the host to do.
type Effect uint8

const (
	EffectFetch Effect = 1 << iota
	EffectFadeIn
	EffectFadeOut
	EffectScheduleDismiss
)

// Has reports whether e includes f.
func (e Effect) Has(f Effect) bool { return e&f != 0 }

// Session is the hover state machine of one link. Its popup is built at
// most once and reused for the lifetime of the link.
type Session struct {
	link          ui.Link
	state         HoverState
	popup         *Popup
	insideLink    bool
	insidePopup   bool
	dismissSerial uint64
}

func newSession(link ui.Link) *Session {
	return &Session{link: link}
}

// State returns the current state.
func (s *Session) State() HoverState { return s.state }

// Link returns the link, with its label replaced by the resource title once
// the preview resolved.
func (s *Session) Link() ui.Link { return s.link }

// Popup returns the cached popup, or nil before the first successful fetch.
func (s *Session) Popup() *Popup { return s.popup }

// Visible reports whether the popup is on screen.
func (s *Session) Visible() bool {
	return s.popup != nil && (s.state == Shown || s.state == HiddenPending)
}

// PointerInsidePopup reports the popup's own hover flag.
func (s *Session) PointerInsidePopup() bool { return s.insidePopup }

// DismissSerial identifies the latest scheduled dismissal.
func (s *Session) DismissSerial() uint64 { return s.dismissSerial }

// EnterLink handles the pointer entering the link.
func (s *Session) EnterLink() Effect {
	s.insideLink = true
	switch s.state {
	case Idle:
		s.state = Loading
		return EffectFetch
	case HiddenPending, Hidden:
		s.state = Shown
		return EffectFadeIn
	}
	return 0
}

// LeaveLink handles the pointer leaving the link.
func (s *Session) LeaveLink() Effect {
	s.insideLink = false
	switch s.state {
	case Shown, HiddenPending:
		s.state = HiddenPending
		s.dismissSerial++
		return EffectScheduleDismiss
	}
	return 0
}

// EnterPopup handles the pointer entering the visible popup.
func (s *Session) EnterPopup() Effect {
	if !s.Visible() {
		return 0
	}
	s.insidePopup = true
	if s.state == HiddenPending {
		s.state = Shown
	}
	return 0
}

// LeavePopup clears the popup hover flag. Hiding is left to the link's
// dismissal timer.
func (s *Session) LeavePopup() Effect {
	s.insidePopup = false
	return 0
}

// Resolve completes the fetch. A nil popup means there was nothing to
// preview and the next hover fetches again. The popup is shown even if the
// pointer already left the link.
func (s *Session) Resolve(p *Popup) Effect {
	if s.state != Loading {
		return 0
	}
	if p == nil {
		s.state = Idle
		return 0
	}
	s.popup = p
	if p.Title != "" {
		s.link.Label = p.Title
	}
	s.state = Shown
	return EffectFadeIn
}

// Dismiss handles a fired dismissal timer. Only the latest timer counts,
// and only while the pointer is outside both surfaces.
func (s *Session) Dismiss(serial uint64) Effect {
	if s.state != HiddenPending || serial != s.dismissSerial {
		return 0
	}
	if s.insidePopup || s.insideLink {
		return 0
	}
	s.state = Hidden
	return EffectFadeOut
}
