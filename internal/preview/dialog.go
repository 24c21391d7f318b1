package preview

// DialogState is the state of the delegated creation dialog.
type DialogState int

const (
	DialogClosed DialogState = iota
	DialogAwaitingResult
)

func (s DialogState) String() string {
	switch s {
	case DialogClosed:
		return "closed"
	case DialogAwaitingResult:
		return "awaiting-result"
	default:
		return "unknown"
	}
}

// Dialog tracks the embedded dialog frame. It only closes on a valid
// response; there is no timeout.
type Dialog struct {
	state DialogState
	url   string
}

// State returns the current state.
func (d *Dialog) State() DialogState { return d.state }

// URL returns the embedded document while the dialog is open.
func (d *Dialog) URL() string { return d.url }

// Open embeds url. It reports false when a dialog is already open.
func (d *Dialog) Open(url string) bool {
	if d.state == DialogAwaitingResult {
		return false
	}
	d.state = DialogAwaitingResult
	d.url = url
	return true
}

// Accept closes the dialog if msg is a valid response from origin.
// Anything else leaves the state untouched.
func (d *Dialog) Accept(msg FrameMessage, origin string) ([]Result, bool) {
	if d.state != DialogAwaitingResult {
		return nil, false
	}
	results, ok := ParseResponse(msg, origin)
	if !ok {
		return nil, false
	}
	d.state = DialogClosed
	d.url = ""
	return results, true
}
