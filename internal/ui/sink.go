// Package ui holds the capabilities the pipeline and the preview
// coordinator use to write to the screen.
package ui

// Link is a visible link in the notification area.
type Link struct {
	ID    string
	Label string
	Href  string
}

// Sink is the page surface. Every write is a full replace.
type Sink interface {
	// ShowMessage replaces the notification area with text followed by links.
	ShowMessage(text string, links ...Link)
	// ShowListing replaces the container listing.
	ShowListing(text string)
	// RefreshListing asks the host to re-fetch and redisplay the listing.
	RefreshListing()
}

// Notice is one write to the notification area.
type Notice struct {
	Text  string
	Links []Link
}

// Recorder is a Sink that keeps every write, for tests and headless runs.
type Recorder struct {
	Notices   []Notice
	Listings  []string
	Refreshes int
}

func (r *Recorder) ShowMessage(text string, links ...Link) {
	r.Notices = append(r.Notices, Notice{Text: text, Links: append([]Link(nil), links...)})
}

func (r *Recorder) ShowListing(text string) { r.Listings = append(r.Listings, text) }

func (r *Recorder) RefreshListing() { r.Refreshes++ }

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	if len(r.Notices) == 0 {
		return Notice{}, false
	}
	return r.Notices[len(r.Notices)-1], true
}
