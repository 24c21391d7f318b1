package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/oslcbugs/internal/ui"
)

// ProgramSink is a ui.Sink for writers off the event loop, such as the
// creation pipeline. Each write is posted to the program as a message so
// the App applies it on the loop.
type ProgramSink struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ ui.Sink = (*ProgramSink)(nil)

// NewProgramSink returns a sink that drops writes until Attach is called.
func NewProgramSink() *ProgramSink { return &ProgramSink{} }

// Attach routes writes to send, usually (*tea.Program).Send.
func (s *ProgramSink) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *ProgramSink) ShowMessage(text string, links ...ui.Link) {
	s.post(noticeMsg{Text: text, Links: append([]ui.Link(nil), links...)})
}

func (s *ProgramSink) ShowListing(text string) { s.post(listingMsg{text: text}) }

func (s *ProgramSink) RefreshListing() { s.post(refreshRequestMsg{}) }

func (s *ProgramSink) post(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}
