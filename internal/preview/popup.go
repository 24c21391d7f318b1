package preview

import (
	"strings"

	"github.com/jask/oslcbugs/internal/oslc"
)

// Popup is the floating preview of a link.
type Popup struct {
	Title    string
	Document string
	Width    string
	Height   string
	// Body is the rendered preview document, when it could be fetched.
	Body string
}

// newPopup builds a popup from compact. It returns nil when compact has
// neither a title nor a preview document.
func newPopup(compact *oslc.Compact, defaultWidth, defaultHeight string) *Popup {
	if compact == nil {
		return nil
	}
	p := &Popup{Title: strings.TrimSpace(compact.Title)}
	if pv := compact.PreferredPreview(); pv != nil && pv.Document != "" {
		p.Document = pv.Document
		p.Width = orDefault(pv.HintWidth, defaultWidth)
		p.Height = orDefault(pv.HintHeight, defaultHeight)
	}
	if p.Title == "" && p.Document == "" {
		return nil
	}
	return p
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
