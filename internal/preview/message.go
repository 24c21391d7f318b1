package preview

import (
	"encoding/json"
	"strings"
)

// ResponsePrefix marks a frame message as a delegated dialog response.
const ResponsePrefix = "oslc-response:"

// FrameMessage is a message posted by the dialog frame.
type FrameMessage struct {
	Origin string
	Data   string
}

// Result is one resource selected or created in the dialog.
type Result struct {
	Label    string `json:"oslc:label"`
	Resource string `json:"rdf:resource"`
}

// DisplayLabel returns the label, or the resource URI when there is none.
func (r Result) DisplayLabel() string {
	if strings.TrimSpace(r.Label) != "" {
		return r.Label
	}
	return r.Resource
}

type response struct {
	Results []Result `json:"oslc:results"`
}

// ParseResponse validates msg against the hosting origin and decodes its
// results. Messages from another origin, without the prefix, or with a
// payload that does not decode are rejected. Results without a resource
// URI are skipped.
func ParseResponse(msg FrameMessage, origin string) ([]Result, bool) {
	if msg.Origin != origin {
		return nil, false
	}
	payload, ok := strings.CutPrefix(msg.Data, ResponsePrefix)
	if !ok {
		return nil, false
	}
	var resp response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, false
	}
	out := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		if strings.TrimSpace(r.Resource) == "" {
			continue
		}
		out = append(out, r)
	}
	return out, true
}
