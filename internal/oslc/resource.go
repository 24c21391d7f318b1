package oslc

// Namespaces used by the change management vocabulary.
const (
	NamespaceCM      = "http://open-services.net/ns/cm#"
	NamespaceDCTerms = "http://purl.org/dc/terms/"
)

// Severities understood by the sample service.
const (
	SeverityBlocker = "oslc_cm:Blocker"
	SeverityNormal  = "oslc_cm:Normal"
	SeverityMinor   = "oslc_cm:Minor"
)

// Draft is a defect that has not been created yet.
type Draft struct {
	Title       string
	Severity    string
	Description string
}

// Context returns the JSON-LD context used when creating defects.
func Context() map[string]any {
	return map[string]any{
		"oslc_cm":     NamespaceCM,
		"dcterms":     NamespaceDCTerms,
		"Defect":      "oslc_cm:Defect",
		"description": "dcterms:description",
		"severity": map[string]any{
			"@id":   "oslc_cm:severity",
			"@type": "@id",
		},
		"title": "dcterms:title",
	}
}

// Representation returns the JSON-LD body for d. Empty fields are omitted.
func (d Draft) Representation() map[string]any {
	out := map[string]any{
		"@id":      "",
		"@type":    "Defect",
		"@context": Context(),
	}
	for k, v := range map[string]string{
		"title":       d.Title,
		"severity":    d.Severity,
		"description": d.Description,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Compact is the compact rendering of a resource.
type Compact struct {
	Title        string   `json:"title,omitempty"`
	SmallPreview *Preview `json:"smallPreview,omitempty"`
	LargePreview *Preview `json:"largePreview,omitempty"`
}

// Preview points at an embeddable preview document with optional size hints.
type Preview struct {
	Document   string `json:"document"`
	HintWidth  string `json:"hintWidth,omitempty"`
	HintHeight string `json:"hintHeight,omitempty"`
}

// PreferredPreview returns the small preview, falling back to the large one.
func (c *Compact) PreferredPreview() *Preview {
	if c == nil {
		return nil
	}
	if c.SmallPreview != nil {
		return c.SmallPreview
	}
	return c.LargePreview
}
