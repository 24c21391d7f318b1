package creation

import "github.com/jask/oslcbugs/internal/oslc"

// SampleBatch returns the demo defects in creation order.
func SampleBatch() Batch {
	return Batch{
		{
			Title:       "Product Z is too blue.",
			Severity:    oslc.SeverityNormal,
			Description: "Let's use some other colors, OK?",
		},
		{
			Title:       "Product Z isn't blue enough.",
			Severity:    oslc.SeverityNormal,
			Description: "I thought we wanted the UI to look really blue? What happened?",
		},
		{
			Title:       "Product Z crashes on startup",
			Severity:    oslc.SeverityBlocker,
			Description: "I'm completed blocked! We need a fix ASAP.",
		},
		{
			Title:       "Typo on login page",
			Severity:    oslc.SeverityMinor,
			Description: "User is spelled 'luser'. I'm going to assume this is a mistake.",
		},
	}
}
