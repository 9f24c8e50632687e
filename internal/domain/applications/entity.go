package applications

import (
	"strings"
	"time"
)

// Status enum
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on-hold"
	StatusCancelled  Status = "cancelled"
)

var statusAliases = map[string]Status{
	"inprogress":  StatusInProgress,
	"in-progress": StatusInProgress,
	"in progress": StatusInProgress,
	"completed":   StatusCompleted,
	"onhold":      StatusOnHold,
	"on-hold":     StatusOnHold,
	"on hold":     StatusOnHold,
	"cancelled":   StatusCancelled,
}

// ParseStatus maps user input onto the closed status set.
// Unknown input reports ok=false.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// AppDetail is one component in scope for the engagement.
type AppDetail struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Pentester is a tester assigned to the engagement.
type Pentester struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// Credential is an opaque test credential record, rendered as-is.
type Credential map[string]any

// Aggregate Root: Application
type Application struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	StartDate       string       `json:"start_date"`
	EndDate         string       `json:"end_date"`
	Status          Status       `json:"status"`
	AppDetails      []AppDetail  `json:"app_details"`
	Pentesters      []Pentester  `json:"pentesters"`
	TestCredentials []Credential `json:"test_credentials"`
}

// Normalize fills defaults so callers never see nil lists or an empty status.
// Known status aliases are folded onto their canonical value; anything else
// is kept as stored.
func (a *Application) Normalize() {
	if a.AppDetails == nil {
		a.AppDetails = []AppDetail{}
	}
	if a.Pentesters == nil {
		a.Pentesters = []Pentester{}
	}
	if a.TestCredentials == nil {
		a.TestCredentials = []Credential{}
	}
	if strings.TrimSpace(string(a.Status)) == "" {
		a.Status = StatusInProgress
	} else if s, ok := ParseStatus(string(a.Status)); ok {
		a.Status = s
	}
}

// Accepted stored date layouts, in lookup order.
const (
	LayoutISO     = "2006-01-02"
	LayoutDisplay = "02-01-2006"
	LayoutSlashed = "2006/01/02"
)

// ParseDate accepts YYYY-MM-DD or DD-MM-YYYY.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{LayoutISO, LayoutDisplay} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate rewrites YYYY-MM-DD to DD-MM-YYYY. Other input is returned unchanged.
func NormalizeDate(s string) string {
	t, err := time.Parse(LayoutISO, strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format(LayoutDisplay)
}
