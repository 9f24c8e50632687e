package vulnerabilities

import "strings"

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// UnknownColor is used for severities outside the closed set.
const UnknownColor = "000000"

// ParseSeverity is case-insensitive and ignores surrounding whitespace.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Color returns the hex fill used when shading severity cells.
func (s Severity) Color() string {
	switch s {
	case SeverityCritical:
		return "C00000"
	case SeverityHigh:
		return "EE0000"
	case SeverityMedium:
		return "FFC000"
	case SeverityLow:
		return "00B050"
	case SeverityInfo:
		return "0070C0"
	default:
		return UnknownColor
	}
}

// ColorFor maps free text onto a fill color, "000000" when unknown.
func ColorFor(raw string) string {
	s, _ := ParseSeverity(raw)
	return s.Color()
}

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Add counts one finding. Unknown severities only bump Total.
func (c *SeverityCounts) Add(raw string) {
	c.Total++
	s, _ := ParseSeverity(raw)
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	case SeverityInfo:
		c.Info++
	}
}

// NonZero returns only the severities that occurred, keyed by name.
func (c SeverityCounts) NonZero() map[string]int {
	out := map[string]int{}
	for k, v := range map[Severity]int{
		SeverityCritical: c.Critical,
		SeverityHigh:     c.High,
		SeverityMedium:   c.Medium,
		SeverityLow:      c.Low,
		SeverityInfo:     c.Info,
	} {
		if v > 0 {
			out[string(k)] = v
		}
	}
	return out
}
