package vulnerabilities

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Score is a CVSS base score. Stored records carry it either as a number or
// as a string; anything that does not parse reads as 0.
type Score float64

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = 0
	switch x := v.(type) {
	case float64:
		*s = Score(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*s = Score(f)
		}
	}
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(s), 'f', -1, 64)), nil
}

// String renders the score with at least one decimal ("4.0", "9.8").
func (s Score) String() string {
	out := strconv.FormatFloat(float64(s), 'f', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	return out
}

// Step is one reproduction action. Screenshot is a logical file name and may
// point at nothing.
type Step struct {
	Description string `json:"description"`
	Screenshot  string `json:"screenshot"`
}

// Vulnerability is a single finding owned by one application.
type Vulnerability struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Description    string   `json:"description"`
	Impact         string   `json:"impact"`
	Severity       Severity `json:"severity"`
	CVSS           Score    `json:"cvss"`
	CVSSVector     string   `json:"cvss_vector"`
	URL            string   `json:"url"`
	Recommendation string   `json:"recommendation"`
	CWE            string   `json:"cwe"`
	Reference      string   `json:"reference"`
	Steps          []Step   `json:"steps"`
	CreatedAt      string   `json:"created_at,omitempty"`
	ModifiedBy     string   `json:"modified_by,omitempty"`
}

// UnmarshalJSON coerces an absent or malformed steps field to an empty list.
func (v *Vulnerability) UnmarshalJSON(b []byte) error {
	type plain Vulnerability
	var aux struct {
		plain
		Steps json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*v = Vulnerability(aux.plain)
	v.Steps = decodeSteps(aux.Steps)
	return nil
}

func decodeSteps(raw json.RawMessage) []Step {
	steps := []Step{}
	if len(raw) == 0 {
		return steps
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return steps
	}
	for _, it := range items {
		var st Step
		if err := json.Unmarshal(it, &st); err != nil {
			continue
		}
		steps = append(steps, st)
	}
	return steps
}

// Normalize guarantees a non-nil step list.
func (v *Vulnerability) Normalize() {
	if v.Steps == nil {
		v.Steps = []Step{}
	}
}

// SortByCVSS returns a copy ordered by score, highest first. Ties keep their
// original relative order.
func SortByCVSS(in []Vulnerability) []Vulnerability {
	out := make([]Vulnerability, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CVSS > out[j].CVSS
	})
	return out
}
