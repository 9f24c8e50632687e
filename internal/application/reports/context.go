package reports

import (
	"strconv"

	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
	domain "github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

// ScreenshotFunc returns the context value for one step's screenshot:
// an embedded image, or "" when there is nothing usable.
type ScreenshotFunc func(vulnID string, step int, ref string) any

// BuildDocumentContext assembles the merge-field values for the report
// template. vulns must already be in report order.
func BuildDocumentContext(tpl domain.DocumentTemplate, app *applications.Application, vulns []vulnerabilities.Vulnerability, shot ScreenshotFunc) map[string]any {
	text := tpl.Text

	summary := make([]map[string]any, 0, len(vulns))
	details := make([]map[string]any, 0, len(vulns))
	var counts vulnerabilities.SeverityCounts
	for _, v := range vulns {
		counts.Add(string(v.Severity))
		summary = append(summary, map[string]any{
			"vulnerability_id": text(v.ID),
			"title":            text(v.Title),
			"cvss_score":       v.CVSS.String(),
			"severity":         text(string(v.Severity)),
		})

		steps := make([]map[string]any, 0, len(v.Steps))
		for i, st := range v.Steps {
			var img any = ""
			if shot != nil {
				img = shot(v.ID, i+1, st.Screenshot)
			}
			steps = append(steps, map[string]any{
				"index":       i + 1,
				"description": text(st.Description),
				"screenshot":  img,
			})
		}
		details = append(details, map[string]any{
			"title":            text(v.Title),
			"vulnerability_id": text(v.ID),
			"summary":          text(v.Summary),
			"description":      text(v.Description),
			"business_impact":  text(v.Impact),
			"severity":         text(string(v.Severity)),
			"cvss_score":       v.CVSS.String(),
			"cvss_vector":      text(v.CVSSVector),
			"affected_url":     text(v.URL),
			"recommendation":   text(v.Recommendation),
			"cwe_id":           text(v.CWE),
			"reference":        text(v.Reference),
			"step_entries":     steps,
		})
	}

	appDetails := make([]map[string]any, 0, len(app.AppDetails))
	for i, d := range app.AppDetails {
		appDetails = append(appDetails, map[string]any{
			"index":       i + 1,
			"app_name":    text(d.Name),
			"app_version": text(d.Version),
			"app_url":     text(d.URL),
		})
	}
	pentesters := make([]map[string]any, 0, len(app.Pentesters))
	for _, p := range app.Pentesters {
		pentesters = append(pentesters, map[string]any{
			"pentester_name":  text(p.Name),
			"pentester_role":  text(p.Role),
			"pentester_email": text(p.Email),
		})
	}
	creds := make([]any, 0, len(app.TestCredentials))
	for _, c := range app.TestCredentials {
		creds = append(creds, escapeValue(map[string]any(c), text))
	}

	return map[string]any{
		"app_name":         text(app.Name),
		"app_description":  text(app.Description),
		"status":           text(string(app.Status)),
		"start_date":       text(HumanDate(app.StartDate)),
		"end_date":         text(HumanDate(app.EndDate)),
		"vulnerabilities":  summary,
		"vuln_details":     details,
		"app_details":      appDetails,
		"pentesters":       pentesters,
		"test_credentials": creds,
		"severity_counts": map[string]int{
			"critical": counts.Critical,
			"high":     counts.High,
			"medium":   counts.Medium,
			"low":      counts.Low,
			"info":     counts.Info,
			"total":    counts.Total,
		},
	}
}

// escapeValue walks an opaque credential record and runs its strings through text.
func escapeValue(v any, text func(string) string) any {
	switch x := v.(type) {
	case string:
		return text(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = escapeValue(val, text)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = escapeValue(val, text)
		}
		return out
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return v
	}
}
