package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
	domain "github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

// markTemplate wraps every string so escaping is visible in assertions.
type markTemplate struct{}

func (markTemplate) AddImage(domain.NormalizedImage) (any, error) { return "img", nil }
func (markTemplate) Text(s string) string                         { return "[" + s + "]" }
func (markTemplate) Render(map[string]any) error                  { return nil }
func (markTemplate) Save(string) error                            { return nil }

func TestBuildDocumentContext(t *testing.T) {
	app := &applications.Application{
		Name:       "Portal",
		StartDate:  "01-06-2024",
		EndDate:    "2024-06-22",
		Status:     applications.StatusCompleted,
		AppDetails: []applications.AppDetail{{Name: "web", Version: "2.1", URL: "https://portal"}},
		Pentesters: []applications.Pentester{{Name: "Ana", Role: "Lead", Email: "ana@example.com"}},
		TestCredentials: []applications.Credential{
			{"username": "tester", "pin": float64(1234), "roles": []any{"admin"}},
		},
	}
	vulns := []vulnerabilities.Vulnerability{
		{ID: "V2", Title: "SQLi", Severity: "Critical", CVSS: 9.8, Steps: []vulnerabilities.Step{
			{Description: "one", Screenshot: "a.png"},
			{Description: "two"},
		}},
		{ID: "V1", Title: "XSS", Severity: "Medium", CVSS: 4},
	}

	var calls []string
	ctx := BuildDocumentContext(markTemplate{}, app, vulns, func(vulnID string, step int, ref string) any {
		calls = append(calls, vulnID+":"+ref)
		if ref == "" {
			return ""
		}
		return "picture"
	})

	assert.Equal(t, "[Portal]", ctx["app_name"])
	assert.Equal(t, "[completed]", ctx["status"])
	assert.Equal(t, "[1st June 2024]", ctx["start_date"])
	assert.Equal(t, "[22nd June 2024]", ctx["end_date"])

	summary := ctx["vulnerabilities"].([]map[string]any)
	require.Len(t, summary, 2)
	assert.Equal(t, map[string]any{
		"vulnerability_id": "[V2]",
		"title":            "[SQLi]",
		"cvss_score":       "9.8",
		"severity":         "[Critical]",
	}, summary[0])
	assert.Equal(t, "4.0", summary[1]["cvss_score"])

	details := ctx["vuln_details"].([]map[string]any)
	require.Len(t, details, 2)
	steps := details[0]["step_entries"].([]map[string]any)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0]["index"])
	assert.Equal(t, "[one]", steps[0]["description"])
	assert.Equal(t, "picture", steps[0]["screenshot"])
	assert.Equal(t, "", steps[1]["screenshot"])
	assert.Empty(t, details[1]["step_entries"])
	assert.Equal(t, []string{"V2:a.png", "V2:"}, calls)

	for _, key := range []string{"title", "vulnerability_id", "summary", "description", "business_impact",
		"severity", "cvss_score", "cvss_vector", "affected_url", "recommendation", "cwe_id", "reference"} {
		assert.Contains(t, details[0], key)
	}

	assert.Equal(t, []map[string]any{{"index": 1, "app_name": "[web]", "app_version": "[2.1]", "app_url": "[https://portal]"}}, ctx["app_details"])
	assert.Equal(t, []map[string]any{{"pentester_name": "[Ana]", "pentester_role": "[Lead]", "pentester_email": "[ana@example.com]"}}, ctx["pentesters"])

	creds := ctx["test_credentials"].([]any)
	require.Len(t, creds, 1)
	assert.Equal(t, map[string]any{"username": "[tester]", "pin": "1234", "roles": []any{"[admin]"}}, creds[0])

	counts := ctx["severity_counts"].(map[string]int)
	assert.Equal(t, 1, counts["critical"])
	assert.Equal(t, 1, counts["medium"])
	assert.Equal(t, 2, counts["total"])
}

func TestBuildDocumentContextWithoutScreenshotFunc(t *testing.T) {
	app := &applications.Application{Name: "x"}
	vulns := []vulnerabilities.Vulnerability{{ID: "V1", Steps: []vulnerabilities.Step{{Screenshot: "a.png"}}}}

	ctx := BuildDocumentContext(markTemplate{}, app, vulns, nil)

	steps := ctx["vuln_details"].([]map[string]any)[0]["step_entries"].([]map[string]any)
	assert.Equal(t, "", steps[0]["screenshot"])
}

func TestHumanDate(t *testing.T) {
	tests := map[string]string{
		"05-06-2024": "5th June 2024",
		"2024-06-01": "1st June 2024",
		"2024-06-02": "2nd June 2024",
		"2024-06-03": "3rd June 2024",
		"11-06-2024": "11th June 2024",
		"12-06-2024": "12th June 2024",
		"13-06-2024": "13th June 2024",
		"2024-06-21": "21st June 2024",
		"2024-06-23": "23rd June 2024",
		"31-12-2024": "31st December 2024",
		" TBD ":      " TBD ",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, HumanDate(in), in)
	}
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "GW_Customer_Portal_API_Penetration_Test_Report.docx", DocumentFileName("Customer Portal/API"))
	assert.Equal(t, `GW_a_b_Penetration_Test_Report.docx`, DocumentFileName(`a\b`))
	assert.Equal(t, "GW_Report_Penetration_Test_Report.docx", DocumentFileName("  "))
	assert.Equal(t, "GW_Portal_Excel_Findings_0.xlsx", SpreadsheetFileName("Portal", 0))
	assert.Equal(t, "GW_Mobile_App_Excel_Findings_12.xlsx", SpreadsheetFileName("Mobile App", 12))
}

func TestSeverityShades(t *testing.T) {
	tables := [][][]string{
		{
			{"ID", "Risk Rating", "Severity"},
			{"V1", "Critical", "Low"},
			{"V2", " high ", ""},
			{"V3", "Unknown", "Info"},
		},
		{
			{"Severity", "Medium"},
			{"CVSS", "5.0"},
		},
		{
			{"Name", "Severity"},
			{"Severity", "High"},
		},
		{},
		{{"severity"}},
	}

	shades := SeverityShades(tables)

	assert.Equal(t, []Shade{
		{Cell: domain.CellRef{Table: 0, Row: 1, Col: 1}, Color: "C00000"},
		{Cell: domain.CellRef{Table: 0, Row: 2, Col: 1}, Color: "EE0000"},
		{Cell: domain.CellRef{Table: 1, Row: 0, Col: 1}, Color: "FFC000"},
		{Cell: domain.CellRef{Table: 2, Row: 1, Col: 1}, Color: "EE0000"},
	}, shades)
}

type fakeDoc struct {
	tables     [][][]string
	paragraphs int
	images     int
	styled     []domain.ParagraphRef
	outlined   []domain.ImageRef
	fills      map[domain.CellRef]string
	saved      bool
	fail       bool
}

func (d *fakeDoc) Tables() [][][]string { return d.tables }
func (d *fakeDoc) ImageParagraphs() []domain.ParagraphRef {
	out := make([]domain.ParagraphRef, d.paragraphs)
	for i := range out {
		out[i] = domain.ParagraphRef(i)
	}
	return out
}
func (d *fakeDoc) Images() []domain.ImageRef {
	out := make([]domain.ImageRef, d.images)
	for i := range out {
		out[i] = domain.ImageRef(i)
	}
	return out
}
func (d *fakeDoc) SetCellFill(ref domain.CellRef, color string) error {
	if d.fills == nil {
		d.fills = map[domain.CellRef]string{}
	}
	d.fills[ref] = color
	return nil
}
func (d *fakeDoc) SetParagraphStyle(ref domain.ParagraphRef, align domain.Alignment, before, after int) error {
	if d.fail {
		return assert.AnError
	}
	if align == domain.AlignCenter && before == 0 && after == 0 {
		d.styled = append(d.styled, ref)
	}
	return nil
}
func (d *fakeDoc) AddShapeOutline(ref domain.ImageRef, widthPt float64, color string) error {
	d.outlined = append(d.outlined, ref)
	return nil
}
func (d *fakeDoc) Save() error {
	d.saved = true
	return nil
}

func TestPostprocess(t *testing.T) {
	doc := &fakeDoc{
		tables:     [][][]string{{{"Severity", "low"}}},
		paragraphs: 3,
		images:     2,
	}

	require.NoError(t, Postprocess(doc, Options{}))
	assert.Len(t, doc.styled, 3)
	assert.Empty(t, doc.outlined)
	assert.Equal(t, map[domain.CellRef]string{{Table: 0, Row: 0, Col: 1}: "00B050"}, doc.fills)
	assert.True(t, doc.saved)

	doc = &fakeDoc{images: 2}
	require.NoError(t, Postprocess(doc, Options{PictureOutline: true, OutlineWidthPt: 1, OutlineColor: "000000"}))
	assert.Len(t, doc.outlined, 2)
}

func TestPostprocessStopsOnError(t *testing.T) {
	doc := &fakeDoc{paragraphs: 1, fail: true}

	err := Postprocess(doc, Options{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, doc.saved)
}
