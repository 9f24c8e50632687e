package xlsx

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

func newTemplate(t *testing.T, header bool) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if header {
		for i, h := range []string{"App Name", "URL", "ID", "CVSS", "", "Title", "Description", "Impact", "", "Recommendation", "Reference", "Tag"} {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, h))
		}
	}
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestAppendFindingAfterLastUsedRow(t *testing.T) {
	wb, err := OpenWorkbook(newTemplate(t, true))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, "Sheet1", wb.Sheet())

	r, err := wb.AppendFinding(reports.FindingRow{
		AppName:        "Portal",
		URL:            "https://portal.example.com/login",
		VulnID:         "V2",
		CVSS:           9.8,
		Title:          "SQL Injection",
		Impact:         "Data loss",
		Recommendation: "Use prepared statements",
		Reference:      "OWASP A03",
		Description: []reports.TextRun{
			{Text: "Redacted Summary:\n", Bold: true},
			{Text: "login form\n\n"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r)

	r, err = wb.AppendFinding(reports.FindingRow{AppName: "Portal", VulnID: "V1", CVSS: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, r)

	out := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, wb.SaveAs(out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue("Sheet1", cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "App Name", get("A1"))
	assert.Equal(t, "Portal", get("A2"))
	assert.Equal(t, "https://portal.example.com/login", get("B2"))
	assert.Equal(t, "V2", get("C2"))
	assert.Equal(t, "9.8", get("D2"))
	assert.Equal(t, "", get("E2"))
	assert.Equal(t, "SQL Injection", get("F2"))
	assert.Equal(t, "Data loss", get("H2"))
	assert.Equal(t, "", get("I2"))
	assert.Equal(t, "Use prepared statements", get("J2"))
	assert.Equal(t, "OWASP A03", get("K2"))
	assert.Equal(t, "V1", get("C3"))

	formula, err := f.GetCellFormula("Sheet1", "L2")
	require.NoError(t, err)
	assert.Equal(t, `A2&", "&C2&", "&F2`, formula)
	formula, err = f.GetCellFormula("Sheet1", "L3")
	require.NoError(t, err)
	assert.Equal(t, `A3&", "&C3&", "&F3`, formula)

	runs, err := f.GetCellRichText("Sheet1", "G2")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "Redacted Summary:\n", runs[0].Text)
	require.NotNil(t, runs[0].Font)
	assert.True(t, runs[0].Font.Bold)
	assert.Equal(t, "login form\n\n", runs[1].Text)
}

func TestAppendFindingIntoEmptySheet(t *testing.T) {
	wb, err := Engine{}.OpenWorkbook(newTemplate(t, false))
	require.NoError(t, err)
	defer wb.Close()

	r, err := wb.AppendFinding(reports.FindingRow{VulnID: "V1"})
	require.NoError(t, err)
	assert.Equal(t, 1, r)
}

func TestOpenWorkbookMissingFile(t *testing.T) {
	_, err := Engine{}.OpenWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func TestAppendFindingKeepsTemplateStyle(t *testing.T) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 9},
		Border: []excelize.Border{{Type: "left", Color: "000000", Style: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, f.SetColStyle("Sheet1", "G", bold))
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "App Name"))
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()
	row := reports.FindingRow{Title: "XSS", Description: []reports.TextRun{{Text: "Description:\n", Bold: true}, {Text: "reflected"}}}
	r2, err := wb.AppendFinding(row)
	require.NoError(t, err)
	r3, err := wb.AppendFinding(row)
	require.NoError(t, err)

	id2, err := wb.f.GetCellStyle("Sheet1", "G"+strconv.Itoa(r2))
	require.NoError(t, err)
	id3, err := wb.f.GetCellStyle("Sheet1", "G"+strconv.Itoa(r3))
	require.NoError(t, err)
	assert.Equal(t, id2, id3)

	st, err := wb.f.GetStyle(id2)
	require.NoError(t, err)
	require.NotNil(t, st.Font)
	assert.True(t, st.Font.Bold)
	assert.Equal(t, 9.0, st.Font.Size)
	assert.NotEmpty(t, st.Border)
	require.NotNil(t, st.Alignment)
	assert.True(t, st.Alignment.WrapText)
}
