package reports_test

import (
	"archive/zip"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`
	docOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`
	docClose = `</w:body></w:document>`
)

func para(text string) string {
	return `<w:p><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func row(cells ...string) string {
	var b strings.Builder
	b.WriteString(`<w:tr>`)
	for _, c := range cells {
		b.WriteString(`<w:tc>` + para(c) + `</w:tc>`)
	}
	b.WriteString(`</w:tr>`)
	return b.String()
}

func table(rows ...string) string {
	return `<w:tbl>` + strings.Join(rows, "") + `</w:tbl>`
}

// reportBody is a cut-down version of the real report layout: a summary
// table with a Risk Rating column and one severity table per finding.
var reportBody = para("{{.app_name}} ({{.start_date}} - {{.end_date}})") +
	table(
		row("ID", "Title", "CVSS", "Risk Rating"),
		row("{{tr range .vulnerabilities}}"),
		row("{{.vulnerability_id}}", "{{.title}}", "{{.cvss_score}}", "{{.severity}}"),
		row("{{tr end}}"),
	) +
	para("{{p range .vuln_details}}") +
	para("{{.vulnerability_id}}: {{.title}}") +
	table(row("Severity", "{{.severity}}")) +
	para("{{p range .step_entries}}") +
	para("Step {{.index}}: {{.description}}") +
	para("{{.screenshot}}") +
	para("{{p end}}") +
	para("{{p end}}") +
	para("Critical: {{.severity_counts.critical}} Medium: {{.severity_counts.medium}}")

func writeDocx(t *testing.T, path, body string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"[Content_Types].xml": contentTypes,
		"word/document.xml":   docOpen + body + docClose,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func readZipPart(t *testing.T, path, part string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found in %s", part, filepath.Base(path))
	return ""
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}
