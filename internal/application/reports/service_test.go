package reports_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/pentest-report/internal/application"
	"github.com/bryanwahyu/pentest-report/internal/application/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
	domain "github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
	"github.com/bryanwahyu/pentest-report/internal/infra/docx"
	"github.com/bryanwahyu/pentest-report/internal/infra/imaging"
	"github.com/bryanwahyu/pentest-report/internal/infra/store/jsonfile"
	"github.com/bryanwahyu/pentest-report/internal/infra/store/screenshot"
	"github.com/bryanwahyu/pentest-report/internal/infra/xlsx"
)

type recorder struct {
	outcomes map[string]int
	degraded int
}

func (r *recorder) ExportFinished(kind domain.Kind, outcome string) {
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[string(kind)+"/"+outcome]++
}

func (r *recorder) ImageDegraded() { r.degraded++ }

type publisher struct {
	keys []string
	err  error
}

func (p *publisher) Publish(_ context.Context, localPath, key string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.keys = append(p.keys, key)
	return "http://minio:9000/reports-bucket/" + key, nil
}

type fixture struct {
	dir       string
	svc       *reports.Service
	apps      *jsonfile.ApplicationRepository
	vulns     *jsonfile.VulnerabilityRepository
	shots     *screenshot.Store
	audit     *jsonfile.AuditRepository
	rec       *recorder
	downloads string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	clock := application.FixedClock(time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC))

	apps, err := jsonfile.NewApplicationRepository(filepath.Join(dir, "data"), clock)
	require.NoError(t, err)
	vulns, err := jsonfile.NewVulnerabilityRepository(filepath.Join(dir, "data"), clock)
	require.NoError(t, err)
	auditRepo, err := jsonfile.NewAuditRepository(filepath.Join(dir, "data"))
	require.NoError(t, err)
	shots, err := screenshot.New(filepath.Join(dir, "screenshots"))
	require.NoError(t, err)
	images, err := imaging.NewNormalizer(imaging.Options{CacheDir: filepath.Join(dir, "cache"), WhiteTolerance: imaging.DefaultWhiteTolerance}, nil)
	require.NoError(t, err)

	wordTemplate := filepath.Join(dir, "report_template.docx")
	writeDocx(t, wordTemplate, reportBody)

	excelTemplate := filepath.Join(dir, "Excel_Template.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "App Name"))
	require.NoError(t, f.SaveAs(excelTemplate))
	require.NoError(t, f.Close())

	rec := &recorder{}
	downloads := filepath.Join(dir, "downloads")
	return &fixture{
		dir:       dir,
		apps:      apps,
		vulns:     vulns,
		shots:     shots,
		audit:     auditRepo,
		rec:       rec,
		downloads: downloads,
		svc: &reports.Service{
			Applications:    apps,
			Vulnerabilities: vulns,
			Screenshots:     shots,
			Images:          images,
			Documents:       docx.Engine{},
			Workbooks:       xlsx.Engine{},
			Audit:           auditRepo,
			Recorder:        rec,
			Clock:           clock,
			Options: reports.Options{
				WordTemplate:   wordTemplate,
				ExcelTemplate:  excelTemplate,
				DownloadsDir:   downloads,
				Border:         domain.DefaultBorder(),
				OutlineWidthPt: 0.75,
				OutlineColor:   "000000",
			},
		},
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.apps.Save(ctx, &applications.Application{
		ID:        "app_1",
		Name:      "Customer Portal",
		StartDate: "2024-06-05",
		EndDate:   "2024-06-21",
		Status:    applications.StatusCompleted,
	}))

	writePNG(t, filepath.Join(f.shots.Dir(), "login.png"), 40, 20)
	require.NoError(t, os.WriteFile(filepath.Join(f.shots.Dir(), "broken.png"), []byte("garbage"), 0o644))

	require.NoError(t, f.vulns.Replace(ctx, "app_1", []vulnerabilities.Vulnerability{
		{ID: "V1", Title: "Open Redirect", Severity: "Medium", CVSS: 4.0},
		{ID: "V2", Title: "SQL Injection", Severity: "Critical", CVSS: 9.8, Steps: []vulnerabilities.Step{
			{Description: "Open the login page", Screenshot: "login.png"},
			{Description: "Send the payload", Screenshot: "broken.png"},
			{Description: "Observe the dump", Screenshot: "missing.png"},
			{Description: "No picture"},
		}},
		{ID: "V3", Title: "Verbose Errors", Severity: "medium", CVSS: 4.0},
	}))
}

func downloadsEmpty(t *testing.T, dir string) bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	require.NoError(t, err)
	return len(entries) == 0
}

func TestExportDocument(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := application.WithActor(context.Background(), "alice")

	res, err := f.svc.ExportDocument(ctx, "app_1")
	require.NoError(t, err)

	assert.Equal(t, domain.KindDocument, res.Kind)
	assert.True(t, filepath.IsAbs(res.Path))
	assert.Equal(t, "GW_Customer_Portal_Penetration_Test_Report.docx", filepath.Base(res.Path))
	assert.Equal(t, 3, res.Rows)
	assert.Empty(t, res.URL)

	doc, err := docx.OpenDocument(res.Path)
	require.NoError(t, err)
	tables := doc.Tables()
	require.Len(t, tables, 4)
	assert.Equal(t, [][]string{
		{"ID", "Title", "CVSS", "Risk Rating"},
		{"V2", "SQL Injection", "9.8", "Critical"},
		{"V1", "Open Redirect", "4.0", "Medium"},
		{"V3", "Verbose Errors", "4.0", "medium"},
	}, tables[0])
	assert.Equal(t, [][]string{{"Severity", "Critical"}}, tables[1])

	// only login.png survives; broken and missing screenshots leave empty slots
	assert.Len(t, doc.Images(), 1)
	assert.Equal(t, 2, f.rec.degraded)
	assert.Equal(t, 1, f.rec.outcomes["word/success"])

	xml := readZipPart(t, res.Path, "word/document.xml")
	assert.Contains(t, xml, "Customer Portal (5th June 2024 - 21st June 2024)")
	assert.Contains(t, xml, "Critical: 1 Medium: 2")
	assert.Contains(t, xml, "Step 4: No picture")
	assert.Equal(t, 6, strings.Count(xml, "w:fill="))
	assert.Equal(t, 2, strings.Count(xml, `w:fill="C00000"`))
	assert.Equal(t, 4, strings.Count(xml, `w:fill="FFC000"`))
	assert.Contains(t, xml, `<w:jc w:val="center"/>`)
	assert.NotContains(t, xml, "<a:ln")

	entries, err := f.audit.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Exported word report for application app_1", entries[0].Action)
	assert.Equal(t, "alice", entries[0].Actor)
}

func TestExportDocumentOutlineAndPublish(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	pub := &publisher{}
	f.svc.Publisher = pub
	f.svc.Options.PictureOutline = true

	res, err := f.svc.ExportDocument(context.Background(), "app_1")
	require.NoError(t, err)

	assert.Equal(t, []string{"reports/GW_Customer_Portal_Penetration_Test_Report.docx"}, pub.keys)
	assert.Equal(t, "http://minio:9000/reports-bucket/reports/GW_Customer_Portal_Penetration_Test_Report.docx", res.URL)
	assert.Contains(t, readZipPart(t, res.Path, "word/document.xml"), `<a:ln w="9525">`)
}

func TestExportDocumentPublishFailureKeepsLocalFile(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.svc.Publisher = &publisher{err: errors.New("bucket gone")}

	res, err := f.svc.ExportDocument(context.Background(), "app_1")
	require.NoError(t, err)
	assert.Empty(t, res.URL)
	assert.FileExists(t, res.Path)
}

func TestExportDocumentNotAvailable(t *testing.T) {
	t.Run("unknown application", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ExportDocument(context.Background(), "app_404")
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
		assert.True(t, downloadsEmpty(t, f.downloads))
		assert.Equal(t, 1, f.rec.outcomes["word/not_available"])
	})

	t.Run("no vulnerability record", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.apps.Save(context.Background(), &applications.Application{ID: "app_1", Name: "Portal"}))
		_, err := f.svc.ExportDocument(context.Background(), "app_1")
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
		assert.True(t, downloadsEmpty(t, f.downloads))
	})

	t.Run("missing template", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		f.svc.Options.WordTemplate = filepath.Join(f.dir, "gone.docx")
		_, err := f.svc.ExportDocument(context.Background(), "app_1")
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
		assert.True(t, downloadsEmpty(t, f.downloads))

		entries, err := f.audit.Latest(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestExportDocumentEmptyRecordStillRenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.apps.Save(ctx, &applications.Application{ID: "app_1", Name: ""}))
	require.NoError(t, f.vulns.Replace(ctx, "app_1", nil))

	res, err := f.svc.ExportDocument(ctx, "app_1")
	require.NoError(t, err)
	assert.Equal(t, "GW_Report_Penetration_Test_Report.docx", filepath.Base(res.Path))
	assert.Equal(t, 0, res.Rows)
}

func TestExportDocumentRenderFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	writeDocx(t, f.svc.Options.WordTemplate, para("{{.no_such_field}}"))

	_, err := f.svc.ExportDocument(context.Background(), "app_1")

	var rerr *domain.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, domain.PhaseRender, rerr.Phase)
	assert.False(t, errors.Is(err, domain.ErrNotAvailable))
	assert.True(t, downloadsEmpty(t, f.downloads))
	assert.Equal(t, 1, f.rec.outcomes["word/failed"])
}

func TestExportSpreadsheet(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	res, err := f.svc.ExportSpreadsheet(context.Background(), "app_1")
	require.NoError(t, err)
	assert.Equal(t, "GW_Customer_Portal_Excel_Findings_3.xlsx", filepath.Base(res.Path))
	assert.Equal(t, 3, res.Rows)

	wb, err := excelize.OpenFile(res.Path)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "App Name", rows[0][0])
	assert.Equal(t, "V2", rows[1][2])
	assert.Equal(t, "V1", rows[2][2])
	assert.Equal(t, "V3", rows[3][2])
	assert.Equal(t, "9.8", rows[1][3])

	formula, err := wb.GetCellFormula("Sheet1", "L2")
	require.NoError(t, err)
	assert.Equal(t, `A2&", "&C2&", "&F2`, formula)
}

func TestExportSpreadsheetWithoutFindings(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.apps.Save(context.Background(), &applications.Application{ID: "app_1", Name: "Portal"}))

	res, err := f.svc.ExportSpreadsheet(context.Background(), "app_1")
	require.NoError(t, err)
	assert.Equal(t, "GW_Portal_Excel_Findings_0.xlsx", filepath.Base(res.Path))
}

func TestExportSpreadsheetUnknownApplication(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ExportSpreadsheet(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotAvailable)
	assert.True(t, downloadsEmpty(t, f.downloads))
	assert.Equal(t, 1, f.rec.outcomes["excel/not_available"])
}

func TestFindingRow(t *testing.T) {
	app := &applications.Application{Name: "Portal"}

	plain := reports.FindingRow(app, vulnerabilities.Vulnerability{
		ID: "V1", Summary: "short", Description: "long", CVSS: 5.3,
		Steps: []vulnerabilities.Step{{Screenshot: "a.png"}},
	})
	assert.Equal(t, "Portal", plain.AppName)
	assert.Equal(t, 5.3, plain.CVSS)
	assert.Equal(t, []domain.TextRun{
		{Text: "Redacted Summary:\n", Bold: true},
		{Text: "short\n\n"},
		{Text: "Description:\n", Bold: true},
		{Text: "long\n"},
	}, plain.Description)

	withSteps := reports.FindingRow(app, vulnerabilities.Vulnerability{
		Steps: []vulnerabilities.Step{{Description: "open"}, {Description: "submit"}},
	})
	require.Len(t, withSteps.Description, 6)
	assert.Equal(t, domain.TextRun{Text: "\nSteps to Reproduce:\n", Bold: true}, withSteps.Description[4])
	assert.Equal(t, "Step 1: open\nStep 2: submit", withSteps.Description[5].Text)
}
