package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/pentest-report/internal/application"
	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
	"github.com/bryanwahyu/pentest-report/internal/domain/audit"
	domain "github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

// Options controls where exports come from and go to.
type Options struct {
	WordTemplate   string
	ExcelTemplate  string
	DownloadsDir   string
	Border         domain.BorderConfig
	PictureOutline bool
	OutlineWidthPt float64
	OutlineColor   string
}

// Service implements the export use-cases.
// Publisher, Audit and Recorder are optional.
type Service struct {
	Applications    applications.Repository
	Vulnerabilities vulnerabilities.Repository
	Screenshots     vulnerabilities.ScreenshotStore
	Images          domain.ImageNormalizer
	Documents       domain.DocumentEngine
	Workbooks       domain.WorkbookEngine
	Publisher       domain.Publisher
	Audit           audit.Repository
	Recorder        domain.Recorder
	Log             *zap.Logger
	Clock           application.Clock
	Options         Options
}

// ExportDocument renders the word report for appID.
//
// A missing template, application or vulnerability record yields
// ErrNotAvailable and no file. Screenshot problems only blank the affected
// step. Any other failure is a *RenderError naming the phase.
func (s *Service) ExportDocument(ctx context.Context, appID string) (res domain.Result, err error) {
	defer func() { s.finish(ctx, domain.KindDocument, appID, err) }()

	// LOAD_TEMPLATE
	if !fileExists(s.Options.WordTemplate) {
		return res, fmt.Errorf("%w: word template %q", domain.ErrNotAvailable, s.Options.WordTemplate)
	}
	app, err := s.application(ctx, appID)
	if err != nil {
		return res, err
	}
	ok, err := s.Vulnerabilities.Exists(ctx, appID)
	if err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseLoadTemplate, Err: err}
	}
	if !ok {
		return res, fmt.Errorf("%w: no vulnerability record for %s", domain.ErrNotAvailable, appID)
	}
	tpl, err := s.Documents.OpenTemplate(s.Options.WordTemplate)
	if err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseLoadTemplate, Err: err}
	}

	// BUILD_CONTEXT
	vulns, err := s.Vulnerabilities.List(ctx, appID)
	if err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseBuildContext, Err: err}
	}
	vulns = vulnerabilities.SortByCVSS(vulns)
	data := BuildDocumentContext(tpl, app, vulns, func(vulnID string, step int, ref string) any {
		return s.screenshot(tpl, vulnID, step, ref)
	})

	// RENDER
	if err := os.MkdirAll(s.Options.DownloadsDir, 0o755); err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseRender, Err: err}
	}
	out := filepath.Join(s.Options.DownloadsDir, DocumentFileName(app.Name))
	if err := tpl.Render(data); err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseRender, Err: err}
	}
	if err := tpl.Save(out); err != nil {
		os.Remove(out)
		return res, &domain.RenderError{Phase: domain.PhaseRender, Err: err}
	}

	// POSTPROCESS
	doc, err := s.Documents.OpenStyled(out)
	if err == nil {
		err = Postprocess(doc, s.Options)
	}
	if err != nil {
		os.Remove(out)
		return res, &domain.RenderError{Phase: domain.PhasePostprocess, Err: err}
	}

	// SAVE
	abs, err := filepath.Abs(out)
	if err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseSave, Err: err}
	}
	res = domain.Result{Kind: domain.KindDocument, Path: abs, Rows: len(vulns)}
	res.URL = s.publish(ctx, abs)
	return res, nil
}

// ExportSpreadsheet appends every finding of appID to the findings workbook.
func (s *Service) ExportSpreadsheet(ctx context.Context, appID string) (res domain.Result, err error) {
	defer func() { s.finish(ctx, domain.KindSpreadsheet, appID, err) }()

	app, err := s.application(ctx, appID)
	if err != nil {
		return res, err
	}
	if !fileExists(s.Options.ExcelTemplate) {
		return res, fmt.Errorf("%w: excel template %q", domain.ErrNotAvailable, s.Options.ExcelTemplate)
	}
	vulns, err := s.Vulnerabilities.List(ctx, appID)
	if err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseBuildContext, Err: err}
	}
	vulns = vulnerabilities.SortByCVSS(vulns)

	wb, err := s.Workbooks.OpenWorkbook(s.Options.ExcelTemplate)
	if err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseLoadTemplate, Err: err}
	}
	defer wb.Close()

	for _, v := range vulns {
		if _, err := wb.AppendFinding(FindingRow(app, v)); err != nil {
			return res, &domain.RenderError{Phase: domain.PhaseRender, Err: err}
		}
	}

	if err := os.MkdirAll(s.Options.DownloadsDir, 0o755); err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseSave, Err: err}
	}
	out := filepath.Join(s.Options.DownloadsDir, SpreadsheetFileName(app.Name, len(vulns)))
	if err := wb.SaveAs(out); err != nil {
		os.Remove(out)
		return res, &domain.RenderError{Phase: domain.PhaseSave, Err: err}
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return res, &domain.RenderError{Phase: domain.PhaseSave, Err: err}
	}
	res = domain.Result{Kind: domain.KindSpreadsheet, Path: abs, Rows: len(vulns)}
	res.URL = s.publish(ctx, abs)
	return res, nil
}

// FindingRow lays out one vulnerability for the findings sheet.
func FindingRow(app *applications.Application, v vulnerabilities.Vulnerability) domain.FindingRow {
	desc := []domain.TextRun{
		{Text: "Redacted Summary:\n", Bold: true},
		{Text: v.Summary + "\n\n"},
		{Text: "Description:\n", Bold: true},
		{Text: v.Description + "\n"},
	}
	hasSteps := false
	lines := make([]string, 0, len(v.Steps))
	for i, st := range v.Steps {
		if strings.TrimSpace(st.Description) != "" {
			hasSteps = true
		}
		lines = append(lines, fmt.Sprintf("Step %d: %s", i+1, st.Description))
	}
	if hasSteps {
		desc = append(desc,
			domain.TextRun{Text: "\nSteps to Reproduce:\n", Bold: true},
			domain.TextRun{Text: strings.Join(lines, "\n")},
		)
	}
	return domain.FindingRow{
		AppName:        app.Name,
		URL:            v.URL,
		VulnID:         v.ID,
		CVSS:           float64(v.CVSS),
		Title:          v.Title,
		Description:    desc,
		Impact:         v.Impact,
		Recommendation: v.Recommendation,
		Reference:      v.Reference,
	}
}

func (s *Service) application(ctx context.Context, appID string) (*applications.Application, error) {
	app, err := s.Applications.Get(ctx, appID)
	if errors.Is(err, applications.ErrNotFound) {
		return nil, fmt.Errorf("%w: application %s", domain.ErrNotAvailable, appID)
	}
	if err != nil {
		return nil, &domain.RenderError{Phase: domain.PhaseLoadTemplate, Err: err}
	}
	return app, nil
}

// screenshot resolves, verifies, normalizes and embeds one step image.
// Every failure here degrades to an empty slot.
func (s *Service) screenshot(tpl domain.DocumentTemplate, vulnID string, step int, ref string) any {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	log := s.logger().With(zap.String("vulnerability", vulnID), zap.Int("step", step), zap.String("screenshot", ref))
	degrade := func(msg string, err error) any {
		log.Warn(msg, zap.Error(errors.Join(domain.ErrImageUnavailable, err)))
		if s.Recorder != nil {
			s.Recorder.ImageDegraded()
		}
		return ""
	}

	path, ok := s.Screenshots.Resolve(ref)
	if !ok {
		return degrade("screenshot missing", nil)
	}
	if err := s.Images.Verify(path); err != nil {
		return degrade("screenshot does not decode", err)
	}
	norm, err := s.Images.Normalize(path, s.Options.Border)
	if err != nil {
		return degrade("screenshot normalization failed", err)
	}
	img, err := tpl.AddImage(norm)
	if err != nil {
		return degrade("screenshot embed failed", err)
	}
	return img
}

func (s *Service) publish(ctx context.Context, path string) string {
	if s.Publisher == nil {
		return ""
	}
	url, err := s.Publisher.Publish(ctx, path, "reports/"+filepath.Base(path))
	if err != nil {
		s.logger().Error("publish report", zap.String("path", path), zap.Error(err))
		return ""
	}
	return url
}

// finish records metrics and the audit entry for an export attempt.
func (s *Service) finish(ctx context.Context, kind domain.Kind, appID string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotAvailable):
		outcome = "not_available"
	default:
		outcome = "failed"
	}
	if s.Recorder != nil {
		s.Recorder.ExportFinished(kind, outcome)
	}
	if err != nil {
		s.logger().Error("export failed", zap.String("kind", string(kind)), zap.String("application", appID), zap.Error(err))
		return
	}
	if s.Audit != nil {
		entry := &audit.Entry{
			Timestamp: s.now(),
			Action:    fmt.Sprintf("Exported %s report for application %s", kind, appID),
			Actor:     application.Actor(ctx),
		}
		if aerr := s.Audit.Save(ctx, entry); aerr != nil {
			s.logger().Warn("audit log", zap.Error(aerr))
		}
	}
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
