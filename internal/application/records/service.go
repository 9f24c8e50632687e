// Package records implements the record-keeping use-cases: applications,
// their findings, dashboards and backups.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/pentest-report/internal/application"
	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
	"github.com/bryanwahyu/pentest-report/internal/domain/audit"
	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

// Service implements use-cases untuk Application dan Vulnerability.
// Audit and Log are optional.
type Service struct {
	Applications    applications.Repository
	Vulnerabilities vulnerabilities.Repository
	Screenshots     vulnerabilities.ScreenshotStore
	Audit           audit.Repository
	Log             *zap.Logger
	Clock           application.Clock

	// BackupDir receives backup_<timestamp>.json files.
	BackupDir string
	// TemplatesFile holds reusable finding templates for the editor.
	TemplatesFile string
}

//
// ==== APPLICATIONS ====
//

// CreateApplication stores a new application. An empty status means in-progress.
func (s *Service) CreateApplication(ctx context.Context, a *applications.Application) (*applications.Application, error) {
	if a == nil || strings.TrimSpace(a.Name) == "" {
		return nil, fmt.Errorf("%w: application name is required", reports.ErrInvalidPayload)
	}
	if raw := strings.TrimSpace(string(a.Status)); raw != "" {
		st, ok := applications.ParseStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", reports.ErrInvalidPayload, raw)
		}
		a.Status = st
	}
	if err := s.Applications.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, "Application added: "+a.Name)
	return a, nil
}

func (s *Service) GetApplication(ctx context.Context, id string) (*applications.Application, error) {
	return s.Applications.Get(ctx, id)
}

func (s *Service) ListApplications(ctx context.Context) ([]*applications.Application, error) {
	return s.Applications.List(ctx)
}

// ApplicationPatch carries the fields of a partial update. Nil means keep.
type ApplicationPatch struct {
	Name            *string                    `json:"name"`
	Description     *string                    `json:"description"`
	StartDate       *string                    `json:"start_date"`
	EndDate         *string                    `json:"end_date"`
	Status          *string                    `json:"status"`
	AppDetails      *[]applications.AppDetail  `json:"app_details"`
	Pentesters      *[]applications.Pentester  `json:"pentesters"`
	TestCredentials *[]applications.Credential `json:"test_credentials"`
}

// UpdateApplication replaces only the fields present in p.
func (s *Service) UpdateApplication(ctx context.Context, id string, p ApplicationPatch) (*applications.Application, error) {
	a, err := s.Applications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != nil {
		st, ok := applications.ParseStatus(*p.Status)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", reports.ErrInvalidPayload, *p.Status)
		}
		a.Status = st
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.StartDate != nil {
		a.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		a.EndDate = *p.EndDate
	}
	if p.AppDetails != nil {
		a.AppDetails = *p.AppDetails
	}
	if p.Pentesters != nil {
		a.Pentesters = *p.Pentesters
	}
	if p.TestCredentials != nil {
		a.TestCredentials = *p.TestCredentials
	}
	if err := s.Applications.Save(ctx, a); err != nil {
		return nil, err
	}
	s.record(ctx, "Application updated: "+id)
	return a, nil
}

// UpdateStatus → ganti status saja; input di-normalisasi dulu
func (s *Service) UpdateStatus(ctx context.Context, id, raw string) (applications.Status, error) {
	st, ok := applications.ParseStatus(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", reports.ErrInvalidPayload, raw)
	}
	a, err := s.Applications.Get(ctx, id)
	if err != nil {
		return "", err
	}
	a.Status = st
	if err := s.Applications.Save(ctx, a); err != nil {
		return "", err
	}
	s.record(ctx, fmt.Sprintf("Updated status of %s to %s", id, st))
	return st, nil
}

//
// ==== VULNERABILITIES ====
//

func (s *Service) ListVulnerabilities(ctx context.Context, appID string) ([]vulnerabilities.Vulnerability, error) {
	return s.Vulnerabilities.List(ctx, appID)
}

// AddVulnerabilities appends vulns to appID's list. Screenshots referenced by
// a step are taken from uploads by name; a reference with no upload is
// cleared so the record never points at a file that was not stored.
func (s *Service) AddVulnerabilities(ctx context.Context, appID string, vulns []vulnerabilities.Vulnerability, uploads map[string]io.Reader) (int, error) {
	if _, err := s.Applications.Get(ctx, appID); err != nil {
		return 0, err
	}
	actor := application.Actor(ctx)
	stored := map[string]string{}
	for i := range vulns {
		s.storeScreenshots(&vulns[i], uploads, stored, true)
		if err := s.Vulnerabilities.Append(ctx, appID, vulns[i], actor); err != nil {
			return i, err
		}
	}
	s.record(ctx, "Vulnerabilities added for app "+appID)
	return len(vulns), nil
}

// ReplaceVulnerabilities overwrites appID's list. Uploaded screenshots are
// stored; references without an upload are kept as they are.
func (s *Service) ReplaceVulnerabilities(ctx context.Context, appID string, vulns []vulnerabilities.Vulnerability, uploads map[string]io.Reader) (int, error) {
	if _, err := s.Applications.Get(ctx, appID); err != nil {
		return 0, err
	}
	saved := false
	stored := map[string]string{}
	for i := range vulns {
		if s.storeScreenshots(&vulns[i], uploads, stored, false) {
			saved = true
		}
	}
	if err := s.Vulnerabilities.Replace(ctx, appID, vulns); err != nil {
		return 0, err
	}
	s.record(ctx, fmt.Sprintf("Vulnerabilities updated for app %s. files_saved=%t", appID, saved))
	return len(vulns), nil
}

// storeScreenshots saves the uploads referenced by v's steps and rewrites the
// references to the stored names. It reports whether any file was written.
// stored maps upload names already saved in this request to their stored
// names; an upload reader can only be drained once.
func (s *Service) storeScreenshots(v *vulnerabilities.Vulnerability, uploads map[string]io.Reader, stored map[string]string, clearMissing bool) bool {
	v.Normalize()
	saved := false
	for i := range v.Steps {
		st := &v.Steps[i]
		name := strings.TrimSpace(st.Screenshot)
		if name == "" {
			continue
		}
		if prev, ok := stored[name]; ok {
			st.Screenshot = prev
			continue
		}
		r, ok := uploads[name]
		if !ok || r == nil {
			if clearMissing {
				s.logger().Warn("screenshot not uploaded", zap.String("vulnerability", v.ID), zap.String("screenshot", name))
				st.Screenshot = ""
			}
			continue
		}
		safe, err := s.Screenshots.Save(name, r)
		if err != nil {
			s.logger().Warn("screenshot not saved", zap.String("screenshot", name), zap.Error(err))
			st.Screenshot = ""
			continue
		}
		stored[name] = safe
		st.Screenshot = safe
		saved = true
	}
	return saved
}

//
// ==== DASHBOARDS ====
//

// ApplicationsSummary is the applications dashboard.
type ApplicationsSummary struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	InProgress int     `json:"in_progress"`
	Monthly    [12]int `json:"monthly"`
}

// ApplicationsSummary counts applications by status and by start month.
func (s *Service) ApplicationsSummary(ctx context.Context) (ApplicationsSummary, error) {
	var out ApplicationsSummary
	apps, err := s.Applications.List(ctx)
	if err != nil {
		return out, err
	}
	for _, a := range apps {
		out.Total++
		switch a.Status {
		case applications.StatusCompleted:
			out.Completed++
		case applications.StatusInProgress:
			out.InProgress++
		}
		if t, ok := startMonth(a.StartDate); ok {
			out.Monthly[t.Month()-1]++
		}
	}
	return out, nil
}

func startMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{applications.LayoutISO, applications.LayoutDisplay, applications.LayoutSlashed} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// VulnerabilitiesSummary counts findings by severity across every application.
func (s *Service) VulnerabilitiesSummary(ctx context.Context) (vulnerabilities.SeverityCounts, error) {
	var out vulnerabilities.SeverityCounts
	apps, err := s.Applications.List(ctx)
	if err != nil {
		return out, err
	}
	for _, a := range apps {
		vulns, err := s.Vulnerabilities.List(ctx, a.ID)
		if err != nil {
			return out, err
		}
		for _, v := range vulns {
			out.Add(string(v.Severity))
		}
	}
	return out, nil
}

//
// ==== BACKUP & MISC ====
//

// Backup is the on-disk backup document.
type Backup struct {
	Timestamp       time.Time                                  `json:"timestamp"`
	Applications    []*applications.Application                `json:"applications"`
	Vulnerabilities map[string][]vulnerabilities.Vulnerability `json:"vulnerabilities"`
}

// Backup writes every application and its findings to one JSON file and
// returns its path.
func (s *Service) Backup(ctx context.Context) (string, error) {
	apps, err := s.Applications.List(ctx)
	if err != nil {
		return "", err
	}
	now := s.now()
	b := Backup{Timestamp: now, Applications: apps, Vulnerabilities: map[string][]vulnerabilities.Vulnerability{}}
	for _, a := range apps {
		vulns, err := s.Vulnerabilities.List(ctx, a.ID)
		if err != nil {
			return "", err
		}
		b.Vulnerabilities[a.ID] = vulns
	}

	if err := os.MkdirAll(s.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	path := filepath.Join(s.BackupDir, "backup_"+now.Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	s.record(ctx, "Backup written: "+filepath.Base(path))
	return path, nil
}

// AuditLog returns the most recent audit entries.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]*audit.Entry, error) {
	if s.Audit == nil {
		return []*audit.Entry{}, nil
	}
	return s.Audit.Latest(ctx, limit)
}

// VulnerabilityTemplates returns the finding templates file, or an empty
// list when it is missing or unreadable.
func (s *Service) VulnerabilityTemplates() []map[string]any {
	out := []map[string]any{}
	if s.TemplatesFile == "" {
		return out
	}
	b, err := os.ReadFile(s.TemplatesFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger().Warn("read vulnerability templates", zap.Error(err))
		}
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		s.logger().Warn("decode vulnerability templates", zap.Error(err))
		return []map[string]any{}
	}
	return out
}

func (s *Service) record(ctx context.Context, action string) {
	if s.Audit == nil {
		return
	}
	e := &audit.Entry{Timestamp: s.now(), Action: action, Actor: application.Actor(ctx)}
	if err := s.Audit.Save(ctx, e); err != nil {
		s.logger().Warn("audit log", zap.String("action", action), zap.Error(err))
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
