package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/pentest-report/internal/application/records"
	appreports "github.com/bryanwahyu/pentest-report/internal/application/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
	"github.com/bryanwahyu/pentest-report/internal/middleware"
)

const maxUploadBytes = 64 << 20

// Options configures the HTTP surface.
type Options struct {
	DownloadsDir string
	APIKeys      map[string]string
	CORSOrigins  []string
	Limiter      *middleware.RateLimiter
	Metrics      *middleware.Metrics
	Checkers     map[string]middleware.HealthChecker
	Log          *zap.Logger
}

type Router struct {
	records *records.Service
	reports *appreports.Service
	opts    Options
	log     *zap.Logger
}

func NewRouter(recordsSvc *records.Service, reportsSvc *appreports.Service, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{records: recordsSvc, reports: reportsSvc, opts: opts, log: log}
	mux := chi.NewRouter()

	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	mux.Use(middleware.LoggingMiddleware(log))

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/applications", r.wrap(r.handleListApplications))
		rt.Post("/applications", r.wrap(r.handleCreateApplication))
		rt.Get("/applications/{id}", r.wrap(r.handleGetApplication))
		rt.Patch("/applications/{id}", r.wrap(r.handleUpdateApplication))
		rt.Post("/applications/{id}/status", r.wrap(r.handleUpdateStatus))

		rt.Get("/applications/{id}/vulnerabilities", r.wrap(r.handleListVulnerabilities))
		rt.Post("/applications/{id}/vulnerabilities", r.wrap(r.handleAddVulnerabilities))
		rt.Put("/applications/{id}/vulnerabilities", r.wrap(r.handleReplaceVulnerabilities))

		rt.Get("/applications_summary", r.wrap(r.handleApplicationsSummary))
		rt.Get("/vulnerabilities_summary", r.wrap(r.handleVulnerabilitiesSummary))
		rt.Get("/vulnerability_templates", r.wrap(r.handleVulnerabilityTemplates))
		rt.Get("/audit", r.wrap(r.handleAudit))
		rt.Post("/backup", r.wrap(r.handleBackup))
	})

	mux.Group(func(rt chi.Router) {
		if opts.Limiter != nil {
			rt.Use(middleware.RateLimitMiddleware(opts.Limiter))
		}
		rt.Get("/export/word/{id}", r.wrap(r.handleExportWord))
		rt.Get("/export/excel/{id}", r.wrap(r.handleExportExcel))
	})
	mux.Get("/downloads/{filename}", r.wrap(r.handleDownload))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var renderErr *reports.RenderError
		switch {
		case errors.Is(err, reports.ErrInvalidPayload),
			errors.Is(err, vulnerabilities.ErrInvalidScreenshotName):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, applications.ErrNotFound):
			writeError(w, http.StatusNotFound, "application not found")
		case errors.Is(err, reports.ErrNotAvailable):
			writeError(w, http.StatusNotFound, "report not available")
		case errors.As(err, &renderErr):
			r.log.Error("report generation", zap.String("phase", string(renderErr.Phase)), zap.Error(renderErr.Err))
			writeError(w, http.StatusInternalServerError, "generation failed")
		default:
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

func decodeJSON(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxUploadBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", reports.ErrInvalidPayload, err)
	}
	return nil
}

func appID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	return id, middleware.ValidateApplicationID(id)
}

//
// ==== APPLICATIONS ====
//

// GET /api/applications
func (r *Router) handleListApplications(w http.ResponseWriter, req *http.Request) error {
	apps, err := r.records.ListApplications(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, apps)
}

// POST /api/applications
func (r *Router) handleCreateApplication(w http.ResponseWriter, req *http.Request) error {
	var a applications.Application
	if err := decodeJSON(req, &a); err != nil {
		return err
	}
	a.Name = middleware.SanitizeString(a.Name)
	if err := middleware.ValidateApplication(&a); err != nil {
		return err
	}
	created, err := r.records.CreateApplication(req.Context(), &a)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{"success": true, "application": created})
}

// GET /api/applications/{id}
func (r *Router) handleGetApplication(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	a, err := r.records.GetApplication(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// PATCH /api/applications/{id}
func (r *Router) handleUpdateApplication(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	var patch records.ApplicationPatch
	if err := decodeJSON(req, &patch); err != nil {
		return err
	}
	for _, d := range []*string{patch.StartDate, patch.EndDate} {
		if d != nil {
			if err := middleware.ValidateDate(*d); err != nil {
				return err
			}
		}
	}
	if patch.Name != nil {
		name := middleware.SanitizeString(*patch.Name)
		if name == "" {
			return fmt.Errorf("%w: application name is required", reports.ErrInvalidPayload)
		}
		patch.Name = &name
	}
	a, err := r.records.UpdateApplication(req.Context(), id, patch)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "application": a})
}

// POST /api/applications/{id}/status
// Body: {"status": "in progress"}
func (r *Router) handleUpdateStatus(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	st, err := r.records.UpdateStatus(req.Context(), id, body.Status)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": st})
}

//
// ==== VULNERABILITIES ====
//

// GET /api/applications/{id}/vulnerabilities
func (r *Router) handleListVulnerabilities(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	vulns, err := r.records.ListVulnerabilities(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, vulns)
}

// POST /api/applications/{id}/vulnerabilities
// multipart: field "vulnerabilities" (JSON array) plus one file per screenshot name
func (r *Router) handleAddVulnerabilities(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	vulns, uploads, cleanup, err := readVulnerabilities(req)
	if err != nil {
		return err
	}
	defer cleanup()
	n, err := r.records.AddVulnerabilities(req.Context(), id, vulns, uploads)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
}

// PUT /api/applications/{id}/vulnerabilities
func (r *Router) handleReplaceVulnerabilities(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	vulns, uploads, cleanup, err := readVulnerabilities(req)
	if err != nil {
		return err
	}
	defer cleanup()
	n, err := r.records.ReplaceVulnerabilities(req.Context(), id, vulns, uploads)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
}

// readVulnerabilities accepts either a JSON array body or a multipart form
// whose "vulnerabilities" field holds the array and whose files are keyed by
// the screenshot names the steps reference.
func readVulnerabilities(req *http.Request) ([]vulnerabilities.Vulnerability, map[string]io.Reader, func(), error) {
	noop := func() {}
	var vulns []vulnerabilities.Vulnerability
	uploads := map[string]io.Reader{}

	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		if err := decodeJSON(req, &vulns); err != nil {
			return nil, nil, noop, err
		}
		return vulns, uploads, noop, validateAll(vulns)
	}

	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, noop, fmt.Errorf("%w: %v", reports.ErrInvalidPayload, err)
	}
	raw := req.FormValue("vulnerabilities")
	if raw == "" {
		return nil, nil, noop, fmt.Errorf("%w: missing vulnerabilities field", reports.ErrInvalidPayload)
	}
	if err := json.Unmarshal([]byte(raw), &vulns); err != nil {
		return nil, nil, noop, fmt.Errorf("%w: %v", reports.ErrInvalidPayload, err)
	}
	if err := validateAll(vulns); err != nil {
		return nil, nil, noop, err
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			f.Close()
		}
		req.MultipartForm.RemoveAll()
	}
	for name, headers := range req.MultipartForm.File {
		if len(headers) == 0 || headers[0].Filename == "" {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			cleanup()
			return nil, nil, noop, err
		}
		opened = append(opened, f)
		uploads[name] = f
	}
	return vulns, uploads, cleanup, nil
}

func validateAll(vulns []vulnerabilities.Vulnerability) error {
	for i, v := range vulns {
		if err := middleware.ValidateVulnerability(v); err != nil {
			return fmt.Errorf("vulnerability %d: %w", i+1, err)
		}
	}
	return nil
}

//
// ==== DASHBOARDS & MISC ====
//

// GET /api/applications_summary
func (r *Router) handleApplicationsSummary(w http.ResponseWriter, req *http.Request) error {
	s, err := r.records.ApplicationsSummary(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, s)
}

// GET /api/vulnerabilities_summary
func (r *Router) handleVulnerabilitiesSummary(w http.ResponseWriter, req *http.Request) error {
	s, err := r.records.VulnerabilitiesSummary(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, s)
}

// GET /api/vulnerability_templates
func (r *Router) handleVulnerabilityTemplates(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.records.VulnerabilityTemplates())
}

// GET /api/audit?limit=20
func (r *Router) handleAudit(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	entries, err := r.records.AuditLog(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, entries)
}

// POST /api/backup
func (r *Router) handleBackup(w http.ResponseWriter, req *http.Request) error {
	path, err := r.records.Backup(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "file": filepath.Base(path)})
}

//
// ==== EXPORTS ====
//

// GET /export/word/{id}
func (r *Router) handleExportWord(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	res, err := r.reports.ExportDocument(req.Context(), id)
	if err != nil {
		return err
	}
	return r.sendExport(w, req, res)
}

// GET /export/excel/{id}
func (r *Router) handleExportExcel(w http.ResponseWriter, req *http.Request) error {
	id, err := appID(req)
	if err != nil {
		return err
	}
	res, err := r.reports.ExportSpreadsheet(req.Context(), id)
	if err != nil {
		return err
	}
	return r.sendExport(w, req, res)
}

// sendExport streams the file, or answers JSON when ?format=json.
func (r *Router) sendExport(w http.ResponseWriter, req *http.Request, res reports.Result) error {
	name := filepath.Base(res.Path)
	if req.URL.Query().Get("format") == "json" {
		return writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"file":     name,
			"download": "/downloads/" + name,
			"url":      res.URL,
			"rows":     res.Rows,
		})
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, req, res.Path)
	return nil
}

// GET /downloads/{filename}
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	name := chi.URLParam(req, "filename")
	if err := middleware.ValidateDownloadName(name); err != nil {
		return err
	}
	path := filepath.Join(r.opts.DownloadsDir, name)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", reports.ErrNotAvailable, name)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, req, path)
	return nil
}
