package middleware

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
	"github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

// Input validation at the HTTP boundary. Every error wraps reports.ErrInvalidPayload.

var (
	appIDPattern      = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)
	cvssVectorPattern = regexp.MustCompile(`^(CVSS:3\.[01]/)?AV:[NALP]/AC:[LH]/PR:[NLH]/UI:[NR]/S:[UC]/C:[HLN]/I:[HLN]/A:[HLN]$`)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", reports.ErrInvalidPayload, fmt.Sprintf(format, args...))
}

// ValidateApplicationID keeps ids usable as file names
func ValidateApplicationID(id string) error {
	if !appIDPattern.MatchString(id) || id == "." || id == ".." {
		return invalid("invalid application id %q", id)
	}
	return nil
}

// ValidateURL checks an affected URL. Empty is allowed; internal hosts are
// allowed too since findings often live on them.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid("invalid URL format: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("invalid URL scheme %q (allowed: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return invalid("URL %q has no host", rawURL)
	}
	return nil
}

// ValidateDate accepts YYYY-MM-DD or DD-MM-YYYY; empty is allowed
func ValidateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, ok := applications.ParseDate(s); !ok {
		return invalid("date %q is not YYYY-MM-DD or DD-MM-YYYY", s)
	}
	return nil
}

// ValidateApplication checks a create/replace payload
func ValidateApplication(a *applications.Application) error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("application name is required")
	}
	if a.ID != "" {
		if err := ValidateApplicationID(a.ID); err != nil {
			return err
		}
	}
	if err := ValidateDate(a.StartDate); err != nil {
		return err
	}
	if err := ValidateDate(a.EndDate); err != nil {
		return err
	}
	for _, d := range a.AppDetails {
		if err := ValidateURL(d.URL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVulnerability checks one finding
func ValidateVulnerability(v vulnerabilities.Vulnerability) error {
	if strings.TrimSpace(v.Title) == "" {
		return invalid("vulnerability title is required")
	}
	if raw := strings.TrimSpace(string(v.Severity)); raw != "" {
		if _, ok := vulnerabilities.ParseSeverity(raw); !ok {
			return invalid("unknown severity %q", raw)
		}
	}
	if v.CVSS < 0 || v.CVSS > 10 {
		return invalid("cvss %s outside 0.0-10.0", v.CVSS)
	}
	if vec := strings.TrimSpace(v.CVSSVector); vec != "" && !cvssVectorPattern.MatchString(vec) {
		return invalid("malformed cvss vector %q", vec)
	}
	return ValidateURL(v.URL)
}

// ValidateDownloadName allows plain report file names only
func ValidateDownloadName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return invalid("invalid file name %q", name)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx", ".xlsx":
		return nil
	}
	return invalid("unsupported file type %q", name)
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
