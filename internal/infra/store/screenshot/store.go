// Package screenshot keeps uploaded step screenshots in a shared directory.
package screenshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	domain "github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName collapses a logical file name to a safe basename.
func SanitizeName(name string) (string, error) {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "", domain.ErrInvalidScreenshotName
	}
	return name, nil
}

// Store implementasi ScreenshotStore di filesystem lokal
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes r under the sanitized name, replacing any previous file.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	safe, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(s.dir, safe))
	if err != nil {
		return "", fmt.Errorf("create screenshot %s: %w", safe, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write screenshot %s: %w", safe, err)
	}
	return safe, nil
}

// Resolve only ever looks inside the screenshot directory, by basename.
func (s *Store) Resolve(ref string) (string, bool) {
	if strings.TrimSpace(ref) == "" {
		return "", false
	}
	safe, err := SanitizeName(ref)
	if err != nil {
		return "", false
	}
	path := filepath.Join(s.dir, safe)
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return "", false
	}
	return path, true
}
