package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryanwahyu/pentest-report/internal/application"
	domain "github.com/bryanwahyu/pentest-report/internal/domain/vulnerabilities"
)

// VulnerabilityRepository stores each application's findings as one JSON list.
type VulnerabilityRepository struct {
	dir   string
	clock application.Clock
}

func NewVulnerabilityRepository(dataDir string, clock application.Clock) (*VulnerabilityRepository, error) {
	dir := filepath.Join(dataDir, "vulnerabilities")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create vulnerabilities dir: %w", err)
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &VulnerabilityRepository{dir: dir, clock: clock}, nil
}

func (r *VulnerabilityRepository) List(ctx context.Context, appID string) ([]domain.Vulnerability, error) {
	path, err := recordPath(r.dir, appID)
	if err != nil {
		return []domain.Vulnerability{}, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Vulnerability{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vulnerabilities for %s: %w", appID, err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return []domain.Vulnerability{}, nil
	}
	var out []domain.Vulnerability
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode vulnerabilities for %s: %w", appID, err)
	}
	if out == nil {
		out = []domain.Vulnerability{}
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}

func (r *VulnerabilityRepository) Exists(ctx context.Context, appID string) (bool, error) {
	path, err := recordPath(r.dir, appID)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Replace overwrites the whole list; used by the edit flow.
func (r *VulnerabilityRepository) Replace(ctx context.Context, appID string, vulns []domain.Vulnerability) error {
	path, err := recordPath(r.dir, appID)
	if err != nil {
		return err
	}
	if vulns == nil {
		vulns = []domain.Vulnerability{}
	}
	for i := range vulns {
		vulns[i].Normalize()
	}
	return writeJSON(path, vulns)
}

// Append reads the current list, adds v and writes it back. Concurrent
// appends for the same application can drop each other's write.
func (r *VulnerabilityRepository) Append(ctx context.Context, appID string, v domain.Vulnerability, modifiedBy string) error {
	current, err := r.List(ctx, appID)
	if err != nil {
		return err
	}
	if modifiedBy == "" {
		modifiedBy = "system"
	}
	v.CreatedAt = r.clock.Now().UTC().Format(time.RFC3339Nano)
	v.ModifiedBy = modifiedBy
	return r.Replace(ctx, appID, append(current, v))
}
