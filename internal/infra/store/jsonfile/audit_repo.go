package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/pentest-report/internal/domain/audit"
)

// AuditRepository keeps the audit trail as a single JSON array file.
type AuditRepository struct {
	path string
}

func NewAuditRepository(dataDir string) (*AuditRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &AuditRepository{path: filepath.Join(dataDir, "audit_logs.json")}, nil
}

func (r *AuditRepository) Save(ctx context.Context, e *domain.Entry) error {
	entries, err := r.load()
	if err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	entries = append(entries, e)
	return writeJSON(r.path, entries)
}

func (r *AuditRepository) Latest(ctx context.Context, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Entry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (r *AuditRepository) load() ([]*domain.Entry, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	var entries []*domain.Entry
	if len(b) > 0 {
		if err := json.Unmarshal(b, &entries); err != nil {
			return nil, fmt.Errorf("decode audit log: %w", err)
		}
	}
	return entries, nil
}
