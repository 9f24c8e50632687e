package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryanwahyu/pentest-report/internal/application"
	domain "github.com/bryanwahyu/pentest-report/internal/domain/applications"
)

// ApplicationRepository stores one JSON file per application id.
type ApplicationRepository struct {
	dir   string
	clock application.Clock
}

func NewApplicationRepository(dataDir string, clock application.Clock) (*ApplicationRepository, error) {
	dir := filepath.Join(dataDir, "applications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create applications dir: %w", err)
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &ApplicationRepository{dir: dir, clock: clock}, nil
}

// Dir is the directory holding application records.
func (r *ApplicationRepository) Dir() string { return r.dir }

// Get by ID
func (r *ApplicationRepository) Get(ctx context.Context, id string) (*domain.Application, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	a, err := r.read(filepath.Join(r.dir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// List decodes every record in directory order.
func (r *ApplicationRepository) List(ctx context.Context) ([]*domain.Application, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read applications dir: %w", err)
	}
	out := []*domain.Application{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := r.read(filepath.Join(r.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Save assigns a timestamp id when missing, rewrites ISO dates to DD-MM-YYYY
// and overwrites the whole record.
func (r *ApplicationRepository) Save(ctx context.Context, a *domain.Application) error {
	if strings.TrimSpace(a.ID) == "" {
		// one-second granularity, two creates in the same second share an id
		a.ID = "app_" + r.clock.Now().UTC().Format("20060102150405")
	}
	a.StartDate = domain.NormalizeDate(a.StartDate)
	a.EndDate = domain.NormalizeDate(a.EndDate)
	a.Normalize()

	path, err := recordPath(r.dir, a.ID)
	if err != nil {
		return err
	}
	return writeJSON(path, a)
}

func (r *ApplicationRepository) read(path string) (*domain.Application, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a domain.Application
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	a.Normalize()
	return &a, nil
}
