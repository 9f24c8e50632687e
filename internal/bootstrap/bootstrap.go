// Package bootstrap wires the services from a loaded config. The API server
// and the CLI share it.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bryanwahyu/pentest-report/internal/application"
	"github.com/bryanwahyu/pentest-report/internal/application/records"
	appreports "github.com/bryanwahyu/pentest-report/internal/application/reports"
	"github.com/bryanwahyu/pentest-report/internal/config"
	"github.com/bryanwahyu/pentest-report/internal/domain/audit"
	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
	mysqlp "github.com/bryanwahyu/pentest-report/internal/infra/db/mysql"
	"github.com/bryanwahyu/pentest-report/internal/infra/db/postgres"
	"github.com/bryanwahyu/pentest-report/internal/infra/docx"
	"github.com/bryanwahyu/pentest-report/internal/infra/imaging"
	minioStore "github.com/bryanwahyu/pentest-report/internal/infra/storage"
	"github.com/bryanwahyu/pentest-report/internal/infra/store/jsonfile"
	"github.com/bryanwahyu/pentest-report/internal/infra/store/screenshot"
	"github.com/bryanwahyu/pentest-report/internal/infra/xlsx"
	"github.com/bryanwahyu/pentest-report/internal/middleware"
)

// App holds the wired services.
type App struct {
	Records  *records.Service
	Reports  *appreports.Service
	Metrics  *middleware.Metrics
	Checkers map[string]middleware.HealthChecker

	db *sql.DB
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Build creates the stores, adapters and services described by cfg.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	clock := application.SystemClock{}

	appRepo, err := jsonfile.NewApplicationRepository(cfg.Storage.DataDir, clock)
	if err != nil {
		return nil, err
	}
	vulnRepo, err := jsonfile.NewVulnerabilityRepository(cfg.Storage.DataDir, clock)
	if err != nil {
		return nil, err
	}
	shots, err := screenshot.New(cfg.Storage.ScreenshotDir)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.Storage.DownloadsDir, cfg.Storage.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	normalizer, err := imaging.NewNormalizer(imaging.Options{
		CacheDir:           cfg.Storage.ImageCacheDir,
		WhiteTolerance:     uint8(cfg.Images.WhiteTolerance),
		DisplayWidthInches: cfg.Images.DisplayWidth,
		PageContentInches:  cfg.Images.PageWidth,
	}, log.Named("imaging"))
	if err != nil {
		return nil, err
	}

	app := &App{
		Metrics: middleware.NewMetrics(),
		Checkers: map[string]middleware.HealthChecker{
			"data":          &middleware.DirHealthChecker{Dir: cfg.Storage.DataDir},
			"downloads":     &middleware.DirHealthChecker{Dir: cfg.Storage.DownloadsDir},
			"word_template": &middleware.FileHealthChecker{Path: cfg.Storage.WordTemplate},
		},
	}

	auditRepo, err := app.auditRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher reports.Publisher
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		publisher = store
	}

	app.Records = &records.Service{
		Applications:    appRepo,
		Vulnerabilities: vulnRepo,
		Screenshots:     shots,
		Audit:           auditRepo,
		Log:             log.Named("records"),
		Clock:           clock,
		BackupDir:       cfg.Storage.BackupDir,
		TemplatesFile:   cfg.Storage.VulnTemplates,
	}
	app.Reports = &appreports.Service{
		Applications:    appRepo,
		Vulnerabilities: vulnRepo,
		Screenshots:     shots,
		Images:          normalizer,
		Documents:       docx.Engine{},
		Workbooks:       xlsx.Engine{},
		Publisher:       publisher,
		Audit:           auditRepo,
		Recorder:        app.Metrics,
		Log:             log.Named("reports"),
		Clock:           clock,
		Options: appreports.Options{
			WordTemplate:   cfg.Storage.WordTemplate,
			ExcelTemplate:  cfg.Storage.ExcelTemplate,
			DownloadsDir:   cfg.Storage.DownloadsDir,
			Border:         cfg.Border(),
			PictureOutline: cfg.Images.PictureOutline,
			OutlineWidthPt: cfg.Images.OutlineWidthPt,
			OutlineColor:   cfg.Images.OutlineColor,
		},
	}
	return app, nil
}

func (a *App) auditRepository(ctx context.Context, cfg *config.Config) (audit.Repository, error) {
	switch cfg.Audit.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		repo := mysqlp.NewAuditRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("mysql migrate: %w", err)
		}
		a.db = db
		a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		return repo, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo := postgres.NewAuditRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		a.db = db
		a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		return repo, nil
	default:
		return jsonfile.NewAuditRepository(cfg.Storage.DataDir)
	}
}
