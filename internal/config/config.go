package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

type Config struct {
	Server struct {
		Port        int               `yaml:"port"`
		LogLevel    string            `yaml:"logLevel"`
		APIKeys     map[string]string `yaml:"apiKeys"` // user name → key
		CORSOrigins []string          `yaml:"corsOrigins"`
		RateLimit   struct {
			PerSecond float64 `yaml:"perSecond"`
			Burst     int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Storage struct {
		DataDir       string `yaml:"dataDir"`
		ScreenshotDir string `yaml:"screenshotDir"`
		DownloadsDir  string `yaml:"downloadsDir"`
		ImageCacheDir string `yaml:"imageCacheDir"`
		BackupDir     string `yaml:"backupDir"`
		WordTemplate  string `yaml:"wordTemplate"`
		ExcelTemplate string `yaml:"excelTemplate"`
		VulnTemplates string `yaml:"vulnTemplates"`
	} `yaml:"storage"`

	Images struct {
		BakeBorder     bool    `yaml:"bakeBorder"`
		BorderMode     string  `yaml:"borderMode"`
		BorderWidth    int     `yaml:"borderWidth"`
		BorderColor    string  `yaml:"borderColor"`
		FadeStrength   float64 `yaml:"fadeStrength"`
		WhiteTolerance int     `yaml:"whiteTolerance"`
		DisplayWidth   float64 `yaml:"displayWidth"`
		PageWidth      float64 `yaml:"pageWidth"`
		PictureOutline bool    `yaml:"pictureOutline"`
		OutlineWidthPt float64 `yaml:"outlineWidthPt"`
		OutlineColor   string  `yaml:"outlineColor"`
	} `yaml:"images"`

	Audit struct {
		Driver string `yaml:"driver"` // file | mysql | postgres
	} `yaml:"audit"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Default returns a config with every field filled in.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.LogLevel = "info"
	c.Server.RateLimit.PerSecond = 2
	c.Server.RateLimit.Burst = 5

	c.Storage.DataDir = "data"
	c.Storage.ScreenshotDir = "static/screenshots"
	c.Storage.DownloadsDir = "exports/word_reports"
	c.Storage.ImageCacheDir = "exports/_img_cache"
	c.Storage.BackupDir = "exports/json_backups"
	c.Storage.WordTemplate = "templates/report_template.docx"
	c.Storage.ExcelTemplate = "templates/Excel_Template.xlsx"
	c.Storage.VulnTemplates = "data/templates/vuln_templates.json"

	c.Images.BakeBorder = true
	c.Images.BorderMode = string(reports.BorderInset)
	c.Images.BorderWidth = 1
	c.Images.BorderColor = "808080"
	c.Images.FadeStrength = 0.5
	c.Images.WhiteTolerance = 10
	c.Images.DisplayWidth = 6.48
	c.Images.PageWidth = 6.5
	c.Images.OutlineWidthPt = 0.75
	c.Images.OutlineColor = "000000"

	c.Audit.Driver = "file"
	return &c
}

// Load baca file config.yaml di atas Default
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects settings the exporters cannot work with.
func (c *Config) Validate() error {
	switch reports.BorderMode(c.Images.BorderMode) {
	case reports.BorderInset, reports.BorderExpand:
	default:
		return fmt.Errorf("images.borderMode: unknown mode %q", c.Images.BorderMode)
	}
	if c.Images.BorderWidth < 1 {
		return fmt.Errorf("images.borderWidth must be >= 1, got %d", c.Images.BorderWidth)
	}
	if c.Images.FadeStrength < 0 || c.Images.FadeStrength > 1 {
		return fmt.Errorf("images.fadeStrength must be within [0,1], got %v", c.Images.FadeStrength)
	}
	if c.Images.WhiteTolerance < 0 || c.Images.WhiteTolerance > 255 {
		return fmt.Errorf("images.whiteTolerance must be within [0,255], got %d", c.Images.WhiteTolerance)
	}
	if _, err := ParseHexColor(c.Images.BorderColor); err != nil {
		return fmt.Errorf("images.borderColor: %w", err)
	}
	switch c.Audit.Driver {
	case "", "file", "mysql", "postgres":
	default:
		return fmt.Errorf("audit.driver: unknown driver %q", c.Audit.Driver)
	}
	return nil
}

// Border builds the per-call border settings for the image normalizer.
func (c *Config) Border() reports.BorderConfig {
	color, err := ParseHexColor(c.Images.BorderColor)
	if err != nil {
		color = reports.DefaultBorder().Color
	}
	return reports.BorderConfig{
		Bake:         c.Images.BakeBorder,
		Mode:         reports.BorderMode(c.Images.BorderMode),
		WidthPx:      c.Images.BorderWidth,
		Color:        color,
		FadeStrength: c.Images.FadeStrength,
	}
}

// ParseHexColor reads "RRGGBB" with or without a leading '#'.
func ParseHexColor(s string) (reports.RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return reports.RGB{}, fmt.Errorf("color %q is not RRGGBB", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return reports.RGB{}, fmt.Errorf("color %q is not RRGGBB", s)
	}
	return reports.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	sslmode := c.Database.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslmode,
	)
}
