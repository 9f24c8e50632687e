// Package cli is the reportctl command line: offline exports and backups
// against the same data directory the API server uses.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bryanwahyu/pentest-report/internal/bootstrap"
	"github.com/bryanwahyu/pentest-report/internal/config"
	"github.com/bryanwahyu/pentest-report/internal/logging"
)

var Version = "0.1.0"

// NewRootCmd builds the command tree. Tests build a fresh one per case.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Penetration test report tooling",
		Long:          "reportctl exports Word and Excel pentest reports and backs up the record store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "config.yaml", "Path to config.yaml")
	root.PersistentFlags().String("data-dir", "", "Override storage.dataDir")
	root.PersistentFlags().String("downloads-dir", "", "Override storage.downloadsDir")
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("storage.dataDir", root.PersistentFlags().Lookup("data-dir"))
	_ = v.BindPFlag("storage.downloadsDir", root.PersistentFlags().Lookup("downloads-dir"))
	_ = v.BindPFlag("logLevel", root.PersistentFlags().Lookup("log-level"))

	// Environment variable support (REPORT_CONFIG, REPORT_STORAGE_DATADIR, ...)
	v.SetEnvPrefix("REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newExportCmd(v))
	root.AddCommand(newBackupCmd(v))
	root.AddCommand(newVersionCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the YAML file and applies flag/env overrides.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if d := v.GetString("storage.dataDir"); d != "" {
		cfg.Storage.DataDir = d
	}
	if d := v.GetString("storage.downloadsDir"); d != "" {
		cfg.Storage.DownloadsDir = d
	}
	return cfg, nil
}

// withApp runs fn against freshly wired services.
func withApp(ctx context.Context, v *viper.Viper, fn func(*config.Config, *bootstrap.App) error) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	log := logging.InitLogger(v.GetString("logLevel"))
	defer log.Sync()

	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("init services", zap.Error(err))
		return err
	}
	defer app.Close()
	return fn(cfg, app)
}
