package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanwahyu/pentest-report/internal/bootstrap"
	"github.com/bryanwahyu/pentest-report/internal/config"
)

func newBackupCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write every application and its findings to one JSON backup file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), v, func(cfg *config.Config, app *bootstrap.App) error {
				path, err := app.Records.Backup(cmd.Context())
				if err != nil {
					return err
				}
				abs, _ := filepath.Abs(path)
				fmt.Fprintf(cmd.OutOrStdout(), "backup: %s\n", abs)
				return nil
			})
		},
	}
}
