package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bryanwahyu/pentest-report/internal/bootstrap"
	"github.com/bryanwahyu/pentest-report/internal/config"
	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

func newExportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "export word|excel",
		Short:     "Export the Word report or the Excel findings sheet for one application",
		Example:   "reportctl export word --app app_20240605101500",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(reports.KindDocument), string(reports.KindSpreadsheet)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, v, reports.Kind(args[0]))
		},
	}
	cmd.Flags().String("app", "", "Application id")
	_ = v.BindPFlag("export.app", cmd.Flags().Lookup("app"))
	return cmd
}

func runExport(cmd *cobra.Command, v *viper.Viper, kind reports.Kind) error {
	appID := v.GetString("export.app")
	if appID == "" {
		return errors.New("please provide --app with the application id")
	}
	return withApp(cmd.Context(), v, func(cfg *config.Config, app *bootstrap.App) error {
		out := cmd.OutOrStdout()
		preflight(cmd.Context(), out, cfg, app, kind, appID)

		var (
			res reports.Result
			err error
		)
		switch kind {
		case reports.KindDocument:
			res, err = app.Reports.ExportDocument(cmd.Context(), appID)
		case reports.KindSpreadsheet:
			res, err = app.Reports.ExportSpreadsheet(cmd.Context(), appID)
		}
		if err != nil {
			return err
		}

		title := cases.Title(language.English).String(string(kind))
		fmt.Fprintf(out, "%s report: %s (%d findings)\n", title, res.Path, res.Rows)
		if res.URL != "" {
			fmt.Fprintf(out, "published: %s\n", res.URL)
		}
		return nil
	})
}

// preflight prints which inputs an export needs and whether they exist.
func preflight(ctx context.Context, out io.Writer, cfg *config.Config, app *bootstrap.App, kind reports.Kind, appID string) {
	template := cfg.Storage.WordTemplate
	if kind == reports.KindSpreadsheet {
		template = cfg.Storage.ExcelTemplate
	}
	_, terr := os.Stat(template)
	_, aerr := app.Records.GetApplication(ctx, appID)
	vulns, _ := app.Records.ListVulnerabilities(ctx, appID)

	fmt.Fprintf(out, "template      %-5t %s\n", terr == nil, template)
	fmt.Fprintf(out, "application   %-5t %s\n", aerr == nil, appID)
	fmt.Fprintf(out, "findings      %d\n", len(vulns))
}
