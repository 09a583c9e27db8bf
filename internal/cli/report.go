package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"kasirdemo/backend/internal/report"
)

var validReportFormats = []string{"csv", "table"}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	run := &runOptions{}
	var format, from, to, lang string

	cmd := &cobra.Command{
		Use:          "report",
		Short:        "Print a daily sales report for a generated dataset",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "table" {
				return fmt.Errorf("invalid format %q: must be one of %v", format, validReportFormats)
			}
			tag, err := language.Parse(lang)
			if err != nil {
				return fmt.Errorf("invalid language %q: %w", lang, err)
			}
			snapshot, _, err := run.generate(cmd.Context(), cmd, rootOpts)
			if err != nil {
				return err
			}
			loc, err := rootOpts.location()
			if err != nil {
				return err
			}

			days := report.FilterRange(report.Daily(snapshot.State, loc), from, to)
			if format == "csv" {
				return report.WriteCSV(cmd.OutOrStdout(), days)
			}
			return report.WriteTable(cmd.OutOrStdout(), days, tag)
		},
	}

	run.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "output format (csv|table)")
	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&lang, "lang", "en", "locale for table number formatting")

	return cmd
}
