// Package cli implements the posdemo command line: dataset generation and
// offline reports over a simulated POS history.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kasirdemo/backend/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel  string
	LogFormat string
	Timezone  string

	log zerolog.Logger
	now func() time.Time
}

var validLogFormats = []string{"console", "json"}

// NewRootCommand creates the posdemo root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(time.Now)
}

func newRootCommand(now func() time.Time) *cobra.Command {
	opts := &RootOptions{now: now}

	cmd := &cobra.Command{
		Use:           "posdemo",
		SilenceErrors: true,
		Short:         "Generate demo POS datasets",
		Long:          "Seeds a coffee bar catalog and simulates a trailing window of charged orders.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(strings.ToLower(opts.LogLevel))
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
			}
			if !isValidLogFormat(opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, validLogFormats)
			}
			if _, err := opts.location(); err != nil {
				return err
			}
			// Logs go to stderr so they never mix with exported data.
			opts.log = logger.New(cmd.ErrOrStderr(), opts.LogFormat).Level(level).
				With().Str("component", "cli").Logger()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "console", "log format (console|json)")
	cmd.PersistentFlags().StringVar(&opts.Timezone, "timezone", "Local", "IANA zone that defines calendar days")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

func (o *RootOptions) location() (*time.Location, error) {
	if o.Timezone == "" || o.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", o.Timezone, err)
	}
	return loc, nil
}

func isValidLogFormat(format string) bool {
	for _, f := range validLogFormats {
		if f == format {
			return true
		}
	}
	return false
}
