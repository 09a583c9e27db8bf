package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kasirdemo/backend/internal/catalog"
	"kasirdemo/backend/internal/demo"
	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/service"
	"kasirdemo/backend/internal/simulator"
	"kasirdemo/backend/internal/store/sqlite"
	"kasirdemo/backend/internal/xid"
)

type runOptions struct {
	seed    uint64
	days    int
	catalog string
}

func (r *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&r.seed, "seed", 0, "seed for a reproducible dataset (random when omitted)")
	cmd.Flags().IntVar(&r.days, "days", simulator.DefaultDays, "length of the trailing window in days")
	cmd.Flags().StringVar(&r.catalog, "catalog", "", "YAML catalog file (built-in coffee bar when empty)")
}

// generate runs the simulator with the flags of cmd and wraps the result in a snapshot.
func (r *runOptions) generate(ctx context.Context, cmd *cobra.Command, rootOpts *RootOptions) (domain.Snapshot, simulator.Stats, error) {
	if r.days < 1 || r.days > service.MaxDays {
		return domain.Snapshot{}, simulator.Stats{}, fmt.Errorf("--days must be between 1 and %d", service.MaxDays)
	}
	loc, err := rootOpts.location()
	if err != nil {
		return domain.Snapshot{}, simulator.Stats{}, err
	}

	opts := demo.Options{
		Days:     r.days,
		Now:      rootOpts.now,
		Location: loc,
		Logger:   rootOpts.log,
	}
	if cmd.Flags().Changed("seed") {
		seed := r.seed
		opts.Seed = &seed
	}
	if r.catalog != "" {
		def, err := catalog.LoadFile(r.catalog)
		if err != nil {
			return domain.Snapshot{}, simulator.Stats{}, err
		}
		opts.Catalog = &def
	}

	state, stats, err := demo.Generate(ctx, opts)
	if err != nil {
		return domain.Snapshot{}, stats, err
	}
	return domain.Snapshot{
		RunID:       xid.New("run"),
		Seed:        opts.Seed,
		Days:        r.days,
		GeneratedAt: rootOpts.now().UTC(),
		State:       state,
	}, stats, nil
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	run := &runOptions{}
	var out, sqlitePath string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a demo dataset",
		Long: `Seed the catalog, simulate the trailing window of orders and export the
resulting state as a JSON snapshot, a SQLite database, or both.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, stats, err := run.generate(cmd.Context(), cmd, rootOpts)
			if err != nil {
				return err
			}
			rootOpts.log.Info().
				Str("run_id", snapshot.RunID).
				Int("days", stats.Days).
				Int("orders", stats.Orders).
				Str("revenue", stats.Revenue.StringFixed(2)).
				Msg("dataset generated")

			if sqlitePath != "" {
				if err := exportSQLite(cmd.Context(), sqlitePath, snapshot); err != nil {
					return err
				}
				rootOpts.log.Info().Str("path", sqlitePath).Msg("sqlite export written")
				if out == "" {
					return nil
				}
			}

			if out == "" || out == "-" {
				return writeSnapshot(cmd.OutOrStdout(), snapshot, pretty)
			}
			if err := writeSnapshotFile(out, snapshot, pretty); err != nil {
				return err
			}
			rootOpts.log.Info().Str("path", out).Msg("snapshot written")
			return nil
		},
	}

	run.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the JSON snapshot to this file (stdout when empty or -)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also export the dataset into this SQLite file")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")

	return cmd
}

func writeSnapshot(w io.Writer, snapshot domain.Snapshot, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// writeSnapshotFile reports a failed close, since that is where a short
// write-back surfaces.
func writeSnapshotFile(path string, snapshot domain.Snapshot, pretty bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeSnapshot(f, snapshot, pretty); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func exportSQLite(ctx context.Context, path string, snapshot domain.Snapshot) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("export to %s: %w", path, err)
	}
	return nil
}
