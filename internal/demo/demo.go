// Package demo assembles a complete demo AppState: a seeded catalog plus a
// simulated order history.
package demo

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kasirdemo/backend/internal/catalog"
	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/random"
	"kasirdemo/backend/internal/simulator"
	"kasirdemo/backend/internal/state"
	"kasirdemo/backend/internal/xid"
)

type Options struct {
	// Catalog defaults to catalog.Default().
	Catalog *catalog.Definition
	// Seed fixes both the random draws and the generated ids. Nil means a
	// time-seeded run with random ids.
	Seed          *uint64
	Days          int
	MaxOrdersDraw int
	Now           func() time.Time
	Location      *time.Location
	Logger        zerolog.Logger
}

// GenerateDemoState builds the default coffee bar dataset over the 180 days up to now.
func GenerateDemoState() (domain.AppState, error) {
	state, _, err := Generate(context.Background(), Options{})
	return state, err
}

// Generate seeds the catalog into a fresh accumulator, runs the simulator and
// returns a detached copy of the final state.
func Generate(ctx context.Context, opts Options) (domain.AppState, simulator.Stats, error) {
	def := catalog.Default()
	if opts.Catalog != nil {
		def = *opts.Catalog
	}

	var rng random.Source
	var ids *xid.Sequence
	if opts.Seed != nil {
		rng = random.New(*opts.Seed)
		ids = xid.NewSequence(xid.NamespaceFor(*opts.Seed))
	} else {
		rng = random.NewTimeSeeded()
		ids = xid.NewRandomSequence()
	}

	acc := state.New(domain.AppState{}, ids)
	seeded, err := catalog.Seed(acc, def)
	if err != nil {
		return domain.AppState{}, simulator.Stats{}, err
	}
	opts.Logger.Debug().
		Int("categories", len(seeded.CategoryIDs)).
		Int("items", seeded.Items).
		Msg("catalog seeded")

	sim := simulator.New(acc, simulator.Options{
		Days:          opts.Days,
		MaxOrdersDraw: opts.MaxOrdersDraw,
		Now:           opts.Now,
		Location:      opts.Location,
		Rand:          rng,
		Logger:        opts.Logger,
	})
	stats, err := sim.Run(ctx)
	if err != nil {
		return domain.AppState{}, stats, err
	}

	return acc.Snapshot().Clone(), stats, nil
}
