package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kasirdemo/backend/internal/cache"
	"kasirdemo/backend/internal/catalog"
	"kasirdemo/backend/internal/demo"
	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/report"
	"kasirdemo/backend/internal/store"
	"kasirdemo/backend/internal/xid"
)

const (
	MaxDays          = 3650
	defaultListLimit = 100
	maxListLimit     = 1000
	defaultPairLimit = 10
	// MinPairAffinity drops item pairs that co-occur on fewer than a fifth
	// of the source item's orders.
	MinPairAffinity = 0.2
)

var (
	ErrAdminRequired  = errors.New("admin role required")
	ErrInvalidRequest = errors.New("invalid request")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Days     int
	Seed     *uint64
	Catalog  *catalog.Definition
	Location *time.Location
	CacheTTL time.Duration
	Now      func() time.Time
	Logger   zerolog.Logger
}

type Service struct {
	repo  store.Repository
	cache cache.SnapshotCache
	opts  Options
	log   zerolog.Logger

	// generation is serialized so concurrent first reads build one run
	genMu sync.Mutex
}

func New(repo store.Repository, snapshotCache cache.SnapshotCache, opts Options) *Service {
	if snapshotCache == nil {
		snapshotCache = cache.NoopSnapshotCache{}
	}
	if opts.Days < 1 {
		opts.Days = 180
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:  repo,
		cache: snapshotCache,
		opts:  opts,
		log:   opts.Logger.With().Str("component", "service").Logger(),
	}
}

// Generate replaces the current dataset with a fresh run. Admin only.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.GenerateResponse{}, ErrAdminRequired
	}
	if req.Days < 0 || req.Days > MaxDays {
		return domain.GenerateResponse{}, fmt.Errorf("%w: days must be between 0 and %d, 0 selects the default", ErrInvalidRequest, MaxDays)
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	snapshot, err := s.generate(ctx, req)
	if err != nil {
		return domain.GenerateResponse{}, err
	}
	s.log.Info().
		Str("actor", actor.Username).
		Str("run_id", snapshot.RunID).
		Int("orders", len(snapshot.State.Orders)).
		Msg("demo dataset regenerated")
	return toGenerateResponse(snapshot), nil
}

// Current returns the latest run, from cache, then storage. The first call
// on an empty store generates one with the configured defaults.
func (s *Service) Current(ctx context.Context) (domain.Snapshot, error) {
	if cached, ok, err := s.cache.Get(ctx, cache.CurrentSnapshotKey); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("snapshot cache read failed")
	}

	snapshot, err := s.repo.LatestSnapshot(ctx)
	if err == nil {
		s.storeInCache(ctx, snapshot)
		return *snapshot, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Snapshot{}, err
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	// another caller may have generated while this one waited
	if snapshot, err := s.repo.LatestSnapshot(ctx); err == nil {
		return *snapshot, nil
	}
	generated, err := s.generate(ctx, domain.GenerateRequest{})
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.log.Info().Str("run_id", generated.RunID).Msg("initial demo dataset generated")
	return generated, nil
}

// DailyReport summarizes the current run per day; from and to are optional
// YYYY-MM-DD bounds, inclusive.
func (s *Service) DailyReport(ctx context.Context, from string, to string) ([]report.DaySummary, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	for _, date := range []string{from, to} {
		if date == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrInvalidRequest, date)
		}
	}
	if from != "" && to != "" && from > to {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidRequest)
	}

	snapshot, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return report.FilterRange(report.Daily(snapshot.State, s.opts.Location), from, to), nil
}

// ListOrders returns orders opened on date (YYYY-MM-DD), or the earliest
// orders of the run when date is empty.
func (s *Service) ListOrders(ctx context.Context, date string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var from, to time.Time
	if date = strings.TrimSpace(date); date != "" {
		day, err := time.ParseInLocation(time.DateOnly, date, s.opts.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrInvalidRequest, date)
		}
		from = day
		to = day.AddDate(0, 0, 1)
	}

	if _, err := s.Current(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx, from, to, limit)
}

func (s *Service) TopPairs(ctx context.Context, limit int) ([]report.Pair, error) {
	if limit < 1 {
		limit = defaultPairLimit
	}
	snapshot, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return report.TopPairs(snapshot.State, MinPairAffinity, limit), nil
}

// generate runs the simulator and persists the result. Callers hold genMu.
func (s *Service) generate(ctx context.Context, req domain.GenerateRequest) (domain.Snapshot, error) {
	days := req.Days
	if days == 0 {
		days = s.opts.Days
	}
	seed := req.Seed
	if seed == nil {
		seed = s.opts.Seed
	}

	startedAt := time.Now()
	state, stats, err := demo.Generate(ctx, demo.Options{
		Catalog:  s.opts.Catalog,
		Seed:     seed,
		Days:     days,
		Now:      s.opts.Now,
		Location: s.opts.Location,
		Logger:   s.log,
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("generate demo state: %w", err)
	}

	snapshot := domain.Snapshot{
		RunID:       xid.New("run"),
		Seed:        seed,
		Days:        days,
		GeneratedAt: s.opts.Now().UTC(),
		State:       state,
	}
	if err := s.repo.SaveSnapshot(ctx, snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.cache.Delete(ctx, cache.CurrentSnapshotKey); err != nil {
		s.log.Warn().Err(err).Msg("snapshot cache invalidation failed")
	}
	s.storeInCache(ctx, &snapshot)

	s.log.Debug().
		Int("days", stats.Days).
		Int("orders", stats.Orders).
		Str("revenue", stats.Revenue.StringFixed(2)).
		Dur("took", time.Since(startedAt)).
		Msg("simulation finished")
	return snapshot, nil
}

func (s *Service) storeInCache(ctx context.Context, snapshot *domain.Snapshot) {
	if err := s.cache.Set(ctx, cache.CurrentSnapshotKey, snapshot, s.opts.CacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("snapshot cache write failed")
	}
}

func toGenerateResponse(snapshot domain.Snapshot) domain.GenerateResponse {
	revenue := report.Total(report.Daily(snapshot.State, time.UTC)).Revenue
	return domain.GenerateResponse{
		RunID:       snapshot.RunID,
		Days:        snapshot.Days,
		Orders:      len(snapshot.State.Orders),
		Revenue:     revenue.StringFixed(2),
		GeneratedAt: snapshot.GeneratedAt.Format(time.RFC3339),
	}
}
