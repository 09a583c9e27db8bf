package cache

import (
	"context"
	"time"

	"kasirdemo/backend/internal/domain"
)

// CurrentSnapshotKey holds the most recently generated run.
const CurrentSnapshotKey = "kasirdemo:snapshot:current"

type SnapshotCache interface {
	Get(ctx context.Context, key string) (*domain.Snapshot, bool, error)
	Set(ctx context.Context, key string, value *domain.Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context, _ string) (*domain.Snapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ string, _ *domain.Snapshot, _ time.Duration) error {
	return nil
}

func (NoopSnapshotCache) Delete(_ context.Context, _ string) error {
	return nil
}
