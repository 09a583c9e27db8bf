package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"kasirdemo/backend/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvalidUser     = errors.New("invalid user")
)

type Repository interface {
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	ListOrders(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Order, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// ValidateSnapshot rejects snapshots that cannot be persisted or replayed.
func ValidateSnapshot(snapshot domain.Snapshot) error {
	if snapshot.RunID == "" || snapshot.GeneratedAt.IsZero() || snapshot.Days < 1 {
		return ErrInvalidSnapshot
	}
	return nil
}

// FilterOrders keeps orders opened in [from, to). Zero bounds are open.
// Results are ordered by open time; limit < 1 keeps all.
func FilterOrders(orders []domain.Order, from time.Time, to time.Time, limit int) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		opened := domain.TimeFromTimestamp(order.DateOpen)
		if !from.IsZero() && opened.Before(from) {
			continue
		}
		if !to.IsZero() && !opened.Before(to) {
			continue
		}
		order.Items = slices.Clone(order.Items)
		out = append(out, order)
	}
	slices.SortStableFunc(out, func(a, b domain.Order) int {
		switch {
		case a.DateOpen < b.DateOpen:
			return -1
		case a.DateOpen > b.DateOpen:
			return 1
		}
		return a.Number - b.Number
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
