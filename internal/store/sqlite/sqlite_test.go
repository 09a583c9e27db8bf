package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kasirdemo/backend/internal/demo"
	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "demo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func generated(t *testing.T) domain.Snapshot {
	t.Helper()
	seed := uint64(7)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	state, _, err := demo.Generate(context.Background(), demo.Options{
		Seed:     &seed,
		Days:     10,
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	require.NoError(t, err)
	return domain.Snapshot{RunID: "run-1", Seed: &seed, Days: 10, GeneratedAt: now, State: state}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LatestSnapshot(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.ListOrders(context.Background(), time.Time{}, time.Time{}, 0)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	want := generated(t)
	require.NoError(t, s.SaveSnapshot(ctx, want))

	got, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, want.RunID, got.RunID)
	require.Equal(t, *want.Seed, *got.Seed)
	require.True(t, want.GeneratedAt.Equal(got.GeneratedAt))
	require.Equal(t, want.State.Settings, got.State.Settings)
	require.Equal(t, want.State.Categories, got.State.Categories)
	require.Len(t, got.State.Items, len(want.State.Items))
	require.Len(t, got.State.Orders, len(want.State.Orders))

	for i, item := range got.State.Items {
		require.Equal(t, want.State.Items[i].ID, item.ID)
		require.True(t, want.State.Items[i].Price.Equal(item.Price))
		require.ElementsMatch(t, want.State.Items[i].Taxes, item.Taxes)
	}
	for i, order := range got.State.Orders {
		w := want.State.Orders[i]
		require.Equal(t, w.ID, order.ID)
		require.Equal(t, w.DateClose, order.DateClose)
		require.True(t, w.TotalPaymentAmount.Equal(order.TotalPaymentAmount))
		require.Len(t, order.Items, len(w.Items))
		for n, line := range order.Items {
			require.Equal(t, w.Items[n].ItemID, line.ItemID)
			require.Equal(t, w.Items[n].Quantity, line.Quantity)
			require.True(t, w.Items[n].Amount.Equal(line.Amount))
		}
	}
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	first := generated(t)
	require.NoError(t, s.SaveSnapshot(ctx, first))

	second := first
	second.RunID = "run-2"
	second.GeneratedAt = first.GeneratedAt.Add(time.Hour)
	second.State.Orders = first.State.Orders[:1]
	require.NoError(t, s.SaveSnapshot(ctx, second))

	got, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-2", got.RunID)
	require.Len(t, got.State.Orders, 1)
}

func TestListOrdersWindow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	snap := generated(t)
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	day := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	got, err := s.ListOrders(ctx, day, day.AddDate(0, 0, 1), 0)
	require.NoError(t, err)
	want := store.FilterOrders(snap.State.Orders, day, day.AddDate(0, 0, 1), 0)
	require.Len(t, got, len(want))
	for i := range got {
		require.Equal(t, want[i].ID, got[i].ID)
		require.Len(t, got[i].Items, len(want[i].Items))
	}

	limited, err := s.ListOrders(ctx, time.Time{}, time.Time{}, 3)
	require.NoError(t, err)
	require.LessOrEqual(t, len(limited), 3)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: "Admin", Password: "hash", Role: "admin", Active: true}))
	require.ErrorIs(t, s.CreateUser(ctx, domain.UserAccount{Username: "admin", Password: "hash"}), store.ErrInvalidUser)
	require.NoError(t, s.UpdateUserPassword(ctx, "admin", "hash2"))
	require.ErrorIs(t, s.UpdateUserPassword(ctx, "ghost", "x"), store.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "hash2", users[0].Password)
	require.True(t, users[0].Active)
}
