// Package state owns the AppState that demo generation builds up, and the
// category, tax, item and order actions that mutate it.
package state

import (
	"sync"

	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/xid"
)

// Partial is a shallow state update. Every non-nil field replaces the
// matching field of the current state; nil fields are left untouched.
type Partial struct {
	Settings   *domain.Settings
	Categories *[]domain.Category
	Taxes      *[]domain.Tax
	Items      *[]domain.Item
	Orders     *[]domain.Order
}

// Accumulator holds the single mutable AppState during generation.
//
// Snapshots share slice storage with the accumulator. Appends made later are
// not visible through an earlier snapshot, but order updates write the order
// in place, so an earlier snapshot does see a later status or total change on
// an order it already holds. Treat snapshots as read-only and call
// AppState.Clone to get a copy that later updates cannot reach.
type Accumulator struct {
	mu    sync.Mutex
	value domain.AppState
	ids   *xid.Sequence
}

func New(initial domain.AppState, ids *xid.Sequence) *Accumulator {
	if ids == nil {
		ids = xid.NewRandomSequence()
	}
	return &Accumulator{value: initial, ids: ids}
}

// Snapshot returns the current state. See Accumulator for what it shares.
func (a *Accumulator) Snapshot() domain.AppState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

func (a *Accumulator) Merge(p Partial) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.merge(p)
}

// Update runs a read-modify-write under the accumulator lock. fn receives the
// current state and returns the partial to merge; an error discards the update.
// fn must not call back into the accumulator.
func (a *Accumulator) Update(fn func(current domain.AppState) (Partial, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := fn(a.value)
	if err != nil {
		return err
	}
	a.merge(p)
	return nil
}

func (a *Accumulator) merge(p Partial) {
	if p.Settings != nil {
		a.value.Settings = *p.Settings
	}
	if p.Categories != nil {
		a.value.Categories = *p.Categories
	}
	if p.Taxes != nil {
		a.value.Taxes = *p.Taxes
	}
	if p.Items != nil {
		a.value.Items = *p.Items
	}
	if p.Orders != nil {
		a.value.Orders = *p.Orders
	}
}
