// Package simulator fabricates a history of charged orders over a trailing
// window of days, drawing baskets and closing hours at random.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/random"
	"kasirdemo/backend/internal/state"
)

const (
	DefaultDays          = 180
	DefaultMaxOrdersDraw = 30
)

var ErrEmptyCatalog = errors.New("catalog has no items to sell")

type Options struct {
	// Days is how far back the window starts; the window covers Days+1 calendar days.
	Days int
	// MaxOrdersDraw is the upper bound of the per-day draw. A day produces draw-1 orders.
	MaxOrdersDraw int
	Now           func() time.Time
	Location      *time.Location
	Rand          random.Source
	Logger        zerolog.Logger
}

type DayStats struct {
	Day        time.Time
	BasketSize int
	Orders     int
	Revenue    decimal.Decimal
}

type Stats struct {
	From    time.Time
	To      time.Time
	Days    int
	Orders  int
	Revenue decimal.Decimal
}

type Simulator struct {
	acc  *state.Accumulator
	opts Options
}

func New(acc *state.Accumulator, opts Options) *Simulator {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.MaxOrdersDraw < 1 {
		opts.MaxOrdersDraw = DefaultMaxOrdersDraw
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Rand == nil {
		opts.Rand = random.NewTimeSeeded()
	}
	return &Simulator{acc: acc, opts: opts}
}

// Window returns the days Run will visit.
func (s *Simulator) Window() []time.Time {
	return Window(s.opts.Now(), s.opts.Days, s.opts.Location)
}

// Run simulates every day of the window in order. Any failure aborts the run.
func (s *Simulator) Run(ctx context.Context) (Stats, error) {
	days := s.Window()
	stats := Stats{Revenue: decimal.Zero}
	if len(days) > 0 {
		stats.From, stats.To = days[0], days[len(days)-1]
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		dayStats, err := s.SimulateDay(day)
		if err != nil {
			return stats, fmt.Errorf("simulate %s: %w", day.Format(time.DateOnly), err)
		}
		stats.Days++
		stats.Orders += dayStats.Orders
		stats.Revenue = stats.Revenue.Add(dayStats.Revenue)

		s.opts.Logger.Debug().
			Str("day", day.Format(time.DateOnly)).
			Int("basket_size", dayStats.BasketSize).
			Int("orders", dayStats.Orders).
			Str("revenue", dayStats.Revenue.String()).
			Msg("day simulated")
	}

	s.opts.Logger.Info().
		Str("from", stats.From.Format(time.DateOnly)).
		Str("to", stats.To.Format(time.DateOnly)).
		Int("days", stats.Days).
		Int("orders", stats.Orders).
		Str("revenue", stats.Revenue.String()).
		Msg("order history generated")

	return stats, nil
}

// SimulateDay draws one basket for the day and charges draw-1 orders with it,
// each closed at a random hour of day.
func (s *Simulator) SimulateDay(day time.Time) (DayStats, error) {
	items := s.acc.Snapshot().Items
	itemsCount := len(items) - 1
	if itemsCount < 0 {
		return DayStats{}, ErrEmptyCatalog
	}

	rng := s.opts.Rand
	basket := make([]domain.Item, random.Int(rng, 1, max(itemsCount, 1)))
	for i := range basket {
		basket[i] = items[random.Int(rng, 0, itemsCount)]
	}

	stats := DayStats{Day: day, BasketSize: len(basket), Revenue: decimal.Zero}
	draw := random.Int(rng, 1, s.opts.MaxOrdersDraw)
	for i := 1; i < draw; i++ {
		at := AtHour(day, random.Int(rng, 0, 23))
		total, err := s.placeOrder(basket, at)
		if err != nil {
			return stats, err
		}
		stats.Orders++
		stats.Revenue = stats.Revenue.Add(total)
	}
	return stats, nil
}

func (s *Simulator) placeOrder(basket []domain.Item, at time.Time) (decimal.Decimal, error) {
	order, err := s.acc.OpenOrder(at)
	if err != nil {
		return decimal.Zero, err
	}
	for _, item := range basket {
		if err := s.acc.AddItemToOrder(item, order.ID); err != nil {
			return decimal.Zero, err
		}
	}

	current, ok := s.acc.Order(order.ID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", state.ErrOrderNotFound, order.ID)
	}
	paymentAmount := current.LinesTotal()

	err = s.acc.ChargeOrder(domain.Payment{
		CashPaymentAmount:  paymentAmount,
		CardPaymentAmount:  decimal.Zero,
		TotalPaymentAmount: paymentAmount,
		CashChange:         decimal.Zero,
		ClosingReason:      domain.ClosingReasonDefault,
		CustomerID:         0,
		IsDiscounted:       false,
		DateClose:          domain.Timestamp(at),
	}, order.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return paymentAmount, nil
}
