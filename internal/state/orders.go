package state

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kasirdemo/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// OpenOrder creates an empty open order stamped with at.
func (a *Accumulator) OpenOrder(at time.Time) (domain.Order, error) {
	var created domain.Order
	err := a.Update(func(cur domain.AppState) (Partial, error) {
		created = domain.Order{
			ID:       a.ids.Next("order"),
			Number:   len(cur.Orders) + 1,
			Status:   domain.OrderStatusOpen,
			Items:    []domain.OrderLine{},
			DateOpen: domain.Timestamp(at),
		}
		orders := append(cur.Orders, created)
		return Partial{Orders: &orders}, nil
	})
	return created, err
}

// Order returns the order with the given id.
func (a *Accumulator) Order(orderID string) (domain.Order, bool) {
	snap := a.Snapshot()
	idx := findOrder(snap.Orders, orderID)
	if idx < 0 {
		return domain.Order{}, false
	}
	order := snap.Orders[idx]
	order.Items = append([]domain.OrderLine(nil), order.Items...)
	return order, true
}

// AddItemToOrder attaches one unit of item to an open order. A repeated item
// increments the quantity of its existing line.
func (a *Accumulator) AddItemToOrder(item domain.Item, orderID string) error {
	return a.Update(func(cur domain.AppState) (Partial, error) {
		idx := findOrder(cur.Orders, orderID)
		if idx < 0 {
			return Partial{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		order := cur.Orders[idx]
		if order.Status != domain.OrderStatusOpen {
			return Partial{}, fmt.Errorf("%w: %s", ErrOrderClosed, orderID)
		}
		if !itemExists(cur.Items, item.ID) {
			return Partial{}, fmt.Errorf("%w: %s", ErrUnknownItem, item.ID)
		}

		unitAmount, unitTax := LinePricing(item, cur.Taxes)
		lines := append([]domain.OrderLine(nil), order.Items...)
		if j := findLine(lines, item.ID); j >= 0 {
			lines[j].Quantity++
			lines[j].Amount = lines[j].Amount.Add(unitAmount)
			lines[j].TaxAmount = lines[j].TaxAmount.Add(unitTax)
		} else {
			lines = append(lines, domain.OrderLine{
				ItemID:    item.ID,
				Name:      item.Name,
				Quantity:  1,
				Price:     item.Price,
				CostPrice: item.CostPrice,
				Amount:    unitAmount,
				TaxAmount: unitTax,
			})
		}

		order.Items = lines
		order.Amount = order.LinesTotal()
		order.TaxAmount = decimal.Zero
		for _, line := range lines {
			order.TaxAmount = order.TaxAmount.Add(line.TaxAmount)
		}

		orders := cur.Orders
		orders[idx] = order
		return Partial{Orders: &orders}, nil
	})
}

// ChargeOrder closes an open order with the given payment. The payment total
// must equal the sum of the attached line amounts.
func (a *Accumulator) ChargeOrder(p domain.Payment, orderID string) error {
	return a.Update(func(cur domain.AppState) (Partial, error) {
		idx := findOrder(cur.Orders, orderID)
		if idx < 0 {
			return Partial{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		order := cur.Orders[idx]
		if order.Status != domain.OrderStatusOpen {
			return Partial{}, fmt.Errorf("%w: %s", ErrOrderClosed, orderID)
		}

		total := order.LinesTotal()
		if !p.TotalPaymentAmount.Equal(total) {
			return Partial{}, fmt.Errorf("%w: paid %s, lines sum to %s", ErrPaymentMismatch, p.TotalPaymentAmount, total)
		}
		tendered := p.CashPaymentAmount.Add(p.CardPaymentAmount).Sub(p.CashChange)
		if !tendered.Equal(p.TotalPaymentAmount) {
			return Partial{}, fmt.Errorf("%w: tendered %s for total %s", ErrPaymentMismatch, tendered, p.TotalPaymentAmount)
		}

		reason := p.ClosingReason
		if reason == "" {
			reason = domain.ClosingReasonDefault
		}
		order.Status = domain.OrderStatusCharged
		order.ClosingReason = reason
		order.CashPaymentAmount = p.CashPaymentAmount
		order.CardPaymentAmount = p.CardPaymentAmount
		order.TotalPaymentAmount = p.TotalPaymentAmount
		order.CashChange = p.CashChange
		order.IsDiscounted = p.IsDiscounted
		order.CustomerID = p.CustomerID
		order.DateClose = p.DateClose

		orders := cur.Orders
		orders[idx] = order
		return Partial{Orders: &orders}, nil
	})
}

// LinePricing returns the amount charged for one unit of item and the tax
// portion of that amount. Taxes included in the price only split out the tax
// portion; other taxes are added on top. Disabled or deleted taxes are ignored.
func LinePricing(item domain.Item, taxes []domain.Tax) (amount decimal.Decimal, tax decimal.Decimal) {
	amount = item.Price
	tax = decimal.Zero
	for _, id := range item.Taxes {
		t, ok := findTax(taxes, id)
		if !ok || !t.IsEnabled || t.IsDeleted {
			continue
		}
		if t.IsIncludedInPrice {
			tax = tax.Add(item.Price.Mul(t.Percentage).Div(hundred.Add(t.Percentage)).Round(2))
			continue
		}
		surcharge := item.Price.Mul(t.Percentage).Div(hundred).Round(2)
		amount = amount.Add(surcharge)
		tax = tax.Add(surcharge)
	}
	return amount, tax
}

// findOrder scans from the newest order, which is the one being built.
func findOrder(orders []domain.Order, id string) int {
	for i := len(orders) - 1; i >= 0; i-- {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}

func findLine(lines []domain.OrderLine, itemID string) int {
	for i, line := range lines {
		if line.ItemID == itemID {
			return i
		}
	}
	return -1
}

func itemExists(items []domain.Item, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}
