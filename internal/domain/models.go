package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RootCategoryID is the parent reference of top-level categories and items.
const RootCategoryID = "root"

const (
	OrderStatusOpen    = "open"
	OrderStatusCharged = "charged"
)

const ClosingReasonDefault = "default"

type Settings struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Locale   string `json:"locale"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	Color    string `json:"color,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

type CategoryInput struct {
	Name     string
	ParentID string
	Color    string
	Picture  string
}

type Tax struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Percentage           decimal.Decimal `json:"percentage"`
	IsEnabled            bool            `json:"is_enabled"`
	IsIncludedInPrice    bool            `json:"is_included_in_price"`
	ApplyToCustomAmounts bool            `json:"apply_to_custom_amounts"`
	IsDeleted            bool            `json:"is_deleted"`
}

type TaxInput struct {
	Name                 string
	Percentage           decimal.Decimal
	IsEnabled            bool
	IsIncludedInPrice    bool
	ApplyToCustomAmounts bool
}

type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Barcode   string          `json:"barcode"`
	Color     string          `json:"color,omitempty"`
	ParentID  string          `json:"parent_id"`
	Picture   string          `json:"picture,omitempty"`
	Price     decimal.Decimal `json:"price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Taxes     []string        `json:"taxes"`
}

type ItemInput struct {
	Name      string
	Barcode   string
	Color     string
	ParentID  string
	Picture   string
	Price     decimal.Decimal
	CostPrice decimal.Decimal
	Taxes     []string
}

type OrderLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Amount    decimal.Decimal `json:"amount"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

type Order struct {
	ID                 string          `json:"id"`
	Number             int             `json:"number"`
	Status             string          `json:"status"`
	Items              []OrderLine     `json:"items"`
	Amount             decimal.Decimal `json:"amount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	DateOpen           int64           `json:"date_open"`
	ClosingReason      string          `json:"closing_reason,omitempty"`
	CashPaymentAmount  decimal.Decimal `json:"cash_payment_amount"`
	CardPaymentAmount  decimal.Decimal `json:"card_payment_amount"`
	TotalPaymentAmount decimal.Decimal `json:"total_payment_amount"`
	CashChange         decimal.Decimal `json:"cash_change"`
	IsDiscounted       bool            `json:"is_discounted"`
	CustomerID         int             `json:"customer_id"`
	DateClose          int64           `json:"date_close,omitempty"`
}

// LinesTotal sums the line amounts currently attached to the order.
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Items {
		total = total.Add(line.Amount)
	}
	return total
}

// Payment carries the closing fields recorded when an order is charged.
type Payment struct {
	CashPaymentAmount  decimal.Decimal
	CardPaymentAmount  decimal.Decimal
	TotalPaymentAmount decimal.Decimal
	CashChange         decimal.Decimal
	ClosingReason      string
	CustomerID         int
	IsDiscounted       bool
	DateClose          int64
}

type AppState struct {
	Settings   Settings   `json:"settings"`
	Categories []Category `json:"categories"`
	Taxes      []Tax      `json:"taxes"`
	Items      []Item     `json:"items"`
	Orders     []Order    `json:"orders"`
}

// Clone returns a deep copy that shares no slices with s.
func (s AppState) Clone() AppState {
	out := AppState{
		Settings:   s.Settings,
		Categories: append([]Category(nil), s.Categories...),
		Taxes:      append([]Tax(nil), s.Taxes...),
		Items:      make([]Item, len(s.Items)),
		Orders:     make([]Order, len(s.Orders)),
	}
	for i, item := range s.Items {
		item.Taxes = append([]string(nil), item.Taxes...)
		out.Items[i] = item
	}
	for i, order := range s.Orders {
		order.Items = append([]OrderLine(nil), order.Items...)
		out.Orders[i] = order
	}
	return out
}

// Timestamp converts t to the Unix millisecond representation used on orders.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// TimeFromTimestamp is the inverse of Timestamp.
func TimeFromTimestamp(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// Snapshot is a persisted generation run.
type Snapshot struct {
	RunID       string    `json:"run_id"`
	Seed        *uint64   `json:"seed,omitempty"`
	Days        int       `json:"days"`
	GeneratedAt time.Time `json:"generated_at"`
	State       AppState  `json:"state"`
}

type GenerateRequest struct {
	Seed *uint64 `json:"seed,omitempty"`
	Days int     `json:"days"`
}

type GenerateResponse struct {
	RunID       string `json:"run_id"`
	Days        int    `json:"days"`
	Orders      int    `json:"orders"`
	Revenue     string `json:"revenue"`
	GeneratedAt string `json:"generated_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
