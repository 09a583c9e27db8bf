// Package report summarizes generated order history.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"kasirdemo/backend/internal/domain"
)

type DaySummary struct {
	Date      string          `json:"date"`
	Orders    int             `json:"orders"`
	ItemsSold int             `json:"items_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	Tax       decimal.Decimal `json:"tax"`
	Cost      decimal.Decimal `json:"cost"`
	Margin    decimal.Decimal `json:"margin"`
}

// Daily groups charged orders by the calendar day they closed on in loc.
// Margin is revenue net of tax and cost.
func Daily(state domain.AppState, loc *time.Location) []DaySummary {
	if loc == nil {
		loc = time.Local
	}
	byDate := map[string]*DaySummary{}
	for _, order := range state.Orders {
		if order.Status != domain.OrderStatusCharged {
			continue
		}
		date := domain.TimeFromTimestamp(order.DateClose).In(loc).Format(time.DateOnly)
		day := byDate[date]
		if day == nil {
			day = &DaySummary{Date: date}
			byDate[date] = day
		}
		day.Orders++
		day.Revenue = day.Revenue.Add(order.TotalPaymentAmount)
		for _, line := range order.Items {
			day.ItemsSold += line.Quantity
			day.Tax = day.Tax.Add(line.TaxAmount)
			day.Cost = day.Cost.Add(line.CostPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}

	out := make([]DaySummary, 0, len(byDate))
	for _, day := range byDate {
		day.Margin = day.Revenue.Sub(day.Tax).Sub(day.Cost)
		out = append(out, *day)
	}
	slices.SortFunc(out, func(a, b DaySummary) int {
		return strings.Compare(a.Date, b.Date)
	})
	return out
}

// Total folds a set of day summaries into one row dated "total".
func Total(days []DaySummary) DaySummary {
	total := DaySummary{Date: "total"}
	for _, day := range days {
		total.Orders += day.Orders
		total.ItemsSold += day.ItemsSold
		total.Revenue = total.Revenue.Add(day.Revenue)
		total.Tax = total.Tax.Add(day.Tax)
		total.Cost = total.Cost.Add(day.Cost)
		total.Margin = total.Margin.Add(day.Margin)
	}
	return total
}

// FilterRange keeps the days whose date falls in [from, to], both given as YYYY-MM-DD.
// An empty bound is open.
func FilterRange(days []DaySummary, from string, to string) []DaySummary {
	out := make([]DaySummary, 0, len(days))
	for _, day := range days {
		if from != "" && day.Date < from {
			continue
		}
		if to != "" && day.Date > to {
			continue
		}
		out = append(out, day)
	}
	return out
}

func WriteCSV(w io.Writer, days []DaySummary) error {
	if _, err := fmt.Fprintln(w, "date,orders,items_sold,revenue,tax,cost,margin"); err != nil {
		return err
	}
	for _, day := range append(slices.Clone(days), Total(days)) {
		_, err := fmt.Fprintf(w, "%s,%d,%d,%s,%s,%s,%s\n",
			day.Date, day.Orders, day.ItemsSold,
			day.Revenue.StringFixed(2), day.Tax.StringFixed(2), day.Cost.StringFixed(2), day.Margin.StringFixed(2))
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders an aligned, locale-formatted table for terminals.
func WriteTable(w io.Writer, days []DaySummary, tag language.Tag) error {
	p := message.NewPrinter(tag)
	if _, err := p.Fprintf(w, "%-10s %8s %8s %14s %12s %14s\n", "date", "orders", "items", "revenue", "tax", "margin"); err != nil {
		return err
	}
	for _, day := range append(slices.Clone(days), Total(days)) {
		_, err := p.Fprintf(w, "%-10s %8d %8d %14.2f %12.2f %14.2f\n",
			day.Date, day.Orders, day.ItemsSold,
			day.Revenue.InexactFloat64(), day.Tax.InexactFloat64(), day.Margin.InexactFloat64())
		if err != nil {
			return err
		}
	}
	return nil
}
