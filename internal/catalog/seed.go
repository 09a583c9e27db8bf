package catalog

import (
	"fmt"

	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/state"
)

// Seeded maps the catalog's category keys to the ids they were created with.
type Seeded struct {
	CategoryIDs map[string]string
	TaxIDs      []string
	Items       int
}

// Seed creates settings, categories, taxes and items in that order. Items are
// created last because they reference category ids and the enabled tax set.
func Seed(acc *state.Accumulator, def Definition) (Seeded, error) {
	if err := def.Validate(); err != nil {
		return Seeded{}, err
	}

	acc.SetSettings(domain.Settings{
		Name:     def.Settings.Name,
		Currency: def.Settings.Currency,
		Locale:   def.Settings.Locale,
	})

	seeded := Seeded{CategoryIDs: make(map[string]string, len(def.Categories))}
	for _, c := range def.Categories {
		created, err := acc.AddCategory(domain.CategoryInput{
			Name:     c.Name,
			ParentID: domain.RootCategoryID,
			Color:    c.Color,
			Picture:  c.Picture,
		})
		if err != nil {
			return Seeded{}, fmt.Errorf("seed category %s: %w", c.Key, err)
		}
		seeded.CategoryIDs[c.Key] = created.ID
	}

	for _, t := range def.Taxes {
		percentage, _ := parseAmount(t.Percentage, "")
		if _, err := acc.AddTax(domain.TaxInput{
			Name:                 t.Name,
			Percentage:           percentage,
			IsEnabled:            t.Enabled,
			IsIncludedInPrice:    t.IncludedInPrice,
			ApplyToCustomAmounts: t.ApplyToCustomAmounts,
		}); err != nil {
			return Seeded{}, fmt.Errorf("seed tax %s: %w", t.Name, err)
		}
	}
	seeded.TaxIDs = acc.EnabledTaxIDs()

	for _, item := range def.Items {
		parentID := domain.RootCategoryID
		if item.Category != "" && item.Category != domain.RootCategoryID {
			parentID = seeded.CategoryIDs[item.Category]
		}
		taxes := seeded.TaxIDs
		if item.Untaxed {
			taxes = nil
		}
		price, _ := parseAmount(item.Price, "")
		cost, _ := parseAmount(item.CostPrice, "")
		if _, err := acc.AddItem(domain.ItemInput{
			Name:      item.Name,
			Barcode:   item.Barcode,
			Color:     item.Color,
			ParentID:  parentID,
			Picture:   item.Picture,
			Price:     price,
			CostPrice: cost,
			Taxes:     taxes,
		}); err != nil {
			return Seeded{}, fmt.Errorf("seed item %s: %w", item.Name, err)
		}
		seeded.Items++
	}

	return seeded, nil
}
