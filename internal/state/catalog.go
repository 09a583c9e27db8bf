package state

import (
	"fmt"
	"strings"

	"kasirdemo/backend/internal/domain"
)

func (a *Accumulator) SetSettings(settings domain.Settings) {
	a.Merge(Partial{Settings: &settings})
}

func (a *Accumulator) AddCategory(in domain.CategoryInput) (domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name required", ErrInvalidInput)
	}
	parentID := strings.TrimSpace(in.ParentID)
	if parentID == "" {
		parentID = domain.RootCategoryID
	}

	var created domain.Category
	err := a.Update(func(cur domain.AppState) (Partial, error) {
		if !parentExists(cur.Categories, parentID) {
			return Partial{}, fmt.Errorf("%w: %s", ErrUnknownParent, parentID)
		}
		created = domain.Category{
			ID:       a.ids.Next("category"),
			Name:     name,
			ParentID: parentID,
			Color:    in.Color,
			Picture:  in.Picture,
		}
		categories := append(cur.Categories, created)
		return Partial{Categories: &categories}, nil
	})
	return created, err
}

func (a *Accumulator) AddTax(in domain.TaxInput) (domain.Tax, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Percentage.IsNegative() {
		return domain.Tax{}, fmt.Errorf("%w: tax needs a name and a non-negative percentage", ErrInvalidInput)
	}

	var created domain.Tax
	err := a.Update(func(cur domain.AppState) (Partial, error) {
		created = domain.Tax{
			ID:                   a.ids.Next("tax"),
			Name:                 name,
			Percentage:           in.Percentage,
			IsEnabled:            in.IsEnabled,
			IsIncludedInPrice:    in.IsIncludedInPrice,
			ApplyToCustomAmounts: in.ApplyToCustomAmounts,
		}
		taxes := append(cur.Taxes, created)
		return Partial{Taxes: &taxes}, nil
	})
	return created, err
}

// EnabledTaxIDs lists the ids of taxes that are enabled and not deleted.
func (a *Accumulator) EnabledTaxIDs() []string {
	snap := a.Snapshot()
	ids := make([]string, 0, len(snap.Taxes))
	for _, tax := range snap.Taxes {
		if tax.IsEnabled && !tax.IsDeleted {
			ids = append(ids, tax.ID)
		}
	}
	return ids
}

func (a *Accumulator) AddItem(in domain.ItemInput) (domain.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Item{}, fmt.Errorf("%w: item name required", ErrInvalidInput)
	}
	if in.Price.IsNegative() || in.CostPrice.IsNegative() {
		return domain.Item{}, fmt.Errorf("%w: item %s has a negative price", ErrInvalidInput, name)
	}
	parentID := strings.TrimSpace(in.ParentID)
	if parentID == "" {
		parentID = domain.RootCategoryID
	}

	var created domain.Item
	err := a.Update(func(cur domain.AppState) (Partial, error) {
		if !parentExists(cur.Categories, parentID) {
			return Partial{}, fmt.Errorf("%w: %s", ErrUnknownParent, parentID)
		}
		for _, taxID := range in.Taxes {
			if _, ok := findTax(cur.Taxes, taxID); !ok {
				return Partial{}, fmt.Errorf("%w: %s", ErrUnknownTax, taxID)
			}
		}
		created = domain.Item{
			ID:        a.ids.Next("item"),
			Name:      name,
			Barcode:   in.Barcode,
			Color:     in.Color,
			ParentID:  parentID,
			Picture:   in.Picture,
			Price:     in.Price,
			CostPrice: in.CostPrice,
			Taxes:     append([]string{}, in.Taxes...),
		}
		items := append(cur.Items, created)
		return Partial{Items: &items}, nil
	})
	return created, err
}

func parentExists(categories []domain.Category, parentID string) bool {
	if parentID == domain.RootCategoryID {
		return true
	}
	for _, c := range categories {
		if c.ID == parentID {
			return true
		}
	}
	return false
}

func findTax(taxes []domain.Tax, id string) (domain.Tax, bool) {
	for _, t := range taxes {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Tax{}, false
}
