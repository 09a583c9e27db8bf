// Package catalog describes the static product catalog a demo dataset is
// seeded from, and loads it from YAML.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"kasirdemo/backend/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

var ErrInvalidDefinition = errors.New("invalid catalog definition")

type Definition struct {
	Settings   SettingsDef   `yaml:"settings"`
	Categories []CategoryDef `yaml:"categories"`
	Taxes      []TaxDef      `yaml:"taxes"`
	Items      []ItemDef     `yaml:"items"`
}

type SettingsDef struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
	Locale   string `yaml:"locale"`
}

// CategoryDef is a category keyed by a catalog-local name that items refer to.
// Categories are always created at the root.
type CategoryDef struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Color   string `yaml:"color"`
	Picture string `yaml:"picture"`
}

type TaxDef struct {
	Name                 string `yaml:"name"`
	Percentage           string `yaml:"percentage"`
	Enabled              bool   `yaml:"enabled"`
	IncludedInPrice      bool   `yaml:"included_in_price"`
	ApplyToCustomAmounts bool   `yaml:"apply_to_custom_amounts"`
}

// ItemDef references its category by key, or "root". Untaxed items are
// created without the enabled tax set.
type ItemDef struct {
	Name      string `yaml:"name"`
	Barcode   string `yaml:"barcode"`
	Category  string `yaml:"category"`
	Color     string `yaml:"color"`
	Picture   string `yaml:"picture"`
	Price     string `yaml:"price"`
	CostPrice string `yaml:"cost_price"`
	Untaxed   bool   `yaml:"untaxed"`
}

// Default returns the built-in coffee bar catalog.
func Default() Definition {
	def, err := Load(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
	}
	return def
}

func LoadFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, err
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Validate checks keys, references and amounts before anything is seeded.
func (d Definition) Validate() error {
	keys := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		key := strings.TrimSpace(c.Key)
		if key == "" || key == domain.RootCategoryID {
			return fmt.Errorf("%w: category %q needs a key other than %q", ErrInvalidDefinition, c.Name, domain.RootCategoryID)
		}
		if _, dup := keys[key]; dup {
			return fmt.Errorf("%w: duplicate category key %q", ErrInvalidDefinition, key)
		}
		keys[key] = struct{}{}
	}
	for _, t := range d.Taxes {
		if _, err := parseAmount(t.Percentage, "tax "+t.Name+" percentage"); err != nil {
			return err
		}
	}
	for _, item := range d.Items {
		if item.Category != "" && item.Category != domain.RootCategoryID {
			if _, ok := keys[item.Category]; !ok {
				return fmt.Errorf("%w: item %q references unknown category %q", ErrInvalidDefinition, item.Name, item.Category)
			}
		}
		if _, err := parseAmount(item.Price, "item "+item.Name+" price"); err != nil {
			return err
		}
		if _, err := parseAmount(item.CostPrice, "item "+item.Name+" cost price"); err != nil {
			return err
		}
	}
	return nil
}

func parseAmount(raw string, what string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q: %v", ErrInvalidDefinition, what, raw, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidDefinition, what)
	}
	return v, nil
}
