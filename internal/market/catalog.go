package market

import (
	"github.com/shopspring/decimal"

	"carbon-connect/portal-backend/internal/config"
)

// Package is an immutable catalog entry.
type Package struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	BestValue bool            `json:"best_value"`
}

// PricePerCredit is display information only.
func (p Package) PricePerCredit() decimal.Decimal {
	return p.Price.DivRound(p.Amount, 2)
}

// Catalog is the fixed, ordered list of packages.
type Catalog struct {
	packages []Package
	byID     map[string]Package
}

func NewCatalog(cfg config.MarketConfig) *Catalog {
	c := &Catalog{byID: make(map[string]Package, len(cfg.Packages))}
	for _, p := range cfg.Packages {
		pkg := Package{
			ID:        p.ID,
			Label:     p.Label,
			Amount:    p.Amount,
			Price:     p.Price,
			Currency:  cfg.Currency,
			BestValue: p.BestValue,
		}
		c.packages = append(c.packages, pkg)
		c.byID[pkg.ID] = pkg
	}
	return c
}

// Packages returns a copy of the catalog in display order.
func (c *Catalog) Packages() []Package {
	return append([]Package(nil), c.packages...)
}

func (c *Catalog) Lookup(id string) (Package, bool) {
	p, ok := c.byID[id]
	return p, ok
}
