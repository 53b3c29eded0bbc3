package model

import "github.com/shopspring/decimal"

// Product as consumed by checkout: stock and availability only, the catalog
// subsystem owns the rest of the lifecycle.
type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Stock    int
	IsActive bool
}
