package product

import "github.com/shopspring/decimal"

// Product is the catalog view consumed by line-item reconciliation.
type Product struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	SKU    string          `json:"sku"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
	Active bool            `json:"active"`
}
