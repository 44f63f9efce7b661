package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is the composite view of a catalog entry and its stored prices.
// It is assembled on every read and never persisted as a unit.
type Product struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	CurrentPrice []Price `json:"currentPrice"`
}

// Price is a single price record owned by a product.
type Price struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Value        decimal.Decimal `json:"value" db:"value"`
	CurrencyCode string          `json:"currencyCode" db:"currency_code"`
	ProductID    int             `json:"productId" db:"product_id"`
}

// Equal reports whether two prices carry the same id, value, currency and owner.
// Values are compared numerically, so 9.99 equals 9.990.
func (p Price) Equal(other Price) bool {
	return p.ID == other.ID &&
		p.Value.Equal(other.Value) &&
		p.CurrencyCode == other.CurrencyCode &&
		p.ProductID == other.ProductID
}

func (p Price) String() string {
	return fmt.Sprintf("Price{id=%s, value=%s, currencyCode=%s, productId=%d}",
		p.ID, p.Value.String(), p.CurrencyCode, p.ProductID)
}

// Equal reports whether two product views are structurally identical.
// Prices are compared as a set keyed by price id, so ordering does not matter.
// A price list that repeats an id is never equal to anything.
func (p *Product) Equal(other *Product) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.ID != other.ID || p.Name != other.Name {
		return false
	}
	return priceSetsEqual(p.CurrentPrice, other.CurrentPrice)
}

// HasDuplicatePriceIDs reports whether two assigned prices share an id.
// Prices without an id are ignored.
func (p *Product) HasDuplicatePriceIDs() (uuid.UUID, bool) {
	seen := make(map[uuid.UUID]struct{}, len(p.CurrentPrice))
	for _, price := range p.CurrentPrice {
		if price.ID == uuid.Nil {
			continue
		}
		if _, ok := seen[price.ID]; ok {
			return price.ID, true
		}
		seen[price.ID] = struct{}{}
	}
	return uuid.Nil, false
}

func priceSetsEqual(a, b []Price) bool {
	if len(a) != len(b) {
		return false
	}
	left, ok := indexPrices(a)
	if !ok {
		return false
	}
	right, ok := indexPrices(b)
	if !ok {
		return false
	}
	for id, price := range left {
		match, ok := right[id]
		if !ok || !price.Equal(match) {
			return false
		}
	}
	return true
}

// indexPrices keys prices by id. It returns false when an id repeats.
func indexPrices(prices []Price) (map[uuid.UUID]Price, bool) {
	index := make(map[uuid.UUID]Price, len(prices))
	for _, price := range prices {
		if _, dup := index[price.ID]; dup {
			return nil, false
		}
		index[price.ID] = price
	}
	return index, true
}
