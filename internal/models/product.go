package models

import (
	"encoding/json"
	"time"
)

type Product struct {
	ID              int32     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency"`
	DiscountPercent int32     `json:"discount_percent,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SalePriceCents returns the price after the promotional discount, rounded
// to the nearest cent.
func (p Product) SalePriceCents() int64 {
	if p.DiscountPercent <= 0 {
		return p.PriceCents
	}
	return (p.PriceCents*int64(100-p.DiscountPercent) + 50) / 100
}

// MarshalJSON adds the derived sale_price_cents to the stored fields.
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		SalePriceCents int64 `json:"sale_price_cents"`
	}{product: product(p), SalePriceCents: p.SalePriceCents()})
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	NewArrivalsSince *time.Time
	OnPromotion      bool
	Limit            int
	Offset           int
}
