package domain

import "time"

type Product struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	SalePrice     *float64  `json:"salePrice,omitempty"`
	Images        []string  `json:"images,omitempty"`
	Category      Category  `json:"category"`
	Brand         string    `json:"brand,omitempty"`
	InStock       bool      `json:"inStock"`
	StockQuantity int       `json:"stockQuantity"`
	Sizes         []string  `json:"sizes,omitempty"`
	Colors        []string  `json:"colors,omitempty"`
	Features      []string  `json:"features,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	IsActive      bool      `json:"isActive"`
	IsFeatured    bool      `json:"isFeatured"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// EffectivePrice is the sale price when one is set, the list price otherwise.
func (p Product) EffectivePrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

type Category struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Parent      string    `json:"parent,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}
