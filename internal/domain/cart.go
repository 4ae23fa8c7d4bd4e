package domain

import "fmt"

const defaultVariant = "default"

// CartItem is one line of the cart. The product is a snapshot taken at the
// time of addition and is never re-fetched.
type CartItem struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// ItemKey derives the composite identity of a cart line. Two additions of the
// same product with the same size and color collapse into one line.
func ItemKey(productID, size, color string) string {
	if size == "" {
		size = defaultVariant
	}
	if color == "" {
		color = defaultVariant
	}
	return fmt.Sprintf("%s-%s-%s", productID, size, color)
}

// Subtotal is the line total at the product's effective price.
func (i CartItem) Subtotal() float64 {
	return i.Product.EffectivePrice() * float64(i.Quantity)
}
