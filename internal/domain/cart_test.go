package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemKey(t *testing.T) {
	assert.Equal(t, "p1-M-red", ItemKey("p1", "M", "red"))
	assert.Equal(t, "p1-default-default", ItemKey("p1", "", ""))
	assert.Equal(t, "p1-default-blue", ItemKey("p1", "", "blue"))
	assert.Equal(t, "p1-XL-default", ItemKey("p1", "XL", ""))
}

func TestEffectivePrice(t *testing.T) {
	sale := 40.0
	onSale := Product{Price: 50, SalePrice: &sale}
	listOnly := Product{Price: 100}

	assert.Equal(t, 40.0, onSale.EffectivePrice())
	assert.Equal(t, 100.0, listOnly.EffectivePrice())
}

func TestSubtotal(t *testing.T) {
	sale := 40.0
	item := CartItem{
		Product:  Product{Price: 50, SalePrice: &sale},
		Quantity: 3,
	}
	assert.Equal(t, 120.0, item.Subtotal())
}
