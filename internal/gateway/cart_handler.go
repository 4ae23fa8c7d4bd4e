package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mhmdrezaafshar11/public-site/internal/cart"
	"github.com/mhmdrezaafshar11/public-site/internal/domain"
)

const maxQuantity = 99

type CartHandler struct {
	ledger *cart.Ledger
}

func NewCartHandler(ledger *cart.Ledger) *CartHandler {
	return &CartHandler{ledger: ledger}
}

type addItemRequestDTO struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
	Size     string         `json:"size,omitempty"`
	Color    string         `json:"color,omitempty"`
}

type updateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Snapshot())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Product.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product", "product id is required")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	h.ledger.AddItem(req.Product, req.Quantity, req.Size, req.Color)
	respondJSON(w, http.StatusCreated, h.ledger.Snapshot())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id is required")
		return
	}

	var req updateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	// Zero and below remove the line; the ledger treats it as a signal.
	h.ledger.UpdateQuantity(itemID, req.Quantity)
	respondJSON(w, http.StatusOK, h.ledger.Snapshot())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item id is required")
		return
	}

	h.ledger.RemoveItem(itemID)
	respondJSON(w, http.StatusOK, h.ledger.Snapshot())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.ledger.ClearCart()
	respondJSON(w, http.StatusOK, h.ledger.Snapshot())
}

func (h *CartHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	h.ledger.ToggleCart()
	respondJSON(w, http.StatusOK, h.ledger.Snapshot())
}
