// Package cart owns the shopping cart contents and their derived totals.
// Every command is synchronous; nothing here touches the network.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mhmdrezaafshar11/public-site/internal/domain"
	"github.com/mhmdrezaafshar11/public-site/internal/storage"
)

const (
	snapshotName   = "cart-storage"
	persistTimeout = time.Second
)

// State is the cart snapshot handed to subscribers and callers. Items keep
// insertion order; totals are always derived from the item list.
type State struct {
	Items      []domain.CartItem `json:"items"`
	IsOpen     bool              `json:"isOpen"`
	TotalItems int               `json:"totalItems"`
	TotalPrice float64           `json:"totalPrice"`
}

// snapshot is the persisted projection. IsOpen is UI-only and resets every
// session, so it is deliberately excluded.
type snapshot struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"totalItems"`
	TotalPrice float64           `json:"totalPrice"`
}

type Ledger struct {
	storage storage.Storage
	logger  *slog.Logger

	mu        sync.RWMutex
	state     State
	subs      map[int]func(State)
	nextSubID int
}

func NewLedger(store storage.Storage, logger *slog.Logger) *Ledger {
	return &Ledger{
		storage: store,
		logger:  logger.With("component", "cart_ledger"),
		subs:    make(map[int]func(State)),
	}
}

// Snapshot returns the current cart state with a copied item slice.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyState()
}

// Subscribe registers fn to run after every state change and returns the
// unsubscribe handle.
func (l *Ledger) Subscribe(fn func(State)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSubID
	l.nextSubID++
	l.subs[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Restore rehydrates the cart from the persisted snapshot. Call LoadCart
// afterwards so totals are recomputed from whatever items came back.
func (l *Ledger) Restore(ctx context.Context) error {
	data, err := l.storage.Load(ctx, snapshotName)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return nil
		}
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		l.logger.Warn("discarding unreadable cart snapshot", "error", err)
		return nil
	}

	l.mu.Lock()
	l.state.Items = snap.Items
	l.state.TotalItems = snap.TotalItems
	l.state.TotalPrice = snap.TotalPrice
	l.mu.Unlock()

	l.notify()
	return nil
}

// AddItem puts a product line in the cart. An existing line with the same
// composite key absorbs the incoming quantity; otherwise the line is
// appended. Quantities below one count as one.
func (l *Ledger) AddItem(product domain.Product, quantity int, size, color string) {
	if quantity < 1 {
		quantity = 1
	}
	key := domain.ItemKey(product.ID, size, color)

	l.mu.Lock()
	found := false
	for i := range l.state.Items {
		if l.state.Items[i].ID == key {
			l.state.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		l.state.Items = append(l.state.Items, domain.CartItem{
			ID:       key,
			Product:  product,
			Quantity: quantity,
			Size:     size,
			Color:    color,
		})
	}
	l.recompute()
	l.mu.Unlock()

	l.persist()
	l.notify()
}

// RemoveItem drops the line with the given id; a missing id is a no-op, not
// an error.
func (l *Ledger) RemoveItem(itemID string) {
	l.mu.Lock()
	kept := l.state.Items[:0]
	for _, item := range l.state.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	l.state.Items = kept
	l.recompute()
	l.mu.Unlock()

	l.persist()
	l.notify()
}

// UpdateQuantity replaces a line's quantity in place. A quantity of zero or
// less is a removal signal, never a stored value.
func (l *Ledger) UpdateQuantity(itemID string, quantity int) {
	if quantity <= 0 {
		l.RemoveItem(itemID)
		return
	}

	l.mu.Lock()
	for i := range l.state.Items {
		if l.state.Items[i].ID == itemID {
			l.state.Items[i].Quantity = quantity
			break
		}
	}
	l.recompute()
	l.mu.Unlock()

	l.persist()
	l.notify()
}

// ClearCart empties the cart. The result is trivially known, so totals are
// zeroed directly.
func (l *Ledger) ClearCart() {
	l.mu.Lock()
	l.state.Items = nil
	l.state.TotalItems = 0
	l.state.TotalPrice = 0
	l.mu.Unlock()

	l.persist()
	l.notify()
}

// ToggleCart flips the drawer visibility flag. Items and totals are
// untouched and nothing is persisted.
func (l *Ledger) ToggleCart() {
	l.mu.Lock()
	l.state.IsOpen = !l.state.IsOpen
	l.mu.Unlock()

	l.notify()
}

// LoadCart forces one totals recompute after Restore, healing totals a
// stale or interrupted persisted write may have left inconsistent.
func (l *Ledger) LoadCart() {
	l.mu.Lock()
	l.recompute()
	l.mu.Unlock()

	l.notify()
}

// recompute folds the item list into both totals from scratch. Never adjust
// incrementally; totals must not be able to drift from the items.
// Caller holds l.mu.
func (l *Ledger) recompute() {
	totalItems := 0
	totalPrice := 0.0
	for _, item := range l.state.Items {
		totalItems += item.Quantity
		totalPrice += item.Subtotal()
	}
	l.state.TotalItems = totalItems
	l.state.TotalPrice = totalPrice
}

// persist writes the cart projection fire-and-forget.
func (l *Ledger) persist() {
	l.mu.RLock()
	snap := snapshot{
		Items:      append([]domain.CartItem(nil), l.state.Items...),
		TotalItems: l.state.TotalItems,
		TotalPrice: l.state.TotalPrice,
	}
	l.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		l.logger.Error("failed to marshal cart snapshot", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := l.storage.Save(ctx, snapshotName, data); err != nil {
			l.logger.Error("failed to persist cart snapshot", "error", err)
		}
	}()
}

func (l *Ledger) notify() {
	l.mu.RLock()
	state := l.copyState()
	fns := make([]func(State), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}

// copyState clones the state so callers cannot alias the live item slice.
// Caller holds l.mu.
func (l *Ledger) copyState() State {
	out := l.state
	out.Items = append([]domain.CartItem(nil), l.state.Items...)
	return out
}
