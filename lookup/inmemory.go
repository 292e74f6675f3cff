package lookup

import (
	"context"
	"sync"
)

// InMemoryLookup serves orders and products from in-process maps. Used for
// local development and tests; seeded explicitly.
type InMemoryLookup struct {
	mu       sync.RWMutex
	orders   map[int64]OrderStatus
	products map[int64]ProductInfo
}

func NewInMemoryLookup() *InMemoryLookup {
	return &InMemoryLookup{
		orders:   make(map[int64]OrderStatus),
		products: make(map[int64]ProductInfo),
	}
}

func (l *InMemoryLookup) SeedOrder(order OrderStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[order.OrderID] = order
}

func (l *InMemoryLookup) SeedProduct(product ProductInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[product.ID] = product
}

func (l *InMemoryLookup) ByID(_ context.Context, orderID int64) (*OrderStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	order, ok := l.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (l *InMemoryLookup) ByIDs(_ context.Context, ids []int64) ([]ProductInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ProductInfo, 0, len(ids))
	for _, id := range ids {
		if product, ok := l.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (l *InMemoryLookup) Close() error { return nil }
