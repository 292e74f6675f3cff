// Package lookup provides the live e-commerce data collaborators the
// workflow consults: order status and product information.
package lookup

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that the requested domain entity does not exist.
// Callers turn it into a structured not-found result, never a failure.
var ErrNotFound = errors.New("not found")

// OrderItem is one line of an order.
type OrderItem struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Status    string  `json:"status"`
	SalePrice float64 `json:"sale_price"`
}

// OrderStatus is the detailed status of one order.
type OrderStatus struct {
	OrderID     int64       `json:"order_id"`
	Status      string      `json:"status"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
	ShippedAt   *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty"`
	ReturnedAt  *time.Time  `json:"returned_at,omitempty"`
	NumItems    int         `json:"num_items"`
	Items       []OrderItem `json:"items,omitempty"`
}

// ProductInfo describes one catalog product.
type ProductInfo struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Department  string  `json:"department"`
	SKU         string  `json:"sku"`
	RetailPrice float64 `json:"retail_price"`
}

// OrderLookup resolves order status by id.
type OrderLookup interface {
	// ByID returns the order or ErrNotFound.
	ByID(ctx context.Context, orderID int64) (*OrderStatus, error)
}

// ProductLookup resolves product details by id.
type ProductLookup interface {
	// ByIDs returns the products that exist among ids; unknown ids are
	// silently skipped.
	ByIDs(ctx context.Context, ids []int64) ([]ProductInfo, error)
}
