package models

import "fmt"

// ItemKey is the composite identity of a cart line: one product in one
// color. Two entries with the same key are the same line. Defined once here
// so lookups never fall back to ad-hoc pair comparisons.
type ItemKey struct {
	ProductID int64 `json:"product_id"`
	ColorID   int64 `json:"color_id"`
}

func (k ItemKey) String() string {
	return fmt.Sprintf("%d:%d", k.ProductID, k.ColorID)
}

// GuestCartItem is one line of the unauthenticated visitor's cart. Both ids
// are opaque foreign keys, not validated locally. Quantity is >= 1 while the
// entry exists; a line reaching zero is deleted, never kept at zero.
type GuestCartItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	ColorID   int64 `json:"color_id"   validate:"required,gt=0"`
	Quantity  int   `json:"quantity"   validate:"required,min=1"`
}

func (i GuestCartItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, ColorID: i.ColorID}
}

// Product carries the server-computed product detail attached to an
// authenticated cart line. The client never recomputes anything from it.
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	ImageURL      string  `json:"image_url"`
}

type Color struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ServerCartItem is one line of the authenticated server cart. UnitPrice and
// LineTotal are authoritative; LineTotal is already quantity-multiplied.
type ServerCartItem struct {
	ID          int64   `json:"id"`
	Product     Product `json:"product"`
	Color       Color   `json:"color"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	IsAvailable bool    `json:"is_available"`
	StockStatus string  `json:"stock_status"`
}

type ServerCart struct {
	Items               []ServerCartItem `json:"items"`
	TotalItems          int              `json:"total_items"`
	TotalQuantity       int              `json:"total_quantity"`
	HasUnavailableItems bool             `json:"has_unavailable_items"`
}

type CartCount struct {
	TotalItems int `json:"total_items"`
}

// CartValidation is the server's pre-checkout consistency re-check.
type CartValidation struct {
	Valid    bool     `json:"is_valid"`
	Problems []string `json:"problems,omitempty"`
}

// SyncResult is what the batch merge endpoint reports back. The client only
// needs confirmation of receipt; the merge itself is a server concern.
type SyncResult struct {
	MergedItems int `json:"merged_items"`
}
