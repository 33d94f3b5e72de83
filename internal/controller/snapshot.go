package controller

import "github.com/huyndq/phonecart/internal/models"

// Snapshot is the client's current view of cart contents: either
// guest-sourced placeholders or the full server detail. The two variants
// form a closed set; branch dispatch is a type switch, never a truthy check
// on an optional field.
type Snapshot interface {
	isSnapshot()
	ItemIDs() []int64
	TotalQuantity() int
}

// GuestLine is a bare placeholder reshaped from the guest store to look
// cart-shaped. No pricing, no product or color detail. The ID is synthetic
// and only stable within one snapshot.
type GuestLine struct {
	ID        int64
	ProductID int64
	ColorID   int64
	Quantity  int
}

func (l GuestLine) Key() models.ItemKey {
	return models.ItemKey{ProductID: l.ProductID, ColorID: l.ColorID}
}

type GuestSnapshot struct {
	Lines []GuestLine
}

func (GuestSnapshot) isSnapshot() {}

func (s GuestSnapshot) ItemIDs() []int64 {
	ids := make([]int64, 0, len(s.Lines))
	for _, l := range s.Lines {
		ids = append(ids, l.ID)
	}

	return ids
}

func (s GuestSnapshot) TotalQuantity() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Quantity
	}

	return total
}

func (s GuestSnapshot) line(id int64) (GuestLine, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}

	return GuestLine{}, false
}

type AuthenticatedSnapshot struct {
	Cart models.ServerCart
}

func (AuthenticatedSnapshot) isSnapshot() {}

func (s AuthenticatedSnapshot) ItemIDs() []int64 {
	ids := make([]int64, 0, len(s.Cart.Items))
	for _, it := range s.Cart.Items {
		ids = append(ids, it.ID)
	}

	return ids
}

func (s AuthenticatedSnapshot) TotalQuantity() int {
	return s.Cart.TotalQuantity
}

func (s AuthenticatedSnapshot) item(id int64) (models.ServerCartItem, bool) {
	for _, it := range s.Cart.Items {
		if it.ID == id {
			return it, true
		}
	}

	return models.ServerCartItem{}, false
}

func newGuestSnapshot(items []models.GuestCartItem) GuestSnapshot {
	lines := make([]GuestLine, 0, len(items))
	for i, it := range items {
		lines = append(lines, GuestLine{
			ID:        int64(i + 1),
			ProductID: it.ProductID,
			ColorID:   it.ColorID,
			Quantity:  it.Quantity,
		})
	}

	return GuestSnapshot{Lines: lines}
}
