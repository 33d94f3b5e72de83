package models

type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	ColorID   int64 `json:"color_id"   validate:"required,gt=0"`
	Quantity  int   `json:"quantity"   validate:"required,min=1"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type UpdateColorRequest struct {
	ColorID int64 `json:"color_id" validate:"required,gt=0"`
}

type SyncGuestCartRequest struct {
	GuestCartItems []GuestCartItem `json:"guest_cart_items" validate:"required,min=1,dive"`
}
