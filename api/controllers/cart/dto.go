package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
)

type removeLineRequest struct {
	ProductID uuid.UUID   `json:"product_id" validate:"required"`
	OptionIDs []uuid.UUID `json:"option_ids"`
}

// cartResponse is the cart view plus the lines that would block checkout right now.
type cartResponse struct {
	*cartsvc.View
	Shortfalls  []inventory.Shortfall `json:"shortfalls"`
	CanCheckout bool                  `json:"can_checkout"`
}

type mergeResponse struct {
	Merged int `json:"merged"`
	cartResponse
}
