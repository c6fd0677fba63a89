package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Actor roles recorded on history rows and outbox events.
const (
	RoleCustomer = "customer"
	RoleGuest    = "guest"
	RoleAdmin    = "admin"
	RoleSystem   = "system"
)

// Actor is whoever triggered an order change. Guests and jobs have no user id.
type Actor struct {
	UserID *uuid.UUID
	Role   string
}

// SystemActor is used by background jobs.
func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

func (a Actor) ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, Role: a.Role}
}

// UpdateStatusInput drives admin fulfillment transitions.
type UpdateStatusInput struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
	Note   string            `json:"note"`
}

// EventLines projects order lines into the shape carried by order events.
func EventLines(lines []models.OrderLine) []payloads.OrderLine {
	out := make([]payloads.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, payloads.OrderLine{
			ProductID:   line.ProductID,
			VariationID: line.VariationID,
			Quantity:    line.Quantity,
			Price:       line.Price,
		})
	}
	return out
}
