package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type ContactView struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type LineView struct {
	ID          uuid.UUID            `json:"id"`
	ProductID   uuid.UUID            `json:"product_id"`
	VariationID *uuid.UUID           `json:"variation_id,omitempty"`
	Title       string               `json:"title"`
	Options     []models.OptionLabel `json:"options"`
	Quantity    int                  `json:"quantity"`
	Price       decimal.Decimal      `json:"price"`
	Subtotal    decimal.Decimal      `json:"subtotal"`
}

// OrderView is the public rendering of an order. The guest token is never echoed here.
type OrderView struct {
	ID            uuid.UUID           `json:"id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	Contact       ContactView         `json:"contact"`
	Note          *string             `json:"note,omitempty"`
	CancelReason  *string             `json:"cancel_reason,omitempty"`
	CanceledAt    *time.Time          `json:"canceled_at,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	Guest         bool                `json:"guest"`
	Lines         []LineView          `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type HistoryView struct {
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Note          string              `json:"note"`
	ActorID       *uuid.UUID          `json:"actor_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

type AdminOrderView struct {
	OrderView
	UserID  *uuid.UUID    `json:"user_id,omitempty"`
	History []HistoryView `json:"history"`
}

func NewOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:            order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		TotalPrice:    order.TotalPrice,
		Contact: ContactView{
			Name:    order.ContactName,
			Email:   order.ContactEmail,
			Phone:   order.ContactPhone,
			Address: order.ContactAddress,
		},
		Note:         order.Note,
		CancelReason: order.CancelReason,
		CanceledAt:   order.CanceledAt,
		PaidAt:       order.PaidAt,
		Guest:        order.IsGuest(),
		Lines:        make([]LineView, 0, len(order.Lines)),
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for _, line := range order.Lines {
		options := line.Options
		if options == nil {
			options = []models.OptionLabel{}
		}
		view.Lines = append(view.Lines, LineView{
			ID:          line.ID,
			ProductID:   line.ProductID,
			VariationID: line.VariationID,
			Title:       line.ProductTitle,
			Options:     options,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Subtotal:    line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return view
}

func newAdminOrderView(order *models.Order, history []models.OrderHistory) AdminOrderView {
	view := AdminOrderView{
		OrderView: NewOrderView(order),
		UserID:    order.UserID,
		History:   make([]HistoryView, 0, len(history)),
	}
	for _, h := range history {
		view.History = append(view.History, HistoryView{
			Status:        h.Status,
			PaymentStatus: h.PaymentStatus,
			Note:          h.Note,
			ActorID:       h.ActorID,
			CreatedAt:     h.CreatedAt,
		})
	}
	return view
}
