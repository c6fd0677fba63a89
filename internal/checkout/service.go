package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/variations"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockDecrementer interface {
	DecreaseStockForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []models.OrderLine) ([]inventory.StockLevel, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type lowStockNotifier interface {
	NotifyLowStock(ctx context.Context, items []inventory.StockLevel) error
}

type statusLinker interface {
	IssueStatusURL(orderID uuid.UUID) string
}

type outcomeRecorder interface {
	CheckoutOutcome(outcome string)
}

// Service converts a cart into an order in one transaction.
type Service interface {
	Checkout(ctx context.Context, owner cart.Owner, input Input) (*Result, error)
}

// Input is what the buyer submits at checkout.
type Input struct {
	Contact       pkgcheckout.Contact `json:"contact"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Note          string              `json:"note,omitempty"`
}

// Result carries the placed order. Guests also get their access token and a signed status link.
type Result struct {
	Order      *models.Order `json:"order"`
	GuestToken string        `json:"guest_token,omitempty"`
	StatusURL  string        `json:"status_url,omitempty"`
}

type ServiceParams struct {
	DB        txRunner
	Carts     cart.LineRepository
	Products  *products.Repository
	Orders    orders.Repository
	Inventory stockDecrementer
	Outbox    outboxEmitter
	Notifier  lowStockNotifier
	Links     statusLinker
	Metrics   outcomeRecorder
	Logger    *logger.Logger
}

type service struct {
	db        txRunner
	carts     cart.LineRepository
	products  *products.Repository
	orders    orders.Repository
	inventory stockDecrementer
	outbox    outboxEmitter
	notifier  lowStockNotifier
	links     statusLinker
	metrics   outcomeRecorder
	logg      *logger.Logger
}

// NewService builds the checkout service. Notifier, Links and Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory service required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		db:        params.DB,
		carts:     params.Carts,
		products:  params.Products,
		orders:    params.Orders,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		notifier:  params.Notifier,
		links:     params.Links,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) Checkout(ctx context.Context, owner cart.Owner, input Input) (*Result, error) {
	result, levels, err := s.checkout(ctx, owner, input)
	s.recordOutcome(err)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithOwner(ctx, owner.Key()), result.Order.ID.String())
	if s.notifier != nil && len(levels) > 0 {
		if nerr := s.notifier.NotifyLowStock(ctx, levels); nerr != nil {
			s.logg.Error(ctx, "low stock notification failed", nerr)
		}
	}
	if result.GuestToken != "" && s.links != nil {
		result.StatusURL = s.links.IssueStatusURL(result.Order.ID)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total_price":    result.Order.TotalPrice.String(),
		"line_count":     len(result.Order.Lines),
		"payment_method": result.Order.PaymentMethod,
	}), "checkout completed")
	return result, nil
}

func (s *service) checkout(ctx context.Context, owner cart.Owner, input Input) (*Result, []inventory.StockLevel, error) {
	if err := owner.Validate(); err != nil {
		return nil, nil, err
	}
	contact := input.Contact.Normalize()
	if err := pkgcheckout.ValidateRequest(contact, input.PaymentMethod); err != nil {
		return nil, nil, err
	}

	var (
		result *Result
		levels []inventory.StockLevel
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		lines, err := carts.ListByOwner(ctx, owner.Key())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		catalog, err := s.products.WithTx(tx).FindManyWithVariations(ctx, cart.ProductIDs(lines))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
		}
		if shortfalls := cart.Shortfalls(lines, catalog); len(shortfalls) > 0 {
			return shortfallError(shortfalls)
		}

		order := &models.Order{
			ContactName:    contact.Name,
			ContactEmail:   contact.Email,
			ContactPhone:   contact.Phone,
			ContactAddress: contact.Address,
			Status:         enums.OrderStatusPending,
			PaymentStatus:  input.PaymentMethod.InitialPaymentStatus(),
			PaymentMethod:  input.PaymentMethod,
		}
		if note := strings.TrimSpace(input.Note); note != "" {
			order.Note = &note
		}
		actor := orders.Actor{Role: orders.RoleGuest}
		var guestToken string
		if userID, ok := owner.UserID(); ok {
			order.UserID = &userID
			actor = orders.Actor{UserID: &userID, Role: orders.RoleCustomer}
		} else {
			guestToken, err = orders.NewGuestToken()
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue guest token")
			}
			order.GuestToken = &guestToken
		}

		orderLines, total, err := buildLines(lines, catalog)
		if err != nil {
			return err
		}
		order.TotalPrice = total
		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range orderLines {
			orderLines[i].OrderID = order.ID
		}
		if err := ordersRepo.CreateLines(ctx, orderLines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
		}
		order.Lines = orderLines

		levels, err = s.inventory.DecreaseStockForOrder(ctx, tx, order.ID, orderLines)
		if err != nil {
			return err
		}

		if err := ordersRepo.AppendHistory(ctx, &models.OrderHistory{
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          "order created",
			ActorID:       actor.UserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				ContactEmail:  order.ContactEmail,
				TotalPrice:    order.TotalPrice,
				PaymentMethod: order.PaymentMethod,
				PaymentStatus: order.PaymentStatus,
				Lines:         orders.EventLines(orderLines),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		if err := carts.DeleteByOwner(ctx, owner.Key()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		result = &Result{Order: order, GuestToken: guestToken}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, levels, nil
}

// buildLines snapshots title, option labels and the cart price of every line.
func buildLines(lines []models.CartLine, catalog map[uuid.UUID]*models.Product) ([]models.OrderLine, decimal.Decimal, error) {
	out := make([]models.OrderLine, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product := catalog[line.ProductID]
		sel, err := variations.Select(product, line.OptionIDs)
		if err != nil {
			return nil, decimal.Zero, err
		}
		out = append(out, models.OrderLine{
			ProductID:    line.ProductID,
			VariationID:  sel.VariationID(),
			ProductTitle: product.Title,
			Quantity:     line.Quantity,
			Price:        line.Price,
			Options:      sel.Labels(),
		})
		total = total.Add(line.Subtotal())
	}
	return out, total, nil
}

// shortfallError reports every failing line. A stale option selection takes
// precedence over plain stock shortage.
func shortfallError(shortfalls []inventory.Shortfall) error {
	for _, sf := range shortfalls {
		if sf.Reason == inventory.ShortfallReasonVariation {
			return pkgerrors.New(pkgerrors.CodeVariationNotFound, "a selected variation no longer exists").WithDetails(map[string]any{
				"shortfalls": shortfalls,
			})
		}
	}
	return inventory.InsufficientStock(shortfalls...)
}

func (s *service) recordOutcome(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.CheckoutOutcome(metrics.OutcomeSuccess)
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), pkgerrors.IsCode(err, pkgerrors.CodeVariationNotFound):
		s.metrics.CheckoutOutcome(metrics.OutcomeInsufficientStock)
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		s.metrics.CheckoutOutcome(metrics.OutcomeEmptyCart)
	default:
		s.metrics.CheckoutOutcome(metrics.OutcomeError)
	}
}
