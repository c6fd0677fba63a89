package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxReasonLength = 500

// LinkVerifier checks signed guest status links.
type LinkVerifier interface {
	VerifySignedURL(orderID uuid.UUID, expires, signature string) error
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// OrderDetail serves the owner, an admin, a guest holding the order token or a signed link.
func OrderDetail(svc internalorders.Service, links LinkVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		order, err := loadOrder(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := resolveActor(r, order, links); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewOrderView(order))
	}
}

// OrderCancel cancels on behalf of the owner, an admin or a guest token holder.
// Signed links are read only and cannot cancel.
func OrderCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var payload cancelRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := loadOrder(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := resolveActor(r, order, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		canceled, err := svc.Cancel(r.Context(), order.ID, validators.SanitizeString(payload.Reason, maxReasonLength), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewOrderView(canceled))
	}
}

// OrderPaymentSubmitted lets the buyer flag a bank transfer as sent.
func OrderPaymentSubmitted(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		order, err := loadOrder(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := resolveActor(r, order, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkPaymentSubmitted(r.Context(), order.ID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewOrderView(updated))
	}
}

func loadOrder(r *http.Request, svc internalorders.Service) (*models.Order, error) {
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return nil, err
	}
	return svc.Get(r.Context(), orderID)
}

// resolveActor decides who is acting on order. A nil links verifier disables
// signed link access.
func resolveActor(r *http.Request, order *models.Order, links LinkVerifier) (internalorders.Actor, error) {
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		if middleware.RoleFromContext(r.Context()) == enums.UserRoleAdmin {
			return internalorders.Actor{UserID: &userID, Role: internalorders.RoleAdmin}, nil
		}
		if order.UserID != nil && *order.UserID == userID {
			return internalorders.Actor{UserID: &userID, Role: internalorders.RoleCustomer}, nil
		}
	}

	query := r.URL.Query()
	if token := strings.TrimSpace(query.Get("token")); token != "" && internalorders.ValidateGuestToken(order, token) {
		return internalorders.Actor{Role: internalorders.RoleGuest}, nil
	}

	expires, signature := query.Get("expires"), query.Get("signature")
	if links != nil && (expires != "" || signature != "") {
		if err := links.VerifySignedURL(order.ID, expires, signature); err != nil {
			return internalorders.Actor{}, err
		}
		return internalorders.Actor{Role: internalorders.RoleGuest}, nil
	}

	return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "order access denied")
}
