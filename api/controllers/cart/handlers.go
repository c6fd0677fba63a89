package cart

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartFetch renders the caller's cart with totals and checkout shortfalls.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFromRequest(w, r, svc, logg)
		if !ok {
			return
		}
		resp, err := render(r, svc, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// CartAddItem adds quantity to a line, creating it when missing.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFromRequest(w, r, svc, logg)
		if !ok {
			return
		}
		var payload cartsvc.LineInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.Add(r.Context(), owner, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := render(r, svc, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// CartUpdateItem sets the absolute quantity of an existing line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFromRequest(w, r, svc, logg)
		if !ok {
			return
		}
		var payload cartsvc.LineInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.UpdateQuantity(r.Context(), owner, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := render(r, svc, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFromRequest(w, r, svc, logg)
		if !ok {
			return
		}
		var payload removeLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), owner, payload.ProductID, payload.OptionIDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := render(r, svc, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFromRequest(w, r, svc, logg)
		if !ok {
			return
		}
		if err := svc.Clear(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CartMerge moves the session cart into the signed-in user's cart and expires
// the session cookie.
func CartMerge(svc cartsvc.Service, cookieName string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		session := middleware.CartSessionFromContext(r.Context())
		if session == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no session cart to merge"))
			return
		}

		merged, err := svc.Merge(r.Context(), cartsvc.Anonymous(session), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

		resp, err := render(r, svc, cartsvc.Authenticated(userID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mergeResponse{Merged: merged, cartResponse: *resp})
	}
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger) (cartsvc.Owner, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return cartsvc.Owner{}, false
	}
	owner, ok := middleware.CartOwnerFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing"))
		return cartsvc.Owner{}, false
	}
	return owner, true
}

func render(r *http.Request, svc cartsvc.Service, owner cartsvc.Owner) (*cartResponse, error) {
	view, err := svc.Items(r.Context(), owner)
	if err != nil {
		return nil, err
	}
	shortfalls, err := svc.CanCheckout(r.Context(), owner)
	if err != nil {
		return nil, err
	}
	if shortfalls == nil {
		shortfalls = []inventory.Shortfall{}
	}
	return &cartResponse{
		View:        view,
		Shortfalls:  shortfalls,
		CanCheckout: len(view.Lines) > 0 && len(shortfalls) == 0,
	}, nil
}
