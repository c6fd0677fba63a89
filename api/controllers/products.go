package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type optionView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type axisView struct {
	ID      uuid.UUID    `json:"id"`
	Name    string       `json:"name"`
	Options []optionView `json:"options"`
}

type variationView struct {
	ID            uuid.UUID        `json:"id"`
	OptionIDs     []uuid.UUID      `json:"option_ids"`
	SKU           *string          `json:"sku,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Quantity      int              `json:"quantity"`
	SoldCount     int              `json:"sold_count"`
}

type productView struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Status        enums.ProductStatus `json:"status"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice *decimal.Decimal    `json:"original_price,omitempty"`
	Quantity      int                 `json:"quantity"`
	SoldCount     int                 `json:"sold_count"`
	ImageURL      *string             `json:"image_url,omitempty"`
	Axes          []axisView          `json:"axes"`
	Variations    []variationView     `json:"variations"`
}

// newVariationView falls back to the product price when the variation carries none.
func newVariationView(v models.Variation, productPrice decimal.Decimal) variationView {
	price := productPrice
	if v.Price != nil {
		price = *v.Price
	}
	return variationView{
		ID:            v.ID,
		OptionIDs:     []uuid.UUID(v.OptionIDs),
		SKU:           v.SKU,
		Price:         price,
		OriginalPrice: v.OriginalPrice,
		Quantity:      v.Quantity,
		SoldCount:     v.SoldCount,
	}
}

func newProductView(p *models.Product) productView {
	view := productView{
		ID:            p.ID,
		Title:         p.Title,
		Status:        p.Status,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Quantity:      p.Quantity,
		SoldCount:     p.SoldCount,
		ImageURL:      p.ImageURL,
		Axes:          make([]axisView, 0, len(p.Axes)),
		Variations:    make([]variationView, 0, len(p.Variations)),
	}
	for _, axis := range p.Axes {
		av := axisView{ID: axis.ID, Name: axis.Name, Options: make([]optionView, 0, len(axis.Options))}
		for _, opt := range axis.Options {
			av.Options = append(av.Options, optionView{ID: opt.ID, Name: opt.Name})
		}
		view.Axes = append(view.Axes, av)
	}
	for _, v := range p.Variations {
		view.Variations = append(view.Variations, newVariationView(v, p.Price))
	}
	return view
}

// ProductDetail shows a product with its axes and variations. Only admins see unpublished products.
func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !product.IsPurchasable() && middleware.RoleFromContext(r.Context()) != enums.UserRoleAdmin {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, newProductView(product))
	}
}

// AdminCreateVariation adds a variation and books its opening stock in the ledger.
func AdminCreateVariation(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input products.CreateVariationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ProductID = productID
		if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
			input.ActorID = &userID
		}

		variation, err := svc.CreateVariation(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price := decimal.Zero
		if variation.Price != nil {
			price = *variation.Price
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newVariationView(*variation, price))
	}
}
