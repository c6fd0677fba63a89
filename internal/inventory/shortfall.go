package inventory

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	ShortfallReasonStock       = "insufficient_stock"
	ShortfallReasonUnavailable = "unavailable"
	ShortfallReasonVariation   = "variation_not_found"
)

// Shortfall describes one requested line that stock cannot cover.
type Shortfall struct {
	ProductID    uuid.UUID  `json:"product_id"`
	VariationID  *uuid.UUID `json:"variation_id,omitempty"`
	ProductTitle string     `json:"product_title,omitempty"`
	Requested    int        `json:"requested"`
	Available    int        `json:"available"`
	Reason       string     `json:"reason"`
}

// InsufficientStock builds the INSUFFICIENT_STOCK error carrying every shortfall as details.
func InsufficientStock(shortfalls ...Shortfall) *pkgerrors.Error {
	msg := "insufficient stock"
	if len(shortfalls) == 1 && shortfalls[0].ProductTitle != "" {
		msg = fmt.Sprintf("insufficient stock for %s", shortfalls[0].ProductTitle)
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(map[string]any{
		"shortfalls": shortfalls,
	})
}
