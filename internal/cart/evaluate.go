package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/variations"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Shortfalls checks every stored line against current catalog state and
// returns one entry per line that cannot be fulfilled. Lines are never
// short-circuited so callers can report all problems at once.
func Shortfalls(lines []models.CartLine, products map[uuid.UUID]*models.Product) []inventory.Shortfall {
	out := []inventory.Shortfall{}
	for _, line := range lines {
		product := products[line.ProductID]
		if product == nil || !product.IsPurchasable() {
			shortfall := inventory.Shortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Reason:    inventory.ShortfallReasonUnavailable,
			}
			if product != nil {
				shortfall.ProductTitle = product.Title
			}
			out = append(out, shortfall)
			continue
		}

		sel, err := variations.Select(product, line.OptionIDs)
		if err != nil {
			out = append(out, inventory.Shortfall{
				ProductID:    line.ProductID,
				ProductTitle: product.Title,
				Requested:    line.Quantity,
				Reason:       inventory.ShortfallReasonVariation,
			})
			continue
		}
		if available := sel.Quantity(); available < line.Quantity {
			out = append(out, inventory.Shortfall{
				ProductID:    line.ProductID,
				VariationID:  sel.VariationID(),
				ProductTitle: product.Title,
				Requested:    line.Quantity,
				Available:    available,
				Reason:       inventory.ShortfallReasonStock,
			})
		}
	}
	return out
}

// ProductIDs returns the distinct products referenced by lines, in first-seen order.
func ProductIDs(lines []models.CartLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
