package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service appends stock movements and reads them back as history.
type Service interface {
	// Record appends one row using tx when non-nil so the row commits with the stock change.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.InventoryAdjustment, error)
	History(ctx context.Context, params HistoryParams) (*HistoryPage, error)
	ForReference(ctx context.Context, referenceID uuid.UUID) ([]models.InventoryAdjustment, error)
}

// Entry is the immutable content of one ledger row.
type Entry struct {
	ProductID      uuid.UUID
	VariationID    *uuid.UUID
	ActorID        *uuid.UUID
	QuantityBefore int
	QuantityAfter  int
	Type           enums.AdjustmentType
	Reason         string
	ReferenceID    *uuid.UUID
}

type HistoryParams struct {
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	pagination.Params
}

type HistoryPage struct {
	Items  []HistoryItem `json:"items"`
	Cursor string        `json:"cursor"`
}

type HistoryItem struct {
	ID             uuid.UUID            `json:"id"`
	ProductID      uuid.UUID            `json:"product_id"`
	VariationID    *uuid.UUID           `json:"variation_id,omitempty"`
	ActorID        *uuid.UUID           `json:"actor_id,omitempty"`
	QuantityBefore int                  `json:"quantity_before"`
	QuantityAfter  int                  `json:"quantity_after"`
	Adjustment     int                  `json:"adjustment"`
	Type           enums.AdjustmentType `json:"type"`
	Reason         string               `json:"reason"`
	ReferenceID    *uuid.UUID           `json:"reference_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.InventoryAdjustment, error) {
	if entry.ProductID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	if entry.QuantityBefore < 0 || entry.QuantityAfter < 0 {
		return nil, fmt.Errorf("ledger quantities must be non-negative (before=%d after=%d)", entry.QuantityBefore, entry.QuantityAfter)
	}
	if !entry.Type.IsValid() {
		return nil, fmt.Errorf("invalid adjustment type %q", entry.Type)
	}

	row := &models.InventoryAdjustment{
		ProductID:      entry.ProductID,
		VariationID:    entry.VariationID,
		ActorID:        entry.ActorID,
		QuantityBefore: entry.QuantityBefore,
		QuantityAfter:  entry.QuantityAfter,
		Adjustment:     entry.QuantityAfter - entry.QuantityBefore,
		Type:           entry.Type,
		Reason:         strings.TrimSpace(entry.Reason),
		ReferenceID:    entry.ReferenceID,
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) (*HistoryPage, error) {
	if params.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	q := listQuery{
		productID:   params.ProductID,
		variationID: params.VariationID,
		limit:       pagination.LimitWithBuffer(params.Limit),
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q.cursor = cursor

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory history")
	}
	rows, next := pagination.Trim(rows, params.Limit, func(row models.InventoryAdjustment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})

	items := make([]HistoryItem, len(rows))
	for i, row := range rows {
		items[i] = toHistoryItem(row)
	}
	return &HistoryPage{Items: items, Cursor: next}, nil
}

func (s *service) ForReference(ctx context.Context, referenceID uuid.UUID) ([]models.InventoryAdjustment, error) {
	if referenceID == uuid.Nil {
		return nil, fmt.Errorf("reference id is required")
	}
	return s.repo.ListByReference(ctx, referenceID)
}

func toHistoryItem(m models.InventoryAdjustment) HistoryItem {
	return HistoryItem{
		ID:             m.ID,
		ProductID:      m.ProductID,
		VariationID:    m.VariationID,
		ActorID:        m.ActorID,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		Adjustment:     m.Adjustment,
		Type:           m.Type,
		Reason:         m.Reason,
		ReferenceID:    m.ReferenceID,
		CreatedAt:      m.CreatedAt,
	}
}
