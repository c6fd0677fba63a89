package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository issues the stock row statements. Every write goes through
// UpdateColumns so model hooks never run against a partially loaded row.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Decrement applies the conditional decrement and reports the affected row count.
func (r *Repository) Decrement(ctx context.Context, target Target, amount int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(target.model()).
		Where("id = ? AND quantity >= ?", target.rowID(), amount).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", amount),
			"sold_count": gorm.Expr("sold_count + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// Restore adds amount back and lowers sold_count by the same amount, floored at zero.
func (r *Repository) Restore(ctx context.Context, target Target, amount int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(target.model()).
		Where("id = ?", target.rowID()).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", amount),
			"sold_count": gorm.Expr("CASE WHEN sold_count > ? THEN sold_count - ? ELSE 0 END", amount, amount),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

type stockRow struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	SoldCount int
}

// Load reads the current quantity and sold_count. lock adds FOR UPDATE on Postgres.
func (r *Repository) Load(ctx context.Context, target Target, lock bool) (*stockRow, error) {
	query := r.db.WithContext(ctx).Model(target.model())
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	columns := []string{"id", "quantity", "sold_count"}
	if target.IsVariation() {
		columns = append(columns, "product_id")
	}

	var row stockRow
	if err := query.Select(columns).Where("id = ?", target.rowID()).Take(&row).Error; err != nil {
		return nil, err
	}
	if !target.IsVariation() {
		row.ProductID = row.ID
	}
	return &row, nil
}

// Set overwrites quantity and sold_count.
func (r *Repository) Set(ctx context.Context, target Target, quantity, soldCount int) error {
	return r.db.WithContext(ctx).
		Model(target.model()).
		Where("id = ?", target.rowID()).
		UpdateColumns(map[string]any{
			"quantity":   quantity,
			"sold_count": soldCount,
			"updated_at": time.Now().UTC(),
		}).Error
}

type variationStock struct {
	Quantity int
	Price    decimal.NullDecimal
}

func (r *Repository) VariationStock(ctx context.Context, productID uuid.UUID) ([]variationStock, error) {
	var rows []variationStock
	if err := r.db.WithContext(ctx).
		Model(&models.Variation{}).
		Select("quantity", "price").
		Where("product_id = ?", productID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountVariations returns how many variations the product has.
func (r *Repository) CountVariations(ctx context.Context, productID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Variation{}).
		Where("product_id = ?", productID).
		Count(&n).Error
	return n, err
}

// SetAggregates writes the derived product quantity and, when known, price.
func (r *Repository) SetAggregates(ctx context.Context, productID uuid.UUID, quantity int, price *decimal.Decimal) error {
	updates := map[string]any{
		"quantity":   quantity,
		"updated_at": time.Now().UTC(),
	}
	if price != nil {
		updates["price"] = *price
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(updates).Error
}

func (r *Repository) ProductTitles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID    uuid.UUID
		Title string
	}
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Select("id", "title").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Title
	}
	return out, nil
}

// LowStockProducts returns published products without variations in (0, threshold].
func (r *Repository) LowStockProducts(ctx context.Context, threshold int) ([]StockLevel, error) {
	var rows []struct {
		ID       uuid.UUID
		Title    string
		Quantity int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.id", "products.title", "products.quantity").
		Where("products.status = ?", enums.ProductStatusPublished).
		Where("products.quantity > 0 AND products.quantity <= ?", threshold).
		Where("NOT EXISTS (SELECT 1 FROM variations v WHERE v.product_id = products.id)").
		Order("products.quantity ASC").Order("products.title ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]StockLevel, len(rows))
	for i, row := range rows {
		out[i] = StockLevel{Target: ProductTarget(row.ID), ProductTitle: row.Title, Quantity: row.Quantity}
	}
	return out, nil
}

// LowStockVariations returns variations of published products in (0, threshold].
func (r *Repository) LowStockVariations(ctx context.Context, threshold int) ([]StockLevel, error) {
	var rows []struct {
		ID        uuid.UUID
		ProductID uuid.UUID
		Title     string
		Quantity  int
	}
	err := r.db.WithContext(ctx).
		Table("variations").
		Select("variations.id", "variations.product_id", "products.title", "variations.quantity").
		Joins("JOIN products ON products.id = variations.product_id").
		Where("products.status = ?", enums.ProductStatusPublished).
		Where("variations.quantity > 0 AND variations.quantity <= ?", threshold).
		Order("variations.quantity ASC").Order("products.title ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]StockLevel, len(rows))
	for i, row := range rows {
		out[i] = StockLevel{Target: VariationTarget(row.ProductID, row.ID), ProductTitle: row.Title, Quantity: row.Quantity}
	}
	return out, nil
}
