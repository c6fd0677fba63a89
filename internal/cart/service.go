package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/variations"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const cartLineIdentityIndex = "ux_cart_lines_identity"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations. Mutations are read-check-then-write
// without locks; concurrent writers on one line are last-write-wins.
type Service interface {
	Add(ctx context.Context, owner Owner, input LineInput) (*models.CartLine, error)
	UpdateQuantity(ctx context.Context, owner Owner, input LineInput) (*models.CartLine, error)
	Remove(ctx context.Context, owner Owner, productID uuid.UUID, optionIDs []uuid.UUID) error
	Clear(ctx context.Context, owner Owner) error
	Items(ctx context.Context, owner Owner) (*View, error)
	TotalPrice(ctx context.Context, owner Owner) (decimal.Decimal, error)
	TotalQuantity(ctx context.Context, owner Owner) (int, error)
	CanCheckout(ctx context.Context, owner Owner) ([]inventory.Shortfall, error)
	Merge(ctx context.Context, anonymous Owner, userID uuid.UUID) (int, error)
}

// LineInput identifies a line by product and option set.
type LineInput struct {
	ProductID uuid.UUID   `json:"product_id" validate:"required"`
	Quantity  int         `json:"quantity" validate:"gte=1"`
	OptionIDs []uuid.UUID `json:"option_ids"`
}

// View is the live rendering of a cart. Lines for missing or unpublished
// products are omitted but stay stored.
type View struct {
	Lines         []LineView      `json:"lines"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalQuantity int             `json:"total_quantity"`
}

type LineView struct {
	ProductID    uuid.UUID            `json:"product_id"`
	VariationID  *uuid.UUID           `json:"variation_id,omitempty"`
	Title        string               `json:"title"`
	ImageURL     *string              `json:"image_url,omitempty"`
	OptionIDs    []uuid.UUID          `json:"option_ids"`
	Options      []models.OptionLabel `json:"options"`
	Quantity     int                  `json:"quantity"`
	Price        decimal.Decimal      `json:"price"`
	CurrentPrice decimal.Decimal      `json:"current_price"`
	Subtotal     decimal.Decimal      `json:"subtotal"`
	Available    int                  `json:"available"`
}

type service struct {
	repo     LineRepository
	tx       txRunner
	products productLoader
	logg     *logger.Logger
}

func NewService(repo LineRepository, tx txRunner, products productLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, products: products, logg: logg}, nil
}

func (s *service) Add(ctx context.Context, owner Owner, input LineInput) (*models.CartLine, error) {
	return s.write(ctx, owner, input, true)
}

func (s *service) UpdateQuantity(ctx context.Context, owner Owner, input LineInput) (*models.CartLine, error) {
	return s.write(ctx, owner, input, false)
}

// write performs Add (additive) and UpdateQuantity (absolute) after checking
// the resulting quantity against currently available stock.
func (s *service) write(ctx context.Context, owner Owner, input LineInput, additive bool) (*models.CartLine, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	options := dbtypes.NewOptionSet(input.OptionIDs...)
	sel, err := variations.Select(product, options)
	if err != nil {
		return nil, err
	}

	line, err := s.repo.Find(ctx, owner.Key(), product.ID, options.Key())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	if line == nil {
		line = &models.CartLine{ProductID: product.ID, OptionIDs: options}
		owner.stamp(line)
	}

	want := input.Quantity
	if additive {
		want += line.Quantity
	}
	if available := sel.Quantity(); available < want {
		return nil, inventory.InsufficientStock(inventory.Shortfall{
			ProductID:    product.ID,
			VariationID:  sel.VariationID(),
			ProductTitle: product.Title,
			Requested:    want,
			Available:    available,
			Reason:       inventory.ShortfallReasonStock,
		})
	}

	line.Quantity = want
	line.Price = sel.Price()
	if err := s.repo.Upsert(ctx, line); err != nil {
		if db.IsUniqueViolation(err, cartLineIdentityIndex) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart line changed concurrently, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
	}
	return line, nil
}

func (s *service) Remove(ctx context.Context, owner Owner, productID uuid.UUID, optionIDs []uuid.UUID) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	key := dbtypes.NewOptionSet(optionIDs...).Key()
	if err := s.repo.Delete(ctx, owner.Key(), productID, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := s.repo.DeleteByOwner(ctx, owner.Key()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) Items(ctx context.Context, owner Owner) (*View, error) {
	lines, products, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	view := &View{Lines: make([]LineView, 0, len(lines)), TotalPrice: decimal.Zero}
	for _, line := range lines {
		product := products[line.ProductID]
		if product == nil || !product.IsPurchasable() {
			continue
		}
		lv := LineView{
			ProductID: line.ProductID,
			Title:     product.Title,
			ImageURL:  product.ImageURL,
			OptionIDs: []uuid.UUID(line.OptionIDs),
			Options:   variations.Labels(product, line.OptionIDs),
			Quantity:  line.Quantity,
			Price:     line.Price,
			Subtotal:  line.Subtotal(),
		}
		if sel, err := variations.Select(product, line.OptionIDs); err == nil {
			lv.VariationID = sel.VariationID()
			lv.Available = sel.Quantity()
			lv.CurrentPrice = sel.Price()
		} else {
			lv.CurrentPrice = line.Price
		}
		view.Lines = append(view.Lines, lv)
		view.TotalPrice = view.TotalPrice.Add(lv.Subtotal)
		view.TotalQuantity += lv.Quantity
	}
	return view, nil
}

func (s *service) TotalPrice(ctx context.Context, owner Owner) (decimal.Decimal, error) {
	view, err := s.Items(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return view.TotalPrice, nil
}

func (s *service) TotalQuantity(ctx context.Context, owner Owner) (int, error) {
	view, err := s.Items(ctx, owner)
	if err != nil {
		return 0, err
	}
	return view.TotalQuantity, nil
}

func (s *service) CanCheckout(ctx context.Context, owner Owner) ([]inventory.Shortfall, error) {
	lines, products, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return Shortfalls(lines, products), nil
}

// Merge folds the anonymous session's lines into the user's cart and empties
// the session cart, all in one transaction. It returns how many lines moved.
func (s *service) Merge(ctx context.Context, anonymous Owner, userID uuid.UUID) (int, error) {
	if anonymous.IsAuthenticated() || anonymous.SessionToken() == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "anonymous session is required")
	}
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	target := Authenticated(userID)

	merged := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		incoming, err := repo.ListByOwner(ctx, anonymous.Key())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list session cart")
		}
		for _, in := range incoming {
			line, err := repo.Find(ctx, target.Key(), in.ProductID, in.OptionsKey)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				line = &models.CartLine{ProductID: in.ProductID, OptionIDs: in.OptionIDs}
				target.stamp(line)
			case err != nil:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart line")
			}
			line.Quantity += in.Quantity
			line.Price = in.Price
			if err := repo.Upsert(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart line")
			}
			merged++
		}
		if err := repo.DeleteByOwner(ctx, anonymous.Key()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session cart")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if merged > 0 {
		s.logg.Info(s.logg.WithOwner(ctx, target.Key()), fmt.Sprintf("merged %d session cart lines", merged))
	}
	return merged, nil
}

func (s *service) load(ctx context.Context, owner Owner) ([]models.CartLine, map[uuid.UUID]*models.Product, error) {
	if err := owner.Validate(); err != nil {
		return nil, nil, err
	}
	lines, err := s.repo.ListByOwner(ctx, owner.Key())
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	products, err := s.products.FindManyWithVariations(ctx, ProductIDs(lines))
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	return lines, products, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindWithVariations(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
