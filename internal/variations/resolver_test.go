package variations

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fixture struct {
	product *models.Product
	red     uuid.UUID
	blue    uuid.UUID
	small   uuid.UUID
	large   uuid.UUID
}

func newFixture() fixture {
	f := fixture{red: uuid.New(), blue: uuid.New(), small: uuid.New(), large: uuid.New()}
	price := decimal.NewFromInt(150)
	colorAxis := models.VariationAxis{ID: uuid.New(), Name: "Color", Position: 0, Options: []models.VariationOption{
		{ID: f.red, Name: "Red"}, {ID: f.blue, Name: "Blue"},
	}}
	sizeAxis := models.VariationAxis{ID: uuid.New(), Name: "Size", Position: 1, Options: []models.VariationOption{
		{ID: f.small, Name: "S"}, {ID: f.large, Name: "L"},
	}}
	f.product = &models.Product{
		ID:       uuid.New(),
		Title:    "Tee",
		Price:    decimal.NewFromInt(100),
		Quantity: 7,
		// listed size-first to check that labels follow axis position
		Axes: []models.VariationAxis{sizeAxis, colorAxis},
		Variations: []models.Variation{
			{ID: uuid.New(), OptionIDs: dbtypes.OptionSet{f.small, f.red}, Price: &price, Quantity: 2},
			{ID: uuid.New(), OptionIDs: dbtypes.OptionSet{f.large, f.blue}, Quantity: 5},
		},
	}
	return f
}

func TestResolveIsOrderIndependent(t *testing.T) {
	f := newFixture()

	first := Resolve(f.product, dbtypes.OptionSet{f.red, f.small})
	second := Resolve(f.product, dbtypes.OptionSet{f.small, f.red})

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, f.product.Variations[0].ID, first.ID)
}

func TestResolveNoMatch(t *testing.T) {
	f := newFixture()
	assert.Nil(t, Resolve(f.product, dbtypes.OptionSet{f.red, f.large}))
	assert.Nil(t, Resolve(f.product, nil))
	assert.Nil(t, Resolve(f.product, dbtypes.OptionSet{f.red}))
	assert.Nil(t, Resolve(nil, dbtypes.OptionSet{f.red}))
}

func TestResolveReturnsFirstOnDuplicateSets(t *testing.T) {
	f := newFixture()
	dup := f.product.Variations[0]
	dup.ID = uuid.New()
	f.product.Variations = append(f.product.Variations, dup)

	got := Resolve(f.product, dbtypes.OptionSet{f.small, f.red})
	require.NotNil(t, got)
	assert.Equal(t, f.product.Variations[0].ID, got.ID)
}

func TestPriceAndQuantityFallback(t *testing.T) {
	f := newFixture()

	assert.True(t, PriceFor(f.product, dbtypes.OptionSet{f.red, f.small}).Equal(decimal.NewFromInt(150)))
	// variation without its own price inherits the product price
	assert.True(t, PriceFor(f.product, dbtypes.OptionSet{f.blue, f.large}).Equal(decimal.NewFromInt(100)))
	assert.True(t, PriceFor(f.product, nil).Equal(decimal.NewFromInt(100)))

	assert.Equal(t, 2, QuantityFor(f.product, dbtypes.OptionSet{f.small, f.red}))
	assert.Equal(t, 5, QuantityFor(f.product, dbtypes.OptionSet{f.large, f.blue}))
	assert.Equal(t, 7, QuantityFor(f.product, nil))
}

func TestLabelsFollowAxisPosition(t *testing.T) {
	f := newFixture()
	labels := Labels(f.product, dbtypes.OptionSet{f.small, f.red})
	require.Len(t, labels, 2)
	assert.Equal(t, "Color", labels[0].Axis)
	assert.Equal(t, "Red", labels[0].Option)
	assert.Equal(t, "Size", labels[1].Axis)
	assert.Equal(t, "S", labels[1].Option)

	assert.Empty(t, Labels(f.product, dbtypes.OptionSet{uuid.New()}))
}

func TestFindByID(t *testing.T) {
	f := newFixture()
	got, err := FindByID(f.product, f.product.Variations[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	_, err = FindByID(f.product, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVariationNotFound))
}

func TestSelect(t *testing.T) {
	f := newFixture()

	sel, err := Select(f.product, dbtypes.OptionSet{f.red, f.small})
	require.NoError(t, err)
	require.NotNil(t, sel.VariationID())
	assert.Equal(t, f.product.Variations[0].ID, *sel.VariationID())
	assert.Equal(t, 2, sel.Quantity())
	assert.True(t, sel.Price().Equal(decimal.NewFromInt(150)))
	assert.Len(t, sel.Labels(), 2)

	_, err = Select(f.product, dbtypes.OptionSet{f.red})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVariationNotFound))

	plain := &models.Product{ID: uuid.New(), Price: decimal.NewFromInt(100), Quantity: 5}
	sel, err = Select(plain, nil)
	require.NoError(t, err)
	assert.Nil(t, sel.VariationID())
	assert.Equal(t, 5, sel.Quantity())

	_, err = Select(plain, dbtypes.OptionSet{f.red})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVariationNotFound))
}
