package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type lineBody struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

type reasonBody struct {
	Reason string `json:"reason" validate:"max=10"`
}

func TestDecodeJSONBodyValidatesTags(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"00000000-0000-0000-0000-000000000000","quantity":0}`))
	var body lineBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["lineBody.product_id"])
	assert.Equal(t, "must be at least 1", details["lineBody.quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"extra":true}`))
	var body lineBody
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeOptionalJSONBodyAcceptsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	var body reasonBody
	require.NoError(t, DecodeOptionalJSONBody(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.Error(t, DecodeJSONBody(req, &body))
}

func TestParseQueryHelpers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&unread_only=true&product_id="+id.String()+"&bad=x", nil)

	limit, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, limit)

	_, err = ParseQueryInt(req, "bad", 25, 1, 100)
	assert.Error(t, err)

	unread, err := ParseQueryBool(req, "unread_only")
	require.NoError(t, err)
	assert.True(t, unread)

	parsed, err := ParseQueryUUID(req, "product_id")
	require.NoError(t, err)
	assert.Equal(t, id, *parsed)

	missing, err := ParseQueryUUID(req, "variation_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryUUID(req, "bad")
	assert.Error(t, err)
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/orders/"+id.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	req = req.WithContext(contextWithRoute(req, rctx))

	got, err := ParseUUIDParam(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(req, "missing")
	assert.Error(t, err)
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
