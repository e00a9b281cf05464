package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

type lineBody struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Price     decimal.Decimal `json:"price" validate:"gt=0"`
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "hello", SanitizeString("  hello \n", 0))
	require.Equal(t, "dock 4\tbay", SanitizeString("dock\x00 4\tbay", 0))
	require.Equal(t, "café", SanitizeString("cafés au lait", 4))
	require.Equal(t, "ab", SanitizeString("ab   cd", 4))
}

func TestDecodeJSONBodyValidatesUUIDAndDecimal(t *testing.T) {
	var body lineBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":"00000000-0000-0000-0000-000000000000","quantity":0,"price":"0"}`))
	err := DecodeJSONBody(r, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["productId"])
	require.Contains(t, details, "quantity")
	require.Equal(t, "must be greater than 0", details["price"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var body lineBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":"`+uuid.NewString()+`","quantity":1,"price":"2.50","discount":1}`))
	err := DecodeJSONBody(r, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsUnknownFieldName(t *testing.T) {
	var body lineBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"discount":1}`))
	typed := pkgerrors.As(DecodeJSONBody(r, &body))
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, "discount", details["field"])
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingInput(t *testing.T) {
	var body lineBody
	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := DecodeJSONBody(empty, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Contains(t, err.Error(), "request body is empty")

	valid := `{"productId":"` + uuid.NewString() + `","quantity":1,"price":"1"}`
	trailing := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(valid+valid))
	err = DecodeJSONBody(trailing, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	var body lineBody
	huge := `{"productId":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	err := DecodeJSONBody(r, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Contains(t, err.Error(), "too large")
}

type orderBody struct {
	Items []lineBody `json:"items" validate:"required,min=1,dive"`
}

func TestDecodeJSONBodyReportsNestedPaths(t *testing.T) {
	var body orderBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"productId":"`+uuid.NewString()+`","quantity":0,"price":"1"}]}`))
	typed := pkgerrors.As(DecodeJSONBody(r, &body))
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "items[0].quantity")
}

func TestDecodeJSONBodyAcceptsValidLine(t *testing.T) {
	id := uuid.New()
	var body lineBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"productId":"`+id.String()+`","quantity":3,"price":"19.99"}`))
	require.NoError(t, DecodeJSONBody(r, &body))
	require.Equal(t, id, body.ProductID)
	require.True(t, body.Price.Equal(decimal.RequireFromString("19.99")))
}

func TestParseUUIDParam(t *testing.T) {
	withParam := func(value string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderId", value)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id := uuid.New()
	got, err := ParseUUIDParam(withParam(id.String()), "orderId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = ParseUUIDParam(withParam("not-a-uuid"), "orderId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseUUIDParam(withParam(""), "orderId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
