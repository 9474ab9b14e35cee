package scan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
)

type stubCart struct {
	lines map[uuid.UUID]int32
	err   error
}

func (s *stubCart) AddLine(_ context.Context, productID uuid.UUID, qty int32) (cart.Line, error) {
	if s.err != nil {
		return cart.Line{}, s.err
	}
	if s.lines == nil {
		s.lines = map[uuid.UUID]int32{}
	}
	s.lines[productID] += qty
	return cart.Line{ProductID: productID, Qty: s.lines[productID]}, nil
}

type stubFeed struct {
	offers []string
	full   bool
}

func (s *stubFeed) Offer(payload string) bool {
	if s.full {
		return false
	}
	s.offers = append(s.offers, payload)
	return true
}

func handlerWith(products map[string]catalog.Product, cartStub *stubCart, feed *stubFeed) *Handler {
	return &Handler{
		Resolver: &Resolver{Catalog: stubCatalog{byBarcode: products}, Log: zerolog.Nop()},
		Cart:     cartStub,
		Feed:     feed,
	}
}

func TestResolveEndpointAddsToCart(t *testing.T) {
	p := catalog.Product{ID: uuid.New(), Name: "Kopi Sachet", Active: true}
	cartStub := &stubCart{}
	h := handlerWith(map[string]catalog.Product{"4006381333931": p}, cartStub, nil)

	req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(`{"payload":"4006381333931"}`))
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int32(1), cartStub.lines[p.ID])
	require.Contains(t, rec.Body.String(), "Kopi Sachet")
}

func TestResolveEndpointErrors(t *testing.T) {
	p := catalog.Product{ID: uuid.New(), Name: "Teh Botol", Active: true}
	h := handlerWith(map[string]catalog.Product{"96385074": p}, &stubCart{err: catalog.ErrInsufficientStock}, nil)

	cases := []struct {
		name string
		body string
		code int
		want string
	}{
		{"bad json", `{`, http.StatusBadRequest, "BAD_REQUEST"},
		{"malformed check digit", `{"payload":"4006381333930"}`, http.StatusBadRequest, "MALFORMED_SCAN"},
		{"unrecognized", `{"payload":"96385075074"}`, http.StatusNotFound, "UNRECOGNIZED_SCAN"},
		{"cart conflict", `{"payload":"96385074"}`, http.StatusConflict, "INSUFFICIENT_STOCK"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Resolve(rec, req)
			require.Equal(t, tc.code, rec.Code)
			require.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestEnqueueEndpoint(t *testing.T) {
	feed := &stubFeed{}
	h := handlerWith(nil, nil, feed)

	req := httptest.NewRequest(http.MethodPost, "/scan/feed", strings.NewReader(`{"payload":"96385074"}`))
	rec := httptest.NewRecorder()
	h.Enqueue(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []string{"96385074"}, feed.offers)

	req = httptest.NewRequest(http.MethodPost, "/scan/feed", strings.NewReader(`{"payload":""}`))
	rec = httptest.NewRecorder()
	h.Enqueue(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	feed.full = true
	req = httptest.NewRequest(http.MethodPost, "/scan/feed", strings.NewReader(`{"payload":"96385074"}`))
	rec = httptest.NewRecorder()
	h.Enqueue(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
