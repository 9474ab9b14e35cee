package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
)

func TestHandlerCommitClearsCart(t *testing.T) {
	p := stockProduct("Kopi Sachet", 1000, 10, 0)
	store := &memStore{stock: map[uuid.UUID]catalog.Product{p.ID: p}}
	engine := cart.NewEngine(store)
	h := &Handler{Engine: engine, Committer: testCommitter(store, nil)}

	_, err := engine.AddLine(context.Background(), p.ID, 3)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	operator := uuid.New()
	req = req.WithContext(common.WithOperatorID(req.Context(), operator.String()))
	rec := httptest.NewRecorder()
	h.Commit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "POS-20260820-0001")
	require.Contains(t, rec.Body.String(), operator.String())
	require.True(t, engine.Snapshot().Empty())
	require.Len(t, store.sales, 1)
}

func TestHandlerCommitEmptyCart(t *testing.T) {
	store := &memStore{stock: map[uuid.UUID]catalog.Product{}}
	engine := cart.NewEngine(store)
	h := &Handler{Engine: engine, Committer: testCommitter(store, nil)}

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	rec := httptest.NewRecorder()
	h.Commit(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "EMPTY_CART")
}

func TestHandlerCommitConflictKeepsCart(t *testing.T) {
	p := stockProduct("Beras 5kg", 65000, 2, 0)
	store := &memStore{stock: map[uuid.UUID]catalog.Product{p.ID: p}}
	engine := cart.NewEngine(store)
	h := &Handler{Engine: engine, Committer: testCommitter(store, nil)}

	_, err := engine.AddLine(context.Background(), p.ID, 2)
	require.NoError(t, err)

	// A second terminal sells one unit between add and commit.
	drained := p
	drained.Stock = 1
	store.stock[p.ID] = drained

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	rec := httptest.NewRecorder()
	h.Commit(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")
	// Cart survives so the operator can adjust and retry.
	require.False(t, engine.Snapshot().Empty())
	require.Empty(t, store.sales)
}
