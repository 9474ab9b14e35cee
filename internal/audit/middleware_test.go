package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
)

func TestMiddlewareRecordsOperatorActions(t *testing.T) {
	store := &memStore{}
	recorder := HTTPRecorder{Service: &Service{Store: store, Enabled: true}}
	operatorID := uuid.New()

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := common.WithOperatorID(r.Context(), operatorID.String())
			ctx = common.WithOperatorRole(ctx, "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.With(recorder.Middleware(HTTPConfig{
		Action:          "product.restock",
		ResourceType:    "product",
		ResourceIDParam: "id",
	})).Post("/products/{id}/restock", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	productID := uuid.NewString()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/products/"+productID+"/restock", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	require.Equal(t, ActorKindOperator, entry.ActorKind)
	require.Equal(t, operatorID, *entry.OperatorID)
	require.Equal(t, productID, *entry.ResourceID)
	require.Equal(t, int32(http.StatusOK), entry.Status)
}

func TestMiddlewareSkipsWhenDisabled(t *testing.T) {
	store := &memStore{}
	recorder := HTTPRecorder{Service: &Service{Store: store, Enabled: false}}

	handler := recorder.Middleware(HTTPConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/products", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, store.entries)
}

func TestListHandler(t *testing.T) {
	store := &memStore{}
	svc := Service{Store: store, Enabled: true}
	req := httptest.NewRequest("POST", "/products", nil)
	require.NoError(t, svc.Record(req.Context(), Actor{Kind: ActorKindSystem}, "product.create", "product", "", req, 201, nil))

	handler := Handler{Store: store}
	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest("GET", "/audit?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "product.create")
}
