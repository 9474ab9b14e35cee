package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
)

// CartAdder is the single cart operation the scan surface performs.
type CartAdder interface {
	AddLine(ctx context.Context, productID uuid.UUID, qty int32) (cart.Line, error)
}

// Offerer is the non-blocking entry to the scan feed.
type Offerer interface {
	Offer(payload string) bool
}

// Handler exposes scanning over HTTP: a synchronous resolve-and-add path
// for interactive use and a fire-and-forget feed path for the scanner
// device itself.
type Handler struct {
	Resolver *Resolver
	Cart     CartAdder
	Feed     Offerer
}

type scanRequest struct {
	Payload string `json:"payload"`
	Qty     int32  `json:"qty"`
}

// Resolve validates the payload, resolves it against the catalog and adds
// the product to the cart.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}
	if req.Qty <= 0 {
		req.Qty = 1
	}
	product, err := h.Resolver.Resolve(r.Context(), req.Payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	line, err := h.Cart.AddLine(r.Context(), product.ID, req.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"product": product,
		"line":    line,
	})
}

// Enqueue accepts a decode for asynchronous processing. 202 means queued,
// not sold: the pump resolves and adds it when the register catches up.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}
	if !h.Feed.Offer(req.Payload) {
		common.JSONError(w, http.StatusTooManyRequests, common.CodeBadRequest, "scan feed is full", nil)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMalformed):
		common.JSONError(w, http.StatusBadRequest, common.CodeMalformedScan, "malformed scan payload", nil)
	case errors.Is(err, ErrUnrecognized):
		common.JSONError(w, http.StatusNotFound, common.CodeUnrecognizedScan, "no product for scanned code", nil)
	case errors.Is(err, catalog.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, common.CodeInsufficientStock, "insufficient stock", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "scan failed", nil)
	}
}
