package checkout

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the commit operation over HTTP.
type Handler struct {
	Engine    *cart.Engine
	Committer *Committer
}

// Commit turns the current cart into a committed sale. The cart is only
// cleared after the sale is durable, so an abort leaves the cart intact for
// the operator to fix and retry.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var operatorID *uuid.UUID
	if raw, ok := common.OperatorID(r.Context()); ok {
		if id, err := uuid.Parse(raw); err == nil {
			operatorID = &id
		}
	}

	snap := h.Engine.Snapshot()
	result, err := h.Committer.Commit(r.Context(), snap, operatorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Engine.Clear()
	common.JSONData(w, http.StatusCreated, result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, common.CodeEmptyCart, "cart is empty", nil)
	case errors.Is(err, catalog.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, common.CodeInsufficientStock, "insufficient stock", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeStorageFailure, "commit failed", nil)
	}
}
