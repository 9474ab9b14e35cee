package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/money"
)

// Handler exposes the cart engine over HTTP. Quote is supplied at wiring
// time so the cart view can include running totals without this package
// depending on the calculator.
type Handler struct {
	Engine   *Engine
	Validate *validator.Validate
	Quote    func(Snapshot) any
}

type addLineRequest struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	Qty       int32  `json:"qty" validate:"required,gt=0"`
}

type setQuantityRequest struct {
	Qty *int32 `json:"qty" validate:"required"`
}

type discountRequest struct {
	Kind       string       `json:"kind" validate:"required,oneof=percent fixed"`
	PercentBps int32        `json:"percentBps"`
	Amount     money.Amount `json:"amount"`
}

func (r discountRequest) toDiscount() Discount {
	return Discount{
		Kind:       DiscountKind(r.Kind),
		PercentBps: r.PercentBps,
		Amount:     r.Amount,
	}
}

// Get returns the current cart with running totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.Engine.Snapshot()
	body := map[string]any{"cart": snap}
	if h.Quote != nil {
		body["totals"] = h.Quote(snap)
	}
	common.JSONData(w, http.StatusOK, body)
}

// AddLine adds a product to the cart, merging into an existing line.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
			return
		}
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	line, err := h.Engine.AddLine(r.Context(), productID, req.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, line)
}

// SetQuantity replaces the quantity of a line; zero removes it.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Qty == nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}
	if err := h.Engine.SetLineQuantity(r.Context(), productID, *req.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.Engine.Snapshot())
}

// RemoveLine drops a product from the cart.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	h.Engine.RemoveLine(productID)
	w.WriteHeader(http.StatusNoContent)
}

// LineDiscount attaches a discount to a single line.
func (h *Handler) LineDiscount(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	req, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}
	if err := h.Engine.ApplyLineDiscount(productID, req.toDiscount()); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.Engine.Snapshot())
}

// SaleDiscount attaches a sale-level discount.
func (h *Handler) SaleDiscount(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}
	if err := h.Engine.ApplySaleDiscount(req.toDiscount()); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.Engine.Snapshot())
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Engine.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeDiscount(w http.ResponseWriter, r *http.Request) (discountRequest, bool) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return req, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
			return req, false
		}
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidQuantity, err.Error(), nil)
	case errors.Is(err, ErrInvalidDiscount):
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidDiscount, err.Error(), nil)
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart line not found", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	case errors.Is(err, catalog.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, common.CodeInsufficientStock, "insufficient stock", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart operation failed", nil)
	}
}
