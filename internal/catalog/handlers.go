package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/money"
)

// Handler wires the catalog service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type upsertRequest struct {
	ID        string       `json:"id"`
	Barcode   *string      `json:"barcode"`
	Name      string       `json:"name" validate:"required"`
	UnitPrice money.Amount `json:"unitPrice" validate:"gte=0"`
	TaxClass  string       `json:"taxClass" validate:"required,oneof=STANDARD EXEMPT REDUCED"`
	Stock     int32        `json:"stock" validate:"gte=0"`
	MinStock  int32        `json:"minStock" validate:"gte=0"`
	Category  *string      `json:"categoryId"`
	Active    *bool        `json:"active"`
}

type restockRequest struct {
	Qty int32 `json:"qty" validate:"required,gt=0"`
}

// List returns a page of active products, optionally filtered by barcode.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	params := ListParams{
		Barcode: r.URL.Query().Get("barcode"),
		Limit:   int32(perPage),
		Offset:  int32((page - 1) * perPage),
	}
	products, total, err := h.Svc.List(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unable to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": products,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns a single product by identifier.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	product, err := h.Svc.Lookup(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, product)
}

// Upsert creates or replaces a product definition.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
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
	product := Product{
		Barcode:   req.Barcode,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		TaxClass:  TaxClass(req.TaxClass),
		Stock:     req.Stock,
		MinStock:  req.MinStock,
		Active:    true,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
			return
		}
		product.ID = id
	}
	if req.Category != nil && *req.Category != "" {
		cid, err := uuid.Parse(*req.Category)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid category id", nil)
			return
		}
		product.CategoryID = &cid
	}
	saved, err := h.Svc.Upsert(r.Context(), product)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, saved)
}

// Restock increments a product's stock level.
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req restockRequest
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
	product, err := h.Svc.Restock(r.Context(), id, req.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, product)
}

// Deactivate soft-deletes a product.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	if err := h.Svc.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LowStock lists products at or below their restock threshold.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.Svc.ListLowStock(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unable to list low stock", nil)
		return
	}
	common.JSONData(w, http.StatusOK, products)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	case errors.Is(err, ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, common.CodeInsufficientStock, "insufficient stock", nil)
	case errors.Is(err, ErrInvalidProduct):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog operation failed", nil)
	}
}
