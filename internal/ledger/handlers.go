package ledger

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Store is the read surface the handlers need.
type Store interface {
	Query(ctx context.Context, params QueryParams) ([]Sale, *Cursor, error)
	GetByID(ctx context.Context, id uuid.UUID) (Sale, error)
}

// Handler exposes the sales ledger over HTTP.
type Handler struct {
	Store Store
}

const dayLayout = "2006-01-02"

// List returns sales for a date range. Both bounds are calendar dates; `to`
// is inclusive. A cursor from a previous page resumes the scan.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseDay(q.Get("from"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid from date, want YYYY-MM-DD", nil)
		return
	}
	to, err := parseDay(q.Get("to"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid to date, want YYYY-MM-DD", nil)
		return
	}

	params := QueryParams{
		From:  from,
		To:    to.AddDate(0, 0, 1),
		Limit: int32(common.ParseLimit(r, 50, 200)),
	}
	if token := q.Get("cursor"); token != "" {
		cursor, err := DecodeCursor(token)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid cursor", nil)
			return
		}
		params.After = &cursor
	}

	sales, next, err := h.Store.Query(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	body := map[string]any{"data": sales}
	if next != nil {
		body["nextCursor"] = next.Encode()
	}
	common.JSON(w, http.StatusOK, body)
}

// Get returns a single sale with its lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid sale id", nil)
		return
	}
	sale, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sale)
}

func parseDay(value string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, value, time.UTC)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "sale not found", nil)
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrBadCursor):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeStorageFailure, "ledger query failed", nil)
	}
}
