package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes operator authentication over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        string `json:"role" validate:"required,oneof=admin cashier"`
}

// Login verifies credentials and returns an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
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
	result, err := h.Svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

// Register creates an operator account. Admin only; enforced by routing.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
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
	operator, err := h.Svc.Register(r.Context(), req.Username, req.DisplayName, req.Password, req.Role)
	if err != nil {
		writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, operator)
}

// Me returns the authenticated operator.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := common.OperatorID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "unauthorized", nil)
		return
	}
	operator, err := h.Svc.Me(r.Context(), operatorID)
	if err != nil {
		writeErr(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, operator)
}

func writeErr(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "auth operation failed", nil)
}
