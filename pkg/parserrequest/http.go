package parserrequest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vk-parser/platform/pkg/common/logger"
	"github.com/vk-parser/platform/pkg/common/pagination"
)

// AdminService is what the operator routes read from. *Reader and *Service
// both satisfy it.
type AdminService interface {
	AdminList(ctx context.Context, params pagination.Params) (pagination.Response[DetailParserRequest], error)
	Detail(ctx context.Context, id int64) (*DetailParserRequest, error)
	Stat(ctx context.Context) ([]StatRow, error)
}

type Handler struct {
	service *Service
	limits  pagination.Limits
}

func NewHandler(service *Service, limits pagination.Limits) *Handler {
	return &Handler{service: service, limits: limits}
}

type AdminHandler struct {
	service AdminService
	limits  pagination.Limits
}

func NewAdminHandler(service AdminService, limits pagination.Limits) *AdminHandler {
	return &AdminHandler{service: service, limits: limits}
}

// Register mounts the public routes.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/parser_requests", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/parser_requests", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/parser_requests/{id:[0-9]+}", h.handleDetail).Methods(http.MethodGet)
}

// Register mounts the operator routes.
func (h *AdminHandler) Register(r *mux.Router) {
	r.HandleFunc("/admin/parser_requests", h.handleAdminList).Methods(http.MethodGet)
	r.HandleFunc("/admin/parser_requests/{id:[0-9]+}", h.handleDetail).Methods(http.MethodGet)
	r.HandleFunc("/admin/stat", h.handleStat).Methods(http.MethodGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid input params", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), body)
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": ve.Fields})
			return
		}
		if errors.Is(err, ErrMalformedInput) {
			http.Error(w, "Invalid input params", http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to create parser request")
		http.Error(w, "failed to create parser request", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, ok := pageParams(w, r, h.limits)
	if !ok {
		return
	}
	page, err := h.service.List(r.Context(), params)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list parser requests")
		http.Error(w, "failed to list parser requests", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) handleAdminList(w http.ResponseWriter, r *http.Request) {
	params, ok := pageParams(w, r, h.limits)
	if !ok {
		return
	}
	page, err := h.service.AdminList(r.Context(), params)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list parser requests for admin")
		http.Error(w, "failed to list parser requests", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, r, h.service)
}

func (h *AdminHandler) handleDetail(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, r, h.service)
}

func writeDetail(w http.ResponseWriter, r *http.Request, service AdminService) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid parser request id", http.StatusBadRequest)
		return
	}
	detail, err := service.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "parser request not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).WithField("parser_request_id", id).Error("failed to get parser request")
		http.Error(w, "failed to get parser request", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *AdminHandler) handleStat(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Stat(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to compute parser request stat")
		http.Error(w, "failed to compute stat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func pageParams(w http.ResponseWriter, r *http.Request, limits pagination.Limits) (pagination.Params, bool) {
	params, err := pagination.FromQuery(r.URL.Query(), limits)
	if err != nil {
		http.Error(w, "Invalid pagination params", http.StatusBadRequest)
		return pagination.Params{}, false
	}
	return params, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
