package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/users/be/service"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/logging"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/problem"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

// Handler exposes the users service over HTTP.
type Handler struct {
	svc      service.Service
	logger   *zap.Logger
	validate *validator.Validate
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("users service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes mounts the users endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/dead", h.listDead)
	r.Get("/username/{username}", h.getByUsername)
	r.Get("/{userID}", h.get)
	r.Patch("/{userID}", h.update)
	r.Put("/{userID}/visibility", h.setVisibility)
	r.Delete("/{userID}", h.delete)
	r.Delete("/{userID}/hard", h.hardDelete)

	return r
}

type createRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
}

type updateRequest struct {
	FullName *string `json:"fullName"`
}

type visibilityRequest struct {
	State string `json:"state" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.svc.Create(r.Context(), service.CreateInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/users/"+user.ID.String())
	h.writeJSON(w, r, http.StatusCreated, user)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListAlive(r.Context(), listOptionsFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

func (h *Handler) listDead(w http.ResponseWriter, r *http.Request) {
	audit := requesttrace.FromContextOrAnonymous(r.Context())
	result, err := h.svc.ListDead(r.Context(), audit, listOptionsFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, user)
}

func (h *Handler) getByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	user, err := h.svc.Update(r.Context(), audit, id, service.UpdateInput{FullName: req.FullName})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, user)
}

func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	var req visibilityRequest
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	user, err := h.svc.SetVisibility(r.Context(), audit, id, req.State)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, user)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	if err := h.svc.Delete(r.Context(), audit, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) hardDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	if err := h.svc.HardDelete(r.Context(), audit, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func listOptionsFromQuery(r *http.Request) service.ListOptions {
	opts := service.ListOptions{}

	if email := r.URL.Query().Get("email"); email != "" {
		opts.Email = &email
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil {
		opts.PageSize = pageSize
	}

	return opts
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest, "request body must be valid JSON"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		details := problem.New(problem.TypeValidation, "Invalid request body", http.StatusBadRequest, "")
		details.Errors = map[string][]string{}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				details.Errors[fe.Field()] = append(details.Errors[fe.Field()], "failed on rule "+fe.Tag())
			}
		}
		problem.Write(w, details)
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		problem.Write(w, problem.New(problem.TypeValidation, "Invalid identifier", http.StatusBadRequest, param+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromRequest(r, h.logger).Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		details := problem.New(problem.TypeValidation, "Validation failed", http.StatusBadRequest, "")
		details.Errors = validationErr.Fields
		problem.Write(w, details)
	case errors.Is(err, service.ErrForbidden):
		problem.Write(w, problem.New(problem.TypeForbidden, "Forbidden", http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "User not found", http.StatusNotFound, ""))
	case errors.Is(err, service.ErrConflict):
		problem.Write(w, problem.New(problem.TypeConflict, "User conflict", http.StatusConflict, "email or username already in use, or user still referenced"))
	default:
		logging.FromRequest(r, h.logger).Error("users handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal error", http.StatusInternalServerError, ""))
	}
}
