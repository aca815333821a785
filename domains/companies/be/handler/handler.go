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

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/companies/be/service"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/logging"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/problem"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

// Handler exposes the companies service over HTTP.
type Handler struct {
	svc      service.Service
	logger   *zap.Logger
	validate *validator.Validate
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("companies service is required")
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

// Routes mounts the companies endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/dead", h.listDead)
	r.Get("/accountname/{accountname}", h.getByAccountname)
	r.Get("/{companyID}", h.get)
	r.Patch("/{companyID}", h.update)
	r.Put("/{companyID}/visibility", h.setVisibility)
	r.Delete("/{companyID}", h.delete)
	r.Delete("/{companyID}/hard", h.hardDelete)

	return r
}

type createRequest struct {
	Accountname string  `json:"accountname" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Industry    *string `json:"industry"`
	Description *string `json:"description"`
	WebURL      *string `json:"webUrl" validate:"omitempty,url"`
}

type updateRequest struct {
	Name        *string `json:"name"`
	Industry    *string `json:"industry"`
	Description *string `json:"description"`
	WebURL      *string `json:"webUrl" validate:"omitempty,url"`
}

type visibilityRequest struct {
	State string `json:"state" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	company, err := h.svc.Create(r.Context(), audit, service.CreateInput{
		Accountname: req.Accountname,
		Name:        req.Name,
		Industry:    req.Industry,
		Description: req.Description,
		WebURL:      req.WebURL,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/companies/"+company.ID.String())
	h.writeJSON(w, r, http.StatusCreated, company)
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
	id, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}

	company, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, company)
}

func (h *Handler) getByAccountname(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.GetByAccountname(r.Context(), chi.URLParam(r, "accountname"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, company)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}

	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	company, err := h.svc.Update(r.Context(), audit, id, service.UpdateInput{
		Name:        req.Name,
		Industry:    req.Industry,
		Description: req.Description,
		WebURL:      req.WebURL,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, company)
}

func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}

	var req visibilityRequest
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	company, err := h.svc.SetVisibility(r.Context(), audit, id, req.State)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, company)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "companyID")
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
	id, ok := h.pathID(w, r, "companyID")
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

	if name := r.URL.Query().Get("name"); name != "" {
		opts.Name = &name
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
		problem.Write(w, problem.New(problem.TypeNotFound, "Company not found", http.StatusNotFound, ""))
	case errors.Is(err, service.ErrConflict):
		problem.Write(w, problem.New(problem.TypeConflict, "Company conflict", http.StatusConflict, "accountname already in use or company still referenced"))
	default:
		logging.FromRequest(r, h.logger).Error("companies handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal error", http.StatusInternalServerError, ""))
	}
}
