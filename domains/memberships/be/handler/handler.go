package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/memberships/be/service"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/logging"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/problem"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

// Handler exposes the memberships service over HTTP.
type Handler struct {
	svc      service.Service
	logger   *zap.Logger
	validate *validator.Validate
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("memberships service is required")
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

// Routes mounts the memberships endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.grant)
	r.Get("/company/{companyID}", h.listByCompany)
	r.Get("/user/{userID}", h.listByUser)
	r.Get("/pair/{companyID}/{userID}", h.getByPair)
	r.Get("/{membershipID}", h.get)
	r.Post("/{membershipID}/profile-logins", h.recordProfileLogin)
	r.Delete("/{membershipID}", h.revoke)

	return r
}

type grantRequest struct {
	CompanyID uuid.UUID `json:"companyId" validate:"required"`
	UserID    uuid.UUID `json:"userId" validate:"required"`
}

type profileLoginRequest struct {
	Kind string `json:"kind" validate:"required,oneof=supplier buyer"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	membership, err := h.svc.Grant(r.Context(), audit, req.CompanyID, req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/memberships/"+membership.ID.String())
	h.writeJSON(w, r, http.StatusCreated, membership)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "membershipID")
	if !ok {
		return
	}

	membership, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, membership)
}

func (h *Handler) getByPair(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	membership, err := h.svc.GetByPair(r.Context(), companyID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, membership)
}

func (h *Handler) recordProfileLogin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "membershipID")
	if !ok {
		return
	}

	var req profileLoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	result, err := h.svc.RecordProfileLogin(r.Context(), audit, id, req.Kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, struct {
		Membership   service.Membership `json:"membership"`
		ShowTutorial bool               `json:"showTutorial"`
	}{Membership: result.Membership, ShowTutorial: result.ShowTutorial})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "membershipID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	if err := h.svc.Revoke(r.Context(), audit, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listByCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}

	memberships, err := h.svc.ListByCompany(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, memberships)
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	memberships, err := h.svc.ListByUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, memberships)
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
		problem.Write(w, problem.New(problem.TypeNotFound, "Membership not found", http.StatusNotFound, "membership, company or user not found"))
	case errors.Is(err, service.ErrConflict):
		problem.Write(w, problem.New(problem.TypeConflict, "Membership conflict", http.StatusConflict, "user already has access to this company"))
	default:
		logging.FromRequest(r, h.logger).Error("memberships handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal error", http.StatusInternalServerError, ""))
	}
}
