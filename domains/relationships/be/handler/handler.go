package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/relationships/be/service"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/logging"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/problem"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

// Handler exposes the relationships service over HTTP.
type Handler struct {
	svc      service.Service
	logger   *zap.Logger
	validate *validator.Validate
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("relationships service is required")
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

// Routes mounts the relationship request and relationship endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.createRequest)
		r.Get("/incoming/{companyID}", h.listIncoming)
		r.Get("/outgoing/{companyID}", h.listOutgoing)
		r.Get("/{requestID}", h.getRequest)
		r.Post("/{requestID}/accept", h.accept)
		r.Post("/{requestID}/deny", h.deny)
		r.Delete("/{requestID}", h.withdraw)
	})

	r.Get("/company/{companyID}", h.listRelationships)
	r.Get("/company/{companyID}/dead", h.listDeadRelationships)
	r.Get("/pair/{firstCompanyID}/{secondCompanyID}", h.getByPair)
	r.Get("/{relationshipID}", h.getRelationship)
	r.Delete("/{relationshipID}", h.deleteRelationship)
	r.Delete("/{relationshipID}/hard", h.hardDeleteRelationship)

	return r
}

type createRequestBody struct {
	AddressedCompanyID uuid.UUID `json:"addressedCompanyId" validate:"required"`
	Message            *string   `json:"message,omitempty" validate:"omitempty,max=500"`
}

type acceptRequestBody struct {
	Type *string `json:"type,omitempty" validate:"omitempty,max=60"`
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestBody
	if !h.decode(w, r, &req) {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	request, err := h.svc.CreateRequest(r.Context(), audit, service.CreateRequestInput{
		AddressedCompanyID: req.AddressedCompanyID,
		Message:            req.Message,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/relationships/requests/"+request.ID.String())
	h.writeJSON(w, r, http.StatusCreated, request)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "requestID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	request, err := h.svc.GetRequest(r.Context(), audit, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, request)
}

func (h *Handler) listIncoming(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, true)
}

func (h *Handler) listOutgoing(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, false)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request, incoming bool) {
	id, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())

	var (
		requests []service.Request
		err      error
	)
	if incoming {
		requests, err = h.svc.ListIncomingRequests(r.Context(), audit, id)
	} else {
		requests, err = h.svc.ListOutgoingRequests(r.Context(), audit, id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, requests)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "requestID")
	if !ok {
		return
	}

	// The accept body is optional: no body means an untyped relationship.
	var req acceptRequestBody
	if r.Body != nil && r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	relationship, err := h.svc.Accept(r.Context(), audit, id, req.Type)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/relationships/"+relationship.ID.String())
	h.writeJSON(w, r, http.StatusCreated, relationship)
}

func (h *Handler) deny(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "requestID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	request, err := h.svc.Deny(r.Context(), audit, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, request)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "requestID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	if err := h.svc.Withdraw(r.Context(), audit, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getRelationship(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "relationshipID")
	if !ok {
		return
	}

	relationship, err := h.svc.GetRelationship(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, relationship)
}

func (h *Handler) getByPair(w http.ResponseWriter, r *http.Request) {
	first, ok := h.pathID(w, r, "firstCompanyID")
	if !ok {
		return
	}
	second, ok := h.pathID(w, r, "secondCompanyID")
	if !ok {
		return
	}

	relationship, err := h.svc.GetRelationshipByPair(r.Context(), first, second)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, relationship)
}

func (h *Handler) listRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}

	relationships, err := h.svc.ListRelationships(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, relationships)
}

func (h *Handler) listDeadRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "companyID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	relationships, err := h.svc.ListDeadRelationships(r.Context(), audit, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, relationships)
}

func (h *Handler) deleteRelationship(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "relationshipID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	if err := h.svc.DeleteRelationship(r.Context(), audit, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) hardDeleteRelationship(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "relationshipID")
	if !ok {
		return
	}

	audit := requesttrace.FromContextOrAnonymous(r.Context())
	if err := h.svc.HardDeleteRelationship(r.Context(), audit, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
	case errors.Is(err, service.ErrRequestNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "Request not found", http.StatusNotFound, "relationship request not found"))
	case errors.Is(err, service.ErrRelationshipNotFound):
		problem.Write(w, problem.New(problem.TypeNotFound, "Relationship not found", http.StatusNotFound, "relationship not found"))
	case errors.Is(err, service.ErrRequestConflict):
		problem.Write(w, problem.New(problem.TypeConflict, "Request conflict", http.StatusConflict, "an outstanding request already exists for this pair, or the request was already denied"))
	case errors.Is(err, service.ErrRelationshipConflict):
		problem.Write(w, problem.New(problem.TypeConflict, "Relationship conflict", http.StatusConflict, "a relationship already exists between these companies"))
	default:
		logging.FromRequest(r, h.logger).Error("relationships handler failure", zap.Error(err))
		problem.Write(w, problem.New(problem.TypeInternal, "Internal error", http.StatusInternalServerError, ""))
	}
}
