package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/relationships/be/repo"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrRequestNotFound      = errors.New("relationship request not found")
	ErrRequestConflict      = errors.New("company already has a pending request")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrRelationshipConflict = errors.New("relationship already exists")
	ErrForbidden            = errors.New("actor is not a party of this request")
)

// Request represents the domain view of a relationship request.
type Request struct {
	ID                 uuid.UUID
	RequesterCompanyID uuid.UUID
	AddressedCompanyID uuid.UUID
	RequesterUserID    *uuid.UUID
	Message            *string
	Blocked            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Relationship represents the domain view of a realized relationship.
type Relationship struct {
	ID                 uuid.UUID
	RequesterCompanyID uuid.UUID
	AddressedCompanyID uuid.UUID
	Type               *string
	State              persistence.VisibilityState
	CreatedAt          time.Time
	ChangedAt          time.Time
}

// CreateRequestInput is the payload required to open a request. The
// requester company is taken from the acting party, never from the payload.
type CreateRequestInput struct {
	AddressedCompanyID uuid.UUID
	Message            *string
}

// Service defines the business operations for the relationships domain.
type Service interface {
	CreateRequest(ctx context.Context, audit requesttrace.AuditInfo, input CreateRequestInput) (Request, error)
	GetRequest(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (Request, error)
	ListIncomingRequests(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]Request, error)
	ListOutgoingRequests(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]Request, error)
	Accept(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID, relType *string) (Relationship, error)
	Deny(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) (Request, error)
	Withdraw(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) error
	GetRelationship(ctx context.Context, id uuid.UUID) (Relationship, error)
	GetRelationshipByPair(ctx context.Context, first, second uuid.UUID) (Relationship, error)
	ListRelationships(ctx context.Context, companyID uuid.UUID) ([]Relationship, error)
	ListDeadRelationships(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]Relationship, error)
	DeleteRelationship(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
	HardDeleteRelationship(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
}

type service struct {
	repo repo.Repository
}

// New constructs a relationships Service instance backed by the provided
// repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("relationships repository is required")
	}
	return &service{repo: r}
}

func (s *service) CreateRequest(ctx context.Context, audit requesttrace.AuditInfo, input CreateRequestInput) (Request, error) {
	if audit.CompanyID == nil {
		return Request{}, ErrForbidden
	}
	requesterCompanyID := *audit.CompanyID

	fieldErrors := FieldErrors{}
	if input.AddressedCompanyID == uuid.Nil {
		fieldErrors.add("addressedCompanyId", "addressedCompanyId is required")
	} else if input.AddressedCompanyID == requesterCompanyID {
		fieldErrors.add("addressedCompanyId", "a company cannot request a relationship with itself")
	}
	if len(fieldErrors) > 0 {
		return Request{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.CreateRequest(ctx, persistence.CreateRequestParams{
		RequestID:          uuid.New(),
		RequesterCompanyID: requesterCompanyID,
		AddressedCompanyID: input.AddressedCompanyID,
		RequesterUserID:    audit.UserID,
		Message:            input.Message,
	})
	if err != nil {
		return Request{}, mapPersistenceError(err)
	}

	return mapRequest(record), nil
}

func (s *service) GetRequest(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) (Request, error) {
	record, err := s.fetchRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}

	// Requests are visible to their two parties only.
	if !audit.ActingFor(record.RequesterCompanyID) && !audit.ActingFor(record.AddressedCompanyID) {
		return Request{}, ErrForbidden
	}

	return mapRequest(record), nil
}

func (s *service) ListIncomingRequests(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]Request, error) {
	return s.listRequests(ctx, audit, companyID, true)
}

func (s *service) ListOutgoingRequests(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]Request, error) {
	return s.listRequests(ctx, audit, companyID, false)
}

func (s *service) listRequests(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID, incoming bool) ([]Request, error) {
	if companyID == uuid.Nil {
		return nil, ErrRequestNotFound
	}
	if !audit.ActingFor(companyID) {
		return nil, ErrForbidden
	}

	records, err := s.repo.ListRequestsForCompany(ctx, companyID, incoming)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	requests := make([]Request, 0, len(records))
	for _, record := range records {
		requests = append(requests, mapRequest(record))
	}
	return requests, nil
}

// Accept realizes the request. Only the addressed company may accept. An
// omitted type yields an untyped relationship, not an error.
func (s *service) Accept(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID, relType *string) (Relationship, error) {
	record, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return Relationship{}, err
	}
	if !audit.ActingFor(record.AddressedCompanyID) {
		return Relationship{}, ErrForbidden
	}

	if relType != nil {
		trimmed := strings.TrimSpace(*relType)
		if len(trimmed) > 60 {
			return Relationship{}, newValidationError(map[string]string{"type": "type must be at most 60 characters"})
		}
	}

	relationship, err := s.repo.AcceptRequest(ctx, uuid.New(), requestID, relType)
	if err != nil {
		return Relationship{}, mapPersistenceError(err)
	}

	return mapRelationship(relationship), nil
}

// Deny flags the request blocked and keeps the row. Only the addressed
// company may deny; denying twice is a no-op.
func (s *service) Deny(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) (Request, error) {
	record, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if !audit.ActingFor(record.AddressedCompanyID) {
		return Request{}, ErrForbidden
	}

	denied, err := s.repo.DenyRequest(ctx, requestID)
	if err != nil {
		return Request{}, mapPersistenceError(err)
	}

	return mapRequest(denied), nil
}

// Withdraw removes a pending request. Only the requester company may
// withdraw, and only before the addressed party acted on it.
func (s *service) Withdraw(ctx context.Context, audit requesttrace.AuditInfo, requestID uuid.UUID) error {
	record, err := s.fetchRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !audit.ActingFor(record.RequesterCompanyID) {
		return ErrForbidden
	}

	if err := s.repo.WithdrawRequest(ctx, requestID); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) GetRelationship(ctx context.Context, id uuid.UUID) (Relationship, error) {
	if id == uuid.Nil {
		return Relationship{}, ErrRelationshipNotFound
	}

	record, err := s.repo.GetRelationship(ctx, id)
	if err != nil {
		return Relationship{}, mapPersistenceError(err)
	}

	return mapRelationship(record), nil
}

func (s *service) GetRelationshipByPair(ctx context.Context, first, second uuid.UUID) (Relationship, error) {
	if first == uuid.Nil || second == uuid.Nil {
		return Relationship{}, ErrRelationshipNotFound
	}

	record, err := s.repo.GetRelationshipByPair(ctx, first, second)
	if err != nil {
		return Relationship{}, mapPersistenceError(err)
	}

	return mapRelationship(record), nil
}

func (s *service) ListRelationships(ctx context.Context, companyID uuid.UUID) ([]Relationship, error) {
	if companyID == uuid.Nil {
		return nil, ErrRelationshipNotFound
	}

	records, err := s.repo.ListAliveRelationships(ctx, companyID)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	return mapRelationships(records), nil
}

func (s *service) ListDeadRelationships(ctx context.Context, audit requesttrace.AuditInfo, companyID uuid.UUID) ([]Relationship, error) {
	if companyID == uuid.Nil {
		return nil, ErrRelationshipNotFound
	}
	if !audit.ActingFor(companyID) {
		return nil, ErrForbidden
	}

	records, err := s.repo.ListDeadRelationships(ctx, companyID)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	return mapRelationships(records), nil
}

func (s *service) DeleteRelationship(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	record, err := s.repo.GetRelationship(ctx, id)
	if err != nil {
		return mapPersistenceError(err)
	}

	// Either side may dissolve the relationship.
	if !audit.ActingFor(record.RequesterCompanyID) && !audit.ActingFor(record.AddressedCompanyID) {
		return ErrForbidden
	}

	if _, err := s.repo.SoftDeleteRelationship(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) HardDeleteRelationship(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if audit.ActorKind != requesttrace.ActorKindSystem {
		return ErrForbidden
	}

	if err := s.repo.HardDeleteRelationship(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) fetchRequest(ctx context.Context, id uuid.UUID) (persistence.RelationshipRequest, error) {
	if id == uuid.Nil {
		return persistence.RelationshipRequest{}, ErrRequestNotFound
	}

	record, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return persistence.RelationshipRequest{}, mapPersistenceError(err)
	}

	return record, nil
}

func mapRequest(record persistence.RelationshipRequest) Request {
	return Request{
		ID:                 record.RequestID,
		RequesterCompanyID: record.RequesterCompanyID,
		AddressedCompanyID: record.AddressedCompanyID,
		RequesterUserID:    record.RequesterUserID,
		Message:            record.Message,
		Blocked:            record.Blocked,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}

func mapRelationship(record persistence.Relationship) Relationship {
	return Relationship{
		ID:                 record.RelationshipID,
		RequesterCompanyID: record.RequesterCompanyID,
		AddressedCompanyID: record.AddressedCompanyID,
		Type:               record.Type,
		State:              record.State,
		CreatedAt:          record.CreatedAt,
		ChangedAt:          record.ChangedAt,
	}
}

func mapRelationships(records []persistence.Relationship) []Relationship {
	relationships := make([]Relationship, 0, len(records))
	for _, record := range records {
		relationships = append(relationships, mapRelationship(record))
	}
	return relationships
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrRequestNotFound):
		return ErrRequestNotFound
	case errors.Is(err, persistence.ErrRequestConflict):
		return ErrRequestConflict
	case errors.Is(err, persistence.ErrRelationshipNotFound):
		return ErrRelationshipNotFound
	case errors.Is(err, persistence.ErrRelationshipConflict):
		return ErrRelationshipConflict
	default:
		return err
	}
}

func newValidationError(fields map[string]string) error {
	fe := FieldErrors{}
	for key, message := range fields {
		fe.add(key, message)
	}
	return &ValidationError{Fields: fe}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
