package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/memberships/be/repo"
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
	ErrNotFound  = errors.New("membership not found")
	ErrConflict  = errors.New("membership conflict")
	ErrForbidden = errors.New("actor may not manage this membership")
)

// Membership represents the domain view of a company membership. The
// Company* and User* fields are snapshots taken when access was granted; they
// intentionally drift from the source rows on rename.
type Membership struct {
	ID                    uuid.UUID
	CompanyID             uuid.UUID
	UserID                uuid.UUID
	CompanyAccountname    string
	CompanyName           string
	UserEmail             string
	UserUsername          string
	UserFullName          string
	SupplierProfileLogins int
	BuyerProfileLogins    int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ProfileLoginResult is returned after recording a profile view. ShowTutorial
// is true exactly on the first visit to that profile kind; the counters are
// the only usage signal the system derives.
type ProfileLoginResult struct {
	Membership   Membership
	ShowTutorial bool
}

// Service defines the business operations for the memberships domain.
type Service interface {
	Grant(ctx context.Context, audit requesttrace.AuditInfo, companyID, userID uuid.UUID) (Membership, error)
	Get(ctx context.Context, id uuid.UUID) (Membership, error)
	GetByPair(ctx context.Context, companyID, userID uuid.UUID) (Membership, error)
	RecordProfileLogin(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, kind string) (ProfileLoginResult, error)
	Revoke(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a memberships Service instance backed by the provided
// repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("memberships repository is required")
	}
	return &service{repo: r}
}

func (s *service) Grant(ctx context.Context, audit requesttrace.AuditInfo, companyID, userID uuid.UUID) (Membership, error) {
	fieldErrors := FieldErrors{}
	if companyID == uuid.Nil {
		fieldErrors.add("companyId", "companyId is required")
	}
	if userID == uuid.Nil {
		fieldErrors.add("userId", "userId is required")
	}
	if len(fieldErrors) > 0 {
		return Membership{}, &ValidationError{Fields: fieldErrors}
	}

	if !audit.ActingFor(companyID) {
		return Membership{}, ErrForbidden
	}

	record, err := s.repo.Create(ctx, uuid.New(), companyID, userID)
	if err != nil {
		return Membership{}, mapPersistenceError(err)
	}

	return mapMembership(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Membership, error) {
	if id == uuid.Nil {
		return Membership{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Membership{}, mapPersistenceError(err)
	}

	return mapMembership(record), nil
}

func (s *service) GetByPair(ctx context.Context, companyID, userID uuid.UUID) (Membership, error) {
	if companyID == uuid.Nil || userID == uuid.Nil {
		return Membership{}, ErrNotFound
	}

	record, err := s.repo.GetByPair(ctx, companyID, userID)
	if err != nil {
		return Membership{}, mapPersistenceError(err)
	}

	return mapMembership(record), nil
}

func (s *service) RecordProfileLogin(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, kind string) (ProfileLoginResult, error) {
	if id == uuid.Nil {
		return ProfileLoginResult{}, ErrNotFound
	}

	profileKind, err := persistence.ParseProfileKind(strings.ToLower(strings.TrimSpace(kind)))
	if err != nil {
		return ProfileLoginResult{}, newValidationError(map[string]string{"kind": "kind must be 'supplier' or 'buyer'"})
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProfileLoginResult{}, mapPersistenceError(err)
	}
	if !actingAsMember(audit, record) {
		return ProfileLoginResult{}, ErrForbidden
	}

	updated, err := s.repo.IncrementLoginCounter(ctx, id, profileKind)
	if err != nil {
		return ProfileLoginResult{}, mapPersistenceError(err)
	}

	counter := updated.SupplierProfileLogins
	if profileKind == persistence.ProfileKindBuyer {
		counter = updated.BuyerProfileLogins
	}

	return ProfileLoginResult{
		Membership:   mapMembership(updated),
		ShowTutorial: counter == 1,
	}, nil
}

func (s *service) Revoke(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapPersistenceError(err)
	}

	// The company revokes access, or the user walks away themself.
	if !audit.ActingFor(record.CompanyID) && !actingAsMember(audit, record) {
		return ErrForbidden
	}

	if err := s.repo.Revoke(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]Membership, error) {
	if companyID == uuid.Nil {
		return nil, ErrNotFound
	}

	records, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	return mapMemberships(records), nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	if userID == uuid.Nil {
		return nil, ErrNotFound
	}

	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	return mapMemberships(records), nil
}

func actingAsMember(audit requesttrace.AuditInfo, record persistence.Membership) bool {
	if audit.ActorKind == requesttrace.ActorKindSystem {
		return true
	}
	return audit.UserID != nil && *audit.UserID == record.UserID
}

func mapMembership(record persistence.Membership) Membership {
	return Membership{
		ID:                    record.MembershipID,
		CompanyID:             record.CompanyID,
		UserID:                record.UserID,
		CompanyAccountname:    record.CompanyAccountname,
		CompanyName:           record.CompanyName,
		UserEmail:             record.UserEmail,
		UserUsername:          record.UserUsername,
		UserFullName:          record.UserFullName,
		SupplierProfileLogins: record.SupplierProfileLogins,
		BuyerProfileLogins:    record.BuyerProfileLogins,
		CreatedAt:             record.CreatedAt,
		UpdatedAt:             record.UpdatedAt,
	}
}

func mapMemberships(records []persistence.Membership) []Membership {
	memberships := make([]Membership, 0, len(records))
	for _, record := range records {
		memberships = append(memberships, mapMembership(record))
	}
	return memberships
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrMembershipNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrMembershipConflict):
		return ErrConflict
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
