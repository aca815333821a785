package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/companies/be/repo"
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
	ErrNotFound  = errors.New("company not found")
	ErrConflict  = errors.New("company conflict")
	ErrForbidden = errors.New("actor may not manage this company")
)

var accountnamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Company represents the domain view of a company record.
type Company struct {
	ID          uuid.UUID
	Accountname string
	Name        string
	Industry    *string
	Description *string
	WebURL      *string
	State       persistence.VisibilityState
	CreatedAt   time.Time
	ChangedAt   time.Time
}

// CreateInput represents the payload required to register a new company.
type CreateInput struct {
	Accountname string
	Name        string
	Industry    *string
	Description *string
	WebURL      *string
}

// UpdateInput encapsulates fields the owning company may modify. Renaming a
// company does not refresh the membership projection snapshots.
type UpdateInput struct {
	Name        *string
	Industry    *string
	Description *string
	WebURL      *string
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Name     *string
	Page     int
	PageSize int
}

// ListResult wraps a page of companies with pagination metadata.
type ListResult struct {
	Companies  []Company
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the companies domain.
type Service interface {
	Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Company, error)
	Get(ctx context.Context, id uuid.UUID) (Company, error)
	GetByAccountname(ctx context.Context, accountname string) (Company, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Company, error)
	SetVisibility(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, state string) (Company, error)
	Delete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
	HardDelete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
	ListAlive(ctx context.Context, opts ListOptions) (ListResult, error)
	ListDead(ctx context.Context, audit requesttrace.AuditInfo, opts ListOptions) (ListResult, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a companies Service instance backed by the provided
// repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("companies repository is required")
	}
	return &service{repo: r}
}

func (s *service) Create(ctx context.Context, audit requesttrace.AuditInfo, input CreateInput) (Company, error) {
	fieldErrors := FieldErrors{}

	accountname := strings.ToLower(strings.TrimSpace(input.Accountname))
	if accountname == "" {
		fieldErrors.add("accountname", "accountname is required")
	} else if len(accountname) < 3 || len(accountname) > 60 {
		fieldErrors.add("accountname", "accountname must be between 3 and 60 characters")
	} else if !accountnamePattern.MatchString(accountname) {
		fieldErrors.add("accountname", "accountname may contain lowercase letters, digits and hyphens only")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors.add("name", "name is required")
	}

	if len(fieldErrors) > 0 {
		return Company{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.Create(ctx, persistence.CreateCompanyParams{
		CompanyID:   uuid.New(),
		Accountname: accountname,
		Name:        name,
		Industry:    trimOptional(input.Industry),
		Description: trimOptional(input.Description),
		WebURL:      trimOptional(input.WebURL),
	})
	if err != nil {
		return Company{}, mapPersistenceError(err)
	}

	return mapCompany(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Company, error) {
	if id == uuid.Nil {
		return Company{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Company{}, mapPersistenceError(err)
	}

	return mapCompany(record), nil
}

func (s *service) GetByAccountname(ctx context.Context, accountname string) (Company, error) {
	accountname = strings.ToLower(strings.TrimSpace(accountname))
	if accountname == "" {
		return Company{}, ErrNotFound
	}

	record, err := s.repo.GetByAccountname(ctx, accountname)
	if err != nil {
		return Company{}, mapPersistenceError(err)
	}

	return mapCompany(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (Company, error) {
	if id == uuid.Nil {
		return Company{}, ErrNotFound
	}
	if !audit.ActingFor(id) {
		return Company{}, ErrForbidden
	}

	params, err := buildUpdateParams(input)
	if err != nil {
		return Company{}, err
	}

	record, repoErr := s.repo.Update(ctx, id, params)
	if repoErr != nil {
		return Company{}, mapPersistenceError(repoErr)
	}

	return mapCompany(record), nil
}

func (s *service) SetVisibility(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, state string) (Company, error) {
	if id == uuid.Nil {
		return Company{}, ErrNotFound
	}
	if !audit.ActingFor(id) {
		return Company{}, ErrForbidden
	}

	parsed, err := persistence.ParseVisibilityState(strings.ToLower(strings.TrimSpace(state)))
	if err != nil || !parsed.Alive() {
		return Company{}, newValidationError(map[string]string{"state": "state must be 'private' or 'open'"})
	}

	record, repoErr := s.repo.SetState(ctx, id, parsed)
	if repoErr != nil {
		return Company{}, mapPersistenceError(repoErr)
	}

	return mapCompany(record), nil
}

func (s *service) Delete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	if !audit.ActingFor(id) {
		return ErrForbidden
	}

	if _, err := s.repo.SoftDelete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) HardDelete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	// Physical removal is administrative tooling, never a customer-facing path.
	if audit.ActorKind != requesttrace.ActorKindSystem {
		return ErrForbidden
	}

	if err := s.repo.HardDelete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	return nil
}

func (s *service) ListAlive(ctx context.Context, opts ListOptions) (ListResult, error) {
	return s.list(ctx, opts, s.repo.ListAlive)
}

func (s *service) ListDead(ctx context.Context, audit requesttrace.AuditInfo, opts ListOptions) (ListResult, error) {
	if audit.ActorKind != requesttrace.ActorKindSystem {
		return ListResult{}, ErrForbidden
	}
	return s.list(ctx, opts, s.repo.ListDead)
}

func (s *service) list(ctx context.Context, opts ListOptions, query func(context.Context, persistence.ListCompaniesParams) (persistence.ListCompaniesResult, error)) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	result, err := query(ctx, persistence.ListCompaniesParams{
		Page:     page,
		PageSize: pageSize,
		Name:     trimOptional(opts.Name),
	})
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	companies := make([]Company, 0, len(result.Companies))
	for _, record := range result.Companies {
		companies = append(companies, mapCompany(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Companies:  companies,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func buildUpdateParams(input UpdateInput) (persistence.UpdateCompanyParams, error) {
	fieldErrors := FieldErrors{}
	params := persistence.UpdateCompanyParams{}
	fieldsSet := 0

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			fieldErrors.add("name", "name cannot be empty")
		} else {
			params.Name = &name
			fieldsSet++
		}
	}
	if input.Industry != nil {
		params.Industry = trimOptional(input.Industry)
		fieldsSet++
	}
	if input.Description != nil {
		params.Description = trimOptional(input.Description)
		fieldsSet++
	}
	if input.WebURL != nil {
		params.WebURL = trimOptional(input.WebURL)
		fieldsSet++
	}

	if fieldsSet == 0 {
		fieldErrors.add("payload", "at least one field must be provided")
	}

	if len(fieldErrors) > 0 {
		return persistence.UpdateCompanyParams{}, &ValidationError{Fields: fieldErrors}
	}

	return params, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapCompany(record persistence.Company) Company {
	return Company{
		ID:          record.CompanyID,
		Accountname: record.Accountname,
		Name:        record.Name,
		Industry:    record.Industry,
		Description: record.Description,
		WebURL:      record.WebURL,
		State:       record.State,
		CreatedAt:   record.CreatedAt,
		ChangedAt:   record.ChangedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrCompanyNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrCompanyConflict):
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
