package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/domains/users/be/repo"
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
	ErrNotFound  = errors.New("user not found")
	ErrConflict  = errors.New("user conflict")
	ErrForbidden = errors.New("actor may not manage this user")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,60}$`)

// User represents the domain view of a user record.
type User struct {
	ID        uuid.UUID
	Email     string
	Username  string
	FullName  string
	State     persistence.VisibilityState
	CreatedAt time.Time
	ChangedAt time.Time
}

// CreateInput represents the payload required to register a new user.
type CreateInput struct {
	Email    string
	Username string
	FullName string
}

// UpdateInput encapsulates fields the user may modify. Renames do not refresh
// the membership projection snapshots.
type UpdateInput struct {
	FullName *string
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Email    *string
	Page     int
	PageSize int
}

// ListResult wraps a page of users with pagination metadata.
type ListResult struct {
	Users      []User
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the users domain.
type Service interface {
	Create(ctx context.Context, input CreateInput) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (User, error)
	SetVisibility(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, state string) (User, error)
	Delete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
	HardDelete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error
	ListAlive(ctx context.Context, opts ListOptions) (ListResult, error)
	ListDead(ctx context.Context, audit requesttrace.AuditInfo, opts ListOptions) (ListResult, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a users Service instance backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("users repository is required")
	}
	return &service{repo: r}
}

func (s *service) Create(ctx context.Context, input CreateInput) (User, error) {
	fieldErrors := FieldErrors{}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		fieldErrors.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		fieldErrors.add("email", "email must contain '@'")
	}

	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" {
		fieldErrors.add("username", "username is required")
	} else if !usernamePattern.MatchString(username) {
		fieldErrors.add("username", "username may contain lowercase letters, digits, dots and underscores (3-60 characters)")
	}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		fieldErrors.add("fullName", "fullName is required")
	}

	if len(fieldErrors) > 0 {
		return User{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.Create(ctx, persistence.CreateUserParams{
		UserID:   uuid.New(),
		Email:    email,
		Username: username,
		FullName: fullName,
	})
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	return mapUser(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	return mapUser(record), nil
}

func (s *service) GetByUsername(ctx context.Context, username string) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return User{}, ErrNotFound
	}

	record, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	return mapUser(record), nil
}

func (s *service) Update(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, input UpdateInput) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrNotFound
	}
	if !actingAsUser(audit, id) {
		return User{}, ErrForbidden
	}

	if input.FullName == nil {
		return User{}, newValidationError(map[string]string{"fullName": "fullName is required"})
	}

	fullName := strings.TrimSpace(*input.FullName)
	if fullName == "" {
		return User{}, newValidationError(map[string]string{"fullName": "fullName cannot be empty"})
	}

	record, err := s.repo.Update(ctx, id, persistence.UpdateUserParams{FullName: &fullName})
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	return mapUser(record), nil
}

func (s *service) SetVisibility(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID, state string) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrNotFound
	}
	if !actingAsUser(audit, id) {
		return User{}, ErrForbidden
	}

	parsed, err := persistence.ParseVisibilityState(strings.ToLower(strings.TrimSpace(state)))
	if err != nil || !parsed.Alive() {
		return User{}, newValidationError(map[string]string{"state": "state must be 'private' or 'open'"})
	}

	record, repoErr := s.repo.SetState(ctx, id, parsed)
	if repoErr != nil {
		return User{}, mapPersistenceError(repoErr)
	}

	return mapUser(record), nil
}

func (s *service) Delete(ctx context.Context, audit requesttrace.AuditInfo, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	if !actingAsUser(audit, id) {
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

func (s *service) list(ctx context.Context, opts ListOptions, query func(context.Context, persistence.ListUsersParams) (persistence.ListUsersResult, error)) (ListResult, error) {
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

	params := persistence.ListUsersParams{Page: page, PageSize: pageSize}
	if opts.Email != nil && strings.TrimSpace(*opts.Email) != "" {
		email := strings.TrimSpace(*opts.Email)
		params.Email = &email
	}

	result, err := query(ctx, params)
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	users := make([]User, 0, len(result.Users))
	for _, record := range result.Users {
		users = append(users, mapUser(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Users:      users,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func actingAsUser(audit requesttrace.AuditInfo, userID uuid.UUID) bool {
	if audit.ActorKind == requesttrace.ActorKindSystem {
		return true
	}
	return audit.UserID != nil && *audit.UserID == userID
}

func mapUser(record persistence.User) User {
	return User{
		ID:        record.UserID,
		Email:     record.Email,
		Username:  record.Username,
		FullName:  record.FullName,
		State:     record.State,
		CreatedAt: record.CreatedAt,
		ChangedAt: record.ChangedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrUserNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrUserConflict):
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
