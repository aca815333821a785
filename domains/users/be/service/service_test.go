package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/requesttrace"
)

type mockRepository struct {
	createFn        func(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error)
	getFn           func(ctx context.Context, id uuid.UUID) (persistence.User, error)
	getByUsernameFn func(ctx context.Context, username string) (persistence.User, error)
	updateFn        func(ctx context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error)
	setStateFn      func(ctx context.Context, id uuid.UUID, state persistence.VisibilityState) (persistence.User, error)
	softDeleteFn    func(ctx context.Context, id uuid.UUID) (persistence.User, error)
	hardDeleteFn    func(ctx context.Context, id uuid.UUID) error
	listAliveFn     func(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error)
	listDeadFn      func(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error)
}

func (m *mockRepository) Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, params)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (persistence.User, error) {
	if m.getByUsernameFn == nil {
		panic("getByUsernameFn not configured")
	}
	return m.getByUsernameFn(ctx, username)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, id, params)
}

func (m *mockRepository) SetState(ctx context.Context, id uuid.UUID, state persistence.VisibilityState) (persistence.User, error) {
	if m.setStateFn == nil {
		panic("setStateFn not configured")
	}
	return m.setStateFn(ctx, id, state)
}

func (m *mockRepository) SoftDelete(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	if m.softDeleteFn == nil {
		panic("softDeleteFn not configured")
	}
	return m.softDeleteFn(ctx, id)
}

func (m *mockRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	if m.hardDeleteFn == nil {
		panic("hardDeleteFn not configured")
	}
	return m.hardDeleteFn(ctx, id)
}

func (m *mockRepository) ListAlive(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	if m.listAliveFn == nil {
		panic("listAliveFn not configured")
	}
	return m.listAliveFn(ctx, params)
}

func (m *mockRepository) ListDead(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	if m.listDeadFn == nil {
		panic("listDeadFn not configured")
	}
	return m.listDeadFn(ctx, params)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	_, err := svc.Create(context.Background(), CreateInput{})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "email")
	require.Contains(t, validationErr.Fields, "username")
	require.Contains(t, validationErr.Fields, "fullName")
}

func TestCreateNormalizesInput(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{}
	repository.createFn = func(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
		require.Equal(t, "alice@example.com", params.Email)
		require.Equal(t, "alice.w", params.Username)
		require.Equal(t, "Alice Walker", params.FullName)
		return persistence.User{
			UserID:   params.UserID,
			Email:    params.Email,
			Username: params.Username,
			FullName: params.FullName,
			State:    persistence.VisibilityOpen,
		}, nil
	}

	svc := New(repository)
	user, err := svc.Create(context.Background(), CreateInput{
		Email:    "  Alice@Example.COM  ",
		Username: "  Alice.W  ",
		FullName: "  Alice Walker  ",
	})
	require.NoError(t, err)
	require.Equal(t, persistence.VisibilityOpen, user.State)
}

func TestCreateRejectsMalformedUsername(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	for _, username := range []string{"ab", "has space", "dash-ed", "way@off"} {
		_, err := svc.Create(context.Background(), CreateInput{
			Email:    "valid@example.com",
			Username: username,
			FullName: "Valid Name",
		})

		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr), "username %q should be rejected", username)
		require.Contains(t, validationErr.Fields, "username")
	}
}

func TestUpdateOnlySelf(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	fullName := "Renamed"

	repository := &mockRepository{}
	repository.updateFn = func(ctx context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error) {
		return persistence.User{UserID: id, FullName: *params.FullName}, nil
	}

	svc := New(repository)

	otherAudit := requesttrace.ForUser(uuid.New(), uuid.New(), "test")
	_, err := svc.Update(context.Background(), otherAudit, userID, UpdateInput{FullName: &fullName})
	require.ErrorIs(t, err, ErrForbidden)

	selfAudit := requesttrace.ForUser(userID, uuid.New(), "test")
	updated, err := svc.Update(context.Background(), selfAudit, userID, UpdateInput{FullName: &fullName})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.FullName)
}

func TestDeleteOnlySelfOrSystem(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	repository := &mockRepository{}
	repository.softDeleteFn = func(ctx context.Context, id uuid.UUID) (persistence.User, error) {
		return persistence.User{UserID: id, State: persistence.VisibilityDeleted}, nil
	}

	svc := New(repository)

	otherAudit := requesttrace.ForUser(uuid.New(), uuid.New(), "test")
	require.ErrorIs(t, svc.Delete(context.Background(), otherAudit, userID), ErrForbidden)

	selfAudit := requesttrace.ForUser(userID, uuid.New(), "test")
	require.NoError(t, svc.Delete(context.Background(), selfAudit, userID))

	require.NoError(t, svc.Delete(context.Background(), requesttrace.System("test"), userID))
}

func TestUserConflictsAreTranslated(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{}
	repository.createFn = func(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
		return persistence.User{}, persistence.ErrUserConflict
	}

	svc := New(repository)
	_, err := svc.Create(context.Background(), CreateInput{
		Email:    "dup@example.com",
		Username: "dupuser",
		FullName: "Dup User",
	})
	require.ErrorIs(t, err, ErrConflict)
}
