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
	createFn    func(ctx context.Context, membershipID, companyID, userID uuid.UUID) (persistence.Membership, error)
	getFn       func(ctx context.Context, id uuid.UUID) (persistence.Membership, error)
	getByPairFn func(ctx context.Context, companyID, userID uuid.UUID) (persistence.Membership, error)
	incrementFn func(ctx context.Context, id uuid.UUID, kind persistence.ProfileKind) (persistence.Membership, error)
	revokeFn    func(ctx context.Context, id uuid.UUID) error
	byCompanyFn func(ctx context.Context, companyID uuid.UUID) ([]persistence.Membership, error)
	byUserFn    func(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error)
}

func (m *mockRepository) Create(ctx context.Context, membershipID, companyID, userID uuid.UUID) (persistence.Membership, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, membershipID, companyID, userID)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Membership, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) GetByPair(ctx context.Context, companyID, userID uuid.UUID) (persistence.Membership, error) {
	if m.getByPairFn == nil {
		panic("getByPairFn not configured")
	}
	return m.getByPairFn(ctx, companyID, userID)
}

func (m *mockRepository) IncrementLoginCounter(ctx context.Context, id uuid.UUID, kind persistence.ProfileKind) (persistence.Membership, error) {
	if m.incrementFn == nil {
		panic("incrementFn not configured")
	}
	return m.incrementFn(ctx, id, kind)
}

func (m *mockRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	if m.revokeFn == nil {
		panic("revokeFn not configured")
	}
	return m.revokeFn(ctx, id)
}

func (m *mockRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]persistence.Membership, error) {
	if m.byCompanyFn == nil {
		panic("byCompanyFn not configured")
	}
	return m.byCompanyFn(ctx, companyID)
}

func (m *mockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error) {
	if m.byUserFn == nil {
		panic("byUserFn not configured")
	}
	return m.byUserFn(ctx, userID)
}

func TestGrantValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	audit := requesttrace.System("test")

	_, err := svc.Grant(context.Background(), audit, uuid.Nil, uuid.Nil)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "companyId")
	require.Contains(t, validationErr.Fields, "userId")
}

func TestGrantRequiresCompanyActor(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	outsiderAudit := requesttrace.ForUser(uuid.New(), uuid.New(), "test")

	_, err := svc.Grant(context.Background(), outsiderAudit, uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGrantCopiesSnapshot(t *testing.T) {
	t.Parallel()

	companyID := uuid.New()
	userID := uuid.New()
	audit := requesttrace.ForUser(uuid.New(), companyID, "test")

	repository := &mockRepository{}
	repository.createFn = func(ctx context.Context, membershipID, gotCompanyID, gotUserID uuid.UUID) (persistence.Membership, error) {
		require.NotEqual(t, uuid.Nil, membershipID)
		require.Equal(t, companyID, gotCompanyID)
		require.Equal(t, userID, gotUserID)
		return persistence.Membership{
			MembershipID:       membershipID,
			CompanyID:          gotCompanyID,
			UserID:             gotUserID,
			CompanyAccountname: "acme",
			CompanyName:        "Acme",
		}, nil
	}

	svc := New(repository)
	membership, err := svc.Grant(context.Background(), audit, companyID, userID)
	require.NoError(t, err)
	require.Equal(t, "acme", membership.CompanyAccountname)
}

func TestGetByPair(t *testing.T) {
	t.Parallel()

	companyID := uuid.New()
	userID := uuid.New()
	record := persistence.Membership{
		MembershipID: uuid.New(),
		CompanyID:    companyID,
		UserID:       userID,
	}

	svc := New(&mockRepository{
		getByPairFn: func(ctx context.Context, gotCompany, gotUser uuid.UUID) (persistence.Membership, error) {
			require.Equal(t, companyID, gotCompany)
			require.Equal(t, userID, gotUser)
			return record, nil
		},
	})

	membership, err := svc.GetByPair(context.Background(), companyID, userID)
	require.NoError(t, err)
	require.Equal(t, record.MembershipID, membership.ID)

	// Nil identifiers short-circuit without touching the repository.
	_, err = New(&mockRepository{}).GetByPair(context.Background(), uuid.Nil, userID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = New(&mockRepository{
		getByPairFn: func(ctx context.Context, _, _ uuid.UUID) (persistence.Membership, error) {
			return persistence.Membership{}, persistence.ErrMembershipNotFound
		},
	}).GetByPair(context.Background(), companyID, userID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordProfileLoginShowTutorialOnFirstVisit(t *testing.T) {
	t.Parallel()

	membershipID := uuid.New()
	userID := uuid.New()
	audit := requesttrace.ForUser(userID, uuid.New(), "test")

	record := persistence.Membership{
		MembershipID: membershipID,
		CompanyID:    uuid.New(),
		UserID:       userID,
	}

	repository := &mockRepository{}
	repository.getFn = func(ctx context.Context, id uuid.UUID) (persistence.Membership, error) {
		return record, nil
	}

	counter := 0
	repository.incrementFn = func(ctx context.Context, id uuid.UUID, kind persistence.ProfileKind) (persistence.Membership, error) {
		require.Equal(t, persistence.ProfileKindSupplier, kind)
		counter++
		updated := record
		updated.SupplierProfileLogins = counter
		return updated, nil
	}

	svc := New(repository)

	first, err := svc.RecordProfileLogin(context.Background(), audit, membershipID, "supplier")
	require.NoError(t, err)
	require.True(t, first.ShowTutorial)
	require.Equal(t, 1, first.Membership.SupplierProfileLogins)

	second, err := svc.RecordProfileLogin(context.Background(), audit, membershipID, "supplier")
	require.NoError(t, err)
	require.False(t, second.ShowTutorial)
	require.Equal(t, 2, second.Membership.SupplierProfileLogins)
}

func TestRecordProfileLoginCountersAreIndependent(t *testing.T) {
	t.Parallel()

	membershipID := uuid.New()
	userID := uuid.New()
	audit := requesttrace.ForUser(userID, uuid.New(), "test")

	record := persistence.Membership{
		MembershipID:          membershipID,
		UserID:                userID,
		SupplierProfileLogins: 7,
	}

	repository := &mockRepository{}
	repository.getFn = func(ctx context.Context, id uuid.UUID) (persistence.Membership, error) {
		return record, nil
	}
	repository.incrementFn = func(ctx context.Context, id uuid.UUID, kind persistence.ProfileKind) (persistence.Membership, error) {
		require.Equal(t, persistence.ProfileKindBuyer, kind)
		updated := record
		updated.BuyerProfileLogins = 1
		return updated, nil
	}

	svc := New(repository)

	// The first buyer visit shows the tutorial even with supplier history.
	result, err := svc.RecordProfileLogin(context.Background(), audit, membershipID, "buyer")
	require.NoError(t, err)
	require.True(t, result.ShowTutorial)
}

func TestRecordProfileLoginRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	audit := requesttrace.System("test")

	_, err := svc.RecordProfileLogin(context.Background(), audit, uuid.New(), "vendor")

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "kind")
}

func TestRecordProfileLoginOnlyMember(t *testing.T) {
	t.Parallel()

	membershipID := uuid.New()
	record := persistence.Membership{
		MembershipID: membershipID,
		UserID:       uuid.New(),
	}

	repository := &mockRepository{}
	repository.getFn = func(ctx context.Context, id uuid.UUID) (persistence.Membership, error) {
		return record, nil
	}

	svc := New(repository)

	otherUserAudit := requesttrace.ForUser(uuid.New(), uuid.New(), "test")
	_, err := svc.RecordProfileLogin(context.Background(), otherUserAudit, membershipID, "supplier")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRevokePermissions(t *testing.T) {
	t.Parallel()

	membershipID := uuid.New()
	companyID := uuid.New()
	memberUserID := uuid.New()

	record := persistence.Membership{
		MembershipID: membershipID,
		CompanyID:    companyID,
		UserID:       memberUserID,
	}

	repository := &mockRepository{}
	repository.getFn = func(ctx context.Context, id uuid.UUID) (persistence.Membership, error) {
		return record, nil
	}
	repository.revokeFn = func(ctx context.Context, id uuid.UUID) error {
		return nil
	}

	svc := New(repository)

	outsiderAudit := requesttrace.ForUser(uuid.New(), uuid.New(), "test")
	require.ErrorIs(t, svc.Revoke(context.Background(), outsiderAudit, membershipID), ErrForbidden)

	companyAudit := requesttrace.ForUser(uuid.New(), companyID, "test")
	require.NoError(t, svc.Revoke(context.Background(), companyAudit, membershipID))

	// The member can walk away on their own.
	memberAudit := requesttrace.ForUser(memberUserID, uuid.New(), "test")
	require.NoError(t, svc.Revoke(context.Background(), memberAudit, membershipID))
}

func TestMembershipErrorsAreTranslated(t *testing.T) {
	t.Parallel()

	companyID := uuid.New()
	audit := requesttrace.ForUser(uuid.New(), companyID, "test")

	repository := &mockRepository{}
	repository.createFn = func(ctx context.Context, membershipID, gotCompanyID, gotUserID uuid.UUID) (persistence.Membership, error) {
		return persistence.Membership{}, persistence.ErrMembershipConflict
	}

	svc := New(repository)
	_, err := svc.Grant(context.Background(), audit, companyID, uuid.New())
	require.ErrorIs(t, err, ErrConflict)

	repository.getFn = func(ctx context.Context, id uuid.UUID) (persistence.Membership, error) {
		return persistence.Membership{}, persistence.ErrMembershipNotFound
	}
	_, err = svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
