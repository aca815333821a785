package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
)

// Repository defines the persistence operations required by the memberships
// service.
type Repository interface {
	Create(ctx context.Context, membershipID, companyID, userID uuid.UUID) (persistence.Membership, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Membership, error)
	GetByPair(ctx context.Context, companyID, userID uuid.UUID) (persistence.Membership, error)
	IncrementLoginCounter(ctx context.Context, id uuid.UUID, kind persistence.ProfileKind) (persistence.Membership, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]persistence.Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error)
}

type postgresRepository struct {
	store *persistence.MembershipStore
}

// NewPostgresRepository constructs a repository backed by the shared
// persistence layer.
func NewPostgresRepository(store *persistence.MembershipStore) Repository {
	if store == nil {
		panic("membership store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, membershipID, companyID, userID uuid.UUID) (persistence.Membership, error) {
	return r.store.CreateMembership(ctx, membershipID, companyID, userID)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Membership, error) {
	return r.store.GetMembership(ctx, id)
}

func (r *postgresRepository) GetByPair(ctx context.Context, companyID, userID uuid.UUID) (persistence.Membership, error) {
	return r.store.GetMembershipByPair(ctx, companyID, userID)
}

func (r *postgresRepository) IncrementLoginCounter(ctx context.Context, id uuid.UUID, kind persistence.ProfileKind) (persistence.Membership, error) {
	return r.store.IncrementLoginCounter(ctx, id, kind)
}

func (r *postgresRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.store.RevokeMembership(ctx, id)
}

func (r *postgresRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]persistence.Membership, error) {
	return r.store.ListMembershipsByCompany(ctx, companyID)
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error) {
	return r.store.ListMembershipsByUser(ctx, userID)
}
