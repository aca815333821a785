package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
)

// Repository defines the persistence operations required by the relationships
// service.
type Repository interface {
	CreateRequest(ctx context.Context, params persistence.CreateRequestParams) (persistence.RelationshipRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (persistence.RelationshipRequest, error)
	ListRequestsForCompany(ctx context.Context, companyID uuid.UUID, incoming bool) ([]persistence.RelationshipRequest, error)
	AcceptRequest(ctx context.Context, relationshipID, requestID uuid.UUID, relType *string) (persistence.Relationship, error)
	DenyRequest(ctx context.Context, id uuid.UUID) (persistence.RelationshipRequest, error)
	WithdrawRequest(ctx context.Context, id uuid.UUID) error
	GetRelationship(ctx context.Context, id uuid.UUID) (persistence.Relationship, error)
	GetRelationshipByPair(ctx context.Context, first, second uuid.UUID) (persistence.Relationship, error)
	ListAliveRelationships(ctx context.Context, companyID uuid.UUID) ([]persistence.Relationship, error)
	ListDeadRelationships(ctx context.Context, companyID uuid.UUID) ([]persistence.Relationship, error)
	SoftDeleteRelationship(ctx context.Context, id uuid.UUID) (persistence.Relationship, error)
	HardDeleteRelationship(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.RelationshipStore
}

// NewPostgresRepository constructs a repository backed by the shared
// persistence layer.
func NewPostgresRepository(store *persistence.RelationshipStore) Repository {
	if store == nil {
		panic("relationship store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) CreateRequest(ctx context.Context, params persistence.CreateRequestParams) (persistence.RelationshipRequest, error) {
	return r.store.CreateRequest(ctx, params)
}

func (r *postgresRepository) GetRequest(ctx context.Context, id uuid.UUID) (persistence.RelationshipRequest, error) {
	return r.store.GetRequest(ctx, id)
}

func (r *postgresRepository) ListRequestsForCompany(ctx context.Context, companyID uuid.UUID, incoming bool) ([]persistence.RelationshipRequest, error) {
	return r.store.ListRequestsForCompany(ctx, companyID, incoming)
}

func (r *postgresRepository) AcceptRequest(ctx context.Context, relationshipID, requestID uuid.UUID, relType *string) (persistence.Relationship, error) {
	return r.store.AcceptRequest(ctx, relationshipID, requestID, relType)
}

func (r *postgresRepository) DenyRequest(ctx context.Context, id uuid.UUID) (persistence.RelationshipRequest, error) {
	return r.store.DenyRequest(ctx, id)
}

func (r *postgresRepository) WithdrawRequest(ctx context.Context, id uuid.UUID) error {
	return r.store.WithdrawRequest(ctx, id)
}

func (r *postgresRepository) GetRelationship(ctx context.Context, id uuid.UUID) (persistence.Relationship, error) {
	return r.store.GetRelationship(ctx, id)
}

func (r *postgresRepository) GetRelationshipByPair(ctx context.Context, first, second uuid.UUID) (persistence.Relationship, error) {
	return r.store.GetRelationshipByPair(ctx, first, second)
}

func (r *postgresRepository) ListAliveRelationships(ctx context.Context, companyID uuid.UUID) ([]persistence.Relationship, error) {
	return r.store.ListAliveRelationships(ctx, companyID)
}

func (r *postgresRepository) ListDeadRelationships(ctx context.Context, companyID uuid.UUID) ([]persistence.Relationship, error) {
	return r.store.ListDeadRelationships(ctx, companyID)
}

func (r *postgresRepository) SoftDeleteRelationship(ctx context.Context, id uuid.UUID) (persistence.Relationship, error) {
	return r.store.SoftDeleteRelationship(ctx, id)
}

func (r *postgresRepository) HardDeleteRelationship(ctx context.Context, id uuid.UUID) error {
	return r.store.HardDeleteRelationship(ctx, id)
}
