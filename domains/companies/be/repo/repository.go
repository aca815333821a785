package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
)

// Repository defines the persistence operations required by the companies
// service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateCompanyParams) (persistence.Company, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Company, error)
	GetByAccountname(ctx context.Context, accountname string) (persistence.Company, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateCompanyParams) (persistence.Company, error)
	SetState(ctx context.Context, id uuid.UUID, state persistence.VisibilityState) (persistence.Company, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (persistence.Company, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	ListAlive(ctx context.Context, params persistence.ListCompaniesParams) (persistence.ListCompaniesResult, error)
	ListDead(ctx context.Context, params persistence.ListCompaniesParams) (persistence.ListCompaniesResult, error)
}

type postgresRepository struct {
	store *persistence.CompanyStore
}

// NewPostgresRepository constructs a repository backed by the shared
// persistence layer.
func NewPostgresRepository(store *persistence.CompanyStore) Repository {
	if store == nil {
		panic("company store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateCompanyParams) (persistence.Company, error) {
	return r.store.CreateCompany(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Company, error) {
	return r.store.GetCompany(ctx, id)
}

func (r *postgresRepository) GetByAccountname(ctx context.Context, accountname string) (persistence.Company, error) {
	return r.store.GetCompanyByAccountname(ctx, accountname)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateCompanyParams) (persistence.Company, error) {
	return r.store.UpdateCompany(ctx, id, params)
}

func (r *postgresRepository) SetState(ctx context.Context, id uuid.UUID, state persistence.VisibilityState) (persistence.Company, error) {
	return r.store.SetCompanyState(ctx, id, state)
}

func (r *postgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) (persistence.Company, error) {
	return r.store.SoftDeleteCompany(ctx, id)
}

func (r *postgresRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.store.HardDeleteCompany(ctx, id)
}

func (r *postgresRepository) ListAlive(ctx context.Context, params persistence.ListCompaniesParams) (persistence.ListCompaniesResult, error) {
	return r.store.ListAliveCompanies(ctx, params)
}

func (r *postgresRepository) ListDead(ctx context.Context, params persistence.ListCompaniesParams) (persistence.ListCompaniesResult, error) {
	return r.store.ListDeadCompanies(ctx, params)
}
