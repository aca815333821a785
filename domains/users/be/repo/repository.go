package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
)

// Repository defines the persistence operations required by the users service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.User, error)
	GetByUsername(ctx context.Context, username string) (persistence.User, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error)
	SetState(ctx context.Context, id uuid.UUID, state persistence.VisibilityState) (persistence.User, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (persistence.User, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	ListAlive(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error)
	ListDead(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error)
}

type postgresRepository struct {
	store *persistence.UserStore
}

// NewPostgresRepository constructs a repository backed by the shared
// persistence layer.
func NewPostgresRepository(store *persistence.UserStore) Repository {
	if store == nil {
		panic("user store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	return r.store.CreateUser(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.store.GetUser(ctx, id)
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (persistence.User, error) {
	return r.store.GetUserByUsername(ctx, username)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateUserParams) (persistence.User, error) {
	return r.store.UpdateUser(ctx, id, params)
}

func (r *postgresRepository) SetState(ctx context.Context, id uuid.UUID, state persistence.VisibilityState) (persistence.User, error) {
	return r.store.SetUserState(ctx, id, state)
}

func (r *postgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.store.SoftDeleteUser(ctx, id)
}

func (r *postgresRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.store.HardDeleteUser(ctx, id)
}

func (r *postgresRepository) ListAlive(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	return r.store.ListAliveUsers(ctx, params)
}

func (r *postgresRepository) ListDead(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	return r.store.ListDeadUsers(ctx, params)
}
