package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersTable is the table backing user accounts.
const UsersTable = "users"

const userColumns = "user_id, email, username, full_name, state, created_at, changed_at"

// User represents a row in the users table.
type User struct {
	UserID    uuid.UUID       `db:"user_id" json:"userId"`
	Email     string          `db:"email" json:"email"`
	Username  string          `db:"username" json:"username"`
	FullName  string          `db:"full_name" json:"fullName"`
	State     VisibilityState `db:"state" json:"state"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	ChangedAt time.Time       `db:"changed_at" json:"changedAt"`
}

var (
	// ErrUserNotFound indicates a missing or invisible user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict indicates a uniqueness violation (duplicated email or
	// username) or a protected reference blocking a hard delete.
	ErrUserConflict = errors.New("user conflict")
)

// UserStore exposes persistence helpers for the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a store; assumes the schema bootstrap already ran.
func NewUserStore(ctx context.Context, pool *pgxpool.Pool) (*UserStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &UserStore{pool: pool}, nil
}

// CreateUserParams captures the fields required to insert a user.
type CreateUserParams struct {
	UserID   uuid.UUID
	Email    string
	Username string
	FullName string
}

// CreateUser inserts a new user in the open state.
func (s *UserStore) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if params.UserID == uuid.Nil {
		return User{}, errors.New("user id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (user_id, email, username, full_name, state)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, UsersTable, userColumns),
		params.UserID,
		strings.TrimSpace(params.Email),
		strings.TrimSpace(params.Username),
		strings.TrimSpace(params.FullName),
		VisibilityOpen,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserConflict
		}
		return User{}, err
	}

	return user, nil
}

// GetUser returns an alive user by identifier.
func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE user_id = $1 AND state <> $2
    `, userColumns, UsersTable), id, VisibilityDeleted)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// GetUserByUsername returns an alive user by its unique username.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE username = $1 AND state <> $2
    `, userColumns, UsersTable), strings.TrimSpace(username), VisibilityDeleted)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// UpdateUserParams represents the editable user fields. Renames do not
// refresh the membership projection.
type UpdateUserParams struct {
	FullName *string
}

// UpdateUser applies the provided fields to an alive user and bumps changed_at.
func (s *UserStore) UpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) (User, error) {
	if params.FullName == nil {
		return User{}, errors.New("no fields to update")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET full_name = $1, changed_at = NOW()
        WHERE user_id = $2 AND state <> $3
        RETURNING %s
    `, UsersTable, userColumns), strings.TrimSpace(*params.FullName), id, VisibilityDeleted)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// SetUserState flips an alive user between private and open.
func (s *UserStore) SetUserState(ctx context.Context, id uuid.UUID, state VisibilityState) (User, error) {
	if !state.Alive() {
		return User{}, fmt.Errorf("state %q is not reachable through SetUserState", state)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET state = $1, changed_at = NOW()
        WHERE user_id = $2 AND state <> $3
        RETURNING %s
    `, UsersTable, userColumns), state, id, VisibilityDeleted)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// SoftDeleteUser marks a user as deleted. Idempotent; repeated deletes keep
// the state and still bump changed_at.
func (s *UserStore) SoftDeleteUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET state = $1, changed_at = NOW()
        WHERE user_id = $2
        RETURNING %s
    `, UsersTable, userColumns), VisibilityDeleted, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// HardDeleteUser physically removes the row regardless of its state.
func (s *UserStore) HardDeleteUser(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrUserNotFound
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, UsersTable), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserConflict
		}
		return fmt.Errorf("hard delete user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListUsersParams captures filters and pagination for user listings.
type ListUsersParams struct {
	Page     int
	PageSize int
	Email    *string
}

// ListUsersResult includes the rows and the total count for pagination metadata.
type ListUsersResult struct {
	Users      []User
	TotalItems int
}

// ListAliveUsers returns users whose state is not deleted.
func (s *UserStore) ListAliveUsers(ctx context.Context, params ListUsersParams) (ListUsersResult, error) {
	return s.listUsers(ctx, params, false)
}

// ListDeadUsers returns only soft-deleted users.
func (s *UserStore) ListDeadUsers(ctx context.Context, params ListUsersParams) (ListUsersResult, error) {
	return s.listUsers(ctx, params, true)
}

func (s *UserStore) listUsers(ctx context.Context, params ListUsersParams, dead bool) (ListUsersResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	stateComparator := "<>"
	if dead {
		stateComparator = "="
	}

	args := []any{VisibilityDeleted}
	whereParts := []string{fmt.Sprintf("state %s $1", stateComparator)}

	if params.Email != nil && strings.TrimSpace(*params.Email) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Email))+"%")
		whereParts = append(whereParts, fmt.Sprintf("LOWER(email) LIKE $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", UsersTable, whereSQL)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListUsersResult{}, fmt.Errorf("count users: %w", err)
	}

	result := ListUsersResult{Users: []User{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	query := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE %s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d
    `, userColumns, UsersTable, whereSQL, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return ListUsersResult{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return ListUsersResult{}, fmt.Errorf("scan user: %w", scanErr)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return ListUsersResult{}, fmt.Errorf("iterate users: %w", err)
	}

	result.Users = users
	return result, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var state string

	if err := row.Scan(&user.UserID, &user.Email, &user.Username, &user.FullName, &state, &user.CreatedAt, &user.ChangedAt); err != nil {
		return User{}, err
	}

	parsed, err := ParseVisibilityState(state)
	if err != nil {
		return User{}, fmt.Errorf("scan user state: %w", err)
	}
	user.State = parsed

	return user, nil
}
