package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipsTable is the denormalized company-membership projection.
const MembershipsTable = "company_memberships"

const membershipColumns = `membership_id, company_id, user_id, company_accountname, company_name,
        user_email, user_username, user_full_name, supplier_profile_logins, buyer_profile_logins,
        created_at, updated_at`

// ProfileKind selects which login counter a profile view increments.
type ProfileKind string

const (
	ProfileKindSupplier ProfileKind = "supplier"
	ProfileKindBuyer    ProfileKind = "buyer"
)

// ParseProfileKind validates a raw profile kind value.
func ParseProfileKind(raw string) (ProfileKind, error) {
	switch ProfileKind(raw) {
	case ProfileKindSupplier, ProfileKindBuyer:
		return ProfileKind(raw), nil
	default:
		return "", fmt.Errorf("unknown profile kind %q", raw)
	}
}

// Membership represents a row in the company_memberships projection. The
// company_* and user_* columns are snapshots taken at creation time; they are
// not refreshed when the source rows are renamed.
type Membership struct {
	MembershipID          uuid.UUID `db:"membership_id" json:"membershipId"`
	CompanyID             uuid.UUID `db:"company_id" json:"companyId"`
	UserID                uuid.UUID `db:"user_id" json:"userId"`
	CompanyAccountname    string    `db:"company_accountname" json:"companyAccountname"`
	CompanyName           string    `db:"company_name" json:"companyName"`
	UserEmail             string    `db:"user_email" json:"userEmail"`
	UserUsername          string    `db:"user_username" json:"userUsername"`
	UserFullName          string    `db:"user_full_name" json:"userFullName"`
	SupplierProfileLogins int       `db:"supplier_profile_logins" json:"supplierProfileLogins"`
	BuyerProfileLogins    int       `db:"buyer_profile_logins" json:"buyerProfileLogins"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

var (
	// ErrMembershipNotFound indicates a missing membership record.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrMembershipConflict indicates the (company, user) pair already exists.
	ErrMembershipConflict = errors.New("membership conflict")
)

// MembershipStore exposes persistence helpers for the membership projection.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a store; assumes the schema bootstrap already ran.
func NewMembershipStore(ctx context.Context, pool *pgxpool.Pool) (*MembershipStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &MembershipStore{pool: pool}, nil
}

// CreateMembership grants a user access to a company. The denormalized
// display fields are copied from the alive company and user rows in the same
// statement, so the snapshot is consistent with the sources at insert time.
func (s *MembershipStore) CreateMembership(ctx context.Context, membershipID, companyID, userID uuid.UUID) (Membership, error) {
	if membershipID == uuid.Nil {
		return Membership{}, errors.New("membership id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (
            membership_id, company_id, user_id, company_accountname, company_name,
            user_email, user_username, user_full_name
        )
        SELECT $1, c.company_id, u.user_id, c.accountname, c.name, u.email, u.username, u.full_name
        FROM %s c, %s u
        WHERE c.company_id = $2 AND c.state <> $4
          AND u.user_id = $3 AND u.state <> $4
        RETURNING %s
    `, MembershipsTable, CompaniesTable, UsersTable, membershipColumns),
		membershipID, companyID, userID, VisibilityDeleted,
	)

	membership, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Company or user absent or soft-deleted.
			return Membership{}, ErrMembershipNotFound
		}
		if isUniqueViolation(err) {
			return Membership{}, ErrMembershipConflict
		}
		return Membership{}, err
	}

	return membership, nil
}

// GetMembership returns a membership by identifier.
func (s *MembershipStore) GetMembership(ctx context.Context, id uuid.UUID) (Membership, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE membership_id = $1
    `, membershipColumns, MembershipsTable), id)

	membership, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrMembershipNotFound
		}
		return Membership{}, err
	}

	return membership, nil
}

// GetMembershipByPair returns the membership for a (company, user) pair.
func (s *MembershipStore) GetMembershipByPair(ctx context.Context, companyID, userID uuid.UUID) (Membership, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE company_id = $1 AND user_id = $2
    `, membershipColumns, MembershipsTable), companyID, userID)

	membership, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrMembershipNotFound
		}
		return Membership{}, err
	}

	return membership, nil
}

// IncrementLoginCounter bumps the supplier or buyer profile-view counter in a
// single atomic update and returns the updated row.
func (s *MembershipStore) IncrementLoginCounter(ctx context.Context, id uuid.UUID, kind ProfileKind) (Membership, error) {
	var column string
	switch kind {
	case ProfileKindSupplier:
		column = "supplier_profile_logins"
	case ProfileKindBuyer:
		column = "buyer_profile_logins"
	default:
		return Membership{}, fmt.Errorf("unknown profile kind %q", kind)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET %s = %s + 1, updated_at = NOW()
        WHERE membership_id = $1
        RETURNING %s
    `, MembershipsTable, column, column, membershipColumns), id)

	membership, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrMembershipNotFound
		}
		return Membership{}, err
	}

	return membership, nil
}

// RevokeMembership removes the membership row. This is the one entity whose
// default delete path is physical; revoked access leaves no tombstone.
func (s *MembershipStore) RevokeMembership(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrMembershipNotFound
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE membership_id = $1`, MembershipsTable), id)
	if err != nil {
		return fmt.Errorf("revoke membership: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}

	return nil
}

// ListMembershipsByCompany returns all memberships granted on a company.
func (s *MembershipStore) ListMembershipsByCompany(ctx context.Context, companyID uuid.UUID) ([]Membership, error) {
	return s.listMemberships(ctx, "company_id", companyID)
}

// ListMembershipsByUser returns all memberships a user holds.
func (s *MembershipStore) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	return s.listMemberships(ctx, "user_id", userID)
}

func (s *MembershipStore) listMemberships(ctx context.Context, column string, id uuid.UUID) ([]Membership, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE %s = $1 ORDER BY created_at DESC
    `, membershipColumns, MembershipsTable, column), id)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]Membership, 0)
	for rows.Next() {
		membership, scanErr := scanMembership(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan membership: %w", scanErr)
		}
		memberships = append(memberships, membership)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

func scanMembership(row pgx.Row) (Membership, error) {
	var m Membership

	if err := row.Scan(
		&m.MembershipID, &m.CompanyID, &m.UserID, &m.CompanyAccountname, &m.CompanyName,
		&m.UserEmail, &m.UserUsername, &m.UserFullName, &m.SupplierProfileLogins, &m.BuyerProfileLogins,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return Membership{}, err
	}

	return m, nil
}
