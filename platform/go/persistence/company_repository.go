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

// CompaniesTable is the table backing the company registry.
const CompaniesTable = "companies"

const companyColumns = "company_id, accountname, name, industry, description, web_url, state, created_at, changed_at"

// Company represents a row in the companies table.
type Company struct {
	CompanyID   uuid.UUID       `db:"company_id" json:"companyId"`
	Accountname string          `db:"accountname" json:"accountname"`
	Name        string          `db:"name" json:"name"`
	Industry    *string         `db:"industry" json:"industry,omitempty"`
	Description *string         `db:"description" json:"description,omitempty"`
	WebURL      *string         `db:"web_url" json:"webUrl,omitempty"`
	State       VisibilityState `db:"state" json:"state"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	ChangedAt   time.Time       `db:"changed_at" json:"changedAt"`
}

var (
	// ErrCompanyNotFound indicates a missing or invisible company record.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrCompanyConflict indicates a uniqueness violation (duplicated accountname)
	// or a protected reference blocking a hard delete.
	ErrCompanyConflict = errors.New("company conflict")
)

// CompanyStore exposes persistence helpers for the companies table.
type CompanyStore struct {
	pool *pgxpool.Pool
}

// NewCompanyStore creates a store; assumes the schema bootstrap already ran.
func NewCompanyStore(ctx context.Context, pool *pgxpool.Pool) (*CompanyStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CompanyStore{pool: pool}, nil
}

// CreateCompanyParams captures the fields required to insert a company.
type CreateCompanyParams struct {
	CompanyID   uuid.UUID
	Accountname string
	Name        string
	Industry    *string
	Description *string
	WebURL      *string
}

// CreateCompany inserts a new company in the open state.
func (s *CompanyStore) CreateCompany(ctx context.Context, params CreateCompanyParams) (Company, error) {
	if params.CompanyID == uuid.Nil {
		return Company{}, errors.New("company id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (company_id, accountname, name, industry, description, web_url, state)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING %s
    `, CompaniesTable, companyColumns),
		params.CompanyID,
		strings.TrimSpace(params.Accountname),
		strings.TrimSpace(params.Name),
		params.Industry,
		params.Description,
		params.WebURL,
		VisibilityOpen,
	)

	company, err := scanCompany(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Company{}, ErrCompanyConflict
		}
		return Company{}, err
	}

	return company, nil
}

// GetCompany returns an alive company by identifier.
func (s *CompanyStore) GetCompany(ctx context.Context, id uuid.UUID) (Company, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE company_id = $1 AND state <> $2
    `, companyColumns, CompaniesTable), id, VisibilityDeleted)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, err
	}

	return company, nil
}

// GetCompanyByAccountname returns an alive company by its unique accountname.
func (s *CompanyStore) GetCompanyByAccountname(ctx context.Context, accountname string) (Company, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE accountname = $1 AND state <> $2
    `, companyColumns, CompaniesTable), strings.TrimSpace(accountname), VisibilityDeleted)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, err
	}

	return company, nil
}

// UpdateCompanyParams represents the editable company fields. Renames do not
// refresh the membership projection; see company_memberships DDL.
type UpdateCompanyParams struct {
	Name        *string
	Industry    *string
	Description *string
	WebURL      *string
}

// UpdateCompany applies the provided fields to an alive company and bumps
// changed_at.
func (s *CompanyStore) UpdateCompany(ctx context.Context, id uuid.UUID, params UpdateCompanyParams) (Company, error) {
	setParts := []string{}
	var args []any

	if params.Name != nil {
		args = append(args, strings.TrimSpace(*params.Name))
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)))
	}
	if params.Industry != nil {
		args = append(args, strings.TrimSpace(*params.Industry))
		setParts = append(setParts, fmt.Sprintf("industry = $%d", len(args)))
	}
	if params.Description != nil {
		args = append(args, strings.TrimSpace(*params.Description))
		setParts = append(setParts, fmt.Sprintf("description = $%d", len(args)))
	}
	if params.WebURL != nil {
		args = append(args, strings.TrimSpace(*params.WebURL))
		setParts = append(setParts, fmt.Sprintf("web_url = $%d", len(args)))
	}

	if len(setParts) == 0 {
		return Company{}, errors.New("no fields to update")
	}

	args = append(args, id, VisibilityDeleted)

	query := fmt.Sprintf(`
        UPDATE %s
        SET %s, changed_at = NOW()
        WHERE company_id = $%d AND state <> $%d
        RETURNING %s
    `, CompaniesTable, strings.Join(setParts, ", "), len(args)-1, len(args), companyColumns)

	row := s.pool.QueryRow(ctx, query, args...)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		if isUniqueViolation(err) {
			return Company{}, ErrCompanyConflict
		}
		return Company{}, err
	}

	return company, nil
}

// SetCompanyState flips an alive company between private and open.
func (s *CompanyStore) SetCompanyState(ctx context.Context, id uuid.UUID, state VisibilityState) (Company, error) {
	if !state.Alive() {
		return Company{}, fmt.Errorf("state %q is not reachable through SetCompanyState", state)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET state = $1, changed_at = NOW()
        WHERE company_id = $2 AND state <> $3
        RETURNING %s
    `, CompaniesTable, companyColumns), state, id, VisibilityDeleted)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, err
	}

	return company, nil
}

// SoftDeleteCompany marks a company as deleted. Idempotent: deleting an
// already deleted company keeps the state and still bumps changed_at.
func (s *CompanyStore) SoftDeleteCompany(ctx context.Context, id uuid.UUID) (Company, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET state = $1, changed_at = NOW()
        WHERE company_id = $2
        RETURNING %s
    `, CompaniesTable, companyColumns), VisibilityDeleted, id)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, err
	}

	return company, nil
}

// HardDeleteCompany physically removes the row regardless of its state.
// Reserved for administrative cleanup; irreversible.
func (s *CompanyStore) HardDeleteCompany(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrCompanyNotFound
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE company_id = $1`, CompaniesTable), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCompanyConflict
		}
		return fmt.Errorf("hard delete company: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}

	return nil
}

// ListCompaniesParams captures filters and pagination for company listings.
type ListCompaniesParams struct {
	Page     int
	PageSize int
	Name     *string
}

// ListCompaniesResult includes the rows and the total count for pagination
// metadata.
type ListCompaniesResult struct {
	Companies  []Company
	TotalItems int
}

// ListAliveCompanies returns companies whose state is not deleted.
func (s *CompanyStore) ListAliveCompanies(ctx context.Context, params ListCompaniesParams) (ListCompaniesResult, error) {
	return s.listCompanies(ctx, params, false)
}

// ListDeadCompanies returns only soft-deleted companies, for audit and
// recovery tooling.
func (s *CompanyStore) ListDeadCompanies(ctx context.Context, params ListCompaniesParams) (ListCompaniesResult, error) {
	return s.listCompanies(ctx, params, true)
}

func (s *CompanyStore) listCompanies(ctx context.Context, params ListCompaniesParams, dead bool) (ListCompaniesResult, error) {
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

	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Name))+"%")
		whereParts = append(whereParts, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", CompaniesTable, whereSQL)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListCompaniesResult{}, fmt.Errorf("count companies: %w", err)
	}

	result := ListCompaniesResult{Companies: []Company{}, TotalItems: total}
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
    `, companyColumns, CompaniesTable, whereSQL, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return ListCompaniesResult{}, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		company, scanErr := scanCompany(rows)
		if scanErr != nil {
			return ListCompaniesResult{}, fmt.Errorf("scan company: %w", scanErr)
		}
		companies = append(companies, company)
	}

	if err = rows.Err(); err != nil {
		return ListCompaniesResult{}, fmt.Errorf("iterate companies: %w", err)
	}

	result.Companies = companies
	return result, nil
}

func scanCompany(row pgx.Row) (Company, error) {
	var company Company
	var state string

	if err := row.Scan(&company.CompanyID, &company.Accountname, &company.Name, &company.Industry, &company.Description, &company.WebURL, &state, &company.CreatedAt, &company.ChangedAt); err != nil {
		return Company{}, err
	}

	parsed, err := ParseVisibilityState(state)
	if err != nil {
		return Company{}, fmt.Errorf("scan company state: %w", err)
	}
	company.State = parsed

	return company, nil
}
