package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables backing the relationship workflow.
const (
	RelationshipRequestsTable = "relationship_requests"
	RelationshipsTable        = "relationships"
)

const requestColumns = `request_id, requester_company_id, addressed_company_id, requester_user_id,
        message, blocked, created_at, updated_at`

const relationshipColumns = `relationship_id, company_a, company_b, requester_company_id,
        addressed_company_id, type, state, created_at, changed_at`

// RelationshipRequest represents a pending or denied request row. The row is
// deleted on acceptance; denial keeps it with blocked = true.
type RelationshipRequest struct {
	RequestID          uuid.UUID  `db:"request_id" json:"requestId"`
	RequesterCompanyID uuid.UUID  `db:"requester_company_id" json:"requesterCompanyId"`
	AddressedCompanyID uuid.UUID  `db:"addressed_company_id" json:"addressedCompanyId"`
	RequesterUserID    *uuid.UUID `db:"requester_user_id" json:"requesterUserId,omitempty"`
	Message            *string    `db:"message" json:"message,omitempty"`
	Blocked            bool       `db:"blocked" json:"blocked"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}

// Relationship represents a realized relationship between two companies. The
// pair is stored canonically (CompanyA < CompanyB); the request direction is
// preserved in the requester/addressed columns.
type Relationship struct {
	RelationshipID     uuid.UUID       `db:"relationship_id" json:"relationshipId"`
	CompanyA           uuid.UUID       `db:"company_a" json:"companyA"`
	CompanyB           uuid.UUID       `db:"company_b" json:"companyB"`
	RequesterCompanyID uuid.UUID       `db:"requester_company_id" json:"requesterCompanyId"`
	AddressedCompanyID uuid.UUID       `db:"addressed_company_id" json:"addressedCompanyId"`
	Type               *string         `db:"type" json:"type,omitempty"`
	State              VisibilityState `db:"state" json:"state"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	ChangedAt          time.Time       `db:"changed_at" json:"changedAt"`
}

var (
	// ErrRequestNotFound indicates a missing relationship request.
	ErrRequestNotFound = errors.New("relationship request not found")
	// ErrRequestConflict indicates an outstanding request already exists for
	// the pair, in either direction, or the request is already denied.
	ErrRequestConflict = errors.New("relationship request conflict")
	// ErrRelationshipNotFound indicates a missing relationship.
	ErrRelationshipNotFound = errors.New("relationship not found")
	// ErrRelationshipConflict indicates the pair already has a relationship.
	ErrRelationshipConflict = errors.New("relationship already exists")
)

// CanonicalPair orders two company ids by their byte representation so the
// unordered pair has exactly one stored form. Enforced here once instead of
// with mirrored OR queries at every call site.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) < 0 {
		return a, b
	}
	return b, a
}

// RelationshipStore exposes persistence helpers for relationship requests and
// realized relationships. Both tables live in one store because acceptance
// mutates them in a single transaction.
type RelationshipStore struct {
	pool *pgxpool.Pool
}

// NewRelationshipStore creates a store; assumes the schema bootstrap already ran.
func NewRelationshipStore(ctx context.Context, pool *pgxpool.Pool) (*RelationshipStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &RelationshipStore{pool: pool}, nil
}

// CreateRequestParams captures the fields required to open a request.
type CreateRequestParams struct {
	RequestID          uuid.UUID
	RequesterCompanyID uuid.UUID
	AddressedCompanyID uuid.UUID
	RequesterUserID    *uuid.UUID
	Message            *string
}

// CreateRequest opens a relationship request after verifying that no
// outstanding request and no realized relationship exists for the pair in
// either direction. The partial unique index on the pair backs the check
// against racing inserts.
func (s *RelationshipStore) CreateRequest(ctx context.Context, params CreateRequestParams) (RelationshipRequest, error) {
	if params.RequestID == uuid.Nil {
		return RelationshipRequest{}, errors.New("request id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RelationshipRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var aliveParties int
	err = tx.QueryRow(ctx, fmt.Sprintf(`
        SELECT COUNT(*) FROM %s
        WHERE company_id IN ($1, $2) AND state <> $3
    `, CompaniesTable), params.RequesterCompanyID, params.AddressedCompanyID, VisibilityDeleted).Scan(&aliveParties)
	if err != nil {
		return RelationshipRequest{}, fmt.Errorf("check parties: %w", err)
	}
	if aliveParties != 2 {
		// Requester or addressed company absent or soft-deleted.
		return RelationshipRequest{}, ErrRequestNotFound
	}

	companyA, companyB := CanonicalPair(params.RequesterCompanyID, params.AddressedCompanyID)

	var relationshipExists bool
	err = tx.QueryRow(ctx, fmt.Sprintf(`
        SELECT EXISTS (SELECT 1 FROM %s WHERE company_a = $1 AND company_b = $2)
    `, RelationshipsTable), companyA, companyB).Scan(&relationshipExists)
	if err != nil {
		return RelationshipRequest{}, fmt.Errorf("check relationship: %w", err)
	}
	if relationshipExists {
		return RelationshipRequest{}, ErrRelationshipConflict
	}

	var pendingExists bool
	err = tx.QueryRow(ctx, fmt.Sprintf(`
        SELECT EXISTS (
            SELECT 1 FROM %s
            WHERE NOT blocked
              AND ((requester_company_id = $1 AND addressed_company_id = $2)
               OR  (requester_company_id = $2 AND addressed_company_id = $1))
        )
    `, RelationshipRequestsTable), params.RequesterCompanyID, params.AddressedCompanyID).Scan(&pendingExists)
	if err != nil {
		return RelationshipRequest{}, fmt.Errorf("check pending request: %w", err)
	}
	if pendingExists {
		return RelationshipRequest{}, ErrRequestConflict
	}

	var message *string
	if params.Message != nil {
		trimmed := strings.TrimSpace(*params.Message)
		if trimmed != "" {
			message = &trimmed
		}
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (request_id, requester_company_id, addressed_company_id, requester_user_id, message)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, RelationshipRequestsTable, requestColumns),
		params.RequestID, params.RequesterCompanyID, params.AddressedCompanyID, params.RequesterUserID, message,
	)

	request, err := scanRelationshipRequest(row)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a mirrored create.
			return RelationshipRequest{}, ErrRequestConflict
		}
		if isForeignKeyViolation(err) {
			// Referenced company or requester user vanished between the
			// alive check and the insert.
			return RelationshipRequest{}, ErrRequestNotFound
		}
		return RelationshipRequest{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return RelationshipRequest{}, fmt.Errorf("commit tx: %w", err)
	}

	return request, nil
}

// GetRequest returns a request by identifier, denied ones included.
func (s *RelationshipStore) GetRequest(ctx context.Context, id uuid.UUID) (RelationshipRequest, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE request_id = $1
    `, requestColumns, RelationshipRequestsTable), id)

	request, err := scanRelationshipRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RelationshipRequest{}, ErrRequestNotFound
		}
		return RelationshipRequest{}, err
	}

	return request, nil
}

// ListRequestsForCompany returns requests addressed to (incoming) or sent by
// (outgoing) the company, newest first. Denied requests are excluded.
func (s *RelationshipStore) ListRequestsForCompany(ctx context.Context, companyID uuid.UUID, incoming bool) ([]RelationshipRequest, error) {
	column := "requester_company_id"
	if incoming {
		column = "addressed_company_id"
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE %s = $1 AND NOT blocked
        ORDER BY created_at DESC
    `, requestColumns, RelationshipRequestsTable, column), companyID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	requests := make([]RelationshipRequest, 0)
	for rows.Next() {
		request, scanErr := scanRelationshipRequest(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan request: %w", scanErr)
		}
		requests = append(requests, request)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	return requests, nil
}

// AcceptRequest realizes a request: one transaction inserts the relationship
// and deletes the request row. A unique-pair violation (racing acceptance of
// the mirrored request) rolls everything back and surfaces as
// ErrRelationshipConflict, never as a partial state.
func (s *RelationshipStore) AcceptRequest(ctx context.Context, relationshipID, requestID uuid.UUID, relType *string) (Relationship, error) {
	if relationshipID == uuid.Nil {
		return Relationship{}, errors.New("relationship id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Relationship{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	requestRow := tx.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE request_id = $1 FOR UPDATE
    `, requestColumns, RelationshipRequestsTable), requestID)

	request, err := scanRelationshipRequest(requestRow)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Relationship{}, ErrRequestNotFound
		}
		return Relationship{}, err
	}
	if request.Blocked {
		return Relationship{}, ErrRequestConflict
	}

	companyA, companyB := CanonicalPair(request.RequesterCompanyID, request.AddressedCompanyID)

	var normalizedType *string
	if relType != nil {
		trimmed := strings.TrimSpace(*relType)
		if trimmed != "" {
			normalizedType = &trimmed
		}
	}

	relationshipRow := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (relationship_id, company_a, company_b, requester_company_id, addressed_company_id, type, state)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING %s
    `, RelationshipsTable, relationshipColumns),
		relationshipID, companyA, companyB, request.RequesterCompanyID, request.AddressedCompanyID, normalizedType, VisibilityOpen,
	)

	relationship, err := scanRelationship(relationshipRow)
	if err != nil {
		if isUniqueViolation(err) {
			return Relationship{}, ErrRelationshipConflict
		}
		return Relationship{}, err
	}

	if _, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE request_id = $1`, RelationshipRequestsTable), requestID); err != nil {
		return Relationship{}, fmt.Errorf("delete accepted request: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return Relationship{}, fmt.Errorf("commit tx: %w", err)
	}

	return relationship, nil
}

// DenyRequest flags the request as blocked and keeps the row. Idempotent:
// denying an already denied request has no further effect.
func (s *RelationshipStore) DenyRequest(ctx context.Context, id uuid.UUID) (RelationshipRequest, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET blocked = TRUE, updated_at = NOW()
        WHERE request_id = $1
        RETURNING %s
    `, RelationshipRequestsTable, requestColumns), id)

	request, err := scanRelationshipRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RelationshipRequest{}, ErrRequestNotFound
		}
		return RelationshipRequest{}, err
	}

	return request, nil
}

// WithdrawRequest deletes a still-pending request. Denied requests cannot be
// withdrawn; their tombstone stays with the addressed party.
func (s *RelationshipStore) WithdrawRequest(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE request_id = $1 AND NOT blocked
    `, RelationshipRequestsTable), id)
	if err != nil {
		return fmt.Errorf("withdraw request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a denied request from a missing one.
		if _, getErr := s.GetRequest(ctx, id); getErr == nil {
			return ErrRequestConflict
		}
		return ErrRequestNotFound
	}

	return nil
}

// GetRelationship returns an alive relationship by identifier.
func (s *RelationshipStore) GetRelationship(ctx context.Context, id uuid.UUID) (Relationship, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE relationship_id = $1 AND state <> $2
    `, relationshipColumns, RelationshipsTable), id, VisibilityDeleted)

	relationship, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Relationship{}, ErrRelationshipNotFound
		}
		return Relationship{}, err
	}

	return relationship, nil
}

// GetRelationshipByPair returns the alive relationship between two companies,
// regardless of argument order.
func (s *RelationshipStore) GetRelationshipByPair(ctx context.Context, first, second uuid.UUID) (Relationship, error) {
	companyA, companyB := CanonicalPair(first, second)

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE company_a = $1 AND company_b = $2 AND state <> $3
    `, relationshipColumns, RelationshipsTable), companyA, companyB, VisibilityDeleted)

	relationship, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Relationship{}, ErrRelationshipNotFound
		}
		return Relationship{}, err
	}

	return relationship, nil
}

// ListAliveRelationships returns the company's relationships that are not
// soft-deleted, newest first.
func (s *RelationshipStore) ListAliveRelationships(ctx context.Context, companyID uuid.UUID) ([]Relationship, error) {
	return s.listRelationships(ctx, companyID, false)
}

// ListDeadRelationships returns only the company's soft-deleted relationships.
func (s *RelationshipStore) ListDeadRelationships(ctx context.Context, companyID uuid.UUID) ([]Relationship, error) {
	return s.listRelationships(ctx, companyID, true)
}

func (s *RelationshipStore) listRelationships(ctx context.Context, companyID uuid.UUID, dead bool) ([]Relationship, error) {
	stateComparator := "<>"
	if dead {
		stateComparator = "="
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE (company_a = $1 OR company_b = $1) AND state %s $2
        ORDER BY created_at DESC
    `, relationshipColumns, RelationshipsTable, stateComparator), companyID, VisibilityDeleted)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	relationships := make([]Relationship, 0)
	for rows.Next() {
		relationship, scanErr := scanRelationship(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan relationship: %w", scanErr)
		}
		relationships = append(relationships, relationship)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationships: %w", err)
	}

	return relationships, nil
}

// SoftDeleteRelationship marks a relationship as deleted. Idempotent;
// repeated deletes keep the state and still bump changed_at.
func (s *RelationshipStore) SoftDeleteRelationship(ctx context.Context, id uuid.UUID) (Relationship, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET state = $1, changed_at = NOW()
        WHERE relationship_id = $2
        RETURNING %s
    `, RelationshipsTable, relationshipColumns), VisibilityDeleted, id)

	relationship, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Relationship{}, ErrRelationshipNotFound
		}
		return Relationship{}, err
	}

	return relationship, nil
}

// HardDeleteRelationship physically removes the row regardless of its state.
func (s *RelationshipStore) HardDeleteRelationship(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE relationship_id = $1`, RelationshipsTable), id)
	if err != nil {
		return fmt.Errorf("hard delete relationship: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrRelationshipNotFound
	}

	return nil
}

func scanRelationshipRequest(row pgx.Row) (RelationshipRequest, error) {
	var r RelationshipRequest

	if err := row.Scan(
		&r.RequestID, &r.RequesterCompanyID, &r.AddressedCompanyID, &r.RequesterUserID,
		&r.Message, &r.Blocked, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return RelationshipRequest{}, err
	}

	return r, nil
}

func scanRelationship(row pgx.Row) (Relationship, error) {
	var r Relationship
	var state string

	if err := row.Scan(
		&r.RelationshipID, &r.CompanyA, &r.CompanyB, &r.RequesterCompanyID,
		&r.AddressedCompanyID, &r.Type, &state, &r.CreatedAt, &r.ChangedAt,
	); err != nil {
		return Relationship{}, err
	}

	parsed, err := ParseVisibilityState(state)
	if err != nil {
		return Relationship{}, fmt.Errorf("scan relationship state: %w", err)
	}
	r.State = parsed

	return r, nil
}
