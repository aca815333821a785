package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/JPGarzonE/business-network-core-API-sub000/database"
)

// BootstrapSchema applies the embedded DDL in dependency order inside a
// single transaction:
//  1. companies.sql
//  2. users.sql
//  3. memberships.sql
//  4. relationships.sql
//
// Every statement is IF NOT EXISTS, so the helper is idempotent and intended
// for binary startup and tests.
func BootstrapSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("bootstrap schema: pool is required")
	}

	var statements []string
	statements = append(statements, splitStatements(sqlassets.CompaniesSQL)...)
	statements = append(statements, splitStatements(sqlassets.UsersSQL)...)
	statements = append(statements, splitStatements(sqlassets.MembershipsSQL)...)
	statements = append(statements, splitStatements(sqlassets.RelationshipsSQL)...)

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// splitStatements breaks an embedded SQL asset into individual statements.
// The assets hold plain DDL only (no procedural blocks), so splitting on the
// trailing semicolon is safe.
func splitStatements(asset string) []string {
	parts := strings.Split(asset, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
