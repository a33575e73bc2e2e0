package answers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"policy-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Get returns the stored answer for a blank and organization.
func (r *PGRepo) Get(ctx context.Context, blankID, organizationID string) (Answer, error) {
	const query = `
SELECT blank_id, organization_id, value, is_default, updated_at
FROM answers
WHERE blank_id = $1 AND organization_id = $2`
	var a Answer
	err := r.DB.QueryRowContext(ctx, query, blankID, organizationID).Scan(
		&a.BlankID,
		&a.OrganizationID,
		&a.Value,
		&a.IsDefault,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Answer{}, ErrNotFound
		}
		return Answer{}, err
	}
	return a, nil
}

// ListByOrganization returns every answer an organization has stored, ordered by blank id.
func (r *PGRepo) ListByOrganization(ctx context.Context, organizationID string) ([]Answer, error) {
	const query = `
SELECT blank_id, organization_id, value, is_default, updated_at
FROM answers
WHERE organization_id = $1
ORDER BY blank_id`
	rows, err := r.DB.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	out := make([]Answer, 0)
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.BlankID, &a.OrganizationID, &a.Value, &a.IsDefault, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Upsert writes the answer and the promoted default in one transaction.
// The row lock on an existing answer serializes writers to the same key.
func (r *PGRepo) Upsert(ctx context.Context, answer Answer) (Answer, bool, error) {
	stored := answer
	changed := false

	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var existing Answer
		err := tx.QueryRowContext(ctx, `
SELECT blank_id, organization_id, value, is_default, updated_at
FROM answers
WHERE blank_id = $1 AND organization_id = $2
FOR UPDATE`, answer.BlankID, answer.OrganizationID).Scan(
			&existing.BlankID,
			&existing.OrganizationID,
			&existing.Value,
			&existing.IsDefault,
			&existing.UpdatedAt,
		)
		switch {
		case err == nil:
			if existing.sameAs(answer) {
				stored = existing
				return nil
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("lock answer: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO answers (blank_id, organization_id, value, is_default, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (blank_id, organization_id) DO UPDATE SET
    value = EXCLUDED.value,
    is_default = EXCLUDED.is_default,
    updated_at = EXCLUDED.updated_at`,
			answer.BlankID, answer.OrganizationID, answer.Value, answer.IsDefault, answer.UpdatedAt); err != nil {
			return fmt.Errorf("write answer: %w", err)
		}

		if answer.IsDefault {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO blank_defaults (blank_id, organization_id, value, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (blank_id, organization_id) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at`,
				answer.BlankID, answer.OrganizationID, answer.Value, answer.UpdatedAt); err != nil {
				return fmt.Errorf("promote default: %w", err)
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return Answer{}, false, err
	}
	return stored, changed, nil
}

// Defaults returns the organization's promoted defaults keyed by blank id.
func (r *PGRepo) Defaults(ctx context.Context, organizationID string) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT blank_id, value FROM blank_defaults WHERE organization_id = $1`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list defaults: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var blankID, value string
		if err := rows.Scan(&blankID, &value); err != nil {
			return nil, err
		}
		out[blankID] = value
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
