package blanks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRegistry implements Registry using Postgres.
type PGRegistry struct {
	DB *sql.DB
}

const blankColumns = `id, question, scope, policy_id, default_value, has_default, help, position`

const selectBlanks = `
SELECT id, question, scope, COALESCE(policy_id, ''), default_value, has_default, help, position
FROM blanks`

// ListBlanks returns blanks matching the filter ordered by position.
func (r *PGRegistry) ListBlanks(ctx context.Context, filter Filter) ([]Blank, error) {
	switch {
	case filter.Scope == "" && filter.PolicyID != "":
		return r.InScope(ctx, filter.PolicyID)
	case filter.Scope == "":
		return r.query(ctx, selectBlanks+` ORDER BY position`)
	case filter.Scope == ScopePolicy && filter.PolicyID != "":
		return r.query(ctx, selectBlanks+` WHERE scope = $1 AND policy_id = $2 ORDER BY position`, string(filter.Scope), filter.PolicyID)
	default:
		return r.query(ctx, selectBlanks+` WHERE scope = $1 ORDER BY position`, string(filter.Scope))
	}
}

// InScope returns common blanks followed by the policy's own blanks.
func (r *PGRegistry) InScope(ctx context.Context, policyID string) ([]Blank, error) {
	return r.query(ctx, selectBlanks+`
WHERE EXISTS (SELECT 1 FROM policies WHERE id = $1)
  AND (scope = 'common' OR policy_id = $1)
ORDER BY CASE WHEN scope = 'common' THEN 0 ELSE 1 END, position`, policyID)
}

// Get returns a blank by id.
func (r *PGRegistry) Get(ctx context.Context, id string) (Blank, error) {
	rows, err := r.query(ctx, selectBlanks+` WHERE id = $1`, id)
	if err != nil {
		return Blank{}, err
	}
	if len(rows) == 0 {
		return Blank{}, ErrNotFound
	}
	return rows[0], nil
}

// GetDefault returns the registry default for a blank.
func (r *PGRegistry) GetDefault(ctx context.Context, id string) (string, bool, error) {
	b, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	v, ok := b.Default()
	return v, ok, nil
}

// ListPolicies returns policies ordered by position.
func (r *PGRegistry) ListPolicies(ctx context.Context) ([]Policy, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, title, position FROM policies ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.Title, &p.Position); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Seed writes a catalog into the tables, updating existing rows by id.
func (r *PGRegistry) Seed(ctx context.Context, catalog *Catalog) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, p := range catalog.Policies() {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO policies (id, title, position) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, position = EXCLUDED.position`,
			p.ID, p.Title, p.Position); err != nil {
			return fmt.Errorf("seed policy %s: %w", p.ID, err)
		}
	}
	for _, b := range catalog.Blanks(Filter{}) {
		var policyID sql.NullString
		if b.PolicyID != "" {
			policyID = sql.NullString{String: b.PolicyID, Valid: true}
		}
		def, hasDefault := b.Default()
		if _, err := tx.ExecContext(ctx, `
INSERT INTO blanks (`+blankColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    question = EXCLUDED.question,
    scope = EXCLUDED.scope,
    policy_id = EXCLUDED.policy_id,
    default_value = EXCLUDED.default_value,
    has_default = EXCLUDED.has_default,
    help = EXCLUDED.help,
    position = EXCLUDED.position`,
			b.ID, b.Question, string(b.Scope), policyID, def, hasDefault, b.Help, b.Position); err != nil {
			return fmt.Errorf("seed blank %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

func (r *PGRegistry) query(ctx context.Context, query string, args ...any) ([]Blank, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blanks: %w", err)
	}
	defer rows.Close()

	out := make([]Blank, 0)
	for rows.Next() {
		var (
			b          Blank
			scope      string
			def        string
			hasDefault bool
		)
		if err := rows.Scan(&b.ID, &b.Question, &scope, &b.PolicyID, &def, &hasDefault, &b.Help, &b.Position); err != nil {
			return nil, err
		}
		b.Scope = Scope(scope)
		if hasDefault {
			v := def
			b.DefaultValue = &v
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ Registry = (*PGRegistry)(nil)
