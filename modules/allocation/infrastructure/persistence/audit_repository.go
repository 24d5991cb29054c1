package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/planora/planora/modules/allocation/domain/allocation"
	"github.com/planora/planora/pkg/composables"
)

// AuditRepository persists committed allocation changes to Postgres. It is
// an optional collaborator: portfolios work without a database, commits are
// simply not audited then.
type AuditRepository struct{}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

const insertAuditQuery = `
	INSERT INTO allocation_audit (portfolio, person, project, month, old_value, new_value)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (r *AuditRepository) RecordCommit(ctx context.Context, portfolio string, changes []allocation.Change) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, ok := composables.UseTx(txCtx)
		if !ok {
			return composables.ErrNoTx
		}
		for _, change := range changes {
			_, err := tx.Exec(
				txCtx, insertAuditQuery,
				portfolio, change.Person, change.Project, change.Month,
				change.OldValue, change.NewValue,
			)
			if err != nil {
				return errors.Wrap(err, "insert audit entry")
			}
		}
		return nil
	})
}

const selectAuditQuery = `
	SELECT id, portfolio, person, project, month, old_value, new_value, committed_at
	FROM allocation_audit
	WHERE portfolio = $1
	ORDER BY committed_at DESC, id DESC
	LIMIT $2`

// History returns the most recent audit entries for a portfolio, newest
// first.
func (r *AuditRepository) History(ctx context.Context, portfolio string, limit int) ([]allocation.AuditEntry, error) {
	pool, err := composables.UsePool(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, selectAuditQuery, portfolio, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query audit history")
	}
	defer rows.Close()

	var entries []allocation.AuditEntry
	for rows.Next() {
		var e allocation.AuditEntry
		if err := rows.Scan(
			&e.ID, &e.Portfolio, &e.Person, &e.Project, &e.Month,
			&e.OldValue, &e.NewValue, &e.CommittedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
