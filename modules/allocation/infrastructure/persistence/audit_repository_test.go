package persistence

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/modules/allocation/domain/allocation"
	"github.com/planora/planora/pkg/composables"
)

type execCall struct {
	sql  string
	args []any
}

// stubTx records Exec calls; the embedded interface panics on anything else.
type stubTx struct {
	pgx.Tx
	calls []execCall
	err   error
}

func (t *stubTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.calls = append(t.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, t.err
}

func TestRecordCommit_InsertsEachChange(t *testing.T) {
	tx := &stubTx{}
	ctx := composables.WithTx(context.Background(), tx)

	err := NewAuditRepository().RecordCommit(ctx, "acme", []allocation.Change{
		{Person: "Alice", Project: "Apollo", Month: "2025-01", OldValue: 0.3, NewValue: 0.9},
		{Person: "Bob", Project: "KTLO", Month: "2025-02", OldValue: 0.5, NewValue: 0.0},
	})
	require.NoError(t, err)
	require.Len(t, tx.calls, 2)
	require.Contains(t, tx.calls[0].sql, "INSERT INTO allocation_audit")
	require.Equal(t, []any{"acme", "Alice", "Apollo", "2025-01", 0.3, 0.9}, tx.calls[0].args)
	require.Equal(t, []any{"acme", "Bob", "KTLO", "2025-02", 0.5, 0.0}, tx.calls[1].args)
}

func TestRecordCommit_ExecFailureSurfaces(t *testing.T) {
	tx := &stubTx{err: context.DeadlineExceeded}
	ctx := composables.WithTx(context.Background(), tx)

	err := NewAuditRepository().RecordCommit(ctx, "acme", []allocation.Change{
		{Person: "Alice", Project: "Apollo", Month: "2025-01", NewValue: 0.9},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecordCommit_NoPool(t *testing.T) {
	err := NewAuditRepository().RecordCommit(context.Background(), "acme", []allocation.Change{
		{Person: "Alice", Project: "Apollo", Month: "2025-01", NewValue: 0.9},
	})
	require.ErrorIs(t, err, composables.ErrNoPool)
}
