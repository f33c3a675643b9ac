package sales

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenlife/greenlife-admin/internal/platform/db"
)

// PGApprovalLog stores approval entries in PostgreSQL.
type PGApprovalLog struct {
	pool *pgxpool.Pool
}

// NewApprovalLog constructs a PostgreSQL approval log.
func NewApprovalLog(pool *pgxpool.Pool) *PGApprovalLog {
	return &PGApprovalLog{pool: pool}
}

// Record appends entry. When a sale transition names the sale's batch, the
// sale's earlier entries are stamped with that batch too.
func (l *PGApprovalLog) Record(ctx context.Context, entry ApprovalEntry) error {
	return db.WithTx(ctx, l.pool, func(tx db.Tx) error {
		const insert = `INSERT INTO approval_log (actor, transition, sale_id, batch_ref, from_status, to_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := tx.Exec(ctx, insert,
			entry.Actor, entry.Transition, entry.SaleID, entry.BatchRef,
			string(entry.From), string(entry.To), entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("sales: record approval: %w", err)
		}
		if entry.SaleID != "" && entry.BatchRef != "" {
			const stamp = `UPDATE approval_log SET batch_ref = $1 WHERE sale_id = $2 AND batch_ref = ''`
			if _, err := tx.Exec(ctx, stamp, entry.BatchRef, entry.SaleID); err != nil {
				return fmt.Errorf("sales: stamp approval batch: %w", err)
			}
		}
		return nil
	})
}

// History lists entries of a batch or of any of its sales, oldest first.
func (l *PGApprovalLog) History(ctx context.Context, batchRef string, saleIDs []string) ([]ApprovalEntry, error) {
	const query = `SELECT id, actor, transition, sale_id, batch_ref, from_status, to_status, created_at
FROM approval_log
WHERE (batch_ref <> '' AND batch_ref = $1) OR sale_id = ANY($2)
ORDER BY created_at, id`
	if saleIDs == nil {
		saleIDs = []string{}
	}
	rows, err := l.pool.Query(ctx, query, batchRef, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("sales: approval history: %w", err)
	}
	defer rows.Close()

	var out []ApprovalEntry
	for rows.Next() {
		var (
			e        ApprovalEntry
			from, to string
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Transition, &e.SaleID, &e.BatchRef, &from, &to, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sales: scan approval: %w", err)
		}
		e.From, e.To = Status(from), Status(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ ApprovalLog = (*PGApprovalLog)(nil)
