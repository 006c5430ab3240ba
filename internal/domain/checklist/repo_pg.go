package checklist

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ruleCols = `id, from_stage, to_stage, required_on_entry, required_on_exit, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rule *Rule) error {
	// Upsert on the pair; RETURNING reports the surviving row's id when a
	// rule for this pair already existed.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO checklist_rule (id, from_stage, to_stage, required_on_entry, required_on_exit)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (from_stage, to_stage) DO UPDATE SET
			required_on_entry = EXCLUDED.required_on_entry,
			required_on_exit = EXCLUDED.required_on_exit,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), rule.FromStage, rule.ToStage, rule.RequiredOnEntry, rule.RequiredOnExit,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM checklist_rule WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context) ([]*Rule, error) {
	var rules []*Rule
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.conn(ctx).Query(ctx, `SELECT `+ruleCols+` FROM checklist_rule ORDER BY from_stage, to_stage`)
		if err != nil {
			return err
		}
		defer rows.Close()

		rules = rules[:0]
		for rows.Next() {
			var rule Rule
			if err := rows.Scan(
				&rule.ID, &rule.FromStage, &rule.ToStage,
				&rule.RequiredOnEntry, &rule.RequiredOnExit,
				&rule.CreatedAt, &rule.UpdatedAt,
			); err != nil {
				return err
			}
			rules = append(rules, &rule)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}
