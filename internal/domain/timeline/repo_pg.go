package timeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/apperr"
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

const entryCols = `id, patient_id, stage, entered_at, seq, exited_at,
	required_on_entry, required_on_exit, completed_on_entry, completed_on_exit,
	actor_id, notes, created_at`

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	// seq comes from the table's sequence so same-instant entries stay
	// orderable.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO timeline_entry (
			id, patient_id, stage, entered_at,
			required_on_entry, required_on_exit, completed_on_entry, completed_on_exit,
			actor_id, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING seq, created_at`,
		e.ID, e.PatientID, e.Stage, e.EnteredAt,
		e.RequiredOnEntry, e.RequiredOnExit, e.CompletedOnEntry, e.CompletedOnExit,
		e.ActorID, e.Notes,
	).Scan(&e.Seq, &e.CreatedAt)
}

func (r *repoPG) CloseOpen(ctx context.Context, patientID, entryID uuid.UUID, close CloseFields) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE timeline_entry
		SET exited_at = $3, required_on_exit = $4, completed_on_exit = $5
		WHERE id = $1 AND patient_id = $2 AND exited_at IS NULL`,
		entryID, patientID, close.ExitedAt, close.RequiredOnExit, close.CompletedOnExit,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) FindOpen(ctx context.Context, patientID uuid.UUID, pointer *uuid.UUID) (*Entry, error) {
	var entry *Entry
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		entry = nil

		if pointer != nil {
			e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
				`SELECT `+entryCols+` FROM timeline_entry
				 WHERE id = $1 AND patient_id = $2 AND exited_at IS NULL`,
				*pointer, patientID))
			if err == nil {
				entry = e
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			// Pointer is stale or points at a closed entry; fall back to
			// the ledger itself.
		}

		e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
			`SELECT `+entryCols+` FROM timeline_entry
			 WHERE patient_id = $1 AND exited_at IS NULL
			 ORDER BY entered_at DESC, seq DESC
			 LIMIT 1`, patientID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var entry *Entry
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		e, err := scanEntry(r.conn(ctx).QueryRow(ctx,
			`SELECT `+entryCols+` FROM timeline_entry WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.New(apperr.KindNotFound, "timeline entry %s not found", id)
			}
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var entries []*Entry
	var total int
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		if err := r.conn(ctx).QueryRow(ctx,
			`SELECT COUNT(*) FROM timeline_entry WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
			return err
		}

		rows, err := r.conn(ctx).Query(ctx,
			`SELECT `+entryCols+` FROM timeline_entry
			 WHERE patient_id = $1
			 ORDER BY entered_at DESC, seq DESC
			 LIMIT $2 OFFSET $3`, patientID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			var e Entry
			if err := rows.Scan(
				&e.ID, &e.PatientID, &e.Stage, &e.EnteredAt, &e.Seq, &e.ExitedAt,
				&e.RequiredOnEntry, &e.RequiredOnExit, &e.CompletedOnEntry, &e.CompletedOnExit,
				&e.ActorID, &e.Notes, &e.CreatedAt,
			); err != nil {
				return err
			}
			entries = append(entries, &e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.PatientID, &e.Stage, &e.EnteredAt, &e.Seq, &e.ExitedAt,
		&e.RequiredOnEntry, &e.RequiredOnExit, &e.CompletedOnEntry, &e.CompletedOnExit,
		&e.ActorID, &e.Notes, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
