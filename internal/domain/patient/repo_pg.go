package patient

import (
	"context"
	"errors"
	"time"

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

const patientCols = `id, mrn, first_name, last_name, birth_date,
	department, status, current_stage, open_entry_id, stage_first_seen,
	index_key, version, created_at, updated_at, deleted_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.IndexKey = ComputeIndexKey(p.Department, p.Status)
	if p.StageFirstSeen == nil {
		p.StageFirstSeen = map[string]time.Time{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, mrn, first_name, last_name, birth_date,
			department, status, current_stage, open_entry_id, stage_first_seen,
			index_key
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING version, created_at, updated_at`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.BirthDate,
		p.Department, p.Status, p.CurrentStage, p.OpenEntryID, p.StageFirstSeen,
		p.IndexKey,
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p *Patient
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		got, err := scanPatient(r.conn(ctx).QueryRow(ctx,
			`SELECT `+patientCols+` FROM patient WHERE id = $1 AND deleted_at IS NULL`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.New(apperr.KindNotFound, "patient %s not found", id)
			}
			return err
		}
		p = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	p.IndexKey = ComputeIndexKey(p.Department, p.Status)
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient
		SET mrn = $2, first_name = $3, last_name = $4, birth_date = $5,
			department = $6, status = $7, index_key = $8,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.BirthDate,
		p.Department, p.Status, p.IndexKey,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "patient %s not found", p.ID)
	}
	return nil
}

func (r *repoPG) ApplyTransition(ctx context.Context, id uuid.UUID, t TransitionFields) error {
	// stage_first_seen is write-once per stage: the CASE keeps an existing
	// key untouched on revisits.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient
		SET current_stage = $2,
			open_entry_id = $3,
			stage_first_seen = CASE
				WHEN stage_first_seen ? $2::text THEN stage_first_seen
				ELSE stage_first_seen || jsonb_build_object($2::text, to_jsonb($4::timestamptz))
			END,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, t.Stage, t.OpenEntryID, t.EnteredAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "patient %s not found", id)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return r.list(ctx,
		`SELECT COUNT(*) FROM patient WHERE deleted_at IS NULL`,
		`SELECT `+patientCols+` FROM patient
		 WHERE deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		nil, limit, offset)
}

func (r *repoPG) ListByIndexKey(ctx context.Context, key string, limit, offset int) ([]*Patient, int, error) {
	return r.list(ctx,
		`SELECT COUNT(*) FROM patient WHERE index_key = $1 AND deleted_at IS NULL`,
		`SELECT `+patientCols+` FROM patient
		 WHERE index_key = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		&key, limit, offset)
}

func (r *repoPG) list(ctx context.Context, countSQL, pageSQL string, key *string, limit, offset int) ([]*Patient, int, error) {
	var patients []*Patient
	var total int
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		countArgs := []interface{}{}
		pageArgs := []interface{}{limit, offset}
		if key != nil {
			countArgs = []interface{}{*key}
			pageArgs = []interface{}{*key, limit, offset}
		}
		if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return err
		}

		rows, err := r.conn(ctx).Query(ctx, pageSQL, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		patients = patients[:0]
		for rows.Next() {
			p, err := scanPatient(rows)
			if err != nil {
				return err
			}
			patients = append(patients, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	// The projection key is derived in Go so ComputeIndexKey stays the only
	// definition of its format.
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient
		SET deleted_at = now(), status = $2, index_key = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, StatusInactive, ComputeIndexKey(p.Department, StatusInactive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "patient %s not found", id)
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.BirthDate,
		&p.Department, &p.Status, &p.CurrentStage, &p.OpenEntryID, &p.StageFirstSeen,
		&p.IndexKey, &p.Version, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
