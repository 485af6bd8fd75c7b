package triage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const cols = `id, patient_id, programme, academic_year, outcome, notes,
	decided_by, decided_at, variant`

func (r *repoPG) scan(row pgx.Row) (*Decision, error) {
	var d Decision
	err := row.Scan(&d.ID, &d.PatientID, &d.Programme, &d.AcademicYear,
		&d.Outcome, &d.Notes, &d.DecidedBy, &d.DecidedAt, &d.Variant)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Decision) error {
	d.ID = uuid.New()
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO triage_decision (id, patient_id, programme, academic_year,
			outcome, notes, decided_by, decided_at, variant)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.PatientID, d.Programme, d.AcademicYear,
		d.Outcome, d.Notes, d.DecidedBy, d.DecidedAt, d.Variant)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Decision, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM triage_decision WHERE id = $1`, id))
}

func (r *repoPG) ListForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Decision, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM triage_decision
		WHERE patient_id = $1 AND programme = $2 AND academic_year = $3
		ORDER BY decided_at ASC, id ASC`,
		patientID, t, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Decision
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Decision, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM triage_decision WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM triage_decision WHERE patient_id = $1
		ORDER BY decided_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Decision
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
