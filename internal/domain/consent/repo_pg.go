package consent

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

const cols = `id, patient_id, programme, academic_year, parent_id, self_consent,
	method, decision, selection, health_answers, notes, recorded_by,
	withdrawn_at, created_at`

func (r *repoPG) scan(row pgx.Row) (*Response, error) {
	var res Response
	err := row.Scan(&res.ID, &res.PatientID, &res.Programme, &res.AcademicYear,
		&res.ParentID, &res.SelfConsent, &res.Method, &res.Decision,
		&res.Selection, &res.HealthAnswers, &res.Notes, &res.RecordedBy,
		&res.WithdrawnAt, &res.CreatedAt)
	return &res, err
}

func (r *repoPG) Create(ctx context.Context, res *Response) error {
	res.ID = uuid.New()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consent_response (id, patient_id, programme, academic_year,
			parent_id, self_consent, method, decision, selection,
			health_answers, notes, recorded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		res.ID, res.PatientID, res.Programme, res.AcademicYear,
		res.ParentID, res.SelfConsent, res.Method, res.Decision, res.Selection,
		res.HealthAnswers, res.Notes, res.RecordedBy, res.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Response, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM consent_response WHERE id = $1`, id))
}

func (r *repoPG) ListForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Response, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM consent_response
		WHERE patient_id = $1 AND programme = $2 AND academic_year = $3
		ORDER BY created_at ASC, id ASC`,
		patientID, t, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Response
	for rows.Next() {
		res, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, res)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Response, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consent_response WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM consent_response WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Response
	for rows.Next() {
		res, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Withdraw(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consent_response SET withdrawn_at = $2
		WHERE id = $1 AND withdrawn_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
