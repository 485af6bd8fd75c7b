package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

const cols = `id, org_id, submission, status, candidates, linked_patient_id,
	review_notes, resolved_by, resolved_at, created_at`

func (r *repoPG) scan(row pgx.Row) (*UnmatchedConsentForm, error) {
	var f UnmatchedConsentForm
	err := row.Scan(&f.ID, &f.OrgID, &f.Submission, &f.Status, &f.Candidates,
		&f.LinkedPatientID, &f.ReviewNotes, &f.ResolvedBy, &f.ResolvedAt,
		&f.CreatedAt)
	return &f, err
}

func (r *repoPG) Create(ctx context.Context, f *UnmatchedConsentForm) error {
	f.ID = uuid.New()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO unmatched_consent_form (id, org_id, submission, status, candidates, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.OrgID, f.Submission, f.Status, f.Candidates, f.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*UnmatchedConsentForm, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM unmatched_consent_form WHERE id = $1`, id))
}

func (r *repoPG) Resolve(ctx context.Context, f *UnmatchedConsentForm) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE unmatched_consent_form
		SET status = $2, linked_patient_id = $3, review_notes = $4,
			resolved_by = $5, resolved_at = $6
		WHERE id = $1 AND resolved_at IS NULL`,
		f.ID, f.Status, f.LinkedPatientID, f.ReviewNotes, f.ResolvedBy, f.ResolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListByStatus(ctx context.Context, orgID uuid.UUID, status FormStatus, limit, offset int) ([]*UnmatchedConsentForm, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM unmatched_consent_form
		WHERE org_id = $1 AND status = $2`, orgID, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+cols+` FROM unmatched_consent_form
		WHERE org_id = $1 AND status = $2
		ORDER BY created_at LIMIT $3 OFFSET $4`, orgID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*UnmatchedConsentForm
	for rows.Next() {
		f, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}
