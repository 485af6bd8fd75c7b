package vaccination

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

const sessionCols = `id, school_id, date, programmes, academic_year,
	consent_deadline, registration_required, created_at`

func (r *sessionRepoPG) scan(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.SchoolID, &s.Date, &s.Programmes, &s.AcademicYear,
		&s.ConsentDeadline, &s.RegistrationRequired, &s.CreatedAt)
	return &s, err
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	if s.AcademicYear == "" {
		s.AcademicYear = programme.AcademicYearForDate(s.Date)
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO session (id, school_id, date, programmes, academic_year,
			consent_deadline, registration_required)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.SchoolID, s.Date, s.Programmes, s.AcademicYear,
		s.ConsentDeadline, s.RegistrationRequired)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.scan(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+sessionCols+` FROM session WHERE id = $1`, id))
}

func (r *sessionRepoPG) ListBySchool(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM session WHERE school_id = $1`, schoolID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+sessionCols+` FROM session WHERE school_id = $1
		ORDER BY date DESC LIMIT $2 OFFSET $3`, schoolID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Session
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// =========== Record Repository ===========

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

const recordCols = `id, patient_id, programme, session_id, academic_year,
	outcome, vaccine_name, variant, batch_number, batch_expiry, method, site,
	performed_by, notes, notify_parents, created_at`

func (r *recordRepoPG) scan(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.Programme, &rec.SessionID,
		&rec.AcademicYear, &rec.Outcome, &rec.VaccineName, &rec.Variant,
		&rec.BatchNumber, &rec.BatchExpiry, &rec.Method, &rec.Site,
		&rec.PerformedBy, &rec.Notes, &rec.NotifyParents, &rec.CreatedAt)
	return &rec, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO vaccination_record (id, patient_id, programme, session_id,
			academic_year, outcome, vaccine_name, variant, batch_number,
			batch_expiry, method, site, performed_by, notes, notify_parents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		rec.ID, rec.PatientID, rec.Programme, rec.SessionID,
		rec.AcademicYear, rec.Outcome, rec.VaccineName, rec.Variant,
		rec.BatchNumber, rec.BatchExpiry, rec.Method, rec.Site,
		rec.PerformedBy, rec.Notes, rec.NotifyParents, rec.CreatedAt)
	return err
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scan(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+recordCols+` FROM vaccination_record WHERE id = $1`, id))
}

func (r *recordRepoPG) ListForKey(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear) ([]*Record, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+recordCols+` FROM vaccination_record
		WHERE patient_id = $1 AND programme = $2 AND academic_year = $3
		ORDER BY created_at ASC, id ASC`, patientID, t, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM vaccination_record WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+recordCols+` FROM vaccination_record WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *recordRepoPG) ExistsForSession(ctx context.Context, patientID, sessionID uuid.UUID) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM vaccination_record WHERE patient_id = $1 AND session_id = $2)`,
		patientID, sessionID).Scan(&exists)
	return exists, err
}

// =========== Default Batch Repository ===========

type defaultBatchRepoPG struct{ pool *pgxpool.Pool }

func NewDefaultBatchRepoPG(pool *pgxpool.Pool) DefaultBatchRepository {
	return &defaultBatchRepoPG{pool: pool}
}

func (r *defaultBatchRepoPG) Set(ctx context.Context, b *DefaultBatch) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO default_batch (user_id, session_id, vaccine_name, batch_number, batch_expiry, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (user_id, session_id, vaccine_name)
		DO UPDATE SET batch_number = EXCLUDED.batch_number,
			batch_expiry = EXCLUDED.batch_expiry, updated_at = NOW()`,
		b.UserID, b.SessionID, b.VaccineName, b.BatchNumber, b.BatchExpiry)
	return err
}

func (r *defaultBatchRepoPG) Get(ctx context.Context, userID string, sessionID uuid.UUID, vaccineName string) (*DefaultBatch, error) {
	var b DefaultBatch
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT user_id, session_id, vaccine_name, batch_number, batch_expiry, updated_at
		FROM default_batch
		WHERE user_id = $1 AND session_id = $2 AND vaccine_name = $3`,
		userID, sessionID, vaccineName).
		Scan(&b.UserID, &b.SessionID, &b.VaccineName, &b.BatchNumber, &b.BatchExpiry, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *defaultBatchRepoPG) Clear(ctx context.Context, userID string, sessionID uuid.UUID, vaccineName string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM default_batch
		WHERE user_id = $1 AND session_id = $2 AND vaccine_name = $3`,
		userID, sessionID, vaccineName)
	return err
}
