package patient

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// -- Patient --

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, org_id, nhs_number, given_name, family_name,
	preferred_given, preferred_family, date_of_birth, gender,
	address_line1, address_line2, town, postcode, school_id, year_group,
	invalidated_at, archive_reason, archived_at, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.OrgID, &p.NHSNumber, &p.GivenName, &p.FamilyName,
		&p.PreferredGiven, &p.PreferredFamily, &p.DateOfBirth, &p.Gender,
		&p.AddressLine1, &p.AddressLine2, &p.Town, &p.Postcode, &p.SchoolID,
		&p.YearGroup, &p.InvalidatedAt, &p.ArchiveReason, &p.ArchivedAt,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (id, org_id, nhs_number, given_name, family_name,
			preferred_given, preferred_family, date_of_birth, gender,
			address_line1, address_line2, town, postcode, school_id,
			year_group, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.OrgID, p.NHSNumber, p.GivenName, p.FamilyName,
		p.PreferredGiven, p.PreferredFamily, p.DateOfBirth, p.Gender,
		p.AddressLine1, p.AddressLine2, p.Town, p.Postcode, p.SchoolID,
		p.YearGroup, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByNHSNumber(ctx context.Context, nhsNumber string) (*Patient, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE nhs_number = $1 AND archived_at IS NULL`,
		nhsNumber))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET nhs_number = $2, given_name = $3, family_name = $4,
			preferred_given = $5, preferred_family = $6, date_of_birth = $7,
			gender = $8, address_line1 = $9, address_line2 = $10, town = $11,
			postcode = $12, school_id = $13, year_group = $14,
			invalidated_at = $15, updated_at = $16
		WHERE id = $1 AND archived_at IS NULL`,
		p.ID, p.NHSNumber, p.GivenName, p.FamilyName,
		p.PreferredGiven, p.PreferredFamily, p.DateOfBirth, p.Gender,
		p.AddressLine1, p.AddressLine2, p.Town, p.Postcode, p.SchoolID,
		p.YearGroup, p.InvalidatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Archive(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET archived_at = now(), archive_reason = $2,
			invalidated_at = now(), updated_at = now()
		WHERE id = $1 AND archived_at IS NULL`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE org_id = $1 AND archived_at IS NULL`,
		orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+patientCols+` FROM patient
		WHERE org_id = $1 AND archived_at IS NULL
		ORDER BY family_name, given_name LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	patients, err := collectPatients(rows)
	return patients, total, err
}

func (r *repoPG) ListBySchool(ctx context.Context, schoolID uuid.UUID, yearGroup *int, limit, offset int) ([]*Patient, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient
		WHERE school_id = $1 AND archived_at IS NULL
		AND ($2::int IS NULL OR year_group = $2)`,
		schoolID, yearGroup).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+patientCols+` FROM patient
		WHERE school_id = $1 AND archived_at IS NULL
		AND ($2::int IS NULL OR year_group = $2)
		ORDER BY year_group, family_name, given_name LIMIT $3 OFFSET $4`,
		schoolID, yearGroup, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	patients, err := collectPatients(rows)
	return patients, total, err
}

func (r *repoPG) SearchCandidates(ctx context.Context, orgID uuid.UUID, familyName string, dateOfBirth time.Time) ([]*Patient, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+patientCols+` FROM patient
		WHERE org_id = $1 AND archived_at IS NULL
		AND (lower(family_name) = lower($2) OR date_of_birth = $3)`,
		orgID, familyName, dateOfBirth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// -- Parent --

type parentRepoPG struct{ pool *pgxpool.Pool }

func NewParentRepoPG(pool *pgxpool.Pool) ParentRepository {
	return &parentRepoPG{pool: pool}
}

const parentCols = `id, full_name, email, phone, contact_method, created_at, updated_at`

func scanParent(row pgx.Row) (*Parent, error) {
	var p Parent
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.ContactMethod,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *parentRepoPG) Create(ctx context.Context, p *Parent) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.ContactMethod == "" {
		p.ContactMethod = ContactEmail
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO parent (id, full_name, email, phone, contact_method, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.FullName, p.Email, p.Phone, p.ContactMethod, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *parentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Parent, error) {
	return scanParent(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+parentCols+` FROM parent WHERE id = $1`, id))
}

func (r *parentRepoPG) Update(ctx context.Context, p *Parent) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE parent SET full_name = $2, email = $3, phone = $4,
			contact_method = $5, updated_at = $6
		WHERE id = $1`,
		p.ID, p.FullName, p.Email, p.Phone, p.ContactMethod, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *parentRepoPG) Link(ctx context.Context, link *PatientParent) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient_parent (patient_id, parent_id, relationship, relationship_label, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (patient_id, parent_id) DO UPDATE
		SET relationship = EXCLUDED.relationship,
			relationship_label = EXCLUDED.relationship_label`,
		link.PatientID, link.ParentID, link.Relationship, link.RelationshipLabel, link.CreatedAt)
	return err
}

func (r *parentRepoPG) Unlink(ctx context.Context, patientID, parentID uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM patient_parent WHERE patient_id = $1 AND parent_id = $2`,
		patientID, parentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *parentRepoPG) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Parent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT p.id, p.full_name, p.email, p.phone, p.contact_method, p.created_at, p.updated_at
		FROM parent p
		JOIN patient_parent pp ON pp.parent_id = p.id
		WHERE pp.patient_id = $1
		ORDER BY pp.created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Parent
	for rows.Next() {
		p, err := scanParent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *parentRepoPG) ListLinks(ctx context.Context, patientID uuid.UUID) ([]*PatientParent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT patient_id, parent_id, relationship, relationship_label, created_at
		FROM patient_parent WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*PatientParent
	for rows.Next() {
		var link PatientParent
		if err := rows.Scan(&link.PatientID, &link.ParentID, &link.Relationship,
			&link.RelationshipLabel, &link.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &link)
	}
	return out, rows.Err()
}

// -- School moves --

type schoolMoveRepoPG struct{ pool *pgxpool.Pool }

func NewSchoolMoveRepoPG(pool *pgxpool.Pool) SchoolMoveRepository {
	return &schoolMoveRepoPG{pool: pool}
}

func (r *schoolMoveRepoPG) Create(ctx context.Context, m *SchoolMove) error {
	m.ID = uuid.New()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO school_move (id, patient_id, from_school_id, to_school_id, source, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.PatientID, m.FromSchoolID, m.ToSchoolID, m.Source, m.CreatedAt)
	return err
}

func (r *schoolMoveRepoPG) ListPending(ctx context.Context, limit, offset int) ([]*SchoolMove, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM school_move`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, patient_id, from_school_id, to_school_id, source, created_at
		FROM school_move ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*SchoolMove
	for rows.Next() {
		var m SchoolMove
		if err := rows.Scan(&m.ID, &m.PatientID, &m.FromSchoolID, &m.ToSchoolID,
			&m.Source, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &m)
	}
	return out, total, rows.Err()
}
