package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrValidation is returned for malformed or missing required fields.
	ErrValidation = errors.New("invalid patient record")
	// ErrArchived is returned when a write targets an archived patient.
	ErrArchived = errors.New("patient is archived")
)

// Patient is one cohort member. Patients are never hard-deleted: bad or
// duplicate records are archived with a reason so that clinical events
// referencing them stay resolvable.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrgID          uuid.UUID  `db:"org_id" json:"org_id"`
	NHSNumber      *string    `db:"nhs_number" json:"nhs_number,omitempty"`
	GivenName      string     `db:"given_name" json:"given_name"`
	FamilyName     string     `db:"family_name" json:"family_name"`
	PreferredGiven *string    `db:"preferred_given" json:"preferred_given,omitempty"`
	PreferredFamily *string   `db:"preferred_family" json:"preferred_family,omitempty"`
	DateOfBirth    time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	AddressLine1   *string    `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2   *string    `db:"address_line2" json:"address_line2,omitempty"`
	Town           *string    `db:"town" json:"town,omitempty"`
	Postcode       *string    `db:"postcode" json:"postcode,omitempty"`
	SchoolID       *uuid.UUID `db:"school_id" json:"school_id,omitempty"`
	YearGroup      *int       `db:"year_group" json:"year_group,omitempty"`
	InvalidatedAt  *time.Time `db:"invalidated_at" json:"invalidated_at,omitempty"`
	ArchiveReason  *string    `db:"archive_reason" json:"archive_reason,omitempty"`
	ArchivedAt     *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Archived reports whether the record has been soft-archived.
func (p *Patient) Archived() bool { return p.ArchivedAt != nil }

func (p *Patient) Validate() error {
	if p.GivenName == "" || p.FamilyName == "" {
		return errors.Join(ErrValidation, errors.New("given_name and family_name are required"))
	}
	if p.DateOfBirth.IsZero() {
		return errors.Join(ErrValidation, errors.New("date_of_birth is required"))
	}
	if p.OrgID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("org_id is required"))
	}
	return nil
}

// Relationship of a parent or carer to a patient.
type Relationship string

const (
	RelationshipMother   Relationship = "mother"
	RelationshipFather   Relationship = "father"
	RelationshipGuardian Relationship = "guardian"
	RelationshipOther    Relationship = "other"
)

var validRelationships = map[Relationship]bool{
	RelationshipMother: true, RelationshipFather: true,
	RelationshipGuardian: true, RelationshipOther: true,
}

// ContactMethod is how a parent prefers to be reached.
type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
	ContactPost  ContactMethod = "post"
)

// Parent is a parent or carer. One parent may be linked to several patients
// (siblings), so the record stands on its own and the link carries the
// relationship.
type Parent struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	FullName      string        `db:"full_name" json:"full_name"`
	Email         *string       `db:"email" json:"email,omitempty"`
	Phone         *string       `db:"phone" json:"phone,omitempty"`
	ContactMethod ContactMethod `db:"contact_method" json:"contact_method"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

func (p *Parent) Validate() error {
	if p.FullName == "" {
		return errors.Join(ErrValidation, errors.New("full_name is required"))
	}
	return nil
}

// PatientParent links a parent to a patient with the claimed relationship.
// RelationshipLabel holds free text when the relationship is "other".
type PatientParent struct {
	PatientID         uuid.UUID    `db:"patient_id" json:"patient_id"`
	ParentID          uuid.UUID    `db:"parent_id" json:"parent_id"`
	Relationship      Relationship `db:"relationship" json:"relationship"`
	RelationshipLabel *string      `db:"relationship_label" json:"relationship_label,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

func (pp *PatientParent) Validate() error {
	if pp.PatientID == uuid.Nil || pp.ParentID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("patient_id and parent_id are required"))
	}
	if !validRelationships[pp.Relationship] {
		return errors.Join(ErrValidation, errors.New("unknown relationship"))
	}
	return nil
}

// SchoolMove is a pending school change noticed during consent intake. The
// engine records it for the cohort-management workflow to confirm; it never
// applies the move itself.
type SchoolMove struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	FromSchoolID *uuid.UUID `db:"from_school_id" json:"from_school_id,omitempty"`
	ToSchoolID   uuid.UUID  `db:"to_school_id" json:"to_school_id"`
	Source       string     `db:"source" json:"source"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
