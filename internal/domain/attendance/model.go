package attendance

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrValidation is returned for malformed records.
	ErrValidation = errors.New("invalid attendance record")
	// ErrLocked is returned when attendance is changed after a vaccination
	// has been recorded for the same patient and session.
	ErrLocked = errors.New("attendance is locked once vaccination is recorded")
)

// Status is a patient's registration state for one session date.
type Status string

const (
	StatusNotRegistered Status = "not_registered"
	StatusAttending     Status = "attending"
	StatusAbsent        Status = "absent"
)

var validStatuses = map[Status]bool{
	StatusNotRegistered: true, StatusAttending: true, StatusAbsent: true,
}

// Record is a patient's attendance at one session. There is at most one per
// (patient, session); setting attendance again overwrites it until a
// vaccination record freezes it.
type Record struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	SessionID  uuid.UUID `db:"session_id" json:"session_id"`
	Status     Status    `db:"status" json:"status"`
	RecordedBy string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the structural fields required before persistence.
func (r *Record) Validate() error {
	if r.PatientID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("patient_id is required"))
	}
	if r.SessionID == uuid.Nil {
		return errors.Join(ErrValidation, errors.New("session_id is required"))
	}
	if !validStatuses[r.Status] {
		return errors.Join(ErrValidation, errors.New("unknown status"))
	}
	return nil
}
