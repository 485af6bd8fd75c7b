package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =========== Mocks ===========

type key struct{ patient, session uuid.UUID }

type mockRepo struct {
	store map[key]*Record
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[key]*Record)}
}

func (m *mockRepo) Upsert(_ context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.UpdatedAt = time.Now()
	m.store[key{r.PatientID, r.SessionID}] = r
	return nil
}

func (m *mockRepo) Get(_ context.Context, patientID, sessionID uuid.UUID) (*Record, error) {
	r, ok := m.store[key{patientID, sessionID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRepo) ListBySession(_ context.Context, sessionID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var result []*Record
	for _, r := range m.store {
		if r.SessionID == sessionID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

type mockVaccinationChecker struct {
	vaccinated bool
}

func (m *mockVaccinationChecker) HasRecord(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return m.vaccinated, nil
}

// =========== Tests ===========

func TestSetAttendance_Success(t *testing.T) {
	svc := NewService(newMockRepo(), &mockVaccinationChecker{})
	rec := &Record{PatientID: uuid.New(), SessionID: uuid.New(), Status: StatusAttending, RecordedBy: "nurse.jones"}
	if err := svc.SetAttendance(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetAttendance_InvalidStatus(t *testing.T) {
	svc := NewService(newMockRepo(), &mockVaccinationChecker{})
	rec := &Record{PatientID: uuid.New(), SessionID: uuid.New(), Status: "present"}
	if err := svc.SetAttendance(context.Background(), rec); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetAttendance_MutableUntilVaccinated(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockVaccinationChecker{})
	patientID, sessionID := uuid.New(), uuid.New()

	first := &Record{PatientID: patientID, SessionID: sessionID, Status: StatusAttending, RecordedBy: "nurse.jones"}
	if err := svc.SetAttendance(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := &Record{PatientID: patientID, SessionID: sessionID, Status: StatusAbsent, RecordedBy: "nurse.jones"}
	if err := svc.SetAttendance(context.Background(), second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := svc.Current(context.Background(), patientID, sessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusAbsent {
		t.Errorf("expected absent, got %q", status)
	}
}

func TestSetAttendance_LockedAfterVaccination(t *testing.T) {
	svc := NewService(newMockRepo(), &mockVaccinationChecker{vaccinated: true})
	rec := &Record{PatientID: uuid.New(), SessionID: uuid.New(), Status: StatusAbsent, RecordedBy: "nurse.jones"}
	if err := svc.SetAttendance(context.Background(), rec); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestCurrent_DefaultsToNotRegistered(t *testing.T) {
	svc := NewService(newMockRepo(), &mockVaccinationChecker{})
	status, err := svc.Current(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusNotRegistered {
		t.Errorf("expected not_registered, got %q", status)
	}
}
