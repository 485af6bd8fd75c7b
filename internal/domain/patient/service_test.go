package patient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// =========== Mocks ===========

type mockRepo struct {
	store map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.store[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("patient not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByNHSNumber(_ context.Context, nhsNumber string) (*Patient, error) {
	for _, p := range m.store {
		if p.NHSNumber != nil && *p.NHSNumber == nhsNumber && !p.Archived() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("patient not found")
}

func (m *mockRepo) SearchCandidates(_ context.Context, orgID uuid.UUID, familyName string, dateOfBirth time.Time) ([]*Patient, error) {
	var out []*Patient
	for _, p := range m.store {
		if p.OrgID != orgID || p.Archived() {
			continue
		}
		if p.FamilyName == familyName || p.DateOfBirth.Equal(dateOfBirth) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	existing, ok := m.store[p.ID]
	if !ok || existing.Archived() {
		return fmt.Errorf("patient not found")
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockRepo) Archive(_ context.Context, id uuid.UUID, reason string) error {
	p, ok := m.store[id]
	if !ok || p.Archived() {
		return fmt.Errorf("patient not found")
	}
	now := time.Now()
	p.ArchivedAt = &now
	p.InvalidatedAt = &now
	p.ArchiveReason = &reason
	return nil
}

func (m *mockRepo) List(_ context.Context, orgID uuid.UUID, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.store {
		if p.OrgID == orgID && !p.Archived() {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListBySchool(_ context.Context, schoolID uuid.UUID, yearGroup *int, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.store {
		if p.Archived() || p.SchoolID == nil || *p.SchoolID != schoolID {
			continue
		}
		if yearGroup != nil && (p.YearGroup == nil || *p.YearGroup != *yearGroup) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

type mockParentRepo struct {
	parents map[uuid.UUID]*Parent
	links   []*PatientParent
}

func newMockParentRepo() *mockParentRepo {
	return &mockParentRepo{parents: make(map[uuid.UUID]*Parent)}
}

func (m *mockParentRepo) Create(_ context.Context, p *Parent) error {
	p.ID = uuid.New()
	m.parents[p.ID] = p
	return nil
}

func (m *mockParentRepo) GetByID(_ context.Context, id uuid.UUID) (*Parent, error) {
	p, ok := m.parents[id]
	if !ok {
		return nil, fmt.Errorf("parent not found")
	}
	return p, nil
}

func (m *mockParentRepo) Update(_ context.Context, p *Parent) error {
	if _, ok := m.parents[p.ID]; !ok {
		return fmt.Errorf("parent not found")
	}
	m.parents[p.ID] = p
	return nil
}

func (m *mockParentRepo) Link(_ context.Context, link *PatientParent) error {
	m.links = append(m.links, link)
	return nil
}

func (m *mockParentRepo) Unlink(_ context.Context, patientID, parentID uuid.UUID) error {
	for i, l := range m.links {
		if l.PatientID == patientID && l.ParentID == parentID {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("link not found")
}

func (m *mockParentRepo) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*Parent, error) {
	var out []*Parent
	for _, l := range m.links {
		if l.PatientID == patientID {
			out = append(out, m.parents[l.ParentID])
		}
	}
	return out, nil
}

func (m *mockParentRepo) ListLinks(_ context.Context, patientID uuid.UUID) ([]*PatientParent, error) {
	var out []*PatientParent
	for _, l := range m.links {
		if l.PatientID == patientID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockMoveRepo struct {
	moves []*SchoolMove
}

func (m *mockMoveRepo) Create(_ context.Context, mv *SchoolMove) error {
	mv.ID = uuid.New()
	m.moves = append(m.moves, mv)
	return nil
}

func (m *mockMoveRepo) ListPending(_ context.Context, _, _ int) ([]*SchoolMove, int, error) {
	return m.moves, len(m.moves), nil
}

// =========== Helpers ===========

func newTestService() (*Service, *mockRepo, *mockMoveRepo) {
	patients := newMockRepo()
	moves := &mockMoveRepo{}
	return NewService(patients, newMockParentRepo(), moves), patients, moves
}

func testPatient() *Patient {
	return &Patient{
		OrgID:       uuid.New(),
		GivenName:   "Maya",
		FamilyName:  "Okafor",
		DateOfBirth: time.Date(2012, time.March, 4, 0, 0, 0, 0, time.UTC),
	}
}

// =========== Tests ===========

func TestCreatePatientValidation(t *testing.T) {
	svc, _, _ := newTestService()

	p := testPatient()
	p.GivenName = ""
	if err := svc.CreatePatient(context.Background(), p); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing name, got %v", err)
	}

	p = testPatient()
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}
}

func TestArchiveRequiresReason(t *testing.T) {
	svc, _, _ := newTestService()

	p := testPatient()
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	if err := svc.ArchivePatient(context.Background(), p.ID, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty reason, got %v", err)
	}
	if err := svc.ArchivePatient(context.Background(), p.ID, "duplicate record"); err != nil {
		t.Fatalf("ArchivePatient: %v", err)
	}

	// Archived patients reject further updates.
	p.GivenName = "Mia"
	if err := svc.UpdatePatient(context.Background(), p); !errors.Is(err, ErrArchived) {
		t.Fatalf("expected ErrArchived, got %v", err)
	}
}

func TestUpdateSchoolBackfillsOnlyWhenUnset(t *testing.T) {
	svc, patients, moves := newTestService()
	ctx := context.Background()

	p := testPatient()
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	first := uuid.New()
	if err := svc.UpdateSchool(ctx, p.ID, first, "consent_form"); err != nil {
		t.Fatalf("UpdateSchool: %v", err)
	}
	got, _ := patients.GetByID(ctx, p.ID)
	if got.SchoolID == nil || *got.SchoolID != first {
		t.Fatal("school should be backfilled when previously unset")
	}
	if len(moves.moves) != 0 {
		t.Fatal("backfill must not create a school move")
	}

	// Same school again is a no-op.
	if err := svc.UpdateSchool(ctx, p.ID, first, "consent_form"); err != nil {
		t.Fatalf("UpdateSchool (same school): %v", err)
	}
	if len(moves.moves) != 0 {
		t.Fatal("re-asserting the same school must not create a move")
	}

	// A different school is parked as a pending move, not applied.
	second := uuid.New()
	if err := svc.UpdateSchool(ctx, p.ID, second, "consent_form"); err != nil {
		t.Fatalf("UpdateSchool (different school): %v", err)
	}
	got, _ = patients.GetByID(ctx, p.ID)
	if *got.SchoolID != first {
		t.Fatal("recorded school must not change when already set")
	}
	if len(moves.moves) != 1 {
		t.Fatalf("expected 1 pending move, got %d", len(moves.moves))
	}
	mv := moves.moves[0]
	if mv.ToSchoolID != second || mv.FromSchoolID == nil || *mv.FromSchoolID != first {
		t.Fatalf("move recorded wrong schools: %+v", mv)
	}
}

func TestLinkParentValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	parent := &Parent{FullName: "Chidi Okafor"}
	if err := svc.CreateParent(ctx, parent); err != nil {
		t.Fatalf("CreateParent: %v", err)
	}

	p := testPatient()
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	link := &PatientParent{PatientID: p.ID, ParentID: parent.ID, Relationship: "cousin"}
	if err := svc.LinkParent(ctx, link); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown relationship, got %v", err)
	}

	link.Relationship = RelationshipFather
	if err := svc.LinkParent(ctx, link); err != nil {
		t.Fatalf("LinkParent: %v", err)
	}

	parents, err := svc.ParentsOf(ctx, p.ID)
	if err != nil {
		t.Fatalf("ParentsOf: %v", err)
	}
	if len(parents) != 1 || parents[0].FullName != "Chidi Okafor" {
		t.Fatalf("unexpected parents: %+v", parents)
	}
}
