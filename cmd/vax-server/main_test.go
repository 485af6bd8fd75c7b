package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/schoolvax/schoolvax/internal/domain/patient"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/domain/status"
)

type fakeChecker struct {
	gate status.Gate
	err  error
}

func (f *fakeChecker) Check(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear, sessionID uuid.UUID) (status.Gate, error) {
	return f.gate, f.err
}

func TestStatusGate_ConvertsGateResult(t *testing.T) {
	g := &statusGate{checker: &fakeChecker{gate: status.Gate{
		Allowed:            true,
		PermittedMethods:   []programme.Method{programme.MethodNasal},
		AdmissibleVariants: []programme.Variant{programme.VariantGelatineFree},
	}}}

	res, err := g.Check(context.Background(), uuid.New(), programme.Flu, "2024/25", uuid.New())
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !res.Allowed {
		t.Error("expected gate to allow")
	}
	if res.AcademicYear != "2024/25" {
		t.Errorf("AcademicYear = %q, want %q", res.AcademicYear, "2024/25")
	}
	if len(res.PermittedMethods) != 1 || res.PermittedMethods[0] != programme.MethodNasal {
		t.Errorf("PermittedMethods = %v", res.PermittedMethods)
	}
	if len(res.AdmissibleVariants) != 1 || res.AdmissibleVariants[0] != programme.VariantGelatineFree {
		t.Errorf("AdmissibleVariants = %v", res.AdmissibleVariants)
	}
}

func TestStatusGate_RefusalCarriesReason(t *testing.T) {
	g := &statusGate{checker: &fakeChecker{gate: status.Gate{
		Allowed: false,
		Reason:  "no consent on record",
	}}}

	res, err := g.Check(context.Background(), uuid.New(), programme.HPV, "2024/25", uuid.New())
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if res.Allowed {
		t.Error("expected gate to refuse")
	}
	if res.Reason != "no consent on record" {
		t.Errorf("Reason = %q", res.Reason)
	}
}

func TestStatusGate_PropagatesError(t *testing.T) {
	g := &statusGate{checker: &fakeChecker{err: errors.New("boom")}}

	if _, err := g.Check(context.Background(), uuid.New(), programme.HPV, "2024/25", uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStatusGate_NilCheckerErrors(t *testing.T) {
	g := &statusGate{}

	if _, err := g.Check(context.Background(), uuid.New(), programme.HPV, "2024/25", uuid.New()); err == nil {
		t.Fatal("expected error from uninitialised gate")
	}
}

type fakePatientGetter struct {
	p   *patient.Patient
	err error
}

func (f *fakePatientGetter) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return f.p, f.err
}

func TestPatientYearGroups_ReturnsYearGroup(t *testing.T) {
	yg := 8
	src := &patientYearGroups{patients: &fakePatientGetter{p: &patient.Patient{YearGroup: &yg}}}

	got, err := src.YearGroup(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("YearGroup returned error: %v", err)
	}
	if got == nil || *got != 8 {
		t.Errorf("YearGroup = %v, want 8", got)
	}
}

func TestPatientYearGroups_UnknownYearGroup(t *testing.T) {
	src := &patientYearGroups{patients: &fakePatientGetter{p: &patient.Patient{}}}

	got, err := src.YearGroup(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("YearGroup returned error: %v", err)
	}
	if got != nil {
		t.Errorf("YearGroup = %v, want nil", got)
	}
}

func TestPatientYearGroups_PropagatesError(t *testing.T) {
	src := &patientYearGroups{patients: &fakePatientGetter{err: errors.New("not found")}}

	if _, err := src.YearGroup(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}
