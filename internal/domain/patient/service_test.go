package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.IndexKey = ComputeIndexKey(p.Department, p.Status)
	p.Version = 1
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "patient %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return apperr.New(apperr.KindNotFound, "patient %s not found", p.ID)
	}
	p.IndexKey = ComputeIndexKey(p.Department, p.Status)
	p.Version++
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) ApplyTransition(_ context.Context, id uuid.UUID, t TransitionFields) error {
	p, ok := m.patients[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "patient %s not found", id)
	}
	p.CurrentStage = t.Stage
	entryID := t.OpenEntryID
	p.OpenEntryID = &entryID
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByIndexKey(_ context.Context, key string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if p.IndexKey == key {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return apperr.New(apperr.KindNotFound, "patient %s not found", id)
	}
	delete(m.patients, id)
	return nil
}

func seedPatient(t *testing.T, repo *mockRepo) *Patient {
	t.Helper()
	p := &Patient{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Department:   "surgery",
		Status:       StatusActive,
		CurrentStage: "onboarding",
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

// -- Tests --

func TestUpdatePartialFields(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := seedPatient(t, repo)

	newLast := "Byron"
	updated, err := svc.Update(context.Background(), p.ID, UpdateParams{LastName: &newLast})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.LastName != "Byron" {
		t.Errorf("expected last name updated, got %s", updated.LastName)
	}
	if updated.FirstName != "Ada" {
		t.Errorf("expected untouched fields preserved, got %s", updated.FirstName)
	}
	if updated.Department != "surgery" {
		t.Errorf("expected department preserved, got %s", updated.Department)
	}
}

func TestUpdateRecomputesIndexKey(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := seedPatient(t, repo)

	dept := "cardiology"
	status := StatusInactive
	updated, err := svc.Update(context.Background(), p.ID, UpdateParams{
		Department: &dept,
		Status:     &status,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.IndexKey != "cardiology#inactive" {
		t.Errorf("expected recomputed index key, got %s", updated.IndexKey)
	}
}

func TestUpdateRejectsBadStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := seedPatient(t, repo)

	bad := "deceased"
	_, err := svc.Update(context.Background(), p.ID, UpdateParams{Status: &bad})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdateUnknownPatient(t *testing.T) {
	svc := NewService(newMockRepo())

	name := "Grace"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateParams{FirstName: &name})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListByDepartmentDefaultsToActive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	seedPatient(t, repo)

	inactive := &Patient{
		FirstName:  "Grace",
		LastName:   "Hopper",
		Department: "surgery",
		Status:     StatusInactive,
	}
	if err := repo.Create(context.Background(), inactive); err != nil {
		t.Fatal(err)
	}

	got, total, err := svc.List(context.Background(), ListFilter{Department: "surgery"}, 20, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Status != StatusActive {
		t.Errorf("expected only the active patient, got %d", total)
	}
}

func TestListStatusFilterRequiresDepartment(t *testing.T) {
	svc := NewService(newMockRepo())

	_, _, err := svc.List(context.Background(), ListFilter{Status: StatusActive}, 20, 0)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}
