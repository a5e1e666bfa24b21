package patient

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
)

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
		return nil, apperr.NotFound("patient")
	}
	return p, nil
}

func (m *mockRepo) ListByClient(_ context.Context, clientID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.store {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func newTestService() *Service {
	return NewService(newMockRepo())
}

func TestCreatePatient(t *testing.T) {
	svc := newTestService()
	client := uuid.New()
	p := &Patient{FirstName: " Ada ", LastName: "Lovelace"}
	if err := svc.CreatePatient(context.Background(), client, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id to be set")
	}
	if p.ClientID != client {
		t.Error("expected client to own the patient")
	}
	if p.FirstName != "Ada" {
		t.Errorf("expected trimmed first name, got %q", p.FirstName)
	}
	if p.FullName() != "Ada Lovelace" {
		t.Errorf("unexpected full name %q", p.FullName())
	}
}

func TestCreatePatient_MissingNames(t *testing.T) {
	svc := newTestService()
	err := svc.CreatePatient(context.Background(), uuid.New(), &Patient{FirstName: "  "})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var appErr *apperr.Error
	appErr, _ = err.(*apperr.Error)
	if appErr.Fields["first_name"] == "" || appErr.Fields["last_name"] == "" {
		t.Errorf("expected both name fields flagged, got %v", appErr.Fields)
	}
}

func TestGetPatient_OtherClient(t *testing.T) {
	svc := newTestService()
	owner := uuid.New()
	p := &Patient{FirstName: "Ann", LastName: "Owner"}
	svc.CreatePatient(context.Background(), owner, p)

	if _, err := svc.GetPatient(context.Background(), owner, p.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), uuid.New(), p.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found for other client, got %v", err)
	}
}

func TestBelongsTo(t *testing.T) {
	svc := newTestService()
	owner := uuid.New()
	p := &Patient{FirstName: "Ann", LastName: "Owner"}
	svc.CreatePatient(context.Background(), owner, p)

	ok, err := svc.BelongsTo(context.Background(), owner, p.ID)
	if err != nil || !ok {
		t.Errorf("expected patient to belong to owner, got %v %v", ok, err)
	}
	ok, err = svc.BelongsTo(context.Background(), uuid.New(), p.ID)
	if err != nil || ok {
		t.Errorf("expected patient not to belong to stranger, got %v %v", ok, err)
	}
	ok, err = svc.BelongsTo(context.Background(), owner, uuid.New())
	if err != nil || ok {
		t.Errorf("expected unknown patient to be rejected, got %v %v", ok, err)
	}
}

func TestListPatients_ScopedToClient(t *testing.T) {
	svc := newTestService()
	a, b := uuid.New(), uuid.New()
	svc.CreatePatient(context.Background(), a, &Patient{FirstName: "A", LastName: "One"})
	svc.CreatePatient(context.Background(), a, &Patient{FirstName: "A", LastName: "Two"})
	svc.CreatePatient(context.Background(), b, &Patient{FirstName: "B", LastName: "Three"})

	items, total, err := svc.ListPatients(context.Background(), a, 10, 0)
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 patients for client a, got %d/%d", len(items), total)
	}
}
