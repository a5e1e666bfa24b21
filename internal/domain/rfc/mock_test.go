package rfc

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
	"github.com/eadvocate/eadvocate/internal/platform/events"
)

type passTx struct{ calls int }

func (p *passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type mockRFCRepo struct {
	store     map[uuid.UUID]*RequestForCare
	ledger    map[uuid.UUID][]*StatusEntry
	proposals *mockProposalRepo
}

func newMockRFCRepo(proposals *mockProposalRepo) *mockRFCRepo {
	return &mockRFCRepo{
		store:     map[uuid.UUID]*RequestForCare{},
		ledger:    map[uuid.UUID][]*StatusEntry{},
		proposals: proposals,
	}
}

func (m *mockRFCRepo) Create(_ context.Context, r *RequestForCare) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRFCRepo) Update(_ context.Context, r *RequestForCare) error {
	cur, ok := m.store[r.ID]
	if !ok {
		return apperr.NotFound("request for care")
	}
	cp := *r
	cp.Status = cur.Status
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRFCRepo) GetByID(_ context.Context, id uuid.UUID) (*RequestForCare, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("request for care")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRFCRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*RequestForCare, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRFCRepo) SetStatus(_ context.Context, id uuid.UUID, status Status) error {
	r, ok := m.store[id]
	if !ok {
		return apperr.NotFound("request for care")
	}
	r.Status = status
	return nil
}

func (m *mockRFCRepo) AppendStatus(_ context.Context, id uuid.UUID, status Status) (*StatusEntry, error) {
	for _, e := range m.ledger[id] {
		if e.Status == status {
			return e, nil
		}
	}
	e := &StatusEntry{ID: uuid.New(), RequestForCareID: id, Status: status, CreatedAt: time.Now()}
	m.ledger[id] = append(m.ledger[id], e)
	return e, nil
}

func (m *mockRFCRepo) Statuses(_ context.Context, id uuid.UUID) ([]*StatusEntry, error) {
	return m.ledger[id], nil
}

func (m *mockRFCRepo) ListForClient(_ context.Context, clientID uuid.UUID, draftOnly bool, limit, offset int) ([]*RequestForCare, int, error) {
	return m.list(func(r *RequestForCare) bool {
		return r.ClientID == clientID && (!draftOnly || r.Status == StatusDraft)
	}, limit, offset)
}

func (m *mockRFCRepo) ListForProfessional(_ context.Context, professionalID uuid.UUID, limit, offset int) ([]*RequestForCare, int, error) {
	return m.list(func(r *RequestForCare) bool {
		if r.Status == StatusPublic {
			return true
		}
		if r.Status != StatusPrivate {
			return false
		}
		_, err := m.proposals.Find(context.Background(), r.ID, professionalID)
		return err == nil
	}, limit, offset)
}

func (m *mockRFCRepo) list(keep func(*RequestForCare) bool, limit, offset int) ([]*RequestForCare, int, error) {
	var out []*RequestForCare
	for _, r := range m.store {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
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

type mockProposalRepo struct {
	store  map[uuid.UUID]*Proposal
	ledger map[uuid.UUID][]*ProposalStatusEntry
}

func newMockProposalRepo() *mockProposalRepo {
	return &mockProposalRepo{
		store:  map[uuid.UUID]*Proposal{},
		ledger: map[uuid.UUID][]*ProposalStatusEntry{},
	}
}

func (m *mockProposalRepo) GetOrCreate(ctx context.Context, rfcID, userID uuid.UUID, active bool) (*Proposal, bool, error) {
	if p, err := m.Find(ctx, rfcID, userID); err == nil {
		return p, false, nil
	}
	p := &Proposal{
		ID:               uuid.New(),
		RequestForCareID: rfcID,
		UserID:           userID,
		Active:           active,
		Status:           ProposalUnknown,
		CreatedAt:        time.Now(),
	}
	cp := *p
	m.store[p.ID] = &cp
	return p, true, nil
}

func (m *mockProposalRepo) GetByID(_ context.Context, id uuid.UUID) (*Proposal, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("proposal")
	}
	cp := *p
	return &cp, nil
}

func (m *mockProposalRepo) Find(_ context.Context, rfcID, userID uuid.UUID) (*Proposal, error) {
	for _, p := range m.store {
		if p.RequestForCareID == rfcID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("proposal")
}

func (m *mockProposalRepo) Update(_ context.Context, p *Proposal) error {
	cur, ok := m.store[p.ID]
	if !ok {
		return apperr.NotFound("proposal")
	}
	cp := *p
	cp.Status = cur.Status
	m.store[p.ID] = &cp
	return nil
}

func (m *mockProposalRepo) SetStatus(_ context.Context, id uuid.UUID, status ProposalStatus) error {
	p, ok := m.store[id]
	if !ok {
		return apperr.NotFound("proposal")
	}
	p.Status = status
	return nil
}

func (m *mockProposalRepo) AppendStatus(_ context.Context, id uuid.UUID, status ProposalStatus) (*ProposalStatusEntry, error) {
	e := &ProposalStatusEntry{ID: uuid.New(), ProposalID: id, Status: status, CreatedAt: time.Now()}
	m.ledger[id] = append(m.ledger[id], e)
	return e, nil
}

func (m *mockProposalRepo) Statuses(_ context.Context, id uuid.UUID) ([]*ProposalStatusEntry, error) {
	return m.ledger[id], nil
}

func (m *mockProposalRepo) ListForReview(_ context.Context, rfcID uuid.UUID, f ReviewFilter) ([]*Proposal, error) {
	var out []*Proposal
	for _, p := range m.store {
		if p.RequestForCareID != rfcID || p.Status == ProposalRejected {
			continue
		}
		if f.ShortList && p.Status != ProposalAccepted {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockProposalRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Proposal, int, error) {
	var out []*Proposal
	for _, p := range m.store {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type fakePatients map[uuid.UUID]uuid.UUID

func (f fakePatients) BelongsTo(_ context.Context, clientID, patientID uuid.UUID) (bool, error) {
	return f[patientID] == clientID, nil
}

type fakeWatchList map[uuid.UUID][]uuid.UUID

func (f fakeWatchList) All(_ context.Context, clientID uuid.UUID) ([]uuid.UUID, error) {
	return f[clientID], nil
}

func (f fakeWatchList) NotWatched(_ context.Context, clientID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	watched := map[uuid.UUID]bool{}
	for _, id := range f[clientID] {
		watched[id] = true
	}
	var out []uuid.UUID
	for _, id := range ids {
		if !watched[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeDirectory map[uuid.UUID]string

func (f fakeDirectory) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if n, ok := f[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

// fakeJobs is get-or-create per proposal and counts calls.
type fakeJobs struct {
	calls int
	jobs  map[uuid.UUID]uuid.UUID
}

func (f *fakeJobs) CreateJobFromProposal(_ context.Context, _ *RequestForCare, p *Proposal) (uuid.UUID, error) {
	f.calls++
	if f.jobs == nil {
		f.jobs = map[uuid.UUID]uuid.UUID{}
	}
	if id, ok := f.jobs[p.ID]; ok {
		return id, nil
	}
	id := uuid.New()
	f.jobs[p.ID] = id
	return id, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// fixture wires a service over in-memory collaborators with one client and
// one patient.
type fixture struct {
	svc       *Service
	rfcs      *mockRFCRepo
	proposals *mockProposalRepo
	watch     fakeWatchList
	names     fakeDirectory
	jobs      *fakeJobs
	pub       *recordingPublisher
	client    uuid.UUID
	patient   uuid.UUID
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		proposals: newMockProposalRepo(),
		watch:     fakeWatchList{},
		names:     fakeDirectory{},
		jobs:      &fakeJobs{},
		pub:       &recordingPublisher{},
		client:    uuid.New(),
		patient:   uuid.New(),
		now:       time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.rfcs = newMockRFCRepo(f.proposals)
	patients := fakePatients{f.patient: f.client}
	f.svc = NewService(&passTx{}, f.rfcs, f.proposals, patients, f.watch, f.names, f.jobs)
	f.svc.SetPublisher(f.pub, nopLogger)
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}
