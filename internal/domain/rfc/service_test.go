package rfc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
	"github.com/eadvocate/eadvocate/internal/platform/events"
)

var nopLogger = zerolog.Nop()

func (f *fixture) draft(t *testing.T) *RequestForCare {
	t.Helper()
	a := validAttrs()
	a.PatientID = f.patient
	r, err := f.svc.CreateDraft(context.Background(), f.client, a)
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	return r
}

func (f *fixture) publish(t *testing.T, r *RequestForCare, vis Status, pros ...uuid.UUID) {
	t.Helper()
	f.watch[f.client] = append(f.watch[f.client], pros...)
	if _, err := f.svc.Publish(context.Background(), f.client, r.ID, PublishInput{Visibility: vis, ProfessionalIDs: pros}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

// submitted returns a professional's submitted proposal on a public request.
func (f *fixture) submitted(t *testing.T, r *RequestForCare, name string) *Proposal {
	t.Helper()
	pro := uuid.New()
	f.names[pro] = name
	p, err := f.svc.SaveProposal(context.Background(), pro, r.ID, SaveInput{
		Answers: Answers{PayRange: "20-25"},
		Submit:  true,
	})
	if err != nil {
		t.Fatalf("SaveProposal: %v", err)
	}
	return p
}

func expectCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if !apperr.Is(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestCreateDraft(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	if r.Status != StatusDraft {
		t.Errorf("expected draft, got %s", r.Status)
	}
	entries := f.rfcs.ledger[r.ID]
	if len(entries) != 1 || entries[0].Status != StatusDraft {
		t.Errorf("expected single draft ledger entry, got %v", entries)
	}
	if types := f.pub.types(); len(types) != 1 || types[0] != events.RFCCreated {
		t.Errorf("expected rfc.created, got %v", types)
	}
}

func TestCreateDraft_ForeignPatient(t *testing.T) {
	f := newFixture()
	a := validAttrs()
	_, err := f.svc.CreateDraft(context.Background(), f.client, a)
	expectCode(t, err, apperr.CodeValidation)
	if len(f.rfcs.store) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestCreateDraft_Invalid(t *testing.T) {
	f := newFixture()
	a := validAttrs()
	a.PatientID = f.patient
	a.Name = ""
	_, err := f.svc.CreateDraft(context.Background(), f.client, a)
	expectCode(t, err, apperr.CodeValidation)
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Fields["name"] == "" {
		t.Errorf("expected name field error, got %v", err)
	}
}

func TestUpdateDraft(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	a := validAttrs()
	a.PatientID = f.patient
	a.Name = "Morning support"

	got, err := f.svc.UpdateDraft(context.Background(), f.client, r.ID, a)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Morning support" || f.rfcs.store[r.ID].Name != "Morning support" {
		t.Errorf("expected updated name, got %q", got.Name)
	}
}

func TestUpdateDraft_AfterPublish(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)

	a := validAttrs()
	a.PatientID = f.patient
	_, err := f.svc.UpdateDraft(context.Background(), f.client, r.ID, a)
	expectCode(t, err, apperr.CodePreconditionFailed)
}

func TestUpdateDraft_NotOwner(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	a := validAttrs()
	_, err := f.svc.UpdateDraft(context.Background(), uuid.New(), r.ID, a)
	expectCode(t, err, apperr.CodeNotFound)
}

func TestPublish_Public(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	pro := uuid.New()
	f.publish(t, r, StatusPublic, pro)

	if f.rfcs.store[r.ID].Status != StatusPublic {
		t.Errorf("expected public, got %s", f.rfcs.store[r.ID].Status)
	}
	p, err := f.proposals.Find(context.Background(), r.ID, pro)
	if err != nil {
		t.Fatalf("expected invited proposal: %v", err)
	}
	if !p.Active || p.Status != ProposalUnknown {
		t.Errorf("expected active unknown proposal, got %+v", p)
	}
	if entries := f.proposals.ledger[p.ID]; len(entries) != 1 || entries[0].Status != ProposalUnknown {
		t.Errorf("expected seeded proposal ledger, got %v", entries)
	}
	if entries := f.rfcs.ledger[r.ID]; len(entries) != 2 || entries[1].Status != StatusPublic {
		t.Errorf("expected draft then public, got %v", entries)
	}
}

func TestPublish_Twice(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	_, err := f.svc.Publish(context.Background(), f.client, r.ID, PublishInput{Visibility: StatusPrivate, AllWatched: true})
	expectCode(t, err, apperr.CodePreconditionFailed)
}

func TestPublish_InvalidVisibility(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	_, err := f.svc.Publish(context.Background(), f.client, r.ID, PublishInput{Visibility: StatusCancelled})
	expectCode(t, err, apperr.CodeValidation)
}

func TestPublish_NotOwner(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	_, err := f.svc.Publish(context.Background(), uuid.New(), r.ID, PublishInput{Visibility: StatusPublic})
	expectCode(t, err, apperr.CodeNotFound)
}

func TestPublish_PrivateAllWatched(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	a, b := uuid.New(), uuid.New()
	f.watch[f.client] = []uuid.UUID{a, b}

	if _, err := f.svc.Publish(context.Background(), f.client, r.ID, PublishInput{
		Visibility: StatusPrivate, ProfessionalIDs: []uuid.UUID{a, a}, AllWatched: true,
	}); err != nil {
		t.Fatal(err)
	}
	if len(f.proposals.store) != 2 {
		t.Errorf("expected one proposal per watched professional, got %d", len(f.proposals.store))
	}
	for _, pro := range []uuid.UUID{a, b} {
		if _, err := f.svc.GetForProfessional(context.Background(), pro, r.ID); err != nil {
			t.Errorf("watched professional should see private request: %v", err)
		}
	}
	if _, err := f.svc.GetForProfessional(context.Background(), uuid.New(), r.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("stranger must not see private request, got %v", err)
	}
}

func TestPublish_PrivateEmpty(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	_, err := f.svc.Publish(context.Background(), f.client, r.ID, PublishInput{Visibility: StatusPrivate})
	expectCode(t, err, apperr.CodeValidation)
	if f.rfcs.store[r.ID].Status != StatusDraft {
		t.Error("request should remain a draft")
	}
}

func TestPublish_UnwatchedProfessional(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	_, err := f.svc.Publish(context.Background(), f.client, r.ID, PublishInput{
		Visibility: StatusPublic, ProfessionalIDs: []uuid.UUID{uuid.New()},
	})
	expectCode(t, err, apperr.CodeValidation)
}

func TestCancel(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)

	got, err := f.svc.Cancel(context.Background(), f.client, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
	_, err = f.svc.Cancel(context.Background(), f.client, r.ID)
	expectCode(t, err, apperr.CodePreconditionFailed)
}

func TestCancel_PastDeadline(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.now = time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC)
	_, err := f.svc.Cancel(context.Background(), f.client, r.ID)
	expectCode(t, err, apperr.CodePreconditionFailed)
}

func TestCancel_HidesFromProfessionals(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	pro := uuid.New()
	if _, err := f.svc.OpenOrCreateProposal(context.Background(), pro, r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(context.Background(), f.client, r.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.SaveProposal(context.Background(), pro, r.ID, SaveInput{Answers: Answers{PayRange: "20"}, Submit: true})
	expectCode(t, err, apperr.CodeNotFound)
}

func TestListForProfessional_Visibility(t *testing.T) {
	f := newFixture()
	pro := uuid.New()

	public := f.draft(t)
	f.publish(t, public, StatusPublic)
	invited := f.draft(t)
	f.publish(t, invited, StatusPrivate, pro)
	other := f.draft(t)
	f.publish(t, other, StatusPrivate, uuid.New())
	f.draft(t)

	items, total, err := f.svc.ListForProfessional(context.Background(), pro, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("expected public + invited private, got %d", total)
	}
	for _, r := range items {
		if r.ID == other.ID {
			t.Error("uninvited private request leaked")
		}
	}
}

func TestListForClient_DraftOnly(t *testing.T) {
	f := newFixture()
	f.draft(t)
	published := f.draft(t)
	f.publish(t, published, StatusPublic)

	_, total, _ := f.svc.ListForClient(context.Background(), f.client, false, 20, 0)
	if total != 2 {
		t.Errorf("expected 2, got %d", total)
	}
	_, total, _ = f.svc.ListForClient(context.Background(), f.client, true, 20, 0)
	if total != 1 {
		t.Errorf("expected 1 draft, got %d", total)
	}
}

func TestOpenOrCreateProposal(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	pro := uuid.New()

	p, err := f.svc.OpenOrCreateProposal(context.Background(), pro, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Viewed {
		t.Error("expected viewed")
	}
	again, err := f.svc.OpenOrCreateProposal(context.Background(), pro, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != p.ID {
		t.Error("expected the same proposal")
	}
	if n := len(f.proposals.ledger[p.ID]); n != 1 {
		t.Errorf("expected one ledger entry, got %d", n)
	}
}

func TestOpenOrCreateProposal_Draft(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	_, err := f.svc.OpenOrCreateProposal(context.Background(), uuid.New(), r.ID)
	expectCode(t, err, apperr.CodeNotFound)
}

func TestSaveProposal_Resubmit(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	p := f.submitted(t, r, "Ann")
	first := *p.Submitted

	f.now = f.now.Add(time.Hour)
	yes := true
	again, err := f.svc.SaveProposal(context.Background(), p.UserID, r.ID, SaveInput{
		Answers: Answers{PayRange: "22", Services: &yes},
		Submit:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !again.Submitted.After(first) {
		t.Error("expected resubmission to overwrite the timestamp")
	}
	if again.Services == nil || !*again.Services {
		t.Error("expected services answer saved")
	}
}

func TestSaveProposal_DraftKeepsUnsubmitted(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	p, err := f.svc.SaveProposal(context.Background(), uuid.New(), r.ID, SaveInput{Answers: Answers{Extra: "later"}})
	if err != nil {
		t.Fatal(err)
	}
	if p.IsSubmitted() {
		t.Error("save without submit must not submit")
	}
}

func TestAcceptReject(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	p := f.submitted(t, r, "Ann")

	got, err := f.svc.AcceptProposal(context.Background(), f.client, r.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != ProposalAccepted {
		t.Errorf("expected accepted, got %s", got.Status)
	}
	if _, err := f.svc.AcceptProposal(context.Background(), f.client, r.ID, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RejectProposal(context.Background(), f.client, r.ID, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AcceptProposal(context.Background(), f.client, r.ID, p.ID); err != nil {
		t.Fatal(err)
	}

	entries, err := f.svc.ProposalHistory(context.Background(), f.client, r.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []ProposalStatus{ProposalUnknown, ProposalAccepted, ProposalRejected, ProposalAccepted}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Status != want[i] {
			t.Errorf("entry %d: got %s, want %s", i, e.Status, want[i])
		}
	}
}

// invited publishes r privately to one professional and returns the invitation.
func (f *fixture) invited(t *testing.T, r *RequestForCare) *Proposal {
	t.Helper()
	pro := uuid.New()
	f.publish(t, r, StatusPrivate, pro)
	p, err := f.proposals.Find(context.Background(), r.ID, pro)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	return p
}

func TestAccept_InvitedBeforeSubmit(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	p := f.invited(t, r)

	got, err := f.svc.AcceptProposal(context.Background(), f.client, r.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != ProposalAccepted {
		t.Errorf("expected accepted, got %s", got.Status)
	}
	if _, err := f.svc.RejectProposal(context.Background(), f.client, r.ID, p.ID); err != nil {
		t.Fatal(err)
	}
}

func TestAccept_NotOwner(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	p := f.submitted(t, r, "Ann")

	_, err := f.svc.AcceptProposal(context.Background(), uuid.New(), r.ID, p.ID)
	expectCode(t, err, apperr.CodeNotFound)
}

func TestContract_SameJob(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	p := f.submitted(t, r, "Ann")

	first, err := f.svc.ContractProposal(context.Background(), f.client, r.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.ContractProposal(context.Background(), f.client, r.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected same job id, got %s and %s", first, second)
	}
	if f.jobs.calls != 2 {
		t.Errorf("expected job creator invoked once per call, got %d", f.jobs.calls)
	}
	if f.proposals.store[p.ID].Status != ProposalAccepted {
		t.Error("contracted proposal should be accepted")
	}
	types := f.pub.types()
	if types[len(types)-1] != events.ProposalContracted {
		t.Errorf("expected proposal.contracted last, got %v", types)
	}
}

func TestContract_InvitedBeforeSubmit(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	p := f.invited(t, r)

	jobID, err := f.svc.ContractProposal(context.Background(), f.client, r.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if jobID == uuid.Nil || f.jobs.calls != 1 {
		t.Errorf("expected one job, got %s after %d calls", jobID, f.jobs.calls)
	}
	if got, _ := f.proposals.GetByID(context.Background(), p.ID); got.Status != ProposalAccepted {
		t.Errorf("expected accepted, got %s", got.Status)
	}
}

func TestReview_ExcludesRejected(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	ann := f.submitted(t, r, "Ann")
	bob := f.submitted(t, r, "Bob")
	f.submitted(t, r, "Cy")
	dee := uuid.New()
	f.names[dee] = "Dee"
	f.svc.OpenOrCreateProposal(context.Background(), dee, r.ID)
	f.svc.RejectProposal(context.Background(), f.client, r.ID, bob.ID)
	f.svc.AcceptProposal(context.Background(), f.client, r.ID, ann.ID)

	items, err := f.svc.Review(context.Background(), f.client, r.ID, false, "name")
	if err != nil {
		t.Fatal(err)
	}
	if got := names(items); len(got) != 3 || got[0] != "Ann" || got[1] != "Cy" || got[2] != "Dee" {
		t.Fatalf("expected Ann, Cy, Dee; got %v", got)
	}

	bySubmitted, err := f.svc.Review(context.Background(), f.client, r.ID, false, "-submitted")
	if err != nil {
		t.Fatal(err)
	}
	if last := bySubmitted[len(bySubmitted)-1]; last.ResponderName != "Dee" {
		t.Errorf("expected the unsubmitted proposal last, got %s", last.ResponderName)
	}

	short, err := f.svc.Review(context.Background(), f.client, r.ID, true, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(short) != 1 || short[0].ID != ann.ID {
		t.Errorf("expected only accepted in short list, got %v", names(short))
	}
}

func TestReview_ListsInvitedBeforeSubmit(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	p := f.invited(t, r)

	items, err := f.svc.Review(context.Background(), f.client, r.ID, false, "submitted")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != p.ID {
		t.Errorf("expected the invitation in review, got %d items", len(items))
	}
}

func TestReview_Descending(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	f.submitted(t, r, "Ann")
	f.now = f.now.Add(time.Minute)
	f.submitted(t, r, "Bob")

	items, err := f.svc.Review(context.Background(), f.client, r.ID, false, "-submitted")
	if err != nil {
		t.Fatal(err)
	}
	if items[0].ResponderName != "Bob" {
		t.Errorf("expected newest first, got %v", names(items))
	}
}

func TestReview_UnknownOrder(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	_, err := f.svc.Review(context.Background(), f.client, r.ID, false, "rating")
	expectCode(t, err, apperr.CodeValidation)
}

func TestProposalDetail_Unsubmitted(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	p, _ := f.svc.OpenOrCreateProposal(context.Background(), uuid.New(), r.ID)

	_, err := f.svc.ProposalDetail(context.Background(), f.client, r.ID, p.ID)
	expectCode(t, err, apperr.CodeNotFound)
}

func TestProposalHistory_Stranger(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	p := f.submitted(t, r, "Ann")

	if _, err := f.svc.ProposalHistory(context.Background(), p.UserID, r.ID, p.ID); err != nil {
		t.Errorf("professional should see own history: %v", err)
	}
	_, err := f.svc.ProposalHistory(context.Background(), uuid.New(), r.ID, p.ID)
	expectCode(t, err, apperr.CodeNotFound)
}

func TestStatusHistory(t *testing.T) {
	f := newFixture()
	r := f.draft(t)
	f.publish(t, r, StatusPrivate, uuid.New())
	f.svc.Cancel(context.Background(), f.client, r.ID)

	entries, err := f.svc.StatusHistory(context.Background(), f.client, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []Status{StatusDraft, StatusPrivate, StatusCancelled}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Status != want[i] {
			t.Errorf("entry %d: got %s, want %s", i, e.Status, want[i])
		}
	}
}

func names(items []*Proposal) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ResponderName
	}
	return out
}

func TestListMine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pro := uuid.New()
	for i := 0; i < 2; i++ {
		r := f.draft(t)
		f.publish(t, r, StatusPublic)
		if _, err := f.svc.OpenOrCreateProposal(ctx, pro, r.ID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.svc.OpenOrCreateProposal(ctx, uuid.New(), f.draftPublished(t).ID); err != nil {
		t.Fatal(err)
	}

	items, total, err := f.svc.ListMine(ctx, pro, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 proposals, got %d/%d", len(items), total)
	}
	for _, p := range items {
		if p.UserID != pro {
			t.Errorf("foreign proposal %s in list", p.ID)
		}
	}
}

func (f *fixture) draftPublished(t *testing.T) *RequestForCare {
	t.Helper()
	r := f.draft(t)
	f.publish(t, r, StatusPublic)
	return r
}
