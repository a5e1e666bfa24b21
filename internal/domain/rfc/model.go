package rfc

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Status is the lifecycle state of a request for care.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublic    Status = "public"
	StatusPrivate   Status = "private"
	StatusCancelled Status = "cancelled"
)

// Gender preference for the professional.
const (
	GenderMale         = "M"
	GenderFemale       = "F"
	GenderNoPreference = "N"
)

// RequestForCare is a client's posted care need for one of their patients.
// Status is the current lifecycle state; the full history lives in the
// status ledger and is written in the same transaction.
type RequestForCare struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	PatientID uuid.UUID `json:"patient_id"`

	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Need           *string  `json:"need,omitempty"`
	Services       []string `json:"services"`
	Skills         []string `json:"skills"`
	Locations      []string `json:"locations"`
	Languages      []string `json:"languages"`
	StreetAddress1 string   `json:"street_address_1"`
	StreetAddress2 string   `json:"street_address_2"`
	City           string   `json:"city"`
	Province       string   `json:"province"`
	PostalCode     string   `json:"postal_code"`
	Gender         string   `json:"gender"`
	Frequency      string   `json:"frequency"`
	// TimeOfDay is "HH:MM" on a 24-hour clock, or nil.
	TimeOfDay *string     `json:"time_of_day,omitempty"`
	StartDate pgtype.Date `json:"start_date"`
	EndDate   pgtype.Date `json:"end_date"`

	MinPay                float64     `json:"min_pay"`
	MaxPay                float64     `json:"max_pay"`
	DeadlineToRespond     pgtype.Date `json:"deadline_to_respond"`
	EvaluationCriteria    string      `json:"evaluation_criteria"`
	CriminalCheckRequired bool        `json:"criminal_check_required"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *RequestForCare) IsEditable() bool {
	return r.Status == StatusDraft
}

// IsPublishable is true for drafts and for records with no status yet.
func (r *RequestForCare) IsPublishable() bool {
	switch r.Status {
	case StatusPublic, StatusPrivate, StatusCancelled:
		return false
	}
	return true
}

func (r *RequestForCare) IsPublished() bool {
	return r.Status == StatusPublic || r.Status == StatusPrivate
}

// IsCancelable requires a live status and a response deadline strictly after
// the calendar day of now.
func (r *RequestForCare) IsCancelable(now time.Time) bool {
	switch r.Status {
	case StatusDraft, StatusPublic, StatusPrivate:
	default:
		return false
	}
	if !r.DeadlineToRespond.Valid {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := r.DeadlineToRespond.Time
	deadline := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return deadline.After(today)
}

// StatusEntry is one immutable row of a request's status ledger.
type StatusEntry struct {
	ID               uuid.UUID `json:"id"`
	RequestForCareID uuid.UUID `json:"request_for_care_id"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

type ProposalStatus string

const (
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
	ProposalUnknown  ProposalStatus = "unknown"
)

// Answers are a professional's responses to the request's criteria. Nil
// tri-state answers mean "unknown".
type Answers struct {
	Services              *bool  `json:"services"`
	Skills                *bool  `json:"skills"`
	Location              *bool  `json:"location"`
	Frequency             *bool  `json:"frequency"`
	Duration              *bool  `json:"duration"`
	Language              *bool  `json:"language"`
	CriminalCheckRequired *bool  `json:"criminal_check_required"`
	PayRange              string `json:"pay_range"`
	EvaluationCriteria    string `json:"evaluation_criteria"`
	Description           string `json:"description"`
	Extra                 string `json:"extra"`
}

// Proposal is a caring professional's response to a request for care. There
// is at most one per (request, professional).
type Proposal struct {
	ID               uuid.UUID `json:"id"`
	RequestForCareID uuid.UUID `json:"request_for_care_id"`
	UserID           uuid.UUID `json:"user_id"`
	Answers
	Active    bool           `json:"active"`
	Viewed    bool           `json:"viewed"`
	Submitted *time.Time     `json:"submitted"`
	Rating    string         `json:"rating"`
	Status    ProposalStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// ResponderName is filled in for client review listings.
	ResponderName string `json:"responder_name,omitempty"`
}

func (p *Proposal) IsSubmitted() bool {
	return p.Submitted != nil
}

// ProposalStatusEntry is one immutable row of a proposal's status ledger.
type ProposalStatusEntry struct {
	ID         uuid.UUID      `json:"id"`
	ProposalID uuid.UUID      `json:"proposal_id"`
	Status     ProposalStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
