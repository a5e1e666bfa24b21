package job

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Job is the contract that results from an accepted proposal. There is at
// most one job per proposal.
type Job struct {
	ID               uuid.UUID   `json:"id"`
	ProposalID       uuid.UUID   `json:"proposal_id"`
	RequestForCareID uuid.UUID   `json:"request_for_care_id"`
	ClientID         uuid.UUID   `json:"client_id"`
	ProfessionalID   uuid.UUID   `json:"professional_id"`
	PatientID        uuid.UUID   `json:"patient_id"`
	Title            string      `json:"title"`
	PayRange         string      `json:"pay_range"`
	StartDate        pgtype.Date `json:"start_date"`
	EndDate          pgtype.Date `json:"end_date"`
	Status           Status      `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Involves reports whether userID is a party to the job.
func (j *Job) Involves(userID uuid.UUID) bool {
	return j.ClientID == userID || j.ProfessionalID == userID
}
