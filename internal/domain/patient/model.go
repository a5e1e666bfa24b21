package patient

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Patient is the person care is requested for. Each patient belongs to
// exactly one client.
type Patient struct {
	ID        uuid.UUID   `json:"id"`
	ClientID  uuid.UUID   `json:"client_id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	BirthDate pgtype.Date `json:"birth_date"`
	Notes     *string     `json:"notes,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
