package watchlist

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one professional on a client's watch list.
type Entry struct {
	ClientID       uuid.UUID `json:"client_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	CreatedAt      time.Time `json:"created_at"`
}
