package professional

import (
	"time"

	"github.com/google/uuid"
)

// Professional is a caring professional's public profile, keyed by the
// professional's user id.
type Professional struct {
	UserID              uuid.UUID `json:"user_id"`
	DisplayName         string    `json:"display_name"`
	Headline            string    `json:"headline"`
	Skills              []string  `json:"skills"`
	Languages           []string  `json:"languages"`
	HourlyRate          *float64  `json:"hourly_rate,omitempty"`
	CriminalCheckOnFile bool      `json:"criminal_check_on_file"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type SearchFilter struct {
	Query    string
	Skill    string
	Language string
}
