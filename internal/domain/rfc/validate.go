package rfc

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
)

const (
	maxNameLen      = 255
	maxFrequencyLen = 100
	maxPayRangeLen  = 20
	maxRatingLen    = 10
)

// Attributes is the client-editable part of a request for care.
type Attributes struct {
	PatientID             uuid.UUID   `json:"patient_id"`
	Name                  string      `json:"name"`
	Description           string      `json:"description"`
	Need                  *string     `json:"need"`
	Services              []string    `json:"services"`
	Skills                []string    `json:"skills"`
	Locations             []string    `json:"locations"`
	Languages             []string    `json:"languages"`
	StreetAddress1        string      `json:"street_address_1"`
	StreetAddress2        string      `json:"street_address_2"`
	City                  string      `json:"city"`
	Province              string      `json:"province"`
	PostalCode            string      `json:"postal_code"`
	Gender                string      `json:"gender"`
	Frequency             string      `json:"frequency"`
	TimeOfDay             *string     `json:"time_of_day"`
	StartDate             pgtype.Date `json:"start_date"`
	EndDate               pgtype.Date `json:"end_date"`
	MinPay                *float64    `json:"min_pay"`
	MaxPay                *float64    `json:"max_pay"`
	DeadlineToRespond     pgtype.Date `json:"deadline_to_respond"`
	EvaluationCriteria    string      `json:"evaluation_criteria"`
	CriminalCheckRequired *bool       `json:"criminal_check_required"`
}

// normalize trims text, dedupes lists, defaults gender and rewrites
// time_of_day to HH:MM. It returns per-field problems.
func (a *Attributes) normalize() map[string]string {
	fields := map[string]string{}

	a.Name = strings.TrimSpace(a.Name)
	a.Description = strings.TrimSpace(a.Description)
	a.Frequency = strings.TrimSpace(a.Frequency)
	a.EvaluationCriteria = strings.TrimSpace(a.EvaluationCriteria)
	a.Services = normalizeList(a.Services)
	a.Skills = normalizeList(a.Skills)
	a.Locations = normalizeList(a.Locations)
	a.Languages = normalizeList(a.Languages)
	if a.Need != nil && strings.TrimSpace(*a.Need) == "" {
		a.Need = nil
	}

	if a.PatientID == uuid.Nil {
		fields["patient_id"] = "required"
	}
	switch {
	case a.Name == "":
		fields["name"] = "required"
	case utf8.RuneCountInString(a.Name) > maxNameLen:
		fields["name"] = "must be at most 255 characters"
	}
	if a.Description == "" {
		fields["description"] = "required"
	}
	if len(a.Locations) == 0 {
		fields["locations"] = "at least one location is required"
	}
	if len(a.Languages) == 0 {
		fields["languages"] = "at least one language is required"
	}

	a.Gender = strings.ToUpper(strings.TrimSpace(a.Gender))
	switch a.Gender {
	case "":
		a.Gender = GenderNoPreference
	case GenderMale, GenderFemale, GenderNoPreference:
	default:
		fields["gender"] = "must be one of M, F, N"
	}

	switch {
	case a.Frequency == "":
		fields["frequency"] = "required"
	case utf8.RuneCountInString(a.Frequency) > maxFrequencyLen:
		fields["frequency"] = "must be at most 100 characters"
	}

	if a.TimeOfDay != nil {
		if strings.TrimSpace(*a.TimeOfDay) == "" {
			a.TimeOfDay = nil
		} else if t, ok := parseTimeOfDay(*a.TimeOfDay); ok {
			a.TimeOfDay = &t
		} else {
			fields["time_of_day"] = "expected HH:MM or H:MM AM/PM"
		}
	}

	if !a.StartDate.Valid {
		fields["start_date"] = "required"
	} else if a.EndDate.Valid && a.EndDate.Time.Before(a.StartDate.Time) {
		fields["end_date"] = "must not be before start_date"
	}

	switch {
	case a.MinPay == nil:
		fields["min_pay"] = "required"
	case *a.MinPay < 0:
		fields["min_pay"] = "must not be negative"
	}
	switch {
	case a.MaxPay == nil:
		fields["max_pay"] = "required"
	case *a.MaxPay < 0:
		fields["max_pay"] = "must not be negative"
	case a.MinPay != nil && *a.MinPay > *a.MaxPay:
		fields["max_pay"] = "must be at least min_pay"
	}

	if !a.DeadlineToRespond.Valid {
		fields["deadline_to_respond"] = "required"
	}
	if a.EvaluationCriteria == "" {
		fields["evaluation_criteria"] = "required"
	}
	if a.CriminalCheckRequired == nil {
		fields["criminal_check_required"] = "required"
	}
	return fields
}

// apply copies validated attributes onto r.
func (a *Attributes) apply(r *RequestForCare) {
	r.PatientID = a.PatientID
	r.Name = a.Name
	r.Description = a.Description
	r.Need = a.Need
	r.Services = a.Services
	r.Skills = a.Skills
	r.Locations = a.Locations
	r.Languages = a.Languages
	r.StreetAddress1 = strings.TrimSpace(a.StreetAddress1)
	r.StreetAddress2 = strings.TrimSpace(a.StreetAddress2)
	r.City = strings.TrimSpace(a.City)
	r.Province = strings.TrimSpace(a.Province)
	r.PostalCode = strings.TrimSpace(a.PostalCode)
	r.Gender = a.Gender
	r.Frequency = a.Frequency
	r.TimeOfDay = a.TimeOfDay
	r.StartDate = a.StartDate
	r.EndDate = a.EndDate
	r.MinPay = *a.MinPay
	r.MaxPay = *a.MaxPay
	r.DeadlineToRespond = a.DeadlineToRespond
	r.EvaluationCriteria = a.EvaluationCriteria
	r.CriminalCheckRequired = *a.CriminalCheckRequired
}

var timeOfDayLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// parseTimeOfDay accepts 24-hour or 12-hour input and returns "HH:MM".
func parseTimeOfDay(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

func normalizeList(in []string) []string {
	out := lo.Uniq(lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}

// validateAnswers checks a proposal's free-text limits. Submission also
// requires a pay range.
func validateAnswers(a *Answers, rating string, submit bool) map[string]string {
	fields := map[string]string{}
	a.PayRange = strings.TrimSpace(a.PayRange)
	if utf8.RuneCountInString(a.PayRange) > maxPayRangeLen {
		fields["pay_range"] = "must be at most 20 characters"
	} else if submit && a.PayRange == "" {
		fields["pay_range"] = "required to submit"
	}
	if utf8.RuneCountInString(rating) > maxRatingLen {
		fields["rating"] = "must be at most 10 characters"
	}
	return fields
}
