package survey

import (
	"time"

	"github.com/google/uuid"
)

// ResponseRecord maps to the pretest_responses table.
type ResponseRecord struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	ParticipantNumber    string    `db:"participant_number" json:"participant_number"`
	IsRegisteredNurse    bool      `db:"is_registered_nurse" json:"is_registered_nurse"`
	ProvidesConsent      bool      `db:"provides_consent" json:"provides_consent"`
	UnderstandsVoluntary bool      `db:"understands_voluntary" json:"understands_voluntary"`
	// Scores holds one entry per ItemKeys() key. A nil value is stored as
	// NULL and means the answer could not be read as an integer.
	Scores             map[string]*int `json:"scores"`
	BurnoutLevel       *string         `db:"burnout_level" json:"burnout_level,omitempty"`
	AdditionalComments string          `db:"additional_comments" json:"additional_comments"`
	SubmittedAt        time.Time       `db:"submitted_at" json:"submitted_at"`
}

// DemographicRecord maps to the demographic_surveys table. The *Other fields
// are non-nil only when the paired answer is its "other" sentinel.
type DemographicRecord struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	ParticipantID            string    `db:"participant_id" json:"participant_id"`
	AgeGroup                 string    `db:"age_group" json:"age_group"`
	Gender                   string    `db:"gender" json:"gender"`
	MaritalStatus            string    `db:"marital_status" json:"marital_status"`
	EducationalQualification string    `db:"educational_qualification" json:"educational_qualification"`
	EducationalOther         *string   `db:"educational_other" json:"educational_other"`
	Designation              string    `db:"designation" json:"designation"`
	IncomeLevel              string    `db:"income_level" json:"income_level"`
	YearsExperience          string    `db:"years_experience" json:"years_experience"`
	WorkingUnit              string    `db:"working_unit" json:"working_unit"`
	WorkingUnitOther         *string   `db:"working_unit_other" json:"working_unit_other"`
	WorkShift                string    `db:"work_shift" json:"work_shift"`
	HoursPerDay              string    `db:"hours_per_day" json:"hours_per_day"`
	NightShiftsPerMonth      string    `db:"night_shifts_per_month" json:"night_shifts_per_month"`
	NightShiftsOther         *string   `db:"night_shifts_other" json:"night_shifts_other"`
	PlaceOfResidence         string    `db:"place_of_residence" json:"place_of_residence"`
	ResidenceOther           *string   `db:"residence_other" json:"residence_other"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
}

// BuildResponse coerces the scale answers to integers and stamps the record.
func BuildResponse(participantNumber string, a *Answers, now time.Time) *ResponseRecord {
	scores := make(map[string]*int, len(ItemKeys()))
	for k, v := range a.ScaleAnswers() {
		if n, err := v.Int(); err == nil {
			scores[k] = &n
		} else {
			scores[k] = nil
		}
	}
	var burnout *string
	if a.BurnoutLevel != "" {
		b := a.BurnoutLevel
		burnout = &b
	}
	return &ResponseRecord{
		ID:                   uuid.New(),
		ParticipantNumber:    participantNumber,
		IsRegisteredNurse:    a.IsRegisteredNurse,
		ProvidesConsent:      a.ProvidesConsent,
		UnderstandsVoluntary: a.UnderstandsVoluntary,
		Scores:               scores,
		BurnoutLevel:         burnout,
		AdditionalComments:   a.AdditionalComments,
		SubmittedAt:          now.UTC(),
	}
}

// BuildDemographic copies the categorical answers and keeps each free-text
// override only when its sentinel option was chosen.
func BuildDemographic(participantNumber string, a *Answers, now time.Time) *DemographicRecord {
	return &DemographicRecord{
		ID:                       uuid.New(),
		ParticipantID:            participantNumber,
		AgeGroup:                 a.AgeGroup,
		Gender:                   a.Gender,
		MaritalStatus:            a.MaritalStatus,
		EducationalQualification: a.EducationalQualification,
		EducationalOther:         otherIf(a.EducationalQualification, EducationOther, a.EducationalOther),
		Designation:              a.Designation,
		IncomeLevel:              a.IncomeLevel,
		YearsExperience:          a.YearsExperience,
		WorkingUnit:              a.WorkingUnit,
		WorkingUnitOther:         otherIf(a.WorkingUnit, WorkingUnitOther, a.WorkingUnitOther),
		WorkShift:                a.WorkShift,
		HoursPerDay:              a.HoursPerDay,
		NightShiftsPerMonth:      a.NightShiftsPerMonth,
		NightShiftsOther:         otherIf(a.NightShiftsPerMonth, NightShiftsOther, a.NightShiftsOther),
		PlaceOfResidence:         a.PlaceOfResidence,
		ResidenceOther:           otherIf(a.PlaceOfResidence, ResidenceOther, a.ResidenceOther),
		CreatedAt:                now.UTC(),
	}
}

func otherIf(choice, sentinel, text string) *string {
	if choice != sentinel {
		return nil
	}
	return &text
}
