package survey

import "context"

type ResponseRepository interface {
	Insert(ctx context.Context, r *ResponseRecord) error
	List(ctx context.Context, limit, offset int) ([]*ResponseRecord, int, error)
}

type DemographicRepository interface {
	Insert(ctx context.Context, d *DemographicRecord) error
	ListByParticipant(ctx context.Context, participantID string) ([]*DemographicRecord, error)
}

// responseColumns returns the pretest_responses columns in insert order.
func responseColumns() []string {
	cols := []string{"id", "participant_number", "is_registered_nurse", "provides_consent", "understands_voluntary"}
	cols = append(cols, ItemKeys()...)
	return append(cols, "burnout_level", "additional_comments", "submitted_at")
}

const demographicCols = `id, participant_id, age_group, gender, marital_status,
	educational_qualification, educational_other, designation, income_level,
	years_experience, working_unit, working_unit_other, work_shift, hours_per_day,
	night_shifts_per_month, night_shifts_other, place_of_residence, residence_other, created_at`

func demographicArgs(d *DemographicRecord) []interface{} {
	return []interface{}{
		d.ID, d.ParticipantID, d.AgeGroup, d.Gender, d.MaritalStatus,
		d.EducationalQualification, d.EducationalOther, d.Designation, d.IncomeLevel,
		d.YearsExperience, d.WorkingUnit, d.WorkingUnitOther, d.WorkShift, d.HoursPerDay,
		d.NightShiftsPerMonth, d.NightShiftsOther, d.PlaceOfResidence, d.ResidenceOther, d.CreatedAt,
	}
}
