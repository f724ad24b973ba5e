package survey

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func sqlitePlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type responseRepoSQLite struct{ db *sql.DB }

func NewResponseRepoSQLite(db *sql.DB) ResponseRepository {
	return &responseRepoSQLite{db: db}
}

func (r *responseRepoSQLite) Insert(ctx context.Context, rec *ResponseRecord) error {
	cols := responseColumns()
	args := []interface{}{rec.ID.String(), rec.ParticipantNumber,
		boolInt(rec.IsRegisteredNurse), boolInt(rec.ProvidesConsent), boolInt(rec.UnderstandsVoluntary)}
	for _, k := range ItemKeys() {
		if v := rec.Scores[k]; v != nil {
			args = append(args, *v)
		} else {
			args = append(args, nil)
		}
	}
	args = append(args, rec.BurnoutLevel, rec.AdditionalComments, rec.SubmittedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pretest_responses (`+strings.Join(cols, ", ")+`) VALUES (`+sqlitePlaceholders(len(cols))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("insert pretest response: %w", err)
	}
	return nil
}

func (r *responseRepoSQLite) List(ctx context.Context, limit, offset int) ([]*ResponseRecord, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pretest_responses`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pretest responses: %w", err)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+strings.Join(responseColumns(), ", ")+` FROM pretest_responses
		ORDER BY submitted_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list pretest responses: %w", err)
	}
	defer rows.Close()

	keys := ItemKeys()
	var items []*ResponseRecord
	for rows.Next() {
		rec := &ResponseRecord{Scores: make(map[string]*int, len(keys))}
		var id string
		var nurse, consent, voluntary int
		var burnout sql.NullString
		scores := make([]sql.NullInt64, len(keys))

		dest := []interface{}{&id, &rec.ParticipantNumber, &nurse, &consent, &voluntary}
		for i := range scores {
			dest = append(dest, &scores[i])
		}
		dest = append(dest, &burnout, &rec.AdditionalComments, &rec.SubmittedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan pretest response: %w", err)
		}

		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, 0, fmt.Errorf("parse response id: %w", err)
		}
		rec.IsRegisteredNurse, rec.ProvidesConsent, rec.UnderstandsVoluntary = nurse != 0, consent != 0, voluntary != 0
		for i, k := range keys {
			if scores[i].Valid {
				n := int(scores[i].Int64)
				rec.Scores[k] = &n
			} else {
				rec.Scores[k] = nil
			}
		}
		if burnout.Valid {
			rec.BurnoutLevel = &burnout.String
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

type demographicRepoSQLite struct{ db *sql.DB }

func NewDemographicRepoSQLite(db *sql.DB) DemographicRepository {
	return &demographicRepoSQLite{db: db}
}

func (r *demographicRepoSQLite) Insert(ctx context.Context, d *DemographicRecord) error {
	args := demographicArgs(d)
	args[0] = d.ID.String()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO demographic_surveys (`+demographicCols+`) VALUES (`+sqlitePlaceholders(19)+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("insert demographic survey: %w", err)
	}
	return nil
}

func (r *demographicRepoSQLite) ListByParticipant(ctx context.Context, participantID string) ([]*DemographicRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+demographicCols+` FROM demographic_surveys WHERE participant_id = ? ORDER BY created_at`,
		participantID)
	if err != nil {
		return nil, fmt.Errorf("list demographic surveys: %w", err)
	}
	defer rows.Close()

	var items []*DemographicRecord
	for rows.Next() {
		var d DemographicRecord
		var id string
		var age, gender, marital, edu, eduOther, desig, income, years sql.NullString
		var unit, unitOther, shift, hours, nights, nightsOther, residence, residenceOther sql.NullString
		if err := rows.Scan(&id, &d.ParticipantID, &age, &gender, &marital,
			&edu, &eduOther, &desig, &income,
			&years, &unit, &unitOther, &shift, &hours,
			&nights, &nightsOther, &residence, &residenceOther, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan demographic survey: %w", err)
		}
		if d.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse demographic id: %w", err)
		}
		d.AgeGroup, d.Gender, d.MaritalStatus = age.String, gender.String, marital.String
		d.EducationalQualification, d.Designation, d.IncomeLevel = edu.String, desig.String, income.String
		d.YearsExperience, d.WorkingUnit, d.WorkShift = years.String, unit.String, shift.String
		d.HoursPerDay, d.NightShiftsPerMonth, d.PlaceOfResidence = hours.String, nights.String, residence.String
		d.EducationalOther = nullableString(eduOther)
		d.WorkingUnitOther = nullableString(unitOther)
		d.NightShiftsOther = nullableString(nightsOther)
		d.ResidenceOther = nullableString(residenceOther)
		items = append(items, &d)
	}
	return items, rows.Err()
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
