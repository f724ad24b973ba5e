package survey

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type responseRepoPG struct{ pool *pgxpool.Pool }

func NewResponseRepoPG(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepoPG{pool: pool}
}

func pgPlaceholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ph, ", ")
}

func responseArgs(r *ResponseRecord) []interface{} {
	args := []interface{}{r.ID, r.ParticipantNumber, r.IsRegisteredNurse, r.ProvidesConsent, r.UnderstandsVoluntary}
	for _, k := range ItemKeys() {
		args = append(args, r.Scores[k])
	}
	return append(args, r.BurnoutLevel, r.AdditionalComments, r.SubmittedAt)
}

func (r *responseRepoPG) Insert(ctx context.Context, rec *ResponseRecord) error {
	cols := responseColumns()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pretest_responses (`+strings.Join(cols, ", ")+`) VALUES (`+pgPlaceholders(len(cols))+`)`,
		responseArgs(rec)...)
	if err != nil {
		return fmt.Errorf("insert pretest response: %w", err)
	}
	return nil
}

func (r *responseRepoPG) List(ctx context.Context, limit, offset int) ([]*ResponseRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pretest_responses`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pretest responses: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+strings.Join(responseColumns(), ", ")+` FROM pretest_responses
		ORDER BY submitted_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list pretest responses: %w", err)
	}
	defer rows.Close()

	var items []*ResponseRecord
	for rows.Next() {
		rec, err := scanResponsePG(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func scanResponsePG(row pgx.Row) (*ResponseRecord, error) {
	keys := ItemKeys()
	rec := &ResponseRecord{Scores: make(map[string]*int, len(keys))}
	scores := make([]*int, len(keys))

	dest := []interface{}{&rec.ID, &rec.ParticipantNumber, &rec.IsRegisteredNurse, &rec.ProvidesConsent, &rec.UnderstandsVoluntary}
	for i := range scores {
		dest = append(dest, &scores[i])
	}
	dest = append(dest, &rec.BurnoutLevel, &rec.AdditionalComments, &rec.SubmittedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan pretest response: %w", err)
	}
	for i, k := range keys {
		rec.Scores[k] = scores[i]
	}
	return rec, nil
}

type demographicRepoPG struct{ pool *pgxpool.Pool }

func NewDemographicRepoPG(pool *pgxpool.Pool) DemographicRepository {
	return &demographicRepoPG{pool: pool}
}

func (r *demographicRepoPG) Insert(ctx context.Context, d *DemographicRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO demographic_surveys (`+demographicCols+`) VALUES (`+pgPlaceholders(19)+`)`,
		demographicArgs(d)...)
	if err != nil {
		return fmt.Errorf("insert demographic survey: %w", err)
	}
	return nil
}

func (r *demographicRepoPG) ListByParticipant(ctx context.Context, participantID string) ([]*DemographicRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+demographicCols+` FROM demographic_surveys WHERE participant_id = $1 ORDER BY created_at`,
		participantID)
	if err != nil {
		return nil, fmt.Errorf("list demographic surveys: %w", err)
	}
	defer rows.Close()

	var items []*DemographicRecord
	for rows.Next() {
		var d DemographicRecord
		var age, gender, marital, edu, desig, income, years, unit, shift, hours, nights, residence *string
		if err := rows.Scan(&d.ID, &d.ParticipantID, &age, &gender, &marital,
			&edu, &d.EducationalOther, &desig, &income,
			&years, &unit, &d.WorkingUnitOther, &shift, &hours,
			&nights, &d.NightShiftsOther, &residence, &d.ResidenceOther, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan demographic survey: %w", err)
		}
		d.AgeGroup, d.Gender, d.MaritalStatus = deref(age), deref(gender), deref(marital)
		d.EducationalQualification, d.Designation, d.IncomeLevel = deref(edu), deref(desig), deref(income)
		d.YearsExperience, d.WorkingUnit, d.WorkShift = deref(years), deref(unit), deref(shift)
		d.HoursPerDay, d.NightShiftsPerMonth, d.PlaceOfResidence = deref(hours), deref(nights), deref(residence)
		items = append(items, &d)
	}
	return items, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
