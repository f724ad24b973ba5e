package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// slotRepoSQLite backs single-site deployments that run on an embedded
// SQLite file instead of PostgreSQL. id_used is stored as 0/1.
type slotRepoSQLite struct{ db *sql.DB }

func NewSlotRepoSQLite(db *sql.DB) SlotRepository {
	return &slotRepoSQLite{db: db}
}

func (r *slotRepoSQLite) SelectUnused(ctx context.Context) (*Slot, error) {
	var s Slot
	var used int
	var group sql.NullString
	var claimedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT participant_number, participant_password, id_used, study_group, claimed_at
		FROM participants WHERE id_used = 0 ORDER BY RANDOM() LIMIT 1`).
		Scan(&s.ParticipantNumber, &s.ParticipantPassword, &used, &group, &claimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoUnusedSlot
	}
	if err != nil {
		return nil, fmt.Errorf("select unused slot: %w", err)
	}
	s.IDUsed = used != 0
	if group.Valid {
		g, err := ParseGroup(group.String)
		if err != nil {
			return nil, err
		}
		s.Group = g
	}
	if claimedAt.Valid {
		s.ClaimedAt = &claimedAt.Time
	}
	return &s, nil
}

func (r *slotRepoSQLite) MarkUsedIf(ctx context.Context, participantNumber string, group Group) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE participants SET id_used = 1, study_group = ?, claimed_at = ?
		WHERE participant_number = ? AND id_used = 0`,
		string(group), time.Now().UTC(), participantNumber)
	if err != nil {
		return 0, fmt.Errorf("mark slot %s used: %w", participantNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark slot %s used: %w", participantNumber, err)
	}
	return n, nil
}

func (r *slotRepoSQLite) Stats(ctx context.Context) (*PoolStats, error) {
	var st PoolStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN id_used = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN study_group = 'Intervention' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN study_group = 'Control' THEN 1 ELSE 0 END), 0)
		FROM participants`).Scan(&st.Total, &st.Used, &st.Intervention, &st.Control)
	if err != nil {
		return nil, fmt.Errorf("slot pool stats: %w", err)
	}
	st.Unused = st.Total - st.Used
	return &st, nil
}

func (r *slotRepoSQLite) Import(ctx context.Context, slots []Slot) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, s := range slots {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO participants (participant_number, participant_password)
			VALUES (?, ?)`,
			s.ParticipantNumber, s.ParticipantPassword)
		if err != nil {
			return 0, fmt.Errorf("insert slot %s: %w", s.ParticipantNumber, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit slot import: %w", err)
	}
	return inserted, nil
}
