package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository {
	return &slotRepoPG{pool: pool}
}

const slotCols = `participant_number, participant_password, id_used, study_group, claimed_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var group *string
	if err := row.Scan(&s.ParticipantNumber, &s.ParticipantPassword, &s.IDUsed, &group, &s.ClaimedAt); err != nil {
		return nil, err
	}
	if group != nil {
		g, err := ParseGroup(*group)
		if err != nil {
			return nil, err
		}
		s.Group = g
	}
	return &s, nil
}

// SelectUnused picks a random unused slot so that concurrent claimants
// usually land on different rows. Correctness does not depend on it.
func (r *slotRepoPG) SelectUnused(ctx context.Context) (*Slot, error) {
	s, err := scanSlot(r.pool.QueryRow(ctx,
		`SELECT `+slotCols+` FROM participants WHERE id_used = false ORDER BY random() LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoUnusedSlot
	}
	if err != nil {
		return nil, fmt.Errorf("select unused slot: %w", err)
	}
	return s, nil
}

func (r *slotRepoPG) MarkUsedIf(ctx context.Context, participantNumber string, group Group) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE participants SET id_used = true, study_group = $2, claimed_at = NOW()
		WHERE participant_number = $1 AND id_used = false`,
		participantNumber, string(group))
	if err != nil {
		return 0, fmt.Errorf("mark slot %s used: %w", participantNumber, err)
	}
	return tag.RowsAffected(), nil
}

func (r *slotRepoPG) Stats(ctx context.Context) (*PoolStats, error) {
	var st PoolStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE id_used),
			COUNT(*) FILTER (WHERE study_group = 'Intervention'),
			COUNT(*) FILTER (WHERE study_group = 'Control')
		FROM participants`).Scan(&st.Total, &st.Used, &st.Intervention, &st.Control)
	if err != nil {
		return nil, fmt.Errorf("slot pool stats: %w", err)
	}
	st.Unused = st.Total - st.Used
	return &st, nil
}

// Import inserts pre-provisioned slots in one transaction. Numbers that
// already exist are left untouched, so re-running an import is harmless.
func (r *slotRepoPG) Import(ctx context.Context, slots []Slot) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := insertSlots(ctx, tx, slots)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit slot import: %w", err)
	}
	return n, nil
}

func insertSlots(ctx context.Context, q queryable, slots []Slot) (int, error) {
	inserted := 0
	for _, s := range slots {
		tag, err := q.Exec(ctx, `
			INSERT INTO participants (participant_number, participant_password)
			VALUES ($1, $2)
			ON CONFLICT (participant_number) DO NOTHING`,
			s.ParticipantNumber, s.ParticipantPassword)
		if err != nil {
			return inserted, fmt.Errorf("insert slot %s: %w", s.ParticipantNumber, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
