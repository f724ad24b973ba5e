package survey

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/pretest/internal/platform/telemetry"
)

// WriteStatus is the result of one best-effort insert.
type WriteStatus string

const (
	WriteOK     WriteStatus = "ok"
	WriteFailed WriteStatus = "failed"
)

// RecordOutcome reports the two secondary writes independently.
type RecordOutcome struct {
	Response    WriteStatus `json:"response"`
	Demographic WriteStatus `json:"demographic"`
}

func (o RecordOutcome) OK() bool {
	return o.Response == WriteOK && o.Demographic == WriteOK
}

func (o RecordOutcome) Degraded() bool { return !o.OK() }

// DefaultWriteTimeout bounds each secondary write.
const DefaultWriteTimeout = 10 * time.Second

// Recorder persists a participant's answers after their slot is claimed.
// The two inserts are independent: a failure of one never prevents the other
// and never fails the submission.
type Recorder struct {
	responses    ResponseRepository
	demographics DemographicRepository
	logger       zerolog.Logger
	metrics      *telemetry.Registry
	writeTimeout time.Duration
	now          func() time.Time
}

func NewRecorder(responses ResponseRepository, demographics DemographicRepository, logger zerolog.Logger) *Recorder {
	return &Recorder{
		responses:    responses,
		demographics: demographics,
		logger:       logger,
		writeTimeout: DefaultWriteTimeout,
		now:          time.Now,
	}
}

func (r *Recorder) SetMetrics(m *telemetry.Registry) { r.metrics = m }

func (r *Recorder) SetWriteTimeout(d time.Duration) {
	if d > 0 {
		r.writeTimeout = d
	}
}

// Record writes the pretest response and the demographic survey for
// participantNumber. It waits for both writes and never returns an error.
//
// The slot is already claimed when Record runs, so the writes are detached
// from the caller's cancellation and bounded by the write timeout instead.
func (r *Recorder) Record(ctx context.Context, participantNumber string, a *Answers) RecordOutcome {
	now := r.now()
	resp := BuildResponse(participantNumber, a, now)
	demo := BuildDemographic(participantNumber, a, now)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()

	out := RecordOutcome{Response: WriteOK, Demographic: WriteOK}
	var g errgroup.Group
	g.Go(func() error {
		out.Response = r.write("response", participantNumber, func() error {
			return r.responses.Insert(wctx, resp)
		})
		return nil
	})
	g.Go(func() error {
		out.Demographic = r.write("demographic", participantNumber, func() error {
			return r.demographics.Insert(wctx, demo)
		})
		return nil
	})
	_ = g.Wait()
	return out
}

func (r *Recorder) write(name, participantNumber string, insert func() error) (status WriteStatus) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Interface("panic", p).
				Str("write", name).
				Str("participant_number", participantNumber).
				Msg("secondary write panicked")
			status = WriteFailed
			r.metrics.Inc(telemetry.SecondaryWritesTotal, telemetry.L("write", name), telemetry.L("status", string(status)))
		}
	}()

	status = WriteOK
	if err := insert(); err != nil {
		status = WriteFailed
		r.logger.Warn().
			Err(err).
			Str("write", name).
			Str("participant_number", participantNumber).
			Msg("failed to save survey data")
	}
	r.metrics.Inc(telemetry.SecondaryWritesTotal, telemetry.L("write", name), telemetry.L("status", string(status)))
	return status
}

// ListResponses returns stored pretest responses, newest first.
func (r *Recorder) ListResponses(ctx context.Context, limit, offset int) ([]*ResponseRecord, int, error) {
	return r.responses.List(ctx, limit, offset)
}

// Demographics returns the demographic surveys stored for a participant.
func (r *Recorder) Demographics(ctx context.Context, participantID string) ([]*DemographicRecord, error) {
	return r.demographics.ListByParticipant(ctx, participantID)
}
