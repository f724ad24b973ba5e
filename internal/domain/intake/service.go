package intake

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/pretest/internal/domain/enrollment"
	"github.com/ehr/pretest/internal/domain/survey"
	"github.com/ehr/pretest/internal/platform/telemetry"
)

// Claimer hands out participant credentials. *enrollment.Allocator
// satisfies it.
type Claimer interface {
	Claim(ctx context.Context) (*enrollment.Credentials, error)
}

// Recorder stores the answers of a claimed participant. *survey.Recorder
// satisfies it.
type Recorder interface {
	Record(ctx context.Context, participantNumber string, a *survey.Answers) survey.RecordOutcome
}

// Submission is the result of one intake attempt.
type Submission struct {
	State       State                   `json:"state"`
	FailureKind enrollment.ErrorKind    `json:"failure_kind,omitempty"`
	Credentials *enrollment.Credentials `json:"-"`
	Record      survey.RecordOutcome    `json:"record"`
}

// SuccessView is what the participant sees after a completed submission.
// The password is only disclosed to the Intervention arm.
type SuccessView struct {
	ParticipantNumber string           `json:"participant_number"`
	Group             enrollment.Group `json:"group"`
	ShowPassword      bool             `json:"show_password"`
	Password          string           `json:"password,omitempty"`
	CopyText          string           `json:"copy_text,omitempty"`
}

func (s *Submission) SuccessView() *SuccessView {
	if s.State != StateDone || s.Credentials == nil {
		return nil
	}
	v := &SuccessView{
		ParticipantNumber: s.Credentials.ParticipantNumber,
		Group:             s.Credentials.Group,
	}
	if s.Credentials.Group == enrollment.GroupIntervention {
		v.ShowPassword = true
		v.Password = s.Credentials.Password
		v.CopyText = fmt.Sprintf("Participant Number: %s\nPassword: %s",
			s.Credentials.ParticipantNumber, s.Credentials.Password)
	}
	return v
}

type Service struct {
	claimer  Claimer
	recorder Recorder
	logger   zerolog.Logger
	metrics  *telemetry.Registry
}

func NewService(claimer Claimer, recorder Recorder, logger zerolog.Logger) *Service {
	return &Service{claimer: claimer, recorder: recorder, logger: logger}
}

func (s *Service) SetMetrics(m *telemetry.Registry) { s.metrics = m }

// Submit validates the answers, claims a slot and records the answers.
// Validation failures return a *survey.ValidationError without touching the
// pool. Allocation failures return the *enrollment.AllocationError together
// with a Failed submission. Recording problems never fail the submission;
// they show up in Submission.Record.
func (s *Service) Submit(ctx context.Context, a *survey.Answers) (*Submission, error) {
	if err := survey.Validate(a); err != nil {
		s.metrics.Inc(telemetry.SubmissionsTotal, telemetry.L("state", "invalid"))
		return nil, err
	}

	t := NewTracker()
	if err := t.advance(StateAllocating); err != nil {
		return nil, err
	}

	creds, err := s.claimer.Claim(ctx)
	if err != nil {
		kind := enrollment.KindOf(err)
		if kind == "" {
			kind = enrollment.KindTransport
		}
		if ferr := t.fail(kind); ferr != nil {
			return nil, ferr
		}
		s.metrics.Inc(telemetry.SubmissionsTotal, telemetry.L("state", string(StateFailed)))
		return &Submission{State: t.State(), FailureKind: t.FailureKind()}, err
	}
	if err := t.advance(StateAllocated); err != nil {
		return nil, err
	}

	if err := t.advance(StateRecording); err != nil {
		return nil, err
	}
	outcome := s.recorder.Record(ctx, creds.ParticipantNumber, a)
	if err := t.advance(StateDone); err != nil {
		return nil, err
	}

	s.metrics.Inc(telemetry.SubmissionsTotal, telemetry.L("state", string(StateDone)))
	s.logger.Info().
		Str("participant_number", creds.ParticipantNumber).
		Str("group", string(creds.Group)).
		Bool("record_degraded", outcome.Degraded()).
		Msg("pretest submission completed")

	return &Submission{State: t.State(), Credentials: creds, Record: outcome}, nil
}
