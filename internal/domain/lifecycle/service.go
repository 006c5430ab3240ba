package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/checklist"
	"github.com/careflow/careflow/internal/domain/patient"
	"github.com/careflow/careflow/internal/domain/timeline"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/identity"
	"github.com/careflow/careflow/internal/platform/metrics"
)

// txFunc runs fn inside a storage transaction; every repository call made
// through the ctx it passes down joins that transaction.
type txFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// Service is the only writer of the timeline ledger and of the patient's
// denormalized stage projection. Every stage change is one unit of work:
// close the open entry, append the next one, move the pointer.
type Service struct {
	patients     patient.Repository
	entries      timeline.Repository
	rules        *checklist.Registry
	tx           txFunc
	clock        Clock
	initialStage string
	retries      int
	logger       zerolog.Logger
}

func NewService(
	pool *pgxpool.Pool,
	patients patient.Repository,
	entries timeline.Repository,
	rules *checklist.Registry,
	initialStage string,
	retries int,
	logger zerolog.Logger,
) *Service {
	return &Service{
		patients: patients,
		entries:  entries,
		rules:    rules,
		tx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
		clock:        systemClock{},
		initialStage: initialStage,
		retries:      retries,
		logger:       logger,
	}
}

type RegisterParams struct {
	MRN        string     `json:"mrn"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	BirthDate  *time.Time `json:"birth_date"`
	Department string     `json:"department"`
}

// Register creates the patient and the first open timeline entry in one
// transaction, so no patient ever exists without an open residency.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*patient.Patient, error) {
	if params.FirstName == "" || params.LastName == "" {
		return nil, apperr.New(apperr.KindValidation, "first_name and last_name are required")
	}
	if params.Department == "" {
		return nil, apperr.New(apperr.KindValidation, "department is required")
	}

	now := s.clock.Now()
	entryID := uuid.New()
	p := &patient.Patient{
		ID:             uuid.New(),
		MRN:            params.MRN,
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		BirthDate:      params.BirthDate,
		Department:     params.Department,
		Status:         patient.StatusActive,
		CurrentStage:   s.initialStage,
		OpenEntryID:    &entryID,
		StageFirstSeen: map[string]time.Time{s.initialStage: now},
	}
	entry := &timeline.Entry{
		ID:               entryID,
		PatientID:        p.ID,
		Stage:            s.initialStage,
		EnteredAt:        now,
		RequiredOnEntry:  []string{},
		RequiredOnExit:   []string{},
		CompletedOnEntry: []string{},
		CompletedOnExit:  []string{},
		ActorID:          identity.ActorFromContext(ctx),
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		return s.entries.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPatientRegistered()
	s.logger.Info().
		Str("patient_id", p.ID.String()).
		Str("stage", s.initialStage).
		Msg("patient registered")
	return p, nil
}

type TransitionRequest struct {
	ToStage          string               `json:"to_stage"`
	CompletedOnEntry []string             `json:"completed_on_entry"`
	CompletedOnExit  []string             `json:"completed_on_exit"`
	Notes            *string              `json:"notes"`
	Updates          patient.UpdateParams `json:"updates"`
}

// TransitionResult reports what the unit of work did. Closed is nil when the
// ledger held no open entry (the close step is simply omitted) and when the
// request was a same-stage no-op.
type TransitionResult struct {
	Patient *patient.Patient `json:"patient"`
	Closed  *timeline.Entry  `json:"closed,omitempty"`
	Opened  *timeline.Entry  `json:"opened,omitempty"`
	NoOp    bool             `json:"no_op,omitempty"`
}

// Transition applies one stage change. The read phase resolves the open
// entry outside the transaction; the write phase re-checks it with a
// conditional close, so a concurrent transition surfaces as a conflict
// instead of a double-close.
func (s *Service) Transition(ctx context.Context, patientID uuid.UUID, req TransitionRequest) (*TransitionResult, error) {
	if req.ToStage == "" {
		return nil, apperr.New(apperr.KindValidation, "to_stage is required")
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if p.CurrentStage == req.ToStage {
		// Already there. Nothing to close, nothing to append; any field
		// updates riding on the request still land as a plain update.
		if req.Updates.IsZero() {
			return &TransitionResult{Patient: p, NoOp: true}, nil
		}
		if err := req.Updates.ApplyTo(p); err != nil {
			return nil, err
		}
		if err := s.patients.Update(ctx, p); err != nil {
			return nil, err
		}
		updated, err := s.patients.GetByID(ctx, patientID)
		if err != nil {
			return nil, err
		}
		return &TransitionResult{Patient: updated, NoOp: true}, nil
	}

	// Field updates are validated up front so a bad payload fails before
	// any ledger write, then persisted inside the same unit of work as the
	// stage change.
	if err := req.Updates.ApplyTo(p); err != nil {
		return nil, err
	}

	rule, err := s.rules.Validate(p.CurrentStage, req.ToStage)
	if err != nil {
		metrics.RecordTransition(req.ToStage, "invalid")
		return nil, err
	}

	open, err := s.entries.FindOpen(ctx, p.ID, p.OpenEntryID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	opened := &timeline.Entry{
		ID:               uuid.New(),
		PatientID:        p.ID,
		Stage:            req.ToStage,
		EnteredAt:        now,
		RequiredOnEntry:  rule.RequiredOnEntry,
		RequiredOnExit:   []string{},
		CompletedOnEntry: orEmpty(req.CompletedOnEntry),
		CompletedOnExit:  []string{},
		ActorID:          identity.ActorFromContext(ctx),
		Notes:            req.Notes,
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if open != nil {
			exitedAt := now
			// A skewed clock must not produce a residency that ends
			// before it began.
			if exitedAt.Before(open.EnteredAt) {
				exitedAt = open.EnteredAt
			}
			ok, err := s.entries.CloseOpen(ctx, p.ID, open.ID, timeline.CloseFields{
				ExitedAt:        exitedAt,
				RequiredOnExit:  rule.RequiredOnExit,
				CompletedOnExit: orEmpty(req.CompletedOnExit),
			})
			if err != nil {
				return err
			}
			if !ok {
				return apperr.New(apperr.KindConflict,
					"entry %s was closed by a concurrent transition", open.ID)
			}
			open.ExitedAt = &exitedAt
			open.RequiredOnExit = rule.RequiredOnExit
			open.CompletedOnExit = orEmpty(req.CompletedOnExit)
		}

		if err := s.entries.Append(ctx, opened); err != nil {
			return err
		}
		if !req.Updates.IsZero() {
			if err := s.patients.Update(ctx, p); err != nil {
				return err
			}
		}
		return s.patients.ApplyTransition(ctx, p.ID, patient.TransitionFields{
			Stage:       req.ToStage,
			OpenEntryID: opened.ID,
			EnteredAt:   now,
		})
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			metrics.RecordTransition(req.ToStage, "conflict")
		}
		return nil, err
	}

	metrics.RecordTransition(req.ToStage, "applied")
	s.logger.Info().
		Str("patient_id", p.ID.String()).
		Str("from_stage", p.CurrentStage).
		Str("to_stage", req.ToStage).
		Msg("transition applied")

	updated, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	result := &TransitionResult{Patient: updated, Opened: opened}
	if open != nil {
		result.Closed = open
	}
	return result, nil
}

// TransitionWithRetry resubmits after a lost race. Each attempt re-reads the
// patient and the open entry, so the retry observes the concurrent winner's
// state rather than replaying stale inputs.
func (s *Service) TransitionWithRetry(ctx context.Context, patientID uuid.UUID, req TransitionRequest) (*TransitionResult, error) {
	attempts := s.retries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := s.Transition(ctx, patientID, req)
		if err == nil {
			return result, nil
		}
		if apperr.KindOf(err) != apperr.KindConflict {
			return nil, err
		}
		lastErr = err
		s.logger.Warn().
			Str("patient_id", patientID.String()).
			Str("to_stage", req.ToStage).
			Int("attempt", attempt+1).
			Msg("transition lost a race, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	return nil, lastErr
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
