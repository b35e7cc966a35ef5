package chat

import (
	"context"
	"errors"
	"time"

	"github.com/suPer8Hu/prompt-lab/internal/variation"
	"go.uber.org/zap"
)

// turnsPerCommit is the message count added by one commit: one user turn
// plus its assistant turn.
const turnsPerCommit = 2

// JobLease is how long a running claim on a job stays live. A worker that
// died mid-job leaves a claim another worker may take over once it lapses.
const JobLease = time.Minute

type Service struct {
	repo      *Repo
	active    ActiveSession
	generator *variation.Generator
	log       *zap.Logger
}

func NewService(repo *Repo, active ActiveSession, generator *variation.Generator, log *zap.Logger) *Service {
	if active == nil {
		active = NewMemoryPointer()
	}
	if generator == nil {
		generator = variation.NewGenerator(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, active: active, generator: generator, log: log}
}

// activeSessionID resolves the pointer. It never writes.
func (s *Service) activeSessionID(ctx context.Context) (string, error) {
	id, ok, err := s.active.Get(ctx)
	if err != nil {
		return "", storeErr("read active session", err)
	}
	if !ok {
		return "", ErrNoActiveSession
	}
	return id, nil
}

// CommitTurn records prompt as a user turn plus a scored assistant turn on
// the active session, and bumps the session's bookkeeping, all in one
// transaction.
func (s *Service) CommitTurn(ctx context.Context, prompt string, params variation.Params) (*TurnResult, error) {
	sessionID, err := s.activeSessionID(ctx)
	if err != nil {
		return nil, err
	}
	return s.CommitTurnToSession(ctx, sessionID, prompt, params)
}

// CommitTurnToSession is CommitTurn against an explicit session.
func (s *Service) CommitTurnToSession(ctx context.Context, sessionID, prompt string, params variation.Params) (*TurnResult, error) {
	return s.commitTurn(ctx, sessionID, prompt, params, nil)
}

// commitTurn runs the commit protocol. within, when set, runs inside the
// transaction after the turns are written and receives the assistant turn
// id; its error rolls everything back.
func (s *Service) commitTurn(ctx context.Context, sessionID, prompt string, params variation.Params, within func(scope *TxScope, turnID string) error) (*TurnResult, error) {
	if _, err := s.repo.GetSessionBySessionID(ctx, sessionID); err != nil {
		return nil, err
	}

	// pure, so it stays outside the transaction
	variations := s.generator.Generate(prompt, params)

	userID, err := newTurnID()
	if err != nil {
		return nil, err
	}
	assistantID, err := newTurnID()
	if err != nil {
		return nil, err
	}

	scope, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Rollback()

	// the session may have been deleted since the check above
	sess, err := scope.LockSession(sessionID)
	if err != nil {
		return nil, err
	}
	title, retitled := DecideTitle(*sess, prompt)

	now := time.Now()
	text, asked := prompt, prompt
	userTurn := Turn{
		ID:        userID,
		SessionID: sessionID,
		Sender:    SenderUser,
		Text:      &text,
		CreatedAt: now,
	}
	if err := scope.InsertTurn(&userTurn); err != nil {
		return nil, err
	}

	p := params.Clone()
	assistantTurn := Turn{
		ID:         assistantID,
		SessionID:  sessionID,
		Sender:     SenderAssistant,
		Prompt:     &asked,
		Parameters: &p,
		Variations: variations,
		CreatedAt:  now,
	}
	if err := scope.InsertTurn(&assistantTurn); err != nil {
		return nil, err
	}

	if err := scope.RecordTurns(sessionID, turnsPerCommit, title); err != nil {
		return nil, err
	}
	if within != nil {
		if err := within(scope, assistantTurn.ID); err != nil {
			return nil, err
		}
	}
	updated, err := scope.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}

	s.log.Debug("turn committed",
		zap.String("session_id", sessionID),
		zap.String("turn_id", assistantTurn.ID),
		zap.Int("message_count", updated.MessageCount),
		zap.Bool("retitled", retitled),
	)

	return &TurnResult{
		Experiment: assistantTurn,
		UserPrompt: userTurn,
		Session:    *updated,
	}, nil
}

// CreateSession creates a session and makes it active. An empty title
// gets the "Chat N" placeholder.
func (s *Service) CreateSession(ctx context.Context, title string) (*Session, error) {
	if title == "" {
		n, err := s.repo.CountSessions(ctx)
		if err != nil {
			return nil, err
		}
		title = AutoTitle(n + 1)
	}

	sid, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		SessionID: sid,
		Title:     title,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	if err := s.active.Set(ctx, sid); err != nil {
		return nil, storeErr("set active session", err)
	}
	return session, nil
}

// CurrentSession returns the active session, creating one when there is
// none or the pointer is stale.
func (s *Service) CurrentSession(ctx context.Context) (*Session, error) {
	id, err := s.activeSessionID(ctx)
	switch {
	case err == nil:
		sess, err := s.repo.GetSessionBySessionID(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	case !errors.Is(err, ErrNoActiveSession):
		return nil, err
	}
	return s.CreateSession(ctx, "")
}

// SwitchSession points the active session at an existing session.
func (s *Service) SwitchSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.repo.GetSessionBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.active.Set(ctx, sessionID); err != nil {
		return nil, storeErr("set active session", err)
	}
	return sess, nil
}

func (s *Service) RenameSession(ctx context.Context, sessionID, title string) (*Session, error) {
	return s.repo.UpdateSessionTitle(ctx, sessionID, title)
}

// DeleteSession removes a session with its turns and clears the pointer
// if it referenced that session.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if err := s.active.ClearIf(ctx, sessionID); err != nil {
		return storeErr("clear active session", err)
	}
	return nil
}

func (s *Service) ListSessions(ctx context.Context) ([]Session, error) {
	return s.repo.ListSessions(ctx)
}

func (s *Service) ListTurns(ctx context.Context, f TurnFilter) ([]Turn, error) {
	return s.repo.ListTurns(ctx, f)
}

func (s *Service) ListTurnsBySession(ctx context.Context, sessionID string) ([]Turn, error) {
	return s.repo.ListTurns(ctx, TurnFilter{SessionID: sessionID})
}

func (s *Service) GetTurn(ctx context.Context, id string) (*Turn, error) {
	return s.repo.GetTurn(ctx, id)
}

func (s *Service) UpdateTurn(ctx context.Context, id string, p TurnPatch) (*Turn, error) {
	return s.repo.UpdateTurn(ctx, id, p)
}

func (s *Service) DeleteTurn(ctx context.Context, id string) error {
	return s.repo.DeleteTurn(ctx, id)
}

// SubmitJob stores a queued experiment against the active session. With an
// idempotency key, a repeated submission returns the first job and
// created=false.
func (s *Service) SubmitJob(ctx context.Context, jobID, prompt string, params variation.Params, key *string) (job *Job, created bool, err error) {
	sessionID, err := s.activeSessionID(ctx)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.repo.GetSessionBySessionID(ctx, sessionID); err != nil {
		return nil, false, err
	}
	return s.repo.CreateJobOrGetExisting(ctx, &Job{
		ID:             jobID,
		SessionID:      sessionID,
		Prompt:         prompt,
		Parameters:     params,
		IdempotencyKey: key,
		Status:         JobQueued,
	})
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.repo.GetJobByID(ctx, jobID)
}

// RunJob commits a queued experiment and records the outcome on the job.
// The job is marked succeeded in the same transaction as its turns. A job
// that already succeeded yields a nil result, so a redelivered message never
// commits twice; one held by a live claim returns ErrJobInProgress.
func (s *Service) RunJob(ctx context.Context, jobID string) (*TurnResult, error) {
	claimed, err := s.repo.UpdateJobStatusRunning(ctx, jobID, time.Now().Add(-JobLease))
	if err != nil {
		return nil, err
	}
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if j.Status == JobSucceeded {
			s.log.Debug("job already done", zap.String("job_id", jobID))
			return nil, nil
		}
		return nil, ErrJobInProgress
	}

	res, err := s.commitTurn(ctx, j.SessionID, j.Prompt, j.Parameters, func(scope *TxScope, turnID string) error {
		return scope.MarkJobSucceeded(jobID, turnID)
	})
	if err != nil {
		if markErr := s.repo.MarkJobFailed(ctx, jobID, err.Error()); markErr != nil {
			s.log.Warn("mark job failed", zap.String("job_id", jobID), zap.Error(markErr))
		}
		return nil, err
	}
	return res, nil
}
