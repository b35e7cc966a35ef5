package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/prompt-lab/internal/variation"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return storeErr("create session", r.db.WithContext(ctx).Create(s).Error)
}

func (r *Repo) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Session{}).Count(&n).Error; err != nil {
		return 0, storeErr("count sessions", err)
	}
	return n, nil
}

func (r *Repo) GetSessionBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	return getSession(r.db.WithContext(ctx), sessionID)
}

func getSession(db *gorm.DB, sessionID string) (*Session, error) {
	var s Session
	if err := db.Where("session_id = ?", sessionID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storeErr("get session", err)
	}
	return &s, nil
}

// ListSessions returns sessions most recently updated first.
func (r *Repo) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, storeErr("list sessions", err)
	}
	return out, nil
}

func (r *Repo) UpdateSessionTitle(ctx context.Context, sessionID, title string) (*Session, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("title", title)
	if res.Error != nil {
		return nil, storeErr("rename session", res.Error)
	}
	// RowsAffected is 0 on MySQL when the title did not change
	return r.GetSessionBySessionID(ctx, sessionID)
}

// DeleteSession removes the session and its turns together.
func (r *Repo) DeleteSession(ctx context.Context, sessionID string) error {
	scope, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer scope.Rollback()

	if err := scope.tx.Where("session_id = ?", sessionID).Delete(&Turn{}).Error; err != nil {
		return storeErr("delete turns", err)
	}
	res := scope.tx.Where("session_id = ?", sessionID).Delete(&Session{})
	if res.Error != nil {
		return storeErr("delete session", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return scope.Commit()
}

// TurnFilter narrows ListTurns. Zero fields match everything.
type TurnFilter struct {
	SessionID string
	Sender    Sender
}

// ListTurns returns turns oldest first.
func (r *Repo) ListTurns(ctx context.Context, f TurnFilter) ([]Turn, error) {
	q := r.db.WithContext(ctx)
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	if f.Sender != "" {
		q = q.Where("sender = ?", f.Sender)
	}
	var out []Turn
	if err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, storeErr("list turns", err)
	}
	return out, nil
}

func (r *Repo) GetTurn(ctx context.Context, id string) (*Turn, error) {
	var t Turn
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTurnNotFound
		}
		return nil, storeErr("get turn", err)
	}
	return &t, nil
}

// TurnPatch lists the editable turn fields. Nil fields are left alone.
type TurnPatch struct {
	Parameters *variation.Params      `json:"parameters"`
	Variations *[]variation.Variation `json:"responses"`
	Text       *string                `json:"text"`
	Prompt     *string                `json:"prompt"`
}

func (p TurnPatch) empty() bool {
	return p.Parameters == nil && p.Variations == nil && p.Text == nil && p.Prompt == nil
}

// allowedFor rejects fields the sender's turns never carry. A user turn
// holds only text; an assistant turn holds the rest.
func (p TurnPatch) allowedFor(sender Sender) error {
	switch sender {
	case SenderUser:
		if p.Parameters != nil || p.Variations != nil || p.Prompt != nil {
			return fmt.Errorf("%w: user turns only take text", ErrInvalidPatch)
		}
	case SenderAssistant:
		if p.Text != nil {
			return fmt.Errorf("%w: assistant turns take prompt, not text", ErrInvalidPatch)
		}
	}
	return nil
}

// UpdateTurn applies p to one turn. An edit to the prompt of a pair, held
// as text on the user turn and prompt on the assistant turn, is written to
// both turns together.
func (r *Repo) UpdateTurn(ctx context.Context, id string, p TurnPatch) (*Turn, error) {
	t, err := r.GetTurn(ctx, id)
	if err != nil || p.empty() {
		return t, err
	}
	if err := p.allowedFor(t.Sender); err != nil {
		return nil, err
	}

	var cols []string
	if p.Parameters != nil {
		t.Parameters = p.Parameters
		cols = append(cols, "parameters")
	}
	if p.Variations != nil {
		t.Variations = *p.Variations
		cols = append(cols, "variations")
	}
	prompt := p.Prompt
	if p.Text != nil {
		t.Text = p.Text
		prompt = p.Text
		cols = append(cols, "text")
	}
	if p.Prompt != nil {
		t.Prompt = p.Prompt
		cols = append(cols, "prompt")
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(t).Select(cols).Updates(t).Error; err != nil {
			return err
		}
		if prompt == nil {
			return nil
		}
		return syncPairPrompt(tx, t, *prompt)
	})
	if err != nil {
		return nil, storeErr("update turn", err)
	}
	return t, nil
}

// syncPairPrompt copies prompt onto the other turn written by the same
// commit. Both turns of a pair share a session and a creation time.
func syncPairPrompt(tx *gorm.DB, t *Turn, prompt string) error {
	other, col := SenderAssistant, "prompt"
	if t.Sender == SenderAssistant {
		other, col = SenderUser, "text"
	}
	var peers []Turn
	if err := tx.Where("session_id = ? AND sender = ?", t.SessionID, other).Find(&peers).Error; err != nil {
		return err
	}
	for _, peer := range peers {
		if peer.CreatedAt.Equal(t.CreatedAt) {
			return tx.Model(&Turn{}).Where("id = ?", peer.ID).Update(col, prompt).Error
		}
	}
	// the other half was deleted
	return nil
}

func (r *Repo) DeleteTurn(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Turn{})
	if res.Error != nil {
		return storeErr("delete turn", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTurnNotFound
	}
	return nil
}

// Job CRUD
func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return storeErr("create job", r.db.WithContext(ctx).Create(job).Error)
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, storeErr("get job", err)
	}
	return &j, nil
}

// UpdateJobStatusRunning claims a job that is queued, failed, or running
// under a claim taken before staleBefore. It reports false when the
// job is done or another claim is still live.
func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string, staleBefore time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Where(r.db.Where("status IN ?", []JobStatus{JobQueued, JobFailed}).
			Or("status = ? AND result_turn_id IS NULL AND updated_at < ?", JobRunning, staleBefore)).
		Update("status", JobRunning)
	if res.Error != nil {
		return false, storeErr("mark job running", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return storeErr("mark job failed", r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         JobFailed,
			"error":          errMsg,
			"result_turn_id": nil,
		}).Error)
}

func (r *Repo) GetJobByIdempotencyKey(ctx context.Context, key string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, storeErr("get job by key", err)
	}
	return &job, nil
}

// CreateJobOrGetExisting tries to create a job, but if idempotency_key already exists,
// it returns the existing job instead.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.CreateJob(ctx, job); err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.CreateJob(ctx, job)
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.GetJobByIdempotencyKey(ctx, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, ErrJobNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
