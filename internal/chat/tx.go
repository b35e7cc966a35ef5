package chat

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TxScope is one open store transaction. Writes made through it become
// visible together on Commit or not at all. Rollback after Commit is a
// no-op, so callers can always defer it.
type TxScope struct {
	tx   *gorm.DB
	done bool
}

// Begin opens a transaction bound to ctx.
func (r *Repo) Begin(ctx context.Context) (*TxScope, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, storeErr("begin", tx.Error)
	}
	return &TxScope{tx: tx}, nil
}

// LockSession re-reads the session inside the transaction, holding a row
// lock on dialects that support one.
func (s *TxScope) LockSession(sessionID string) (*Session, error) {
	q := s.tx
	if s.tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return getSession(q, sessionID)
}

func (s *TxScope) GetSession(sessionID string) (*Session, error) {
	return getSession(s.tx, sessionID)
}

func (s *TxScope) InsertTurn(t *Turn) error {
	return storeErr("insert "+string(t.Sender)+" turn", s.tx.Create(t).Error)
}

// RecordTurns adds n to the session's message count and sets its title in
// a single statement.
func (s *TxScope) RecordTurns(sessionID string, n int, title string) error {
	res := s.tx.Model(&Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"message_count": gorm.Expr("message_count + ?", n),
			"title":         title,
		})
	if res.Error != nil {
		return storeErr("update session", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// MarkJobSucceeded records the job outcome in the same transaction as the
// turns it produced.
func (s *TxScope) MarkJobSucceeded(jobID, resultTurnID string) error {
	res := s.tx.Model(&Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":         JobSucceeded,
			"result_turn_id": resultTurnID,
			"error":          nil,
		})
	if res.Error != nil {
		return storeErr("mark job succeeded", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *TxScope) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	return storeErr("commit", s.tx.Commit().Error)
}

func (s *TxScope) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	return storeErr("rollback", s.tx.Rollback().Error)
}
