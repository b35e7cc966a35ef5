package chat

import (
	"context"
	"sync"
)

// ActiveSession is the single-slot reference to the session new turns are
// committed against. Commits only read it; session create, switch and
// delete write it.
type ActiveSession interface {
	Get(ctx context.Context) (sessionID string, ok bool, err error)
	Set(ctx context.Context, sessionID string) error
	Clear(ctx context.Context) error
	// ClearIf clears the slot only while it still holds sessionID.
	ClearIf(ctx context.Context, sessionID string) error
}

// MemoryPointer is an in-process ActiveSession. The zero value is empty
// and ready to use.
type MemoryPointer struct {
	mu sync.RWMutex
	id string
}

func NewMemoryPointer() *MemoryPointer { return &MemoryPointer{} }

func (p *MemoryPointer) Get(ctx context.Context) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id, p.id != "", nil
}

func (p *MemoryPointer) Set(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	p.id = sessionID
	p.mu.Unlock()
	return nil
}

func (p *MemoryPointer) Clear(ctx context.Context) error {
	return p.Set(ctx, "")
}

func (p *MemoryPointer) ClearIf(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.id == sessionID {
		p.id = ""
	}
	return nil
}
