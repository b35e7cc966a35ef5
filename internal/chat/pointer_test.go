package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPointer(t *testing.T) {
	ctx := context.Background()
	var p MemoryPointer

	_, ok, err := p.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty at boot")

	require.NoError(t, p.Set(ctx, "a"))
	id, ok, _ := p.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	require.NoError(t, p.ClearIf(ctx, "b"))
	id, _, _ = p.Get(ctx)
	assert.Equal(t, "a", id)

	require.NoError(t, p.ClearIf(ctx, "a"))
	_, ok, _ = p.Get(ctx)
	assert.False(t, ok)

	require.NoError(t, p.Set(ctx, "c"))
	require.NoError(t, p.Clear(ctx))
	_, ok, _ = p.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryPointer_Concurrent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPointer()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = p.Set(ctx, "x")
			} else {
				_, _, _ = p.Get(ctx)
			}
		}(i)
	}
	wg.Wait()

	id, ok, _ := p.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "x", id)
}
