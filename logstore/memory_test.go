package logstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AppendAssignsSequentialIDs(t *testing.T) {
	m := NewMemory(DefaultCapacity)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		e, err := m.Append(ctx, Entry{Message: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		assert.Equal(t, int64(i), e.ID)
	}
}

func TestMemory_RecentNewestFirst(t *testing.T) {
	m := NewMemory(DefaultCapacity)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := m.Append(ctx, Entry{Message: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	got, err := m.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "m5", got[0].Message)
	assert.Equal(t, "m4", got[1].Message)
	assert.Equal(t, "m3", got[2].Message)

	all, err := m.Recent(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemory_EvictsOldestPastCapacity(t *testing.T) {
	m := NewMemory(DefaultCapacity)
	ctx := context.Background()
	for i := 1; i <= DefaultCapacity+1; i++ {
		_, err := m.Append(ctx, Entry{Message: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	assert.Equal(t, DefaultCapacity, m.Len())

	got, err := m.Recent(ctx, DefaultCapacity+10)
	require.NoError(t, err)
	require.Len(t, got, DefaultCapacity)
	assert.Equal(t, "m101", got[0].Message)
	assert.Equal(t, int64(101), got[0].ID)
	// m1 was evicted; the oldest survivor is m2
	assert.Equal(t, "m2", got[len(got)-1].Message)
}

func TestMemory_RecentErrors(t *testing.T) {
	m := NewMemory(DefaultCapacity)
	ctx := context.Background()
	msgs := []Entry{
		{Message: "ok1"},
		{Message: "bad1", Error: "boom"},
		{Message: "ok2"},
		{Message: "bad2", Error: "Blocked by guard rails"},
		{Message: "bad3", Error: "dial tcp: refused"},
	}
	for _, e := range msgs {
		_, err := m.Append(ctx, e)
		require.NoError(t, err)
	}

	got, err := m.RecentErrors(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bad3", got[0].Message)
	assert.Equal(t, "bad2", got[1].Message)
	for _, e := range got {
		assert.NotEmpty(t, e.Error)
	}
}

func TestMemory_EmptyReturnsNonNil(t *testing.T) {
	m := NewMemory(0)
	got, err := m.Recent(context.Background(), 20)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemory_ConcurrentAppends(t *testing.T) {
	m := NewMemory(DefaultCapacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Append(ctx, Entry{Message: fmt.Sprintf("m%d", i)})
		}(i)
	}
	wg.Wait()

	got, err := m.Recent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, 50)
	seen := make(map[int64]bool)
	for i, e := range got {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
		if i > 0 {
			assert.Greater(t, got[i-1].ID, e.ID)
		}
	}
}
