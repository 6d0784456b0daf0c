package mockapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/auto-marketplace/internal/store"
)

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		interval time.Duration
	}{
		{name: "minutes", interval: 10 * time.Minute},
		{name: "seconds", interval: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sch, err := NewScheduler(store.NewMemoryStore(), tt.interval, nil)
			require.NoError(t, err)
			assert.Len(t, sch.Entries(), 1)
		})
	}
}

func TestScheduler_RunPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.RevokeToken(ctx, "old", time.Now().Add(-time.Hour)))
	require.NoError(t, s.RevokeToken(ctx, "new", time.Now().Add(time.Hour)))

	sch, err := NewScheduler(s, time.Minute, nil)
	require.NoError(t, err)
	sch.runPrune()

	old, err := s.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, old)

	fresh, err := s.IsRevoked(ctx, "new")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	sch, err := NewScheduler(store.NewMemoryStore(), time.Hour, nil)
	require.NoError(t, err)

	sch.Start()
	select {
	case <-sch.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
