package worker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository/memory"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
)

func TestCleanupRespectsRetention(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	repo := memory.New(memory.WithClock(clock)).Repositories().Outbox
	ctx := context.Background()

	old := &model.OutboxEvent{EventType: model.EventPatientCreated, Payload: []byte(`{}`)}
	failed := &model.OutboxEvent{EventType: model.EventPatientCreated, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, failed))
	require.NoError(t, repo.MarkProcessed(ctx, old.ID))
	require.NoError(t, repo.MarkFailed(ctx, failed.ID, "broker down"))

	now = now.Add(2 * time.Hour)
	recent := &model.OutboxEvent{EventType: model.EventPatientUpdated, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(ctx, recent))
	require.NoError(t, repo.MarkProcessed(ctx, recent.ID))

	w := NewOutboxCleanupWorker(repo, time.Hour, time.Minute, zerolog.Nop(), metrics.New("test", nil))
	w.now = clock

	n, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCleanupStopsWithContext(t *testing.T) {
	repo := memory.New().Repositories().Outbox
	w := NewOutboxCleanupWorker(repo, time.Hour, time.Millisecond, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}
