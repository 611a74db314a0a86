package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerRecordsCopies(t *testing.T) {
	b := NewMemoryBroker()
	payload := []byte(`{"id":1}`)

	require.NoError(t, b.Publish(context.Background(), "patient.created", payload))
	payload[2] = 'X'

	msgs := b.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "patient.created", msgs[0].Channel)
	assert.Equal(t, `{"id":1}`, string(msgs[0].Payload))
}

func TestMemoryBrokerFailWith(t *testing.T) {
	b := NewMemoryBroker()
	boom := errors.New("boom")

	b.FailWith(boom)
	assert.ErrorIs(t, b.Publish(context.Background(), "c", nil), boom)

	b.FailWith(nil)
	assert.NoError(t, b.Publish(context.Background(), "c", nil))
	assert.Len(t, b.Messages(), 1)
}

func TestMemoryBrokerHonoursContext(t *testing.T) {
	b := NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Publish(ctx, "c", nil), context.Canceled)
	assert.Empty(t, b.Messages())
	assert.NoError(t, b.Close())
}
