package mdevent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

type fakeBroadcaster struct {
	channel string
	message string
	err     error
}

func (b *fakeBroadcaster) Publish(ctx context.Context, channel, message string) error {
	b.channel, b.message = channel, message
	return b.err
}

func (b *fakeBroadcaster) Subscribe(ctx context.Context, channel string, timeout time.Duration) (string, error) {
	if b.message == "" {
		return "", context.DeadlineExceeded
	}
	return b.message, nil
}

type fakeAudit struct {
	keys []string
}

func (a *fakeAudit) Write(ctx context.Context, key string, value []byte) error {
	a.keys = append(a.keys, key)
	return nil
}

func TestPublishFansOut(t *testing.T) {
	b := &fakeBroadcaster{}
	a := &fakeAudit{}
	m := NewEventModule(b, a, logger.NewNopLogger())

	m.Publish(context.Background(), model.OrderEvent{Type: model.EventOrderReady, OrderID: "o-1", OrderNumber: "CMD1A2B3"})

	assert.Equal(t, "order:events:o-1", b.channel)
	assert.Equal(t, []string{"o-1"}, a.keys)

	var got model.OrderEvent
	require.NoError(t, json.Unmarshal([]byte(b.message), &got))
	assert.Equal(t, model.EventOrderReady, got.Type)
	assert.False(t, got.At.IsZero())
}

func TestPublishToleratesBroadcastFailure(t *testing.T) {
	a := &fakeAudit{}
	m := NewEventModule(&fakeBroadcaster{err: errors.New("redis down")}, a, logger.NewNopLogger())
	m.Publish(context.Background(), model.OrderEvent{Type: model.EventItemScanned, OrderID: "o-2"})
	assert.Len(t, a.keys, 1)
}

func TestWaitForEvent(t *testing.T) {
	b := &fakeBroadcaster{}
	m := NewEventModule(b, nil, logger.NewNopLogger())

	_, err := m.WaitForEvent(context.Background(), "o-1", time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	m.Publish(context.Background(), model.OrderEvent{Type: model.EventOrderCompleted, OrderID: "o-1"})
	event, err := m.WaitForEvent(context.Background(), "o-1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.EventOrderCompleted, event.Type)

	_, err = NewEventModule(nil, nil, logger.NewNopLogger()).WaitForEvent(context.Background(), "o-1", time.Second)
	assert.Error(t, err)
}
