package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/service"
)

type countingNotifier struct {
	delivered chan events.Event
	closed    chan struct{}
}

func (n *countingNotifier) Notify(_ context.Context, event events.Event) error {
	n.delivered <- event
	return nil
}

func (n *countingNotifier) Close() error {
	close(n.closed)
	return nil
}

func TestWorkerForwardsUntilCancelled(t *testing.T) {
	notifier := &countingNotifier{delivered: make(chan events.Event, 1), closed: make(chan struct{})}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	StartNotificationWorker(ctx, service.NewNotificationService(dispatcher, notifier, zap.NewNop()), zap.NewNop())

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "t-1"}))
	select {
	case got := <-notifier.delivered:
		assert.Equal(t, "t-1", got.TicketID)
	case <-time.After(time.Second):
		t.Fatal("event was not forwarded")
	}

	cancel()
	select {
	case <-notifier.closed:
	case <-time.After(time.Second):
		t.Fatal("notifier was not closed")
	}
}
