package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
)

type fakeNotifier struct {
	delivered chan events.Event
	release   chan struct{}
	err       error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{delivered: make(chan events.Event, 64)}
}

func (f *fakeNotifier) Notify(ctx context.Context, event events.Event) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.delivered <- event
	return f.err
}

func (f *fakeNotifier) Close() error { return nil }

func (f *fakeNotifier) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case event := <-f.delivered:
		return event
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
		return events.Event{}
	}
}

func startNotifications(t *testing.T, dispatcher events.Dispatcher, sink *fakeNotifier, logger *zap.Logger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	n := NewNotificationService(dispatcher, sink, logger)
	n.RegisterHandlers()
	go func() {
		defer close(done)
		n.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestNotificationServiceForwardsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	sink := newFakeNotifier()
	startNotifications(t, dispatcher, sink, zap.NewNop())

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "t1"}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketsRefresh, TicketID: "t1"}))

	assert.Equal(t, events.EventTicketCreated, sink.next(t).Type)
	assert.Equal(t, events.EventTicketsRefresh, sink.next(t).Type)
}

func TestNotificationServiceSwallowsSinkErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	sink := newFakeNotifier()
	sink.err = errors.New("redis down")
	startNotifications(t, dispatcher, sink, zap.New(core))

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketDeleted, TicketID: "t9"})
	assert.NoError(t, err)
	sink.next(t)
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("notification delivery failed").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotificationServiceDropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	n := NewNotificationService(dispatcher, newFakeNotifier(), zap.New(core))
	n.RegisterHandlers()

	// Nothing drains the queue, so publishing must still return.
	for i := 0; i < notifyQueueSize+3; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketUpdated, TicketID: "t1"}))
	}
	assert.Len(t, n.queue, notifyQueueSize)
	assert.Equal(t, 3, logs.FilterMessage("notification queue full; dropping event").Len())
}

func TestMutationDoesNotWaitForSlowSink(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	sink := newFakeNotifier()
	sink.release = make(chan struct{})
	startNotifications(t, dispatcher, sink, zap.NewNop())

	svc := NewTicketService(TicketDependencies{
		TicketRepo:  repository.NewMemoryTicketRepository(),
		HistoryRepo: repository.NewMemoryTicketHistoryRepository(),
		Storage:     newMemoryStorage(),
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
		Now:         func() time.Time { return clock },
	})

	start := time.Now()
	ticket, err := svc.CreateTicket(context.Background(), reporter, TicketCreateInput{
		Department:     "IT",
		Building:       "A",
		Floor:          "3",
		ProblemDetails: "projector flickers",
	})
	require.NoError(t, err)
	_, err = svc.StartWork(context.Background(), tech, ticket.ID)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(sink.release)
	assert.Equal(t, events.EventTicketCreated, sink.next(t).Type)
}
