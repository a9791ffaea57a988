package notify

import (
	"context"
	"testing"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) domain.Event {
	t.Helper()
	select {
	case e, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return domain.Event{}
	}
}

func assertEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}
}

func TestHub_DeliversOnlyToSameVenue(t *testing.T) {
	hub := NewHub(4, logger.NewNop())
	a1 := hub.Subscribe(1)
	a2 := hub.Subscribe(1)
	b := hub.Subscribe(2)

	require.NoError(t, hub.Deliver(context.Background(), domain.NewEvent(domain.EventNewOrder, 1, 10, nil)))

	assert.Equal(t, domain.EventNewOrder, receive(t, a1).Type)
	assert.Equal(t, int64(10), receive(t, a2).EntityID)
	assertEmpty(t, b)
	assert.Equal(t, 2, hub.Subscribers(1))
	assert.Equal(t, 1, hub.Subscribers(2))
}

func TestHub_FullSubscriberDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(1, logger.NewNop())
	slow := hub.Subscribe(1)
	fast := hub.Subscribe(1)

	ctx := context.Background()
	require.NoError(t, hub.Deliver(ctx, domain.NewEvent(domain.EventNewOrder, 1, 1, nil)))
	receive(t, fast)

	done := make(chan struct{})
	go func() {
		_ = hub.Deliver(ctx, domain.NewEvent(domain.EventOrderUpdated, 1, 1, nil))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked on a full subscriber")
	}

	assert.Equal(t, domain.EventOrderUpdated, receive(t, fast).Type)
	// the slow one still holds only the first event
	assert.Equal(t, domain.EventNewOrder, receive(t, slow).Type)
	assertEmpty(t, slow)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(1, logger.NewNop())
	sub := hub.Subscribe(5)

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers(5))
	assert.NoError(t, hub.Deliver(context.Background(), domain.NewEvent(domain.EventNewOrder, 5, 1, nil)))
}
