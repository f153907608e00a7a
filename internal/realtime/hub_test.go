package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// waitRegistered blocks until the hub has processed the registration, so
// Notify calls in tests cannot race the Run loop.
func waitRegistered(t *testing.T, hub *Hub, clients ...*Client) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for _, c := range clients {
		for {
			hub.mu.RLock()
			_, ok := hub.clients[c.ID]
			hub.mu.RUnlock()
			if ok {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("client never registered")
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func waitFor(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestNotifyReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := uuid.New()
	bob := uuid.New()

	aliceClient := &Client{ID: uuid.NewString(), UserID: alice, Send: make(chan []byte, 4)}
	bobClient := &Client{ID: uuid.NewString(), UserID: bob, Send: make(chan []byte, 4)}
	hub.RegisterClient(aliceClient)
	hub.RegisterClient(bobClient)
	waitRegistered(t, hub, aliceClient, bobClient)

	hub.Notify(alice, EventTaskAssigned, map[string]string{"taskId": "t1"})

	var event Event
	require.NoError(t, json.Unmarshal(waitFor(t, aliceClient.Send), &event))
	require.Equal(t, EventTaskAssigned, event.Type)

	select {
	case <-bobClient.Send:
		t.Fatal("event leaked to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifyFansOutToAllConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user := uuid.New()
	first := &Client{ID: uuid.NewString(), UserID: user, Send: make(chan []byte, 4)}
	second := &Client{ID: uuid.NewString(), UserID: user, Send: make(chan []byte, 4)}
	hub.RegisterClient(first)
	hub.RegisterClient(second)
	waitRegistered(t, hub, first, second)

	hub.Notify(user, EventPaymentReleased, nil)

	waitFor(t, first.Send)
	waitFor(t, second.Send)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{ID: uuid.NewString(), UserID: uuid.New(), Send: make(chan []byte, 4)}
	hub.RegisterClient(client)
	waitRegistered(t, hub, client)
	hub.UnregisterClient(client)

	select {
	case _, open := <-client.Send:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}

	// notifying after unregister is a no-op
	hub.Notify(client.UserID, EventTaskAssigned, nil)
}

func TestNotifyDropsOnSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user := uuid.New()
	client := &Client{ID: uuid.NewString(), UserID: user, Send: make(chan []byte)} // unbuffered, nobody reading
	hub.RegisterClient(client)
	waitRegistered(t, hub, client)

	done := make(chan struct{})
	go func() {
		hub.Notify(user, EventTaskAssigned, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow consumer")
	}
}
