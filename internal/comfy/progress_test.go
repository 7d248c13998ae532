package comfy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenProgress(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws", r.URL.Path)
		assert.Equal(t, "token-1", r.URL.Query().Get("clientId"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		messages := []string{
			`{"type":"executing","data":{"node":"3","prompt_id":"pid1"}}`,
			`{"type":"progress","data":{"value":4,"max":20,"prompt_id":"pid1"}}`,
			`{"type":"status","data":{}}`,
			`{"type":"progress","data":{"value":20,"max":20,"prompt_id":"pid1"}}`,
		}
		for _, m := range messages {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
		}
	}))
	defer srv.Close()

	client := New(srv.URL, WithClientID("token-1"))

	var events []ProgressEvent
	done := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		defer close(done)
		_ = client.ListenProgress(ctx, func(ev ProgressEvent) {
			events = append(events, ev)
			if len(events) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not finish")
	}

	require.Len(t, events, 3)
	assert.Equal(t, ProgressEvent{PromptID: "pid1", Node: "3"}, events[0])
	assert.Equal(t, ProgressEvent{PromptID: "pid1", Value: 4, Max: 20}, events[1])
	assert.Equal(t, ProgressEvent{PromptID: "pid1", Value: 20, Max: 20}, events[2])
}

func TestListenProgressRejectedUpgrade(t *testing.T) {
	// The server answers the upgrade with a plain HTTP error instead of
	// switching protocols.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "websocket disabled", http.StatusForbidden)
	}))
	defer srv.Close()

	client := New(srv.URL)
	err := client.ListenProgress(context.Background(), func(ProgressEvent) {})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrServerUnreachable)
}

func TestListenProgressUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.Listener.Addr().String()
	srv.Close()

	client := New(host)
	err := client.ListenProgress(context.Background(), func(ProgressEvent) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerUnreachable)
}
