package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconnectorRedialsAfterDrop(t *testing.T) {
	var accepts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		// Drop the first connection immediately, keep later ones open.
		if accepts.Add(1) == 1 {
			conn.Close(websocket.StatusGoingAway, "restarting")
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		conn.Read(r.Context())
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := New(zap.NewNop())
	opened := make(chan struct{}, 8)
	c.OnOpen(func() { opened <- struct{}{} })

	rec := NewReconnector(c, url, clockwork.NewRealClock(), zap.NewNop())
	rec.SetInterval(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	recvSignal(t, opened, "first open")
	recvSignal(t, opened, "reopen after drop")
	assert.GreaterOrEqual(t, accepts.Load(), int32(2))

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("reconnector did not stop on cancel")
	}
}

func TestReconnectorRetriesFailedDials(t *testing.T) {
	var accepts atomic.Int32
	var refusing atomic.Bool
	refusing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if refusing.Load() {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		accepts.Add(1)
		defer conn.Close(websocket.StatusNormalClosure, "done")
		conn.Read(r.Context())
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := New(zap.NewNop())
	opened := make(chan struct{}, 8)
	c.OnOpen(func() { opened <- struct{}{} })

	rec := NewReconnector(c, url, clockwork.NewRealClock(), zap.NewNop())
	rec.SetInterval(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	// Let a few dials fail, then start accepting.
	time.Sleep(80 * time.Millisecond)
	refusing.Store(false)

	recvSignal(t, opened, "open once the server accepts")
	assert.Equal(t, int32(1), accepts.Load())
}

func TestReconnectorStopsWhenClientClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		conn.Read(r.Context())
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := New(zap.NewNop())
	opened := make(chan struct{}, 8)
	c.OnOpen(func() { opened <- struct{}{} })

	rec := NewReconnector(c, url, clockwork.NewRealClock(), zap.NewNop())
	rec.SetInterval(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- rec.Run(context.Background()) }()

	recvSignal(t, opened, "open")
	c.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reconnector kept running after the client was closed")
	}
}
