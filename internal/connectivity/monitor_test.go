// Package connectivity provides unit tests for the connectivity monitor.
package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestSubscribeReceivesRestoreEdge tests that subscribers are signaled on
// the offline-to-online transition.
func TestSubscribeReceivesRestoreEdge(t *testing.T) {
	m := NewMonitor("", 0)
	restored := m.Subscribe()

	m.SetOnline(false)
	m.SetOnline(true)

	select {
	case <-restored:
	case <-time.After(time.Second):
		t.Fatal("expected restore signal after offline->online transition")
	}
}

// TestNoSignalWithoutTransition tests that repeated online reports and the
// online-to-offline edge do not signal subscribers.
func TestNoSignalWithoutTransition(t *testing.T) {
	m := NewMonitor("", 0)
	restored := m.Subscribe()

	m.SetOnline(true)  // already online
	m.SetOnline(false) // going offline is not a restore

	select {
	case <-restored:
		t.Fatal("unexpected restore signal")
	case <-time.After(50 * time.Millisecond):
	}
}

// TestRapidTogglesCoalesce tests that a flurry of offline/online toggles
// collapses into at most one buffered signal.
func TestRapidTogglesCoalesce(t *testing.T) {
	m := NewMonitor("", 0)
	restored := m.Subscribe()

	for i := 0; i < 5; i++ {
		m.SetOnline(false)
		m.SetOnline(true)
	}

	<-restored
	select {
	case <-restored:
		t.Fatal("expected toggles to coalesce into a single signal")
	case <-time.After(50 * time.Millisecond):
	}
}

// TestProbeLoopDetectsRecovery tests that the probe loop flips state based
// on remote reachability.
func TestProbeLoopDetectsRecovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, 10*time.Millisecond)
	m.SetOnline(false)
	restored := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	select {
	case <-restored:
	case <-time.After(2 * time.Second):
		t.Fatal("expected probe loop to detect recovery")
	}
	if !m.Online() {
		t.Error("expected monitor to report online")
	}
}
