// Package connectivity tracks reachability of the remote CRM and signals
// connectivity-restored events to subscribers.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kimhsiao/fieldsync/internal/logging"
)

// Monitor tracks online state. Subscribers are notified on offline-to-online
// transitions only; repeated online reports are coalesced so a flurry of
// toggles cannot fan out into concurrent drains downstream.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan struct{}

	probeURL string
	interval time.Duration
	client   *http.Client

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewMonitor creates a Monitor. The initial state is assumed online; the
// first probe corrects it if the remote is unreachable. probeURL may be
// empty, in which case Start is a no-op and state changes only through
// SetOnline.
func NewMonitor(probeURL string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		online:   true,
		probeURL: probeURL,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		stopCh:   make(chan struct{}),
	}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe returns a channel that receives one signal per
// offline-to-online transition. The channel has capacity one; an
// undelivered signal absorbs later ones.
func (m *Monitor) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// SetOnline records a connectivity state change. Only the offline-to-online
// edge notifies subscribers.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	var notify []chan struct{}
	if !was && online {
		notify = append(notify, m.subs...)
	}
	m.mu.Unlock()

	if was != online {
		logging.Component("connectivity").WithFields(map[string]interface{}{
			"was_online": was,
			"is_online":  online,
		}).Info("connectivity state changed")
	}

	for _, ch := range notify {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Start begins the background probe loop. No-op without a probe URL.
func (m *Monitor) Start(ctx context.Context) {
	if m.probeURL == "" {
		return
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.probeLoop(ctx)
}

// Stop stops the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Establish real state immediately rather than waiting one interval.
	m.SetOnline(m.probe(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}

// probe reports whether the remote endpoint is reachable. Any HTTP response
// counts as reachable; only transport-level failures count as offline.
func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
