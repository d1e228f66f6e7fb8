// Package alert fans important gateway events (stream degradation, pacing
// pauses, failed submissions) out to an external notifier without ever
// blocking the trading path.
package alert

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

type Alerter interface {
	Important(event string, fields map[string]string)
}

const (
	defaultQueueSize   = 128
	defaultSendTimeout = 20 * time.Second
)

type event struct {
	name   string
	fields map[string]string
}

// Manager queues important events and delivers them asynchronously. When the
// queue is full events are counted and dropped, never blocked on.
type Manager struct {
	env      string
	symbol   string
	notifier Notifier
	queue    chan event
	stop     chan struct{}
	done     chan struct{}
	dropped  atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewManager returns nil when notifier is nil; a nil *Manager is a valid
// no-op Alerter.
func NewManager(env, symbol string, notifier Notifier) *Manager {
	if notifier == nil {
		return nil
	}
	m := &Manager{
		env:      env,
		symbol:   symbol,
		notifier: notifier,
		queue:    make(chan event, defaultQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *Manager) Important(name string, fields map[string]string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	cloned := make(map[string]string, len(fields))
	for k, v := range fields {
		cloned[k] = v
	}
	select {
	case m.queue <- event{name: name, fields: cloned}:
	default:
		if n := m.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Printf("level=WARN event=alert_dropped target_event=%q dropped_total=%d", name, n)
		}
	}
}

// Close drains queued events and stops the delivery loop.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.stop)
	m.mu.Unlock()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case ev := <-m.queue:
			m.send(ev)
		case <-m.stop:
			for {
				select {
				case ev := <-m.queue:
					m.send(ev)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) send(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
	defer cancel()
	if err := m.notifier.Notify(ctx, m.format(ev)); err != nil {
		log.Printf("level=ERROR event=alert_notify_failed target_event=%q err=%q", ev.name, err.Error())
	}
}

func (m *Manager) format(ev event) string {
	lines := []string{
		"[gateway] " + ev.name,
		"time: " + time.Now().UTC().Format(time.RFC3339),
		"env: " + m.env,
		"symbol: " + m.symbol,
	}
	keys := make([]string, 0, len(ev.fields))
	for k := range ev.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, k+": "+ev.fields[k])
	}
	return strings.Join(lines, "\n")
}
