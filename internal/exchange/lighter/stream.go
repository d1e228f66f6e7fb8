package lighter

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type sessionState string

const (
	sessDisconnected       sessionState = "disconnected"
	sessConnecting         sessionState = "connecting"
	sessOpen               sessionState = "open"
	sessSubscribing        sessionState = "subscribing"
	sessReady              sessionState = "ready"
	sessReconnectScheduled sessionState = "reconnect_scheduled"
	sessClosing            sessionState = "closing"
	sessClosed             sessionState = "closed"
)

// channelSpec names one stream channel and whether its subscription carries
// the auth token.
type channelSpec struct {
	name string
	auth bool
}

type sessionConfig struct {
	URL            string
	Channels       []channelSpec
	AuthToken      func() (string, error)
	OnMessage      func(*wsInbound)
	OnStateChange  func(sessionState)
	Heartbeat      time.Duration
	StaleTimeout   time.Duration
	ReconnectDelay time.Duration
}

// session owns the single push connection of a gateway instance and drives
// the connect, subscribe, heartbeat, and reconnect lifecycle. A failure
// before the session reaches ready fails the connect attempt; a failure after
// ready schedules an unattended reconnect.
type session struct {
	cfg sessionConfig

	mu      sync.Mutex
	state   sessionState
	conn    *websocket.Conn
	writeMu sync.Mutex

	lastSeen atomic.Int64

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

func newSession(cfg sessionConfig) *session {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 3 * cfg.Heartbeat
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	return &session{
		cfg:     cfg,
		state:   sessDisconnected,
		stopped: make(chan struct{}),
	}
}

// Run performs the initial connect synchronously, bounded by dialCtx, so the
// caller can decide what to do with a failed startup. Reconnect supervision
// runs on runCtx, which must outlive the startup call: a dialCtx scoped to
// startup must not take automatic reconnection down with it.
func (s *session) Run(dialCtx, runCtx context.Context) error {
	done, err := s.connect(dialCtx)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go s.supervise(runCtx, done)
	return nil
}

func (s *session) State() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears the session down and stops all reconnect attempts.
func (s *session) Close() {
	s.stopOnce.Do(func() {
		s.setState(sessClosing)
		close(s.stopped)
		s.dropConn()
		s.wg.Wait()
		s.setState(sessClosed)
	})
}

// connect runs one full connect -> subscribe -> ready sequence. The returned
// channel closes when the resulting connection dies.
func (s *session) connect(ctx context.Context) (chan struct{}, error) {
	s.setState(sessConnecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		s.setState(sessDisconnected)
		return nil, fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	s.setState(sessOpen)
	s.touch()
	conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	// Subscribe to every required channel before declaring ready. The
	// server replays current state on subscription, so reconnects never
	// assume session continuity.
	s.setState(sessSubscribing)
	for _, ch := range s.cfg.Channels {
		req := wsSubscribe{Type: "subscribe", Channel: ch.name}
		if ch.auth {
			token, err := s.cfg.AuthToken()
			if err != nil {
				_ = conn.Close()
				s.setState(sessDisconnected)
				return nil, fmt.Errorf("auth token for %s: %w", ch.name, err)
			}
			req.Auth = token
		}
		if err := s.writeJSON(conn, req); err != nil {
			_ = conn.Close()
			s.setState(sessDisconnected)
			return nil, fmt.Errorf("subscribe %s: %w", ch.name, err)
		}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(sessReady)

	done := make(chan struct{})
	s.wg.Add(2)
	go s.readLoop(conn, done)
	go s.heartbeatLoop(conn, done)
	return done, nil
}

// supervise waits for the live connection to die, then re-runs the full
// connect sequence after the reconnect delay, forever, until Close.
func (s *session) supervise(ctx context.Context, done chan struct{}) {
	defer s.wg.Done()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.ReconnectDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 1
	for {
		select {
		case <-s.stopped:
			return
		case <-ctx.Done():
			return
		case <-done:
		}
		s.setState(sessReconnectScheduled)
		delay := bo.NextBackOff()
		select {
		case <-s.stopped:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		next, err := s.connect(ctx)
		if err != nil {
			log.Printf("level=WARN event=stream_reconnect_failed err=%q", err.Error())
			// Loop immediately: done already closed keeps the retry
			// cadence on the backoff delay.
			continue
		}
		done = next
	}
}

func (s *session) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer conn.Close()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.StaleTimeout + s.cfg.Heartbeat))
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopped:
			default:
				log.Printf("level=WARN event=stream_read_failed err=%q", err.Error())
			}
			return
		}
		s.touch()
		if len(data) == 0 {
			continue
		}
		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("level=WARN event=stream_decode_failed err=%q", err.Error())
			continue
		}
		if msg.Type == "pong" || msg.Type == "ping" {
			continue
		}
		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(&msg)
		}
	}
}

// heartbeatLoop emits a liveness probe on a fixed cadence and force-closes
// the socket when nothing has been heard within the stale window, which in
// turn triggers the reconnect path.
func (s *session) heartbeatLoop(conn *websocket.Conn, done chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			idle := time.Since(time.Unix(0, s.lastSeen.Load()))
			if idle > s.cfg.StaleTimeout {
				log.Printf("level=WARN event=stream_stale idle_sec=%d", int64(idle/time.Second))
				_ = conn.Close()
				return
			}
			if err := s.writeJSON(conn, wsPing{Type: "ping"}); err != nil {
				_ = conn.Close()
				return
			}
		case <-done:
			return
		case <-s.stopped:
			_ = conn.Close()
			return
		}
	}
}

func (s *session) writeJSON(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *session) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *session) setState(state sessionState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	if prev == state {
		return
	}
	log.Printf("level=INFO event=stream_state from=%q to=%q", string(prev), string(state))
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(state)
	}
}
