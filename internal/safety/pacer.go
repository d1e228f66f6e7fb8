// Package safety contains the adaptive rate-limit controller that paces
// request cycles and gates new position entries after the exchange pushes
// back.
package safety

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/monkeypipijy/ritmex-bot/internal/alert"
)

type State string

const (
	StateNormal   State = "normal"
	StateDegraded State = "degraded"
	StatePaused   State = "paused"
)

type Decision int

const (
	Run Decision = iota
	Skip
	Paused
)

func (d Decision) String() string {
	switch d {
	case Run:
		return "run"
	case Skip:
		return "skip"
	case Paused:
		return "paused"
	}
	return "unknown"
}

const (
	defaultMinInterval    = 250 * time.Millisecond
	defaultPauseDuration  = 30 * time.Second
	defaultRecoveryWindow = 60 * time.Second
)

type PacerConfig struct {
	// MinInterval is the floor between cycles while normal; it doubles
	// while degraded or paused.
	MinInterval time.Duration
	// PauseDuration is how long a second rate-limit hit halts cycles.
	PauseDuration time.Duration
	// RecoveryWindow is how long the controller must run degraded without
	// a further hit before it returns to normal.
	RecoveryWindow time.Duration
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Pacer walks normal -> degraded -> paused -> degraded -> normal. Entry gating
// is tracked separately from cycle throttling: a degraded or paused pacer
// still lets risk-reducing actions through, it only blocks new exposure.
type Pacer struct {
	mu             sync.Mutex
	cfg            PacerConfig
	state          State
	lastCycle      time.Time
	pauseUntil     time.Time
	cleanSince     time.Time
	entriesAllowed bool
	now            func() time.Time
	alerter        alert.Alerter
}

func NewPacer(cfg PacerConfig) *Pacer {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.PauseDuration <= 0 {
		cfg.PauseDuration = defaultPauseDuration
	}
	if cfg.RecoveryWindow <= 0 {
		cfg.RecoveryWindow = defaultRecoveryWindow
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Pacer{
		cfg:            cfg,
		state:          StateNormal,
		entriesAllowed: true,
		now:            now,
	}
}

func (p *Pacer) SetAlerter(alerter alert.Alerter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerter = alerter
}

// BeforeCycle decides whether the caller may run a request cycle now. While
// paused it returns Paused until the deadline elapses, then demotes to
// degraded; otherwise it enforces the minimum inter-cycle interval.
func (p *Pacer) BeforeCycle() Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if p.state == StatePaused {
		if now.Before(p.pauseUntil) {
			return Paused
		}
		p.state = StateDegraded
		p.cleanSince = now
		p.logTransitionLocked("pause_elapsed", StatePaused, StateDegraded)
	}
	interval := p.cfg.MinInterval
	if p.state != StateNormal {
		interval *= 2
	}
	if !p.lastCycle.IsZero() && now.Sub(p.lastCycle) < interval {
		return Skip
	}
	p.lastCycle = now
	return Run
}

// RegisterRateLimit records an exchange pacing rejection. The first hit
// degrades the controller and suppresses entries; a second hit pauses it; a
// hit while already paused extends the pause window.
func (p *Pacer) RegisterRateLimit(source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	switch p.state {
	case StateNormal:
		p.state = StateDegraded
		p.entriesAllowed = false
		p.cleanSince = now
		p.logLimitLocked(source, StateNormal, StateDegraded)
	case StateDegraded:
		p.state = StatePaused
		p.pauseUntil = now.Add(p.cfg.PauseDuration)
		p.logLimitLocked(source, StateDegraded, StatePaused)
	case StatePaused:
		p.pauseUntil = now.Add(p.cfg.PauseDuration)
		p.logLimitLocked(source, StatePaused, StatePaused)
	}
}

// OnCycleComplete reports the outcome of a finished cycle. A clean cycle
// after a full recovery window returns the controller to normal and
// re-enables entries; a rate-limited cycle restarts the window.
func (p *Pacer) OnCycleComplete(hadRateLimit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if hadRateLimit {
		p.cleanSince = now
		return
	}
	if p.state == StateDegraded && now.Sub(p.cleanSince) >= p.cfg.RecoveryWindow {
		p.state = StateNormal
		p.entriesAllowed = true
		p.logTransitionLocked("recovered", StateDegraded, StateNormal)
	}
}

// EntriesAllowed reports whether new position-opening intents may be placed.
// Cancels and reduce-only orders are never gated here.
func (p *Pacer) EntriesAllowed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entriesAllowed
}

func (p *Pacer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pacer) logLimitLocked(source string, from, to State) {
	log.Printf(
		"level=WARN event=rate_limit source=%q from_state=%q to_state=%q pause_sec=%d",
		source, string(from), string(to), int64(p.cfg.PauseDuration/time.Second),
	)
	if p.alerter != nil {
		p.alerter.Important("rate_limit", map[string]string{
			"source":     source,
			"from_state": string(from),
			"to_state":   string(to),
			"pause_sec":  strconv.FormatInt(int64(p.cfg.PauseDuration/time.Second), 10),
		})
	}
}

func (p *Pacer) logTransitionLocked(reason string, from, to State) {
	log.Printf(
		"level=INFO event=pacer_transition reason=%q from_state=%q to_state=%q",
		reason, string(from), string(to),
	)
	if p.alerter != nil {
		p.alerter.Important("pacer_transition", map[string]string{
			"reason":     reason,
			"from_state": string(from),
			"to_state":   string(to),
		})
	}
}
