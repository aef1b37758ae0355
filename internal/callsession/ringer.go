package callsession

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultRingTimeout bounds how long an outbound call rings before it is treated as unanswered.
const DefaultRingTimeout = 60 * time.Second

var ErrRingerSpent = errors.New("callsession: ringer already stopped")

type ringerState int

const (
	ringerIdle ringerState = iota
	ringerRinging
	ringerStopped
)

// Ringer plays the ringback tone and fires onTimeout if nobody answers in time.
// A stopped ringer never rings again.
type Ringer struct {
	clock     clock.Clock
	tone      Tone
	timeout   time.Duration
	onTimeout func()
	log       *slog.Logger

	mu    sync.Mutex
	state ringerState
	timer *clock.Timer
}

func NewRinger(clk clock.Clock, tone Tone, timeout time.Duration, onTimeout func(), log *slog.Logger) *Ringer {
	if clk == nil {
		clk = clock.New()
	}
	if tone == nil {
		tone = noopTone{}
	}
	if timeout <= 0 {
		timeout = DefaultRingTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ringer{clock: clk, tone: tone, timeout: timeout, onTimeout: onTimeout, log: log}
}

// Start begins the tone and arms the timeout. Starting a ringing ringer is a no-op.
func (r *Ringer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case ringerRinging:
		return nil
	case ringerStopped:
		return ErrRingerSpent
	}
	r.state = ringerRinging
	r.timer = r.clock.AfterFunc(r.timeout, r.expire)

	if err := r.tone.Play(); err != nil {
		// The timeout still bounds the call even without an audible tone.
		r.log.Warn("ringer tone play failed", "err", err)
		return err
	}
	return nil
}

// Stop silences the tone and disarms the timeout. It reports whether it stopped a
// ringing tone; repeated calls return false and have no side effects.
func (r *Ringer) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasRinging := r.state == ringerRinging
	r.state = ringerStopped
	if !wasRinging {
		return false
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if err := r.tone.Stop(); err != nil {
		r.log.Warn("ringer tone stop failed", "err", err)
	}
	return true
}

// Ringing reports whether the tone is currently active.
func (r *Ringer) Ringing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == ringerRinging
}

func (r *Ringer) expire() {
	r.mu.Lock()
	if r.state != ringerRinging {
		r.mu.Unlock()
		return
	}
	r.state = ringerStopped
	r.timer = nil
	if err := r.tone.Stop(); err != nil {
		r.log.Warn("ringer tone stop failed", "err", err)
	}
	r.mu.Unlock()

	r.log.Info("ring timeout elapsed", "timeout", r.timeout.String())
	if r.onTimeout != nil {
		r.onTimeout()
	}
}
