// Package callsession coordinates the lifecycle of a single call attempt.
//
// Events arrive from three independent sources: RTC transport callbacks, the remote
// call record listener, and local timers (ring timeout, offline grace, call timer).
// The Controller owns the session state and funnels every terminal event into one
// teardown gate, so teardown side effects run exactly once whatever order the
// events arrive in.
package callsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"counsel-platform/internal/push"
	"counsel-platform/internal/rtc"
	"counsel-platform/pkg/logger"

	"github.com/benbjohnson/clock"
)

// DefaultOfflineGrace is how long a dropped peer may take to rejoin before the call ends.
const DefaultOfflineGrace = 3 * time.Second

const defaultTeardownTimeout = 5 * time.Second

var (
	ErrAlreadyStarted = errors.New("callsession: already started")
	ErrMissingDeps    = errors.New("callsession: transport, tokens and host are required")
)

type Option func(*Controller)

func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

func WithRingTimeout(d time.Duration) Option {
	return func(c *Controller) { c.ringTimeout = d }
}

func WithOfflineGrace(d time.Duration) Option {
	return func(c *Controller) { c.grace = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithTeardownTimeout bounds the network calls made during teardown.
func WithTeardownTimeout(d time.Duration) Option {
	return func(c *Controller) { c.teardownTimeout = d }
}

// Controller drives one call session. All methods are safe for concurrent use.
type Controller struct {
	sess Session
	deps Deps

	clock           clock.Clock
	ringTimeout     time.Duration
	grace           time.Duration
	teardownTimeout time.Duration
	log             *slog.Logger

	ringer *Ringer
	timer  *Timer

	mu         sync.Mutex
	status     Status
	answeredAt time.Time
	reason     EndReason
	offline    *graceTask
	joinCancel context.CancelFunc
	closed     bool

	// ended is closed when the winning teardown finishes.
	ended chan struct{}
}

// graceTask is the handle of a pending offline termination. The controller keeps the
// current handle; a fired task that no longer matches it has been superseded.
type graceTask struct {
	timer *clock.Timer
}

func (t *graceTask) cancel() {
	if t != nil && t.timer != nil {
		t.timer.Stop()
	}
}

func NewController(sess Session, deps Deps, opts ...Option) (*Controller, error) {
	if deps.Transport == nil || deps.Tokens == nil || deps.Host == nil {
		return nil, ErrMissingDeps
	}
	if deps.Listener == nil {
		deps.Listener = noopListener{}
	}

	c := &Controller{
		sess:            sess,
		deps:            deps,
		ringTimeout:     DefaultRingTimeout,
		grace:           DefaultOfflineGrace,
		teardownTimeout: defaultTeardownTimeout,
		ended:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	c.log = logger.ForCall(c.log, sess.ChannelID, sess.Role())

	c.ringer = NewRinger(c.clock, deps.Tone, c.ringTimeout, c.onRingTimeout, c.log)
	c.timer = NewTimer(c.clock, deps.Host.TimerTick)
	return c, nil
}

// Start begins the call and returns immediately. The caller side rings; both sides
// subscribe to the remote record and join the media channel in the background.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if c.sess.IsCaller {
		c.status = StatusRinging
	} else {
		c.status = StatusConnecting
	}
	status := c.status
	joinCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.joinCancel = cancel
	c.mu.Unlock()

	if err := c.deps.Transport.Initialize(c.deps.AppID, rtc.ProfileCommunication); err != nil {
		c.log.Warn("rtc initialize failed", "err", err)
	}
	if c.sess.IsCaller {
		_ = c.ringer.Start()
	}
	if err := c.deps.Listener.Subscribe(ctx, c.sess.ChannelID, c.OnRemoteDeclined); err != nil {
		c.log.Warn("signal listener subscribe failed", "err", err)
	}

	c.deps.Host.StatusChanged(status)
	c.log.Info("call session started", "status", status.String(), "call_type", string(c.sess.CallType))

	go c.join(joinCtx)
	return nil
}

func (c *Controller) join(ctx context.Context) {
	token, err := c.deps.Tokens.Token(ctx, c.sess.ChannelID, rtc.RolePublisher)
	if err != nil {
		c.log.Warn("rtc token fetch failed", "err", err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	opts := rtc.JoinOptions{
		PublishAudio:  true,
		PublishVideo:  c.sess.CallType.HasVideo(),
		AutoSubscribe: true,
	}
	if err := c.deps.Transport.JoinChannel(ctx, token, c.sess.ChannelID, c.sess.LocalUID, opts); err != nil {
		c.log.Warn("rtc join failed", "err", err)
		return
	}

	// Teardown may have run while the join was in flight.
	c.mu.Lock()
	closing := c.status.Closing()
	c.mu.Unlock()
	if closing {
		if err := c.deps.Transport.LeaveChannel(); err != nil {
			c.log.Warn("rtc leave after late join failed", "err", err)
		}
	}
}

// OnJoinSuccess is the transport's confirmation that the local side joined.
func (c *Controller) OnJoinSuccess(channelID string, uid uint32) {
	c.log.Debug("joined channel", "joined_channel", channelID, "uid", uid)
}

// OnRemoteUserJoined answers the call, or cancels a pending offline grace task when
// the peer comes back.
func (c *Controller) OnRemoteUserJoined(uid uint32) {
	c.mu.Lock()
	if c.status.Closing() || c.status == StatusIdle {
		c.mu.Unlock()
		return
	}
	if c.offline != nil {
		c.offline.cancel()
		c.offline = nil
		c.log.Info("remote peer rejoined within grace period", "uid", uid)
	}
	if c.status == StatusActive {
		c.mu.Unlock()
		return
	}
	c.status = StatusActive
	c.answeredAt = c.clock.Now()
	c.mu.Unlock()

	c.ringer.Stop()
	c.timer.Start()

	// A teardown may have run since the unlock above.
	c.mu.Lock()
	closing := c.status.Closing()
	c.mu.Unlock()
	if closing {
		c.timer.Stop()
		return
	}
	c.deps.Host.StatusChanged(StatusActive)
	c.log.Info("remote peer joined", "uid", uid)
}

// OnRemoteUserOffline arms the grace task for a peer that had joined. A peer that
// never joined, or a session already tearing down, is ignored.
func (c *Controller) OnRemoteUserOffline(uid uint32, reason rtc.OfflineReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive || c.offline != nil {
		return
	}
	task := &graceTask{}
	c.offline = task
	task.timer = c.clock.AfterFunc(c.grace, func() { c.graceExpired(task) })
	c.log.Info("remote peer offline, grace period armed", "uid", uid, "reason", reason.String(), "grace", c.grace.String())
}

func (c *Controller) graceExpired(task *graceTask) {
	c.mu.Lock()
	if c.offline != task {
		c.mu.Unlock()
		return
	}
	c.offline = nil
	c.mu.Unlock()

	c.terminate(ReasonRemoteOffline)
}

// OnRemoteDeclined ends the call immediately.
func (c *Controller) OnRemoteDeclined() {
	c.terminate(ReasonRemoteDeclined)
}

// EndCall is the local hang-up.
func (c *Controller) EndCall() {
	c.terminate(ReasonUserEnded)
}

func (c *Controller) onRingTimeout() {
	c.mu.Lock()
	ringing := c.status == StatusRinging
	c.mu.Unlock()
	if !ringing {
		return
	}
	c.terminate(ReasonRingTimeout)
}

// terminate is the single teardown gate. It reports whether this call ran the teardown.
func (c *Controller) terminate(reason EndReason) bool {
	c.mu.Lock()
	if c.status.Closing() {
		c.mu.Unlock()
		return false
	}
	c.status = StatusEnding
	c.reason = reason
	c.offline.cancel()
	c.offline = nil
	if c.joinCancel != nil {
		c.joinCancel()
	}
	answered := !c.answeredAt.IsZero()
	c.mu.Unlock()

	log := c.log.With("reason", string(reason))
	log.Info("call teardown started")

	elapsed := c.timer.Elapsed()
	c.timer.Stop()
	c.ringer.Stop()
	c.deps.Listener.Unsubscribe()

	if err := c.deps.Transport.LeaveChannel(); err != nil {
		log.Warn("rtc leave failed", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.teardownTimeout)
	defer cancel()

	if c.deps.Presence != nil {
		if err := c.deps.Presence.ClearPresence(ctx, c.sess.ChannelID, c.sess.ReceiverID); err != nil {
			log.Warn("presence clear failed", "err", err)
		}
	}

	if c.deps.Notifier != nil {
		n := push.CancelCall{
			ReceiverID: c.sess.RemoteID(),
			SenderName: c.sess.LocalName(),
			ChannelID:  c.sess.ChannelID,
			CallType:   string(c.sess.CallType),
		}
		if err := c.deps.Notifier.SendCancelCallNotification(ctx, n); err != nil {
			log.Warn("cancel notification failed", "err", err)
		}
	}

	out := Outcome{
		ChannelID:       c.sess.ChannelID,
		CallerID:        c.sess.CallerID,
		ReceiverID:      c.sess.ReceiverID,
		CallType:        c.sess.CallType,
		Reason:          reason,
		Answered:        answered,
		DurationSeconds: elapsed,
		EndedAt:         c.clock.Now().UTC(),
	}
	if c.deps.Recorder != nil {
		if err := c.deps.Recorder.RecordOutcome(ctx, out); err != nil {
			log.Warn("call history record failed", "err", err)
		}
	}

	c.mu.Lock()
	c.status = StatusEnded
	c.mu.Unlock()
	close(c.ended)

	c.deps.Host.StatusChanged(StatusEnded)
	c.deps.Host.Navigate(c.sess.Home(), out)
	log.Info("call teardown finished", "answered", answered, "duration_seconds", elapsed)
	return true
}

// Close disposes the session: subscription and timers are cancelled and the transport
// released before it returns. A teardown already in flight elsewhere is not repeated;
// Close waits for it, bounded by the teardown timeout, so release follows leave.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.offline.cancel()
	c.offline = nil
	c.mu.Unlock()

	c.deps.Listener.Unsubscribe()
	if !c.terminate(ReasonDisposed) {
		// Another goroutine owns the teardown. Let it leave the channel before release.
		select {
		case <-c.ended:
		case <-time.After(c.teardownTimeout):
			c.log.Warn("teardown still running at close, releasing anyway")
		}
	}
	c.ringer.Stop()
	c.timer.Stop()

	if err := c.deps.Transport.Release(); err != nil {
		c.log.Warn("rtc release failed", "err", err)
	}
}

func (c *Controller) MuteLocalAudio(muted bool) error {
	return c.deps.Transport.MuteLocalAudio(muted)
}

func (c *Controller) SetSpeakerphone(on bool) error {
	return c.deps.Transport.SetSpeakerphone(on)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		Session:  c.sess,
		Status:   c.status,
		Answered: !c.answeredAt.IsZero(),
		Reason:   c.reason,
	}
	c.mu.Unlock()
	s.ElapsedSeconds = c.timer.Elapsed()
	s.Timer = FormatElapsed(s.ElapsedSeconds)
	return s
}
