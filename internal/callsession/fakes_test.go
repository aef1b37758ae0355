package callsession

import (
	"context"
	"sync"

	"counsel-platform/internal/calls"
	"counsel-platform/internal/push"
	"counsel-platform/internal/rtc"
)

type fakeTransport struct {
	mu       sync.Mutex
	inits    int
	joins    int
	leaves   int
	releases int
	lastJoin rtc.JoinOptions
	ops      []string

	// joinGate, when set, blocks JoinChannel until closed.
	joinGate chan struct{}
	entered  chan struct{}
	joined   chan struct{}
}

func (f *fakeTransport) Initialize(appID string, profile rtc.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return nil
}

func (f *fakeTransport) JoinChannel(ctx context.Context, token, channelID string, uid uint32, opts rtc.JoinOptions) error {
	if f.joinGate != nil {
		close(f.entered)
		<-f.joinGate
	}
	f.mu.Lock()
	f.joins++
	f.lastJoin = opts
	f.mu.Unlock()
	if f.joined != nil {
		close(f.joined)
	}
	return nil
}

func (f *fakeTransport) LeaveChannel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	f.ops = append(f.ops, "leave")
	return nil
}

func (f *fakeTransport) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	f.ops = append(f.ops, "release")
	return nil
}

func (f *fakeTransport) MuteLocalAudio(bool) error  { return nil }
func (f *fakeTransport) SetSpeakerphone(bool) error { return nil }

func (f *fakeTransport) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeTransport) counts() (joins, leaves, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins, f.leaves, f.releases
}

var staticTokens = rtc.TokenSourceFunc(func(ctx context.Context, channelID string, role rtc.Role) (string, error) {
	return "token-" + channelID, nil
})

type fakeTone struct {
	mu    sync.Mutex
	plays int
	stops int

	// stopGate, when set, blocks the first Stop until closed; stopEntered is closed
	// once that Stop is waiting.
	stopGate    chan struct{}
	stopEntered chan struct{}
	gateOnce    sync.Once
}

func (t *fakeTone) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.plays++
	return nil
}

func (t *fakeTone) Stop() error {
	if t.stopGate != nil {
		t.gateOnce.Do(func() {
			close(t.stopEntered)
			<-t.stopGate
		})
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	return nil
}

// gateStop makes the next Stop block until the returned release func runs.
func (t *fakeTone) gateStop() (entered <-chan struct{}, release func()) {
	t.stopGate = make(chan struct{})
	t.stopEntered = make(chan struct{})
	return t.stopEntered, func() { close(t.stopGate) }
}

func (t *fakeTone) counts() (plays, stops int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.plays, t.stops
}

type fakeListener struct {
	mu           sync.Mutex
	onDeclined   func()
	unsubscribes int
}

func (l *fakeListener) Subscribe(ctx context.Context, channelID string, onDeclined func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onDeclined = onDeclined
	return nil
}

func (l *fakeListener) Unsubscribe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsubscribes++
}

func (l *fakeListener) decline() {
	l.mu.Lock()
	fn := l.onDeclined
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakePresence struct {
	mu      sync.Mutex
	cleared []string
}

func (p *fakePresence) ClearPresence(ctx context.Context, channelID, receiverID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, channelID+"/"+receiverID)
	return nil
}

func (p *fakePresence) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cleared...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []push.CancelCall
}

func (n *fakeNotifier) SendCancelCallNotification(ctx context.Context, c push.CancelCall) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, c)
	return nil
}

func (n *fakeNotifier) all() []push.CancelCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]push.CancelCall(nil), n.sent...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *fakeRecorder) RecordOutcome(ctx context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *fakeRecorder) all() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

type navigation struct {
	dest    Destination
	outcome Outcome
}

type fakeHost struct {
	mu       sync.Mutex
	statuses []Status
	ticks    []string
	navs     []navigation
}

func (h *fakeHost) StatusChanged(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, s)
}

func (h *fakeHost) TimerTick(elapsed int, formatted string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ticks = append(h.ticks, formatted)
}

func (h *fakeHost) Navigate(dest Destination, o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navs = append(h.navs, navigation{dest: dest, outcome: o})
}

func (h *fakeHost) tickCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ticks)
}

func (h *fakeHost) statusHistory() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Status(nil), h.statuses...)
}

func (h *fakeHost) navigations() []navigation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]navigation(nil), h.navs...)
}

type harness struct {
	transport *fakeTransport
	tone      *fakeTone
	listener  *fakeListener
	presence  *fakePresence
	notifier  *fakeNotifier
	recorder  *fakeRecorder
	host      *fakeHost
}

func newHarness() *harness {
	return &harness{
		transport: &fakeTransport{},
		tone:      &fakeTone{},
		listener:  &fakeListener{},
		presence:  &fakePresence{},
		notifier:  &fakeNotifier{},
		recorder:  &fakeRecorder{},
		host:      &fakeHost{},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		AppID:     "app",
		Transport: h.transport,
		Tokens:    staticTokens,
		Tone:      h.tone,
		Listener:  h.listener,
		Presence:  h.presence,
		Notifier:  h.notifier,
		Recorder:  h.recorder,
		Host:      h.host,
	}
}

func callerSession() Session {
	return Session{
		ChannelID:    "abc",
		CallerID:     "u1",
		ReceiverID:   "c1",
		CallerName:   "Asha",
		ReceiverName: "Dr. Rao",
		CallerKind:   calls.KindUser,
		ReceiverKind: calls.KindCounsellor,
		IsCaller:     true,
		CallType:     calls.CallTypeAudio,
		LocalUID:     1,
	}
}

func receiverSession() Session {
	s := callerSession()
	s.IsCaller = false
	s.LocalUID = 2
	return s
}
