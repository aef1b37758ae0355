package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"counsel-platform/internal/audit"
	"counsel-platform/internal/auth"
	"counsel-platform/internal/calls"
	"counsel-platform/internal/callsession"
	"counsel-platform/internal/config"
	"counsel-platform/internal/identity"
	"counsel-platform/internal/rbac"
	"counsel-platform/internal/rtc"
	"counsel-platform/internal/signaling"
	"counsel-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SessionRunner hosts call sessions for thin clients. The client keeps the vendor RTC
// SDK and the call screen; the controller runs here and talks to both over one socket.
type SessionRunner struct {
	AppID    string
	Calls    CallStore
	History  History
	Locker   Locker
	Resolver Resolver
	Notifier callsession.Notifier
	Audit    *audit.Service

	// Tokens returns the token source for a participant. accessToken is the
	// participant's own API token, for sources that call back into the API.
	Tokens func(userID, accessToken string) rtc.TokenSource

	Policy   config.CallPolicy
	Upgrader websocket.Upgrader
}

// Session upgrades to a WebSocket and runs the call session for the current user
// until the socket closes.
func (h Handlers) Session(c *gin.Context) {
	s := h.Sessions
	if s == nil || h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rec, ok := h.loadParticipantRecord(c, userID, c.Param("channel_id"))
	if !ok {
		return
	}
	if rec.Terminal() {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already finished"})
		return
	}

	ctx := c.Request.Context()
	role, _ := auth.Role(ctx)
	sess := s.buildSession(ctx, rec, userID, role, auth.Token(ctx))

	conn, err := s.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log(c).Warn("session upgrade failed", "err", err)
		return
	}
	s.run(ctx, conn, sess, auth.Token(ctx), h.log(c))
}

func (s *SessionRunner) buildSession(ctx context.Context, rec signaling.RemoteCallRecord, userID, role, accessToken string) callsession.Session {
	caller := s.resolve(ctx, accessToken, rec.CallerID)
	receiver := s.resolve(ctx, accessToken, rec.ReceiverID)

	sess := callsession.Session{
		ChannelID:    rec.ChannelID,
		CallerID:     rec.CallerID,
		ReceiverID:   rec.ReceiverID,
		CallerName:   caller.Name,
		ReceiverName: receiver.Name,
		CallerKind:   caller.Kind,
		ReceiverKind: receiver.Kind,
		IsCaller:     rec.CallerID == userID,
		CallType:     rec.CallType,
		LocalUID:     MediaUID(userID),
	}
	// The token role is authoritative for the local side.
	local := calls.KindUser
	if role == rbac.RoleCounsellor {
		local = calls.KindCounsellor
	}
	if sess.IsCaller {
		sess.CallerKind = local
	} else {
		sess.ReceiverKind = local
	}
	return sess
}

func (s *SessionRunner) resolve(ctx context.Context, accessToken, id string) identity.Profile {
	if s.Resolver == nil {
		return identity.Placeholder(id)
	}
	return s.Resolver.Resolve(ctx, accessToken, id)
}

func (s *SessionRunner) run(ctx context.Context, conn *websocket.Conn, sess callsession.Session, accessToken string, reqLog *slog.Logger) {
	log := logger.ForCall(reqLog, sess.ChannelID, sess.Role())
	bridge := rtc.NewBridge(conn, log)
	defer bridge.Close()

	var tokens rtc.TokenSource
	if s.Tokens != nil {
		tokens = s.Tokens(localID(sess), accessToken)
	}

	deps := callsession.Deps{
		AppID:     s.AppID,
		Transport: bridge,
		Tokens:    tokens,
		Tone:      bridge,
		Listener:  signaling.NewListener(s.Calls, log),
		Presence:  s.Calls,
		Notifier:  s.Notifier,
		Recorder:  s.recorders(),
		Host:      &sessionHost{bridge: bridge, calls: s.Calls, channelID: sess.ChannelID, log: log},
	}

	ctrl, err := callsession.NewController(sess, deps,
		callsession.WithRingTimeout(s.Policy.RingTimeout),
		callsession.WithOfflineGrace(s.Policy.OfflineGrace),
		callsession.WithLogger(reqLog),
	)
	if err != nil {
		log.Error("call session init failed", "err", err)
		_ = bridge.Send(rtc.Message{Type: rtc.MsgError, Error: "session unavailable"})
		return
	}
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		log.Error("call session start failed", "err", err)
		return
	}
	if err := bridge.Serve(ctx, ctrl); err != nil {
		log.Warn("session socket closed", "err", err)
	}
}

func (s *SessionRunner) recorders() callsession.HistoryRecorder {
	rs := callsession.Recorders{recordCloser{calls: s.Calls, locker: s.Locker}}
	if s.History != nil {
		rs = append(rs, callsession.RepositoryRecorder{Calls: s.History})
	}
	if s.Audit != nil {
		rs = append(rs, auditRecorder{audit: s.Audit})
	}
	return rs
}

func localID(sess callsession.Session) string {
	if sess.IsCaller {
		return sess.CallerID
	}
	return sess.ReceiverID
}

// sessionHost forwards the controller's UI updates to the client and marks the shared
// record Active once the call connects.
type sessionHost struct {
	bridge    *rtc.Bridge
	calls     CallStore
	channelID string
	log       *slog.Logger
}

func (h *sessionHost) StatusChanged(s callsession.Status) {
	if s == callsession.StatusActive {
		h.markActive()
	}
	h.send(rtc.Message{Type: rtc.MsgStatus, Status: s.String()})
}

func (h *sessionHost) TimerTick(elapsed int, formatted string) {
	h.send(rtc.Message{Type: rtc.MsgTimer, Elapsed: elapsed, Timer: formatted})
}

func (h *sessionHost) Navigate(dest callsession.Destination, o callsession.Outcome) {
	h.send(rtc.Message{Type: rtc.MsgNavigate, Destination: string(dest), Payload: o})
}

func (h *sessionHost) send(m rtc.Message) {
	if err := h.bridge.Send(m); err != nil && !errors.Is(err, rtc.ErrBridgeClosed) {
		h.log.Debug("session message dropped", "type", m.Type, "err", err)
	}
}

func (h *sessionHost) markActive() {
	ctx := context.Background()
	rec, err := h.calls.Get(ctx, h.channelID)
	if err != nil || rec.Status != calls.CallStatusCalling {
		return
	}
	if _, err := h.calls.SetStatus(ctx, h.channelID, calls.CallStatusActive); err != nil {
		h.log.Warn("call record activate failed", "err", err)
	}
}

// recordCloser moves the shared record to its final status and frees the receiver.
// A record some other path already finished is left alone.
type recordCloser struct {
	calls  CallStore
	locker Locker
}

func (r recordCloser) RecordOutcome(ctx context.Context, o callsession.Outcome) error {
	if r.locker != nil {
		_ = r.locker.Release(ctx, busyKey(o.ReceiverID), o.ChannelID)
	}
	rec, err := r.calls.Get(ctx, o.ChannelID)
	if err != nil {
		if errors.Is(err, signaling.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if rec.Terminal() {
		return nil
	}
	_, err = r.calls.SetStatus(ctx, o.ChannelID, o.HistoryStatus())
	return err
}

// auditRecorder appends the session outcome to the call event trail.
type auditRecorder struct {
	audit *audit.Service
}

func (a auditRecorder) RecordOutcome(ctx context.Context, o callsession.Outcome) error {
	meta, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return a.audit.LogCallFinished(ctx, o.ChannelID, string(o.Reason), string(meta))
}
