package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrBridgeClosed = errors.New("rtc: bridge closed")

// writeWait bounds one frame write to a stalled client.
const writeWait = 10 * time.Second

// Message types on the session socket.
const (
	// client -> server
	MsgJoinSuccess   = "join_success"
	MsgRemoteJoined  = "remote_joined"
	MsgRemoteOffline = "remote_offline"
	MsgEnd           = "end"
	MsgError         = "error"

	// both directions: a UI toggle from the client, an SDK command from the server
	MsgMute    = "mute"
	MsgSpeaker = "speaker"

	// server -> client
	MsgInit     = "init"
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgRelease  = "release"
	MsgTonePlay = "tone_play"
	MsgToneStop = "tone_stop"
	MsgTimer    = "timer"
	MsgStatus   = "status"
	MsgNavigate = "navigate"
)

// Message is one frame on the session socket. Only the fields relevant to Type are set.
type Message struct {
	Type string `json:"type"`

	AppID     string       `json:"appId,omitempty"`
	Profile   Profile      `json:"profile,omitempty"`
	Token     string       `json:"token,omitempty"`
	ChannelID string       `json:"channelId,omitempty"`
	UID       uint32       `json:"uid,omitempty"`
	Options   *JoinOptions `json:"options,omitempty"`

	Reason OfflineReason `json:"reason,omitempty"`
	On     *bool         `json:"on,omitempty"`

	Status      string `json:"status,omitempty"`
	Elapsed     int    `json:"elapsed,omitempty"`
	Timer       string `json:"timer,omitempty"`
	Destination string `json:"destination,omitempty"`
	Payload     any    `json:"payload,omitempty"`

	Error string `json:"error,omitempty"`
}

// Conn is the part of *websocket.Conn the bridge uses.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Handler receives the client's events. *callsession.Controller implements it.
type Handler interface {
	EventHandler
	EndCall()
	MuteLocalAudio(muted bool) error
	SetSpeakerphone(on bool) error
}

// Bridge drives the SDK hosted by a thin client over a WebSocket. It implements
// Transport and the ringback tone by sending commands; Serve feeds the client's
// SDK callbacks and UI actions back to a Handler.
type Bridge struct {
	conn Conn
	log  *slog.Logger

	mu     sync.Mutex // serialises writes
	closed bool

	once sync.Once
}

func NewBridge(conn Conn, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{conn: conn, log: log}
}

// Send writes one message within writeWait. Writes after Close return ErrBridgeClosed.
func (b *Bridge) Send(m Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBridgeClosed
	}
	if err := b.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("rtc: send %s: %w", m.Type, err)
	}
	if err := b.conn.WriteJSON(m); err != nil {
		return fmt.Errorf("rtc: send %s: %w", m.Type, err)
	}
	return nil
}

// Close marks the bridge closed and closes the socket. Safe to call repeatedly.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		err = b.conn.Close()
	})
	return err
}

func (b *Bridge) Initialize(appID string, profile Profile) error {
	return b.Send(Message{Type: MsgInit, AppID: appID, Profile: profile})
}

// JoinChannel asks the client to join. Completion is reported later as join_success.
func (b *Bridge) JoinChannel(ctx context.Context, token, channelID string, uid uint32, opts JoinOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Send(Message{Type: MsgJoin, Token: token, ChannelID: channelID, UID: uid, Options: &opts})
}

func (b *Bridge) LeaveChannel() error { return b.Send(Message{Type: MsgLeave}) }

func (b *Bridge) Release() error { return b.Send(Message{Type: MsgRelease}) }

func (b *Bridge) MuteLocalAudio(muted bool) error {
	return b.Send(Message{Type: MsgMute, On: &muted})
}

func (b *Bridge) SetSpeakerphone(on bool) error {
	return b.Send(Message{Type: MsgSpeaker, On: &on})
}

// Play and Stop drive the ringback tone on the client.
func (b *Bridge) Play() error { return b.Send(Message{Type: MsgTonePlay}) }
func (b *Bridge) Stop() error { return b.Send(Message{Type: MsgToneStop}) }

// Serve reads client messages until the socket closes or ctx ends. A normal close
// returns nil.
func (b *Bridge) Serve(ctx context.Context, h Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var m Message
		if err := b.conn.ReadJSON(&m); err != nil {
			if errors.Is(err, io.EOF) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("rtc: read: %w", err)
		}
		b.dispatch(h, m)
	}
}

func (b *Bridge) dispatch(h Handler, m Message) {
	switch m.Type {
	case MsgJoinSuccess:
		h.OnJoinSuccess(m.ChannelID, m.UID)
	case MsgRemoteJoined:
		h.OnRemoteUserJoined(m.UID)
	case MsgRemoteOffline:
		h.OnRemoteUserOffline(m.UID, m.Reason)
	case MsgEnd:
		h.EndCall()
	case MsgMute:
		if m.On == nil {
			return
		}
		if err := h.MuteLocalAudio(*m.On); err != nil {
			b.log.Warn("mute failed", "err", err)
		}
	case MsgSpeaker:
		if m.On == nil {
			return
		}
		if err := h.SetSpeakerphone(*m.On); err != nil {
			b.log.Warn("speakerphone toggle failed", "err", err)
		}
	case MsgError:
		b.log.Warn("client rtc error", "err", m.Error)
	default:
		b.log.Debug("ignoring unknown client message", "type", m.Type)
	}
}
