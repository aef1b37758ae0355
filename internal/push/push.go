// Package push delivers Web Push notifications to call participants.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const (
	// DefaultTTL is how long the push service holds an undelivered cancellation.
	DefaultTTL = 60 * time.Second

	typeCancelCall = "cancel_call"
)

var ErrInvalidSubscription = errors.New("push: invalid subscription")

// CancelCall tells the remote participant's device to stop ringing or drop the
// incoming call screen for ChannelID.
type CancelCall struct {
	ReceiverID string `json:"receiverId"`
	SenderName string `json:"senderName"`
	ChannelID  string `json:"channelId"`
	CallType   string `json:"callType"`
}

type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

func (s Subscription) Valid() bool {
	return s.Endpoint != "" && s.P256dh != "" && s.Auth != ""
}

type SubscriptionStore interface {
	List(ctx context.Context, userID string) ([]Subscription, error)
	Remove(ctx context.Context, userID, endpoint string) error
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             time.Duration
	HTTPClient      *http.Client
}

// Notifier sends notifications to every subscription a user registered.
type Notifier struct {
	cfg   Config
	store SubscriptionStore
	log   *slog.Logger
}

func NewNotifier(cfg Config, store SubscriptionStore, log *slog.Logger) *Notifier {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{cfg: cfg, store: store, log: log}
}

// Enabled reports whether VAPID keys are configured. A disabled notifier skips sends.
func (n *Notifier) Enabled() bool {
	return n.cfg.VAPIDPublicKey != "" && n.cfg.VAPIDPrivateKey != ""
}

type cancelPayload struct {
	Type string `json:"type"`
	CancelCall
}

// SendCancelCallNotification pushes the cancellation to the receiver's devices.
// Subscriptions the push service reports as gone are removed. The first delivery
// error is returned after every subscription has been tried.
func (n *Notifier) SendCancelCallNotification(ctx context.Context, c CancelCall) error {
	if c.ReceiverID == "" || c.ChannelID == "" {
		return fmt.Errorf("push: cancel call needs receiver and channel")
	}
	if !n.Enabled() {
		n.log.Debug("push disabled, skipping cancel notification", "channel_id", c.ChannelID)
		return nil
	}

	subs, err := n.store.List(ctx, c.ReceiverID)
	if err != nil {
		return fmt.Errorf("push: list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		n.log.Debug("no push subscriptions", "user_id", c.ReceiverID)
		return nil
	}

	payload, err := json.Marshal(cancelPayload{Type: typeCancelCall, CancelCall: c})
	if err != nil {
		return err
	}

	var firstErr error
	for _, sub := range subs {
		if err := n.send(ctx, c.ReceiverID, sub, payload); err != nil {
			n.log.Warn("push delivery failed", "user_id", c.ReceiverID, "endpoint", truncate(sub.Endpoint), "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *Notifier) send(ctx context.Context, userID string, sub Subscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      n.cfg.HTTPClient,
		Subscriber:      n.cfg.Subscriber,
		VAPIDPublicKey:  n.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: n.cfg.VAPIDPrivateKey,
		TTL:             int(n.cfg.TTL / time.Second),
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		n.log.Info("removing expired push subscription", "user_id", userID, "status", resp.StatusCode)
		if err := n.store.Remove(ctx, userID, sub.Endpoint); err != nil {
			n.log.Warn("push subscription removal failed", "user_id", userID, "err", err)
		}
		return nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func truncate(endpoint string) string {
	if len(endpoint) > 50 {
		return endpoint[:50]
	}
	return endpoint
}
