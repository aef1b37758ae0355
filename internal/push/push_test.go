package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
)

type memStore struct {
	mu      sync.Mutex
	subs    map[string][]Subscription
	removed []string
}

func (m *memStore) List(ctx context.Context, userID string) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Subscription(nil), m.subs[userID]...), nil
}

func (m *memStore) Remove(ctx context.Context, userID, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, endpoint)
	return nil
}

func testSubscription(t *testing.T, endpoint string) Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("auth: %v", err)
	}
	return Subscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("vapid: %v", err)
	}
	return Config{VAPIDPublicKey: pub, VAPIDPrivateKey: priv, Subscriber: "ops@counsel.local"}
}

func TestNotifier_DisabledSkips(t *testing.T) {
	store := &memStore{}
	n := NewNotifier(Config{}, store, nil)

	if n.Enabled() {
		t.Fatalf("expected notifier to be disabled")
	}
	err := n.SendCancelCallNotification(context.Background(), CancelCall{ReceiverID: "c1", ChannelID: "abc"})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestNotifier_RequiresReceiverAndChannel(t *testing.T) {
	n := NewNotifier(testConfig(t), &memStore{}, nil)
	if err := n.SendCancelCallNotification(context.Background(), CancelCall{ChannelID: "abc"}); err == nil {
		t.Fatalf("expected error without receiver")
	}
}

func TestNotifier_SendsToEverySubscription(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("TTL") != "60" {
			t.Errorf("unexpected TTL header %q", r.Header.Get("TTL"))
		}
		if r.Header.Get("Urgency") != "high" {
			t.Errorf("unexpected Urgency header %q", r.Header.Get("Urgency"))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := &memStore{subs: map[string][]Subscription{
		"c1": {testSubscription(t, srv.URL+"/a"), testSubscription(t, srv.URL+"/b")},
	}}
	n := NewNotifier(testConfig(t), store, nil)

	err := n.SendCancelCallNotification(context.Background(), CancelCall{ReceiverID: "c1", SenderName: "Asha", ChannelID: "abc", CallType: "audio"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 deliveries, got %d", hits.Load())
	}
}

func TestNotifier_RemovesGoneSubscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	sub := testSubscription(t, srv.URL+"/gone")
	store := &memStore{subs: map[string][]Subscription{"c1": {sub}}}
	n := NewNotifier(testConfig(t), store, nil)

	if err := n.SendCancelCallNotification(context.Background(), CancelCall{ReceiverID: "c1", ChannelID: "abc"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(store.removed) != 1 || store.removed[0] != sub.Endpoint {
		t.Fatalf("expected gone subscription to be removed, got %v", store.removed)
	}
}

func TestNotifier_ReturnsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &memStore{subs: map[string][]Subscription{"c1": {testSubscription(t, srv.URL)}}}
	n := NewNotifier(testConfig(t), store, nil)

	if err := n.SendCancelCallNotification(context.Background(), CancelCall{ReceiverID: "c1", ChannelID: "abc"}); err == nil {
		t.Fatalf("expected delivery error")
	}
	if len(store.removed) != 0 {
		t.Fatalf("expected subscription to be kept")
	}
}

func TestNotifier_NoSubscriptions(t *testing.T) {
	n := NewNotifier(testConfig(t), &memStore{}, nil)
	if err := n.SendCancelCallNotification(context.Background(), CancelCall{ReceiverID: "c1", ChannelID: "abc"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
