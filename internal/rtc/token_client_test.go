package rtc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenClient_FetchesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rtc/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		q := r.URL.Query()
		if q.Get("channel_id") != "abc" || q.Get("role") != "publisher" {
			t.Errorf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"rtc-token"}`))
	}))
	defer srv.Close()

	c := NewTokenClient(srv.URL, time.Second).ForUser("access-1")
	tok, err := c.Token(context.Background(), "abc", RolePublisher)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != "rtc-token" {
		t.Fatalf("unexpected token %q", tok)
	}
}

func TestTokenClient_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer srv.Close()

	c := NewTokenClient(srv.URL, time.Second)
	if _, err := c.Token(context.Background(), "abc", RolePublisher); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTokenClient_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewTokenClient(srv.URL, time.Second)
	if _, err := c.Token(context.Background(), "abc", RoleSubscriber); err != ErrEmptyToken {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestTokenClient_RejectsBadRequest(t *testing.T) {
	c := NewTokenClient("http://127.0.0.1:1", time.Second)
	if _, err := c.Token(context.Background(), "", RolePublisher); err == nil {
		t.Fatalf("expected error for empty channel")
	}
	if _, err := c.Token(context.Background(), "abc", Role("admin")); err == nil {
		t.Fatalf("expected error for bad role")
	}
}
