package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

type noToken struct{}

func (noToken) Token() (string, error) { return "", errors.New("no credentials file") }

func TestFetchUsage_Success(t *testing.T) {
	var gotAuth, gotBeta string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("anthropic-beta")
		w.Write([]byte(`{"five_hour":{"utilization":68,"resets_at":"2026-03-14T13:12:00Z"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("sk-ant-oat-test"), 5*time.Second)
	body, err := c.FetchUsage(context.Background())
	if err != nil {
		t.Fatalf("FetchUsage failed: %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("expected response body")
	}
	if gotAuth != "Bearer sk-ant-oat-test" {
		t.Fatalf("Authorization header = %q", gotAuth)
	}
	if gotBeta != betaHeader {
		t.Fatalf("anthropic-beta header = %q", gotBeta)
	}
}

func TestFetchUsage_Classification(t *testing.T) {
	tests := []struct {
		status     int
		wantReason string
	}{
		{http.StatusUnauthorized, ReasonAuth},
		{http.StatusForbidden, ReasonAuth},
		{http.StatusTooManyRequests, ReasonRateLimited},
		{http.StatusInternalServerError, ReasonUpstream},
		{http.StatusBadGateway, ReasonUpstream},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c := NewClient(srv.URL, staticToken("tok"), 5*time.Second)
		_, err := c.FetchUsage(context.Background())
		srv.Close()

		if err == nil {
			t.Fatalf("HTTP %d: expected error", tt.status)
		}
		reason, _, code := Classify(err)
		if reason != tt.wantReason {
			t.Fatalf("HTTP %d: reason = %q, want %q", tt.status, reason, tt.wantReason)
		}
		if code != tt.status {
			t.Fatalf("HTTP %d: status code = %d", tt.status, code)
		}
	}
}

func TestFetchUsage_MissingCredentials(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", noToken{}, time.Second)
	_, err := c.FetchUsage(context.Background())
	if err == nil {
		t.Fatalf("expected error without credentials")
	}

	reason, detail, code := Classify(err)
	if reason != ReasonCredentials {
		t.Fatalf("reason = %q, want %q", reason, ReasonCredentials)
	}
	if code != 0 {
		t.Fatalf("expected no status code, got %d", code)
	}
	if detail == "" {
		t.Fatalf("expected failure detail")
	}
}

func TestFetchUsage_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, staticToken("tok"), time.Second)
	_, err := c.FetchUsage(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}

	reason, _, code := Classify(err)
	if reason != ReasonTransport {
		t.Fatalf("reason = %q, want %q", reason, ReasonTransport)
	}
	if code != 0 {
		t.Fatalf("expected no status code for transport failure, got %d", code)
	}
}

func TestClassify_PlainError(t *testing.T) {
	reason, detail, code := Classify(errors.New("context deadline exceeded"))
	if reason != ReasonTransport || code != 0 || detail == "" {
		t.Fatalf("unexpected classification: %q %q %d", reason, detail, code)
	}
}
