package brightdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/voyager/config"
	"github.com/mohammad-safakhou/voyager/models"
)

// serpStub plays the SERP job API: /req hands out a response_id (or a
// scripted failure) and /get_result walks through a scripted sequence of
// replies.
type serpStub struct {
	mu          sync.Mutex
	submits     int
	polls       int
	submitCode  int
	submitBody  string
	pollScript  []pollReply
	lastPayload map[string]string
}

type pollReply struct {
	code int
	body string
}

func (s *serpStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/req", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.submits++
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		s.lastPayload = payload
		if s.submitCode != 0 && s.submitCode != http.StatusOK {
			w.WriteHeader(s.submitCode)
			return
		}
		_, _ = w.Write([]byte(s.submitBody))
	})
	mux.HandleFunc("/get_result", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		reply := pollReply{code: http.StatusOK, body: `{}`}
		if s.polls < len(s.pollScript) {
			reply = s.pollScript[s.polls]
		}
		s.polls++
		w.WriteHeader(reply.code)
		_, _ = w.Write([]byte(reply.body))
	})
	return mux
}

func (s *serpStub) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func newTestClient(baseURL string, maxAttempts int) *Client {
	return New(config.BrightDataConfig{
		BaseURL:         baseURL,
		Customer:        "c_test",
		Zone:            "serp_test",
		APIKey:          "secret",
		PollInterval:    5 * time.Millisecond,
		MaxPollAttempts: maxAttempts,
	}, nil)
}

func hotelQuery() models.HotelQuery {
	return models.HotelQuery{
		Location:  "New York",
		CheckIn:   "April 22, 2025",
		CheckOut:  "May 1, 2025",
		Occupancy: "2",
		Currency:  "USD",
	}
}

func TestSubmitFailureIsNotRetried(t *testing.T) {
	stub := &serpStub{submitCode: http.StatusForbidden}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	_, err := c.Search(context.Background(), hotelQuery())
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if herr.Status != http.StatusForbidden {
		t.Fatalf("expected status 403 in error, got %d", herr.Status)
	}
	if stub.pollCount() != 0 {
		t.Fatalf("submission failure must not trigger polling, got %d polls", stub.pollCount())
	}
	if stub.submits != 1 {
		t.Fatalf("submission must not be retried, got %d submits", stub.submits)
	}
}

func TestMissingResponseIDSkipsPolling(t *testing.T) {
	stub := &serpStub{submitBody: `{"status":"queued"}`}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	_, err := c.Search(context.Background(), hotelQuery())
	if !errors.Is(err, ErrMissingResponseID) {
		t.Fatalf("expected ErrMissingResponseID, got %v", err)
	}
	if stub.pollCount() != 0 {
		t.Fatalf("expected zero polls, got %d", stub.pollCount())
	}
}

func TestPollRetriesTransientFailuresThenSucceeds(t *testing.T) {
	stub := &serpStub{
		submitBody: `{"response_id":"r-123"}`,
		pollScript: []pollReply{
			{code: http.StatusAccepted, body: ""},
			{code: http.StatusAccepted, body: ""},
			{code: http.StatusInternalServerError, body: "boom"},
			{code: http.StatusOK, body: `{"hotels":[{"name":"The Plaza"}]}`},
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	result, err := c.Search(context.Background(), hotelQuery())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if string(result) != `{"hotels":[{"name":"The Plaza"}]}` {
		t.Fatalf("unexpected result: %s", result)
	}
	if got := stub.pollCount(); got != 4 {
		t.Fatalf("expected exactly 4 poll requests, got %d", got)
	}
}

func TestUnparseableBodyIsTransient(t *testing.T) {
	stub := &serpStub{
		submitBody: `{"response_id":"r-123"}`,
		pollScript: []pollReply{
			{code: http.StatusOK, body: `<html>not ready</html>`},
			{code: http.StatusOK, body: `{"hotels":[]}`},
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	result, err := c.Search(context.Background(), hotelQuery())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if string(result) != `{"hotels":[]}` {
		t.Fatalf("unexpected result: %s", result)
	}
	if got := stub.pollCount(); got != 2 {
		t.Fatalf("expected 2 poll requests, got %d", got)
	}
}

func TestPollBudgetExhaustion(t *testing.T) {
	stub := &serpStub{
		submitBody: `{"response_id":"r-123"}`,
		pollScript: []pollReply{
			{code: http.StatusInternalServerError},
			{code: http.StatusInternalServerError},
			{code: http.StatusInternalServerError},
			{code: http.StatusInternalServerError},
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.Search(context.Background(), hotelQuery())
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
	if got := stub.pollCount(); got != 3 {
		t.Fatalf("budget of 3 must mean exactly 3 polls, got %d", got)
	}
}

func TestHotelSearchTargetURL(t *testing.T) {
	stub := &serpStub{
		submitBody: `{"response_id":"r-123"}`,
		pollScript: []pollReply{{code: http.StatusOK, body: `{}`}},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv.URL, 10)
	q := hotelQuery()
	q.FreeCancellation = true
	if _, err := c.Search(context.Background(), q); err != nil {
		t.Fatalf("search: %v", err)
	}

	stub.mu.Lock()
	payload := stub.lastPayload
	stub.mu.Unlock()

	if payload["brd_json"] != "json" {
		t.Fatalf("expected brd_json=json in payload, got %q", payload["brd_json"])
	}
	target, err := url.Parse(payload["url"])
	if err != nil {
		t.Fatalf("parse target url %q: %v", payload["url"], err)
	}
	if target.Host != "www.google.com" || target.Path != "/travel/search" {
		t.Fatalf("unexpected target %s", payload["url"])
	}
	params := target.Query()
	checks := map[string]string{
		"q":                      "New York",
		"brd_dates":              "2025-04-22,2025-05-01",
		"brd_occupancy":          "2",
		"brd_currency":           "USD",
		"brd_free_cancellation":  "true",
		"brd_accommodation_type": "hotels",
	}
	for k, want := range checks {
		if got := params.Get(k); got != want {
			t.Fatalf("param %s = %q, want %q", k, got, want)
		}
	}
}

func TestNormalizeDateRange(t *testing.T) {
	cases := []struct {
		in, out string
		want    string
		wantErr bool
	}{
		{"April 22, 2025", "May 1, 2025", "2025-04-22,2025-05-01", false},
		{"April 02, 2025", "May 01, 2025", "2025-04-02,2025-05-01", false},
		{" April 22, 2025 ", "May 1, 2025", "2025-04-22,2025-05-01", false},
		{"2025-04-22", "May 1, 2025", "", true},
		{"April 22, 2025", "", "", true},
	}
	for _, c := range cases {
		got, err := normalizeDateRange(c.in, c.out)
		if c.wantErr {
			if err == nil {
				t.Fatalf("normalizeDateRange(%q, %q): expected error", c.in, c.out)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeDateRange(%q, %q): %v", c.in, c.out, err)
		}
		if got != c.want {
			t.Fatalf("normalizeDateRange(%q, %q) = %q, want %q", c.in, c.out, got, c.want)
		}
	}
}

func TestPollIntervalOnlyBetweenAttempts(t *testing.T) {
	stub := &serpStub{
		submitBody: `{"response_id":"r-123"}`,
		pollScript: []pollReply{{code: http.StatusOK, body: `{}`}},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := New(config.BrightDataConfig{
		BaseURL:         srv.URL,
		Customer:        "c_test",
		Zone:            "serp_test",
		PollInterval:    2 * time.Second,
		MaxPollAttempts: 10,
	}, nil)

	start := time.Now()
	if _, err := c.Search(context.Background(), hotelQuery()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("first successful poll must not wait for the interval, took %s", elapsed)
	}
}
