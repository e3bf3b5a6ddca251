package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/voyager/config"
	"github.com/mohammad-safakhou/voyager/models"
)

const hotelSearchBase = "https://www.google.com/travel/search"

// ErrMissingResponseID means the submission response carried no response_id.
// This is a protocol failure: no polling is attempted.
var ErrMissingResponseID = errors.New("submission response missing response_id")

// ErrNoResult means the poll budget was exhausted without a parseable result
var ErrNoResult = errors.New("no result after exhausting poll attempts")

// HTTPError is a non-2xx reply from the SERP API submission endpoint
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("serp api returned status %d: %s", e.Status, e.Body)
}

// PollHandle identifies a submitted search for the result endpoint. The id
// has no meaning outside the API's retention window.
type PollHandle struct {
	SubmittedAt time.Time
	ResponseID  string
}

var pollAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "voyager_brightdata_poll_attempts_total",
	Help: "Result poll attempts against the SERP job API, by outcome.",
}, []string{"outcome"})

// Client drives the submit-then-poll protocol of the Bright Data SERP job
// API: POST a target URL to /req, receive a response_id, then poll
// /get_result under a bounded retry budget.
type Client struct {
	baseURL     string
	customer    string
	zone        string
	apiKey      string
	interval    time.Duration
	maxAttempts int
	httpClient  *http.Client
	logger      *log.Logger
}

// New creates a poll client from configuration.
func New(cfg config.BrightDataConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[BRD] ", log.LstdFlags)
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		customer:    cfg.Customer,
		zone:        cfg.Zone,
		apiKey:      cfg.APIKey,
		interval:    cfg.PollInterval,
		maxAttempts: cfg.MaxPollAttempts,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// Search runs a Google Hotels search through the SERP API and blocks
// until a result arrives or the poll budget runs out.
func (c *Client) Search(ctx context.Context, q models.HotelQuery) (json.RawMessage, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	dates, err := normalizeDateRange(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q.Location)
	params.Set("brd_currency", q.Currency)
	params.Set("brd_dates", dates)
	params.Set("brd_occupancy", q.Occupancy)
	if q.FreeCancellation {
		params.Set("brd_free_cancellation", "true")
	}
	params.Set("brd_accommodation_type", "hotels")

	return c.SearchTravel(ctx, hotelSearchBase+"?"+params.Encode())
}

// SearchTravel submits a target URL for browser-rendered scraping and polls
// for the JSON result.
func (c *Client) SearchTravel(ctx context.Context, targetURL string) (json.RawMessage, error) {
	handle, err := c.submit(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	c.logger.Printf("submitted %s, response_id=%s", targetURL, handle.ResponseID)
	return c.pollResult(ctx, handle)
}

// submit POSTs the search to /req. Submission failures are not transient in
// this protocol, so there is no retry here.
func (c *Client) submit(ctx context.Context, targetURL string) (PollHandle, error) {
	payload, err := json.Marshal(map[string]string{
		"url":      targetURL,
		"brd_json": "json",
	})
	if err != nil {
		return PollHandle{}, fmt.Errorf("marshal submit payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/req?customer=%s&zone=%s",
		c.baseURL, url.QueryEscape(c.customer), url.QueryEscape(c.zone))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return PollHandle{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PollHandle{}, fmt.Errorf("submit search: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PollHandle{}, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var submitted struct {
		ResponseID string `json:"response_id"`
	}
	if err := json.Unmarshal(body, &submitted); err != nil {
		return PollHandle{}, fmt.Errorf("parse submit response: %w", err)
	}
	if submitted.ResponseID == "" {
		return PollHandle{}, ErrMissingResponseID
	}

	return PollHandle{SubmittedAt: time.Now(), ResponseID: submitted.ResponseID}, nil
}

// pollResult polls /get_result until a 200 with a parseable JSON body
// arrives. Non-200 replies, unparseable bodies and transport errors are
// transient: log and try again. The interval is only inserted between
// attempts, never before the first one.
func (c *Client) pollResult(ctx context.Context, handle PollHandle) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/get_result?customer=%s&zone=%s&response_id=%s",
		c.baseURL, url.QueryEscape(c.customer), url.QueryEscape(c.zone), url.QueryEscape(handle.ResponseID))

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.interval):
			}
		}

		result, err := c.fetchResult(ctx, endpoint)
		if err == nil {
			pollAttempts.WithLabelValues("success").Inc()
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		pollAttempts.WithLabelValues("retry").Inc()
		c.logger.Printf("poll attempt %d/%d for %s failed: %v", attempt, c.maxAttempts, handle.ResponseID, err)
	}

	pollAttempts.WithLabelValues("exhausted").Inc()
	return nil, ErrNoResult
}

func (c *Client) fetchResult(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("unparseable body (%d bytes)", len(body))
	}
	return json.RawMessage(body), nil
}

// normalizeDateRange turns two human-readable dates ("April 22, 2025") into
// the ISO pair the SERP API expects ("2025-04-22,2025-05-01"). Zero-padded
// day numbers are accepted too.
func normalizeDateRange(checkIn, checkOut string) (string, error) {
	in, err := parseHumanDate(checkIn)
	if err != nil {
		return "", fmt.Errorf("check_in: %w", err)
	}
	out, err := parseHumanDate(checkOut)
	if err != nil {
		return "", fmt.Errorf("check_out: %w", err)
	}
	return in.Format("2006-01-02") + "," + out.Format("2006-01-02"), nil
}

func parseHumanDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("January 2, 2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want e.g. \"April 22, 2025\")", s)
	}
	return t, nil
}
