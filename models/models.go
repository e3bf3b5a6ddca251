package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrJobNotFound is returned when a job id is unknown to the registry
var ErrJobNotFound = errors.New("job not found")

// JobKind identifies which pipeline a job runs
type JobKind string

const (
	JobKindFlightSearch JobKind = "flight-search"
	JobKindHotelSearch  JobKind = "hotel-search"
)

// JobStatus is the lifecycle state of a job. Pending is initial,
// Completed and Failed are terminal.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed:
		return true
	case JobStatusPending, JobStatusProcessing:
		return false
	}
	return false
}

// Valid reports whether s is one of the four defined statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Job tracks one submitted search through its lifecycle. Exactly one of
// Result and Error is set, and only once Status is terminal.
type Job struct {
	ID        string          `json:"id"`
	Kind      JobKind         `json:"kind"`
	Status    JobStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FlightQuery are the inputs of a flight search job.
type FlightQuery struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Preferences string `json:"preferences"`
}

// Normalize rewrites both dates into the un-padded "April 2, 2025" form
// the flight site renders in its calendar labels. Zero-padded days
// ("April 02, 2025") are accepted; anything unparseable is left as-is for
// Validate and the pipeline to report.
func (q FlightQuery) Normalize() FlightQuery {
	q.StartDate = normalizeHumanDate(q.StartDate)
	q.EndDate = normalizeHumanDate(q.EndDate)
	return q
}

func normalizeHumanDate(s string) string {
	t, err := time.Parse("January 2, 2006", strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format("January 2, 2006")
}

// Validate checks required fields. Preferences may be empty.
func (q FlightQuery) Validate() error {
	if strings.TrimSpace(q.Origin) == "" ||
		strings.TrimSpace(q.Destination) == "" ||
		strings.TrimSpace(q.StartDate) == "" ||
		strings.TrimSpace(q.EndDate) == "" {
		return errors.New("missing required parameters: origin, destination, start_date and end_date are required")
	}
	return nil
}

// HotelQuery are the inputs of a hotel search job. Dates are human-readable
// ("April 22, 2025"); the poll client normalizes them.
type HotelQuery struct {
	Location         string `json:"location"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Occupancy        string `json:"occupancy"`
	Currency         string `json:"currency"`
	FreeCancellation bool   `json:"free_cancellation"`
}

// Normalize fills the defaults the upstream search expects.
func (q HotelQuery) Normalize() HotelQuery {
	if strings.TrimSpace(q.Occupancy) == "" {
		q.Occupancy = "2"
	}
	if strings.TrimSpace(q.Currency) == "" {
		q.Currency = "USD"
	}
	return q
}

// Validate checks required fields after Normalize.
func (q HotelQuery) Validate() error {
	if strings.TrimSpace(q.Location) == "" ||
		strings.TrimSpace(q.CheckIn) == "" ||
		strings.TrimSpace(q.CheckOut) == "" {
		return errors.New("missing required parameters: location, check_in and check_out are required")
	}
	return nil
}

// FlightLeg is one leg of a round trip as reported by the extraction agent.
type FlightLeg struct {
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Price         string `json:"price"`
	NumStops      int    `json:"num_stops"`
	Duration      string `json:"duration"`
	Airline       string `json:"airline"`
	StopLocations string `json:"stop_locations"`
}

// FlightRecord is the agent's output contract: both legs plus the total
// price. Google Flights shows the full round-trip fare on each leg, so the
// total is the maximum of the two displayed prices, not their sum.
type FlightRecord struct {
	Outbound   FlightLeg `json:"outbound_flight"`
	Return     FlightLeg `json:"return_flight"`
	TotalPrice string    `json:"total_price,omitempty"`
}
