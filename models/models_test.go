package models

import "testing"

func TestFlightQueryNormalizeDates(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"April 2, 2025", "April 2, 2025"},
		{"April 02, 2025", "April 2, 2025"},
		{"May 01, 2025", "May 1, 2025"},
		{" December 09, 2025 ", "December 9, 2025"},
		{"not a date", "not a date"},
		{"", ""},
	}
	for _, c := range cases {
		q := FlightQuery{StartDate: c.in, EndDate: c.in}.Normalize()
		if q.StartDate != c.want || q.EndDate != c.want {
			t.Fatalf("Normalize(%q): got start=%q end=%q, want %q", c.in, q.StartDate, q.EndDate, c.want)
		}
	}
}

func TestHotelQueryNormalizeDefaults(t *testing.T) {
	q := HotelQuery{Location: "Paris", CheckIn: "April 22, 2025", CheckOut: "May 1, 2025"}.Normalize()
	if q.Occupancy != "2" || q.Currency != "USD" {
		t.Fatalf("expected defaults, got %+v", q)
	}

	q = HotelQuery{Occupancy: "4", Currency: "EUR"}.Normalize()
	if q.Occupancy != "4" || q.Currency != "EUR" {
		t.Fatalf("explicit values must be kept, got %+v", q)
	}
}
