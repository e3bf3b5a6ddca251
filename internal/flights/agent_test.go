package flights

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced-no-lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose-around", "Here you go:\n{\"a\":1}\nHope that helps!", `{"a":1}`},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
	}
	for _, c := range cases {
		if got := extractJSON(c.in); got != c.want {
			t.Fatalf("%s: extractJSON(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

func TestParseFlightRecordAppliesMaxPriceRule(t *testing.T) {
	out := "```json\n" + `{
		"outbound_flight": {
			"start_time": "2025-04-22 08:15",
			"end_time": "2025-04-22 11:40",
			"origin": "JFK",
			"destination": "NRT",
			"price": "$1,240",
			"num_stops": 1,
			"duration": "14h 25m",
			"airline": "ANA",
			"stop_locations": "ORD 1h 10m"
		},
		"return_flight": {
			"start_time": "2025-05-01 17:05",
			"end_time": "2025-05-01 20:30",
			"origin": "NRT",
			"destination": "JFK",
			"price": "$1,198",
			"num_stops": 0,
			"duration": "12h 55m",
			"airline": "ANA",
			"stop_locations": ""
		}
	}` + "\n```"

	rec, err := parseFlightRecord(out)
	if err != nil {
		t.Fatalf("parseFlightRecord: %v", err)
	}
	if rec.Outbound.Airline != "ANA" || rec.Return.NumStops != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	// the round-trip fare is the max of the two displayed prices, not the sum
	if rec.TotalPrice != "$1,240" {
		t.Fatalf("total price = %q, want %q", rec.TotalPrice, "$1,240")
	}
}

func TestParseFlightRecordRejectsMissingLeg(t *testing.T) {
	if _, err := parseFlightRecord(`{"outbound_flight":{"price":"$100","airline":"KLM"}}`); err == nil {
		t.Fatalf("expected error for missing return leg")
	}
	if _, err := parseFlightRecord("sorry, I could not find flights"); err == nil {
		t.Fatalf("expected error for non-JSON reply")
	}
}

func TestTotalPrice(t *testing.T) {
	cases := []struct {
		out, ret, want string
	}{
		{"$512", "$498", "$512"},
		{"$498", "$512", "$512"},
		{"€1.050", "n/a", "€1.050"},
		{"", "$87", "$87"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := totalPrice(c.out, c.ret); got != c.want {
			t.Fatalf("totalPrice(%q, %q) = %q, want %q", c.out, c.ret, got, c.want)
		}
	}
}

func TestFlightTaskCarriesContract(t *testing.T) {
	task := flightTask("window seat, no red-eyes")
	if !strings.Contains(task, "window seat, no red-eyes") {
		t.Fatalf("task must carry the caller's preferences")
	}
	if !strings.Contains(task, "maximum of the two listed prices, not their sum") {
		t.Fatalf("task must state the max-price output rule")
	}
	if !strings.Contains(task, `"outbound_flight"`) || !strings.Contains(task, `"return_flight"`) {
		t.Fatalf("task must pin the two-leg JSON shape")
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("New York (JFK)"); got != "new_york__jfk_" {
		t.Fatalf("sanitizeName = %q", got)
	}
}

func TestTruncateTextKeepsRunesWhole(t *testing.T) {
	if got := truncateText("abcdef", 4); got != "abcd" {
		t.Fatalf("ascii: got %q", got)
	}
	if got := truncateText("abc", 10); got != "abc" {
		t.Fatalf("short input must pass through, got %q", got)
	}
	if got := truncateText("abc", 0); got != "abc" {
		t.Fatalf("zero cap disables truncation, got %q", got)
	}

	// "é" is 2 bytes; a cap landing mid-rune must back off to the boundary
	s := "caf" + "é" + "s"
	got := truncateText(s, 4)
	if got != "caf" {
		t.Fatalf("mid-rune cap: got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: %q", got)
	}
	if got := truncateText(s, 5); got != "café" {
		t.Fatalf("boundary cap: got %q", got)
	}
}
