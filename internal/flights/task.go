package flights

import "fmt"

const extractionSystem = "You are a flight booking assistant. You read Google Flights result pages and answer only with the requested JSON, no prose."

// flightTask is the extraction agent's task description. The total-price
// rule is part of the output contract: Google Flights shows the full
// round-trip fare on each leg, so the total is the maximum of the two
// displayed prices, never their sum.
func flightTask(preferences string) string {
	if preferences == "" {
		preferences = "cheapest reasonable option"
	}
	return fmt.Sprintf(`Follow these steps in order:

1. For the outbound flight (first leg of the journey):
    - Identify the best outbound flight based on user preferences: %s
    - Record the outbound flight details including:
        * Departure time and date
        * Arrival time and date
        * Price
        * Number of stops
        * Stop location and time
        * Duration
        * Airlines
        * Origin and destination airports

2. For the return flight (second leg of the journey):
    - Identify the best return flight based on user preferences: %s
    - Record the same set of details for it

3. Reply with exactly this JSON structure and nothing else:
    {
        "outbound_flight": {
            "start_time": "...",
            "end_time": "...",
            "origin": "...",
            "destination": "...",
            "price": "",
            "num_stops": 0,
            "duration": "...",
            "airline": "...",
            "stop_locations": "..."
        },
        "return_flight": {
            "start_time": "...",
            "end_time": "...",
            "origin": "...",
            "destination": "...",
            "price": "",
            "num_stops": 0,
            "duration": "...",
            "airline": "...",
            "stop_locations": "..."
        }
    }

4. Important:
    - Capture BOTH outbound and return flight details
    - Each flight gets its own complete set of details
    - Use the "Xh Ym" format for durations (e.g. "2h 15m")
    - The total price of the trip is the maximum of the two listed prices, not their sum`, preferences, preferences)
}
