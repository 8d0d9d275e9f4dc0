// Package responses defines API response types used by the voicebus broker
// HTTP handlers.
package responses

import (
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// OKResponse is the canonical success acknowledgement.
type OKResponse struct {
	OK bool `json:"ok"`
}

// LogsResponse is one paginated page of the state history.
type LogsResponse struct {
	Entries []statebus.Record `json:"entries"`
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// StatsResponse is the lightweight history count.
type StatsResponse struct {
	StateHistoryCount int `json:"stateHistoryCount"`
}

// ResponsesDrain carries everything removed from the responses queue.
type ResponsesDrain struct {
	Responses []statebus.Entry `json:"responses"`
}

// CommandsDrain carries everything removed from the commands queue.
type CommandsDrain struct {
	Commands []statebus.Entry `json:"commands"`
}

// HealthReport is the payload auxiliary services POST to /health.
type HealthReport struct {
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	UptimeSec float64 `json:"uptimeSec"`
}

// HealthList is the aggregate health view.
type HealthList struct {
	Services []statebus.HealthRecord `json:"services"`
}

// CurrentStateResponse exposes the most-recent-wins current view.
type CurrentStateResponse struct {
	Current statebus.Record `json:"current"`
}
