package statebus

import (
	"sort"
	"sync"
	"time"
)

// HealthRecord is one service's last reported health, keyed by name with
// last-write-wins semantics.
type HealthRecord struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	UptimeSec  float64   `json:"uptimeSec"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// HealthMap aggregates per-service health reports for the broker's
// GET /health view. It carries no invariants beyond last-write-wins.
type HealthMap struct {
	mu       sync.RWMutex
	services map[string]HealthRecord
}

// NewHealthMap creates an empty health map.
func NewHealthMap() *HealthMap {
	return &HealthMap{services: make(map[string]HealthRecord)}
}

// Report upserts a service's health record, stamping ReceivedAt.
func (h *HealthMap) Report(name, status string, uptimeSec float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.services[name] = HealthRecord{
		Name:       name,
		Status:     status,
		UptimeSec:  uptimeSec,
		ReceivedAt: time.Now().UTC(),
	}
}

// List returns all known service records sorted by name for stable output.
func (h *HealthMap) List() []HealthRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HealthRecord, 0, len(h.services))
	for _, rec := range h.services {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
