package playback

import "time"

const (
	charsPerSecond = 15
	minEstimate    = time.Second
)

// EstimatePlayback returns the scheduling heuristic for how long speaking the
// text will take: 15 characters per second, never under one second. It drives
// the return-to-idle transition, not any real audio measurement.
func EstimatePlayback(text string) time.Duration {
	ms := (int64(len(text))*1000 + charsPerSecond - 1) / charsPerSecond
	d := time.Duration(ms) * time.Millisecond
	if d < minEstimate {
		return minEstimate
	}
	return d
}
