package metrics

import "time"

// Recorder defines observability hooks for the state bus. Implementations may
// forward to Prometheus or elsewhere. All methods must be safe on the
// NoopRecorder so injection stays optional.
type Recorder interface {
	IncRequest(route string, status int)
	ObserveRequestDuration(route string, d time.Duration)
	IncStateRecorded(state string)
	IncStateRejected(reason string)
	IncQueueEnqueued(queue string)
	AddQueueDrained(queue string, n int)
	IncWatchdogReset()
	IncForwardFailure()
	IncPlaybackOutcome(provider, result string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncRequest(string, int)                        {}
func (NoopRecorder) ObserveRequestDuration(string, time.Duration)  {}
func (NoopRecorder) IncStateRecorded(string)                       {}
func (NoopRecorder) IncStateRejected(string)                       {}
func (NoopRecorder) IncQueueEnqueued(string)                       {}
func (NoopRecorder) AddQueueDrained(string, int)                   {}
func (NoopRecorder) IncWatchdogReset()                             {}
func (NoopRecorder) IncForwardFailure()                            {}
func (NoopRecorder) IncPlaybackOutcome(string, string)             {}
