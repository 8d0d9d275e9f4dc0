package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/voicebus/internal/config"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/metrics"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// stateSource is the producer id stamped on state records this process submits.
const stateSource = "playback"

// talkingGrace pads the talking lease past the playback estimate so the
// watchdog does not reclaim a session mid-sentence.
const talkingGrace = 2 * time.Second

// busAPI is the slice of the broker client the coordinator uses.
type busAPI interface {
	SubmitState(ctx context.Context, payload any) error
	DrainResponses(ctx context.Context) ([]statebus.Entry, error)
	DrainCommands(ctx context.Context) ([]statebus.Entry, error)
}

// audioPlayer abstracts the external player process.
type audioPlayer interface {
	Play(ctx context.Context, audioPath string) error
	Stop()
}

// Coordinator drains the response queue, synthesizes and plays each entry,
// and honors stop_tts commands from the command queue.
type Coordinator struct {
	bus      busAPI
	primary  map[string]Provider
	player   audioPlayer
	rec      metrics.Recorder
	poll     time.Duration
	stopSpan time.Duration
	now      func() time.Time

	mu        sync.Mutex
	stopUntil time.Time
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorRecorder attaches a metrics recorder.
func WithCoordinatorRecorder(rec metrics.Recorder) CoordinatorOption {
	return func(c *Coordinator) { c.rec = rec }
}

// WithPlayer substitutes the audio player.
func WithPlayer(player audioPlayer) CoordinatorOption {
	return func(c *Coordinator) { c.player = player }
}

// NewCoordinator wires the coordinator from configuration. local and remote
// must both be non-nil; which one speaks is the routing table's call.
func NewCoordinator(bus busAPI, cfg config.PlaybackConfig, local, remote Provider, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		bus: bus,
		primary: map[string]Provider{
			ProviderLocal:  local,
			ProviderRemote: remote,
		},
		player:   NewPlayer(cfg.PlayCmd),
		rec:      metrics.NoopRecorder{},
		poll:     time.Duration(cfg.PollMS) * time.Millisecond,
		stopSpan: time.Duration(cfg.StopWindowMS) * time.Millisecond,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule registers the two poll loops.
func (c *Coordinator) Schedule(sched *scheduler.Scheduler) error {
	if _, err := sched.ScheduleEvery("command-poll", c.poll, c.PollCommands); err != nil {
		return err
	}
	_, err := sched.ScheduleEvery("response-poll", c.poll, c.PollResponses)
	return err
}

// PollCommands drains the command queue and applies each command.
func (c *Coordinator) PollCommands() {
	ctx, cancel := context.WithTimeout(context.Background(), c.poll+15*time.Second)
	defer cancel()

	commands, err := c.bus.DrainCommands(ctx)
	if err != nil {
		slog.Debug("Command poll failed", logfields.Error(err))
		return
	}
	for _, cmd := range commands {
		kind, _ := cmd["type"].(string)
		switch kind {
		case "stop_tts":
			c.applyStop()
		default:
			slog.Debug("Ignoring unknown command", slog.String("type", kind))
		}
	}
}

// applyStop kills in-flight playback and extends the suppression window.
// The window only ever grows: a later, shorter stop never shrinks an earlier
// deadline.
func (c *Coordinator) applyStop() {
	c.player.Stop()

	deadline := c.now().Add(c.stopSpan)
	c.mu.Lock()
	if deadline.After(c.stopUntil) {
		c.stopUntil = deadline
	}
	until := c.stopUntil
	c.mu.Unlock()

	slog.Info("Playback stop window set", slog.Time("until", until))
}

// stopDeadline returns the current suppression deadline.
func (c *Coordinator) stopDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopUntil
}

// PollResponses drains the response queue and processes entries in order.
func (c *Coordinator) PollResponses() {
	ctx, cancel := context.WithTimeout(context.Background(), c.poll+15*time.Second)
	defer cancel()

	entries, err := c.bus.DrainResponses(ctx)
	if err != nil {
		slog.Debug("Response poll failed", logfields.Error(err))
		return
	}
	for _, entry := range entries {
		c.handleResponse(entry)
	}
}

// handleResponse runs one drained entry through routing, synthesis, and
// playback. Entries drained inside the stop window are dropped silently;
// drain-all already removed them, so there is no redelivery.
func (c *Coordinator) handleResponse(entry statebus.Entry) {
	text, _ := entry["text"].(string)
	if text == "" {
		return
	}

	if c.now().Before(c.stopDeadline()) {
		slog.Debug("Dropping response inside stop window")
		c.rec.IncPlaybackOutcome("none", "suppressed")
		return
	}

	decision := ChooseProvider(routingInput(entry, text))
	estimate := EstimatePlayback(text)
	slog.Info("Response routed",
		logfields.Provider(decision.Provider),
		logfields.Reason(decision.Reason),
		logfields.DurationMS(float64(estimate.Milliseconds())))

	sessionID, _ := entry["sessionId"].(string)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	c.submitState(statebus.StateTalking, sessionID, estimate+talkingGrace,
		map[string]any{"provider": decision.Provider, "reason": decision.Reason})
	// Whatever happens below, the session must come back to idle.
	defer c.submitState(statebus.StateIdle, sessionID, idleLease, nil)

	ctx, cancel := context.WithTimeout(context.Background(), estimate+time.Minute)
	defer cancel()

	audioPath, provider, err := c.synthesize(ctx, decision.Provider, text)
	if err != nil {
		slog.Error("Synthesis failed on both providers", logfields.Error(err))
		c.rec.IncPlaybackOutcome(provider, "synthesis_failed")
		return
	}

	if err := c.player.Play(ctx, audioPath); err != nil {
		// Kill-induced exits land here too; either way playback is over.
		slog.Warn("Playback ended early",
			logfields.Provider(provider), logfields.Error(err))
		c.rec.IncPlaybackOutcome(provider, "interrupted")
		return
	}
	c.rec.IncPlaybackOutcome(provider, "ok")
}

// synthesize tries the routed provider, then falls back once to the other.
func (c *Coordinator) synthesize(ctx context.Context, chosen, text string) (string, string, error) {
	primary := c.primary[chosen]
	audioPath, err := primary.Synthesize(ctx, text)
	if err == nil {
		return audioPath, primary.Name(), nil
	}
	slog.Warn("Provider failed, trying fallback",
		logfields.Provider(primary.Name()), logfields.Error(err))

	fallback := c.primary[otherProvider(chosen)]
	audioPath, ferr := fallback.Synthesize(ctx, text)
	if ferr != nil {
		return "", fallback.Name(), ferr
	}
	return audioPath, fallback.Name(), nil
}

func otherProvider(name string) string {
	if name == ProviderLocal {
		return ProviderRemote
	}
	return ProviderLocal
}

// idleLease mirrors the watchdog's synthetic idle lease.
const idleLease = 5 * time.Second

// submitState posts one state record; failures are logged, never fatal.
func (c *Coordinator) submitState(state statebus.SessionState, sessionID string, lease time.Duration, details map[string]any) {
	now := c.now()
	payload := map[string]any{
		"state":     string(state),
		"source":    stateSource,
		"timestamp": now.UTC().Format(time.RFC3339),
		"expiresAt": now.Add(lease).UTC().Format(time.RFC3339),
		"sessionId": sessionID,
	}
	if details != nil {
		payload["details"] = details
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.bus.SubmitState(ctx, payload); err != nil {
		slog.Warn("State submission failed",
			logfields.State(string(state)), logfields.Error(err))
	}
}

// routingInput extracts the routing fields, applying the entry defaults.
func routingInput(entry statebus.Entry, text string) RoutingInput {
	in := RoutingInput{
		Length:        len(text),
		Priority:      "normal",
		Intensity:     "med",
		NetworkOnline: true,
	}
	if v, ok := entry["priority"].(string); ok && v != "" {
		in.Priority = v
	}
	if v, ok := entry["demonicIntensity"].(string); ok && v != "" {
		in.Intensity = v
	}
	if v, ok := entry["networkOnline"].(bool); ok {
		in.NetworkOnline = v
	}
	return in
}
