package playback

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/voicebus/internal/config"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// fakeBusAPI feeds canned queue contents and captures state submissions.
type fakeBusAPI struct {
	mu        sync.Mutex
	responses []statebus.Entry
	commands  []statebus.Entry
	states    []map[string]any
}

func (f *fakeBusAPI) SubmitState(_ context.Context, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, payload.(map[string]any))
	return nil
}

func (f *fakeBusAPI) DrainResponses(context.Context) ([]statebus.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.responses
	f.responses = nil
	return out, nil
}

func (f *fakeBusAPI) DrainCommands(context.Context) ([]statebus.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.commands
	f.commands = nil
	return out, nil
}

func (f *fakeBusAPI) submittedStates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.states))
	for _, s := range f.states {
		out = append(out, s["state"].(string))
	}
	return out
}

// fakeProvider answers with a fixed path or error.
type fakeProvider struct {
	name  string
	path  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Synthesize(context.Context, string) (string, error) {
	f.calls++
	return f.path, f.err
}

// fakePlayer records plays and stops without spawning anything.
type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	stops   int
	playErr error
}

func (f *fakePlayer) Play(_ context.Context, audioPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, audioPath)
	return f.playErr
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func testPlaybackConfig() config.PlaybackConfig {
	return config.PlaybackConfig{PollMS: 1000, StopWindowMS: 3000}
}

func newTestCoordinator(bus *fakeBusAPI, local, remote Provider, player *fakePlayer) *Coordinator {
	return NewCoordinator(bus, testPlaybackConfig(), local, remote, WithPlayer(player))
}

func TestCoordinatorPlaysRoutedResponse(t *testing.T) {
	bus := &fakeBusAPI{responses: []statebus.Entry{{"text": "hello"}}}
	local := &fakeProvider{name: ProviderLocal, path: "/tmp/local.wav"}
	remote := &fakeProvider{name: ProviderRemote, path: "/tmp/remote.wav"}
	player := &fakePlayer{}
	c := newTestCoordinator(bus, local, remote, player)

	c.PollResponses()

	// Short reply routes remote.
	assert.Equal(t, 1, remote.calls)
	assert.Zero(t, local.calls)
	assert.Equal(t, []string{"/tmp/remote.wav"}, player.played)

	// Talking first, idle after.
	require.Equal(t, []string{"talking", "idle"}, bus.submittedStates())
	assert.Equal(t, "playback", bus.states[0]["source"])
	details := bus.states[0]["details"].(map[string]any)
	assert.Equal(t, ProviderRemote, details["provider"])
	assert.Equal(t, "short_reply", details["reason"])
}

func TestCoordinatorFallsBackOnce(t *testing.T) {
	bus := &fakeBusAPI{responses: []statebus.Entry{{"text": "hello"}}}
	local := &fakeProvider{name: ProviderLocal, path: "/tmp/local.wav"}
	remote := &fakeProvider{name: ProviderRemote, err: fmt.Errorf("vendor down")}
	player := &fakePlayer{}
	c := newTestCoordinator(bus, local, remote, player)

	c.PollResponses()

	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, []string{"/tmp/local.wav"}, player.played)
	assert.Equal(t, []string{"talking", "idle"}, bus.submittedStates())
}

func TestCoordinatorDoubleFailureStillIdles(t *testing.T) {
	bus := &fakeBusAPI{responses: []statebus.Entry{{"text": "hello"}}}
	local := &fakeProvider{name: ProviderLocal, err: fmt.Errorf("no model")}
	remote := &fakeProvider{name: ProviderRemote, err: fmt.Errorf("vendor down")}
	player := &fakePlayer{}
	c := newTestCoordinator(bus, local, remote, player)

	c.PollResponses()

	assert.Empty(t, player.played)
	// The session never sticks in talking.
	assert.Equal(t, []string{"talking", "idle"}, bus.submittedStates())
}

func TestCoordinatorStopCommand(t *testing.T) {
	bus := &fakeBusAPI{commands: []statebus.Entry{{"type": "stop_tts"}}}
	player := &fakePlayer{}
	c := newTestCoordinator(bus,
		&fakeProvider{name: ProviderLocal}, &fakeProvider{name: ProviderRemote}, player)

	base := time.Now()
	c.now = func() time.Time { return base }

	c.PollCommands()

	assert.Equal(t, 1, player.stops)
	assert.Equal(t, base.Add(3*time.Second), c.stopDeadline())
}

func TestCoordinatorStopWindowOnlyGrows(t *testing.T) {
	player := &fakePlayer{}
	c := newTestCoordinator(&fakeBusAPI{},
		&fakeProvider{name: ProviderLocal}, &fakeProvider{name: ProviderRemote}, player)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.applyStop()
	first := c.stopDeadline()

	// A second stop issued earlier in wall time never pulls the deadline back.
	c.now = func() time.Time { return base.Add(-10 * time.Second) }
	c.applyStop()
	assert.Equal(t, first, c.stopDeadline())

	// A later stop extends it.
	c.now = func() time.Time { return base.Add(time.Second) }
	c.applyStop()
	assert.Equal(t, base.Add(4*time.Second), c.stopDeadline())
}

func TestCoordinatorSuppressesInsideStopWindow(t *testing.T) {
	bus := &fakeBusAPI{responses: []statebus.Entry{{"text": "hello"}}}
	local := &fakeProvider{name: ProviderLocal, path: "/tmp/local.wav"}
	remote := &fakeProvider{name: ProviderRemote, path: "/tmp/remote.wav"}
	player := &fakePlayer{}
	c := newTestCoordinator(bus, local, remote, player)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.applyStop()

	c.PollResponses()

	// Dropped silently: no synthesis, no playback, no state traffic.
	assert.Zero(t, local.calls+remote.calls)
	assert.Empty(t, player.played)
	assert.Empty(t, bus.submittedStates())

	// Once the window passes, new responses play again.
	c.now = func() time.Time { return base.Add(4 * time.Second) }
	bus.mu.Lock()
	bus.responses = []statebus.Entry{{"text": "after the window"}}
	bus.mu.Unlock()
	c.PollResponses()
	assert.Len(t, player.played, 1)
}

func TestCoordinatorInterruptedPlaybackStillIdles(t *testing.T) {
	bus := &fakeBusAPI{responses: []statebus.Entry{{"text": "hello"}}}
	player := &fakePlayer{playErr: fmt.Errorf("signal: killed")}
	c := newTestCoordinator(bus,
		&fakeProvider{name: ProviderLocal, path: "/tmp/a.wav"},
		&fakeProvider{name: ProviderRemote, path: "/tmp/b.wav"}, player)

	c.PollResponses()

	assert.Equal(t, []string{"talking", "idle"}, bus.submittedStates())
}

func TestCoordinatorSkipsTextlessEntries(t *testing.T) {
	bus := &fakeBusAPI{responses: []statebus.Entry{{"priority": "urgent"}, {"text": ""}}}
	player := &fakePlayer{}
	c := newTestCoordinator(bus,
		&fakeProvider{name: ProviderLocal}, &fakeProvider{name: ProviderRemote}, player)

	c.PollResponses()

	assert.Empty(t, player.played)
	assert.Empty(t, bus.submittedStates())
}

func TestCoordinatorRoutingHonorsEntryHints(t *testing.T) {
	bus := &fakeBusAPI{responses: []statebus.Entry{
		{"text": "take the backroads", "networkOnline": false},
	}}
	local := &fakeProvider{name: ProviderLocal, path: "/tmp/local.wav"}
	remote := &fakeProvider{name: ProviderRemote, path: "/tmp/remote.wav"}
	player := &fakePlayer{}
	c := newTestCoordinator(bus, local, remote, player)

	c.PollResponses()

	assert.Equal(t, 1, local.calls)
	assert.Zero(t, remote.calls)
}
