// Package playback consumes queued responses from the bus, routes each one to
// a speech-synthesis provider, plays the result, and arbitrates stop commands
// against in-flight playback.
package playback

// Provider names the routing table decides between.
const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"
)

// RoutingInput is everything the provider decision looks at.
type RoutingInput struct {
	Length        int
	Priority      string
	Intensity     string
	NetworkOnline bool
}

// Decision is the routing outcome; Reason names the rule that fired.
type Decision struct {
	Provider string
	Reason   string
}

// ChooseProvider is the pure routing table, evaluated top to bottom with
// first match winning.
func ChooseProvider(in RoutingInput) Decision {
	if !in.NetworkOnline {
		return Decision{Provider: ProviderLocal, Reason: "offline"}
	}
	if in.Length > 500 {
		return Decision{Provider: ProviderLocal, Reason: "long_response"}
	}
	if in.Priority == "urgent" || in.Intensity == "high" {
		return Decision{Provider: ProviderRemote, Reason: "high_impact"}
	}
	if in.Length < 200 {
		return Decision{Provider: ProviderRemote, Reason: "short_reply"}
	}
	return Decision{Provider: ProviderLocal, Reason: "default_local"}
}
