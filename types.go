package sessionkit

import (
	"context"
	"io"
	"time"

	"github.com/loqui-app/sessionkit/httpc"
	internalevents "github.com/loqui-app/sessionkit/internal/events"
	"github.com/loqui-app/sessionkit/internal/stores"
)

// SessionPhase is the coordinator's routing decision state.
type SessionPhase uint8

const (
	// PhaseChecking is the initial state: restoration and reconciliation
	// have not finished (or are gated on policy consent).
	PhaseChecking SessionPhase = iota
	// PhaseAuthenticated is stable until the next credential change.
	PhaseAuthenticated
	// PhaseUnauthenticated is stable until the next credential change; the
	// host has been told to navigate to the unauthenticated entry screen.
	PhaseUnauthenticated
	// PhaseRedirectPending is the armed grace period before committing to
	// PhaseUnauthenticated; a completing auth flow cancels it.
	PhaseRedirectPending
)

// String returns the phase name used in events and logs.
func (p SessionPhase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseRedirectPending:
		return "redirect_pending"
	default:
		return "unknown"
	}
}

// UserProfile is the persisted account record owned by the coordinator.
type UserProfile = stores.Profile

// Credential is the in-memory credential pair snapshot returned by
// [Coordinator.Credential].
type Credential struct {
	AccessToken  string
	RefreshToken string
	AccessExpiry time.Time
}

// Transport is the outbound network collaborator (see [httpc.Transport]).
type Transport = httpc.Transport

// SocialProvider fronts the social-login SDK: an availability check and an
// authorize call returning an opaque code.
type SocialProvider interface {
	IsProviderInstalled(ctx context.Context) (bool, error)
	Authorize(ctx context.Context, scope, state string) (code string, err error)
}

// AuthResult is returned by the credential flows: the persisted profile and
// the issued token pair.
type AuthResult struct {
	User         *UserProfile
	AccessToken  string
	RefreshToken string
}

// SocialAuthResult extends [AuthResult] with the onboarding discriminator:
// Registered is true when the backend created the account during this
// exchange and the host should route to onboarding instead of main content.
type SocialAuthResult struct {
	AuthResult
	Registered bool
}

// PasswordResetChallenge is the server-issued handle for a pending reset.
type PasswordResetChallenge struct {
	ChallengeID string
}

// PhaseChange is delivered to subscribers on every phase transition.
type PhaseChange struct {
	From SessionPhase
	To   SessionPhase
}

// Event is a structured session event emitted by the coordinator.
type Event = internalevents.Event

// Sink receives [Event] values from the coordinator's event dispatcher.
type Sink = internalevents.Sink

// NoOpSink is a [Sink] that silently discards all events.
type NoOpSink = internalevents.NoOpSink

// ChannelSink is a buffered channel-based [Sink].
type ChannelSink = internalevents.ChannelSink

// JSONWriterSink is a [Sink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalevents.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalevents.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalevents.NewJSONWriterSink(w)
}
