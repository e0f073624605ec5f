package sessionkit

import (
	"context"
	"time"

	internalevents "github.com/loqui-app/sessionkit/internal/events"
)

const (
	eventPhaseChanged       = "session.phase_changed"
	eventLogin              = "auth.login"
	eventRegister           = "auth.register"
	eventSocialExchange     = "auth.social_exchange"
	eventPasswordReset      = "auth.password_reset"
	eventLogout             = "auth.logout"
	eventRedirectArmed      = "session.redirect_armed"
	eventRedirectCancelled  = "session.redirect_cancelled"
	eventRedirectCommitted  = "session.redirect_committed"
	eventAccountMismatch    = "session.account_mismatch"
	eventStorageHealed      = "storage.corrupt_healed"
	eventSessionExpired     = "session.expired"
	eventCachePurged        = "cache.purged"
	eventPolicyGate         = "session.policy_gate"
	eventScheduledRefreshed = "cache.scheduled_refresh"
)

// emitEvent forwards a session event to the dispatcher. Metadata is built
// lazily so disabled dispatch costs nothing.
func (c *Coordinator) emitEvent(ctx context.Context, eventType string, success bool, userID string, phase SessionPhase, errVal error, metadata func() map[string]string) {
	if c.events == nil {
		return
	}
	event := internalevents.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		Phase:     phase.String(),
		Success:   success,
	}
	if errVal != nil {
		event.Error = errVal.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	if device := deviceIDFromContext(ctx); device != "" {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["device_id"] = device
	}
	c.events.Emit(ctx, event)
}

// EventsDropped reports how many session events were discarded due to a
// full dispatcher buffer.
func (c *Coordinator) EventsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.events.Dropped()
}
