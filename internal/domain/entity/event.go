// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

// AuthEvent classifies the auth-state-change notifications pushed by the
// authentication provider. Providers are free to add new event names over
// time, so anything we do not recognize maps to EventOther and is ignored.
type AuthEvent string

const (
	// EventSignedIn indicates a fresh session was established.
	EventSignedIn AuthEvent = "SIGNED_IN"
	// EventTokenRefreshed indicates the session was replaced by a token refresh.
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	// EventUserUpdated indicates the identity behind the session changed.
	EventUserUpdated AuthEvent = "USER_UPDATED"
	// EventSignedOut indicates the session is gone.
	EventSignedOut AuthEvent = "SIGNED_OUT"
	// EventUserDeleted indicates the account behind the session was removed.
	EventUserDeleted AuthEvent = "USER_DELETED"
	// EventOther is any notification we do not act on.
	EventOther AuthEvent = "OTHER"
)

// ParseAuthEvent maps a raw provider event name to an AuthEvent.
func ParseAuthEvent(raw string) AuthEvent {
	switch AuthEvent(raw) {
	case EventSignedIn, EventTokenRefreshed, EventUserUpdated, EventSignedOut, EventUserDeleted:
		return AuthEvent(raw)
	default:
		return EventOther
	}
}

// String returns the string representation of the AuthEvent.
func (e AuthEvent) String() string {
	return string(e)
}

// SignInEquivalent reports whether the event means a valid session is
// new or changed and the profile join should run again.
func (e AuthEvent) SignInEquivalent() bool {
	switch e {
	case EventSignedIn, EventTokenRefreshed, EventUserUpdated:
		return true
	default:
		return false
	}
}

// SignOutEquivalent reports whether the event means the session is no
// longer usable and the current user must be cleared without a fetch.
func (e AuthEvent) SignOutEquivalent() bool {
	switch e {
	case EventSignedOut, EventUserDeleted:
		return true
	default:
		return false
	}
}
