package event

type Type string

// Session lifecycle events. The session manager publishes these instead of
// performing navigation itself; router-aware subscribers react to them.
const (
	TypeSessionUpdated     Type = "session.updated"
	TypeSessionInvalidated Type = "session.invalidated"
	TypeTokenRefreshed     Type = "token.refreshed"
	TypeLoginCompleted     Type = "login.completed"
)

type Event struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
