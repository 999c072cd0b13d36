package redirect

import (
	"codepair/internal/event"
)

// NavigateOnInvalidate wires the session-invalidated event to a login
// navigation. The session manager itself never navigates; this subscriber
// is the only place the two concerns meet. The returned stop function tears
// the subscription down.
func NavigateOnInvalidate(bus event.Bus, nav Navigator) func() {
	ch, unsubscribe := bus.Subscribe()

	go func() {
		for e := range ch {
			if e.Type == event.TypeSessionInvalidated {
				nav.Replace("/login")
			}
		}
	}()

	return unsubscribe
}
