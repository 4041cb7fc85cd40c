// internal/application/cartsync/state.go
package cartsync

// State is the synchronizer lifecycle.
type State int

const (
	Uninitialized State = iota
	Loading
	AnonymousActive
	AuthenticatedActive
	Merging
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case AnonymousActive:
		return "anonymous"
	case AuthenticatedActive:
		return "authenticated"
	case Merging:
		return "merging"
	default:
		return "unknown"
	}
}

// Active reports whether mutations are persisted in this state.
func (s State) Active() bool {
	return s == AnonymousActive || s == AuthenticatedActive
}
