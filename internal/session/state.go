package session

import "fmt"

// State is where a Session is in its login lifecycle.
type State int

const (
	LoggedOut State = iota
	AwaitingVerification
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged-out"
	case AwaitingVerification:
		return "awaiting-verification"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the states reachable from each state. Staying in the
// same state is always allowed.
var transitions = map[State][]State{
	LoggedOut:            {AwaitingVerification, Authenticated},
	AwaitingVerification: {Authenticated, LoggedOut},
	Authenticated:        {Expired, LoggedOut},
	Expired:              {AwaitingVerification, Authenticated, LoggedOut},
}

// CanTransition reports whether a session may move from one state to another.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError reports a state change the lifecycle does not allow.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session cannot go from %s to %s", e.From, e.To)
}
