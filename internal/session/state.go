package session

import (
	"encoding/json"
	"time"
)

// State is the lifecycle phase of a diff session.
type State int

const (
	Open State = iota
	Terminated
)

var stateNames = map[State]string{
	Open:       "open",
	Terminated: "terminated",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Outcome records how a session ended. It is meaningful only once the
// session is Terminated.
type Outcome int

const (
	None Outcome = iota
	Accepted
	Rejected
	Superseded
)

var outcomeNames = map[Outcome]string{
	None:       "none",
	Accepted:   "accepted",
	Rejected:   "rejected",
	Superseded: "superseded",
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n
	}
	return "unknown"
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// DiffSession is one reviewable proposed change to one file path. The
// working content itself lives in the editor; the session only tracks
// review state.
type DiffSession struct {
	Path         string    `json:"path"`
	State        State     `json:"state"`
	Outcome      Outcome   `json:"outcome"`
	OpenedAt     time.Time `json:"openedAt"`
	TerminatedAt time.Time `json:"terminatedAt"`
}
