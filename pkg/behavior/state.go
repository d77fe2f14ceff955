// Package behavior defines the companion's movement states and the
// synchronous event bus that connects the sensor, movement and feedback
// layers.
package behavior

import "fmt"

// State is a movement behaviour. Exactly one is active while the
// controller runs.
type State int

const (
	None State = iota
	Wander
	FollowTarget
	OrbitAnchor
)

var stateNames = map[State]string{
	None:         "none",
	Wander:       "wander",
	FollowTarget: "follow_target",
	OrbitAnchor:  "orbit_anchor",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown behavior state %q", b)
}
