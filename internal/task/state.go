package task

import "fmt"

// State is the pickup/drop-off progress. States only ever move forward.
type State int

const (
	// NotPickedUp: the object is waiting at the pickup point.
	NotPickedUp State = iota
	// PickedUp: the robot reached the pickup point; the object is being carried.
	PickedUp
	// DroppedOff: the carry pause is over and the object is shown at drop-off.
	DroppedOff
	// Consumed: the robot reached the drop-off point with the object. Terminal.
	Consumed
)

var stateNames = [...]string{
	NotPickedUp: "not_picked_up",
	PickedUp:    "picked_up",
	DroppedOff:  "dropped_off",
	Consumed:    "consumed",
}

// String returns the snake_case name used in logs and the journal.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState converts a name produced by String back to a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown task state %q", name)
}

// Carrying reports whether the robot has picked the object up, regardless of
// how far past pickup the task has progressed.
func (s State) Carrying() bool {
	return s >= PickedUp
}
