package asset

import (
	"encoding/json"
	"fmt"
)

// State is the lifecycle position of a payload. It is exposed on the wire as an integer.
type State int

const (
	StateCreated         State = 1
	StateDetailsVerified State = 2
	// StateDetailsModified is only reached through Modify, which no workflow step invokes.
	StateDetailsModified State = 3
	StateInTransit       State = 4
	StateReceived        State = 5
	StateClearForFlight  State = 6
	// StateClosed is reserved; no handler sets it.
	StateClosed State = 7
)

var stateNames = map[State]string{
	StateCreated:         "CREATED",
	StateDetailsVerified: "DETAILS_VERIFIED",
	StateDetailsModified: "DETAILS_MODIFIED",
	StateInTransit:       "IN_TRANSIT",
	StateReceived:        "RECEIVED",
	StateClearForFlight:  "CLEAR_FOR_FLIGHT",
	StateClosed:          "CLOSED",
}

// Valid reports whether s is one of the enumerated states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// UnmarshalJSON rejects integers outside the enumeration.
func (s *State) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("currentAssetState: %w", err)
	}
	st := State(v)
	if !st.Valid() {
		return fmt.Errorf("currentAssetState: %d is not a known state", v)
	}
	*s = st
	return nil
}

// predecessors lists the states each workflow step normally starts from.
var predecessors = map[State][]State{
	StateDetailsVerified: {StateCreated, StateDetailsModified},
	StateInTransit:       {StateDetailsVerified, StateDetailsModified},
	StateReceived:        {StateInTransit},
	StateClearForFlight:  {StateReceived},
}

// InSequence reports whether moving from -> to follows the normal workflow.
// Handlers do not enforce it; out-of-sequence moves are only reported.
func InSequence(from, to State) bool {
	prev, ok := predecessors[to]
	if !ok {
		return true
	}
	for _, p := range prev {
		if p == from {
			return true
		}
	}
	return false
}
