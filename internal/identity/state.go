package identity

import (
	"encoding/json"
	"fmt"
)

// State is how far a chat has progressed in identifying itself.
// States only move forward: Unidentified -> Identified -> PhoneVerified.
type State int

const (
	// StateUnidentified means no record exists for the chat.
	StateUnidentified State = iota
	// StateIdentified means the chat has sent at least one message.
	StateIdentified
	// StatePhoneVerified means the user shared a phone number via the contact button.
	StatePhoneVerified
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateUnidentified:
		return "unidentified"
	case StateIdentified:
		return "identified"
	case StatePhoneVerified:
		return "phone_verified"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// StateOf derives the state of a stored record.
func StateOf(r *Record) State {
	switch {
	case r == nil:
		return StateUnidentified
	case r.PhoneNumber != "":
		return StatePhoneVerified
	default:
		return StateIdentified
	}
}
