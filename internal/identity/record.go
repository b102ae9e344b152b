// Package identity holds the contact-identity model for Telegram chats: the
// merge rules applied to incoming updates, the derived verification state,
// and the service that upserts records into the store.
package identity

import (
	"strings"
	"time"
)

// Record is the known identity of one Telegram chat. Empty strings mean the
// platform never supplied the value.
type Record struct {
	ChatID      string    `json:"chat_id"`
	Username    string    `json:"username,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	State       State     `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Observation is what a single inbound message tells us about its sender.
type Observation struct {
	ChatID      string
	Username    string
	FirstName   string
	LastName    string
	PhoneNumber string // already normalized
}

// Transition describes the state change caused by merging an observation.
type Transition struct {
	From State
	To   State
}

// Changed reports whether the merge moved the record to a new state.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// NormalizePhone trims the value and prefixes "+" when missing.
// An empty input stays empty.
func NormalizePhone(raw string) string {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}

// Merge applies obs to existing (nil for a chat seen for the first time).
// Names and username only fill in or refresh with non-empty values; the phone
// is replaced whenever obs carries one; UpdatedAt is always set to now.
func Merge(existing *Record, obs Observation, now time.Time) (Record, Transition) {
	from := StateOf(existing)

	var merged Record
	if existing == nil {
		merged = Record{
			ChatID:    obs.ChatID,
			CreatedAt: now,
		}
	} else {
		merged = *existing
	}

	merged.Username = pick(obs.Username, merged.Username)
	merged.FirstName = pick(obs.FirstName, merged.FirstName)
	merged.LastName = pick(obs.LastName, merged.LastName)
	merged.PhoneNumber = pick(obs.PhoneNumber, merged.PhoneNumber)
	merged.UpdatedAt = now
	merged.State = StateOf(&merged)

	return merged, Transition{From: from, To: merged.State}
}

func pick(incoming, current string) string {
	if incoming != "" {
		return incoming
	}
	return current
}
