// Package models defines conversation state types for multi-turn entries.
package models

import "time"

// ConversationMode represents where a caller is in a multi-turn entry.
type ConversationMode string

const (
	// ModeNone means no entry is pending; text is routed as a menu command.
	ModeNone ConversationMode = "NONE"
	// ModeAwaitingVolume means the caller was asked for a custom feed volume.
	ModeAwaitingVolume ConversationMode = "AWAITING_VOLUME"
	// ModeAwaitingSleepStart means the caller was asked for a manual sleep
	// start time or a full interval.
	ModeAwaitingSleepStart ConversationMode = "AWAITING_SLEEP_START"
	// ModeAwaitingSleepEnd means the start time has been captured and the
	// caller was asked for the end time.
	ModeAwaitingSleepEnd ConversationMode = "AWAITING_SLEEP_END"
)

// ConversationState is the ephemeral per-caller state between messages.
//
// It is created on the first multi-turn command, cleared on completion or an
// explicit back signal, and otherwise never expires: an abandoned entry
// lingers until the caller backs out. UpdatedAt is stamped on every write so
// an expiry sweep could be added later without changing the shape.
type ConversationState struct {
	Mode         ConversationMode `json:"mode"`
	PendingStart string           `json:"pending_start,omitempty"` // start-time text, AWAITING_SLEEP_END only
	UpdatedAt    time.Time        `json:"updated_at,omitempty"`
}
