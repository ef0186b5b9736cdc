// Package models defines the core data structures for leotrack.
//
// It includes the activity log record, per-caller conversation state, and the
// transport-facing message and menu types shared across modules.
package models

import "time"

// ActivityType identifies the kind of logged activity. The set is closed.
type ActivityType string

const (
	// ActivitySleep is a sleep session, open until its end time is set.
	ActivitySleep ActivityType = "SLEEP"
	// ActivityFeed is a formula feeding with a volume payload.
	ActivityFeed ActivityType = "FEED"
	// ActivityDiaper is a diaper change; the kind is kept in Subtype.
	ActivityDiaper ActivityType = "DIAPER"
	// ActivityBath is a bath, recorded as a point event.
	ActivityBath ActivityType = "BATH"
	// ActivityWalk is a walk, recorded as a point event.
	ActivityWalk ActivityType = "WALK"
)

// IsValidActivityType checks if the given activity type is supported.
func IsValidActivityType(t ActivityType) bool {
	switch t {
	case ActivitySleep, ActivityFeed, ActivityDiaper, ActivityBath, ActivityWalk:
		return true
	default:
		return false
	}
}

// ActivityRecord is one row of the append-only activity log.
//
// Records are immutable once written, with a single exception: the update
// that sets EndTime on an open sleep session. StartTime and EndTime are
// absolute UTC instants; RecordedAt is the insertion instant, for audit only.
type ActivityRecord struct {
	ID         int64        `json:"id"`
	Type       ActivityType `json:"type"`
	Subtype    string       `json:"subtype,omitempty"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    *time.Time   `json:"end_time,omitempty"`
	Value      string       `json:"value,omitempty"` // feed volume in ml, kept as text
	RecordedAt time.Time    `json:"recorded_at,omitempty"`
}

// Open reports whether the record is an unterminated interval.
func (r *ActivityRecord) Open() bool {
	return r.EndTime == nil
}

// Duration returns the length of a closed interval, or zero while open.
func (r *ActivityRecord) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// MessageStatus represents the delivery status of an outbound message.
type MessageStatus string

const (
	// MessageStatusSent indicates the transport accepted the message.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message reached the caller.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the caller read the message.
	MessageStatusRead MessageStatus = "read"
)

// Receipt is a transport delivery event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response is an inbound message from a caller. From is an opaque caller
// identifier; the core never sees transport-specific metadata.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// Menu is an ordered quick-reply keyboard layout: rows of short button
// labels. Transports without native reply keyboards render it as text.
type Menu struct {
	Rows [][]string `json:"rows"`
}
