package model

import (
	"time"
)

// ActivityLog is an append-only record of client-reported proctoring events
// (focus loss, connectivity drops, navigation) replayed through the sync path.
type ActivityLog struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	AttemptID uint       `json:"attempt_id" gorm:"not null;index"`
	EventType string     `json:"event_type" gorm:"not null"`
	Payload   string     `json:"payload,omitempty" gorm:"type:text"`
	LoggedAt  *time.Time `json:"logged_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
