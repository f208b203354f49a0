package models

import (
	"time"
)

// Action values permitted on a stash event. Anything else is rejected
// during ingestion.
const (
	ActionAdded    = "added"
	ActionRemoved  = "removed"
	ActionModified = "modified"
)

// ValidAction reports whether s is one of the three permitted action values.
func ValidAction(s string) bool {
	return s == ActionAdded || s == ActionRemoved || s == ActionModified
}

// StashEvent is one recorded add/remove/modify action on an item within an
// account's stash tab. Rows are append-only; op_id is the external
// deduplication key, so re-uploading the same CSV never double counts.
type StashEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Date      string    `json:"date" gorm:"not null;index"`
	OpID      int64     `json:"op_id" gorm:"column:op_id;uniqueIndex;not null"`
	League    string    `json:"league" gorm:"not null;index"`
	Account   string    `json:"account" gorm:"not null;index"`
	Action    string    `json:"action" gorm:"not null;index"`
	Stash     string    `json:"stash" gorm:"not null"`
	Item      string    `json:"item" gorm:"not null"`
	ItemCount int       `json:"item_count" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
}
