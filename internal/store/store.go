package store

import (
	"fmt"

	"stash-tracker/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventStore persists canonical stash events. Inserts are idempotent on
// op_id, so concurrent or repeated uploads of the same export are safe.
type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// InsertSummary reports the outcome of one batch insert.
// Inserted + Duplicates == Total on success.
type InsertSummary struct {
	Total      int `json:"total"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// InsertEvents writes a batch of already-validated events inside a single
// transaction, so readers never observe a partially-ingested upload. Each row
// is an insert-or-ignore keyed on op_id; a row whose op_id already exists
// counts as a duplicate instead of an error.
func (s *EventStore) InsertEvents(events []models.StashEvent) (InsertSummary, error) {
	summary := InsertSummary{Total: len(events)}
	if len(events) == 0 {
		return summary, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range events {
			row := events[i]
			row.ID = 0
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "op_id"}},
				DoNothing: true,
			}).Create(&row)
			if result.Error != nil {
				return fmt.Errorf("failed to insert event op_id=%d: %w", row.OpID, result.Error)
			}
			if result.RowsAffected == 0 {
				summary.Duplicates++
			} else {
				summary.Inserted++
			}
		}
		return nil
	})
	if err != nil {
		return InsertSummary{Total: len(events)}, err
	}
	return summary, nil
}

// Count returns the number of stored events, mostly for health reporting.
func (s *EventStore) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&models.StashEvent{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
