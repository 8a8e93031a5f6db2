package domain

import "time"

// SessionEntry is one persisted session key in a SQL-backed store. Namespace
// lets several CLI profiles share a database.
type SessionEntry struct {
	Namespace string    `gorm:"primaryKey;size:128" json:"namespace"`
	Key       string    `gorm:"column:entry_key;primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionEntry) TableName() string { return "session_entries" }
