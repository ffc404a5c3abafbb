package do

import "time"

// EventInfo is one append-only event stream entry. Attributes is a JSON
// object serialized as text.
type EventInfo struct {
	ID         uint64 `gorm:"primaryKey"`
	EventID    string `gorm:"uniqueIndex:unique_idx_event_id;type:varchar(40);not null"`
	Type       string `gorm:"index:idx_event_type;type:varchar(60);not null"`
	Attributes string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
