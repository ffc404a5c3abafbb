package do

import "time"

// UserFlagInfo holds sticky per-address flags. GoodUptime never reverts once
// set.
type UserFlagInfo struct {
	ID         uint64 `gorm:"primaryKey"`
	Address    string `gorm:"uniqueIndex:unique_idx_flag_address;type:varchar(64);not null"`
	GoodUptime bool   `gorm:"default:false;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
