package do

import "time"

// TierAssignmentInfo is the current severity tier of one researcher address.
type TierAssignmentInfo struct {
	ID        uint64 `gorm:"primaryKey"`
	Address   string `gorm:"uniqueIndex:unique_idx_tier_address;type:varchar(64);not null"`
	Tier      int    `gorm:"default:0;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
