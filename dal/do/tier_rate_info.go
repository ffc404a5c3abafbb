package do

import "time"

// TierRateInfo is the per-user reward of one tier, recomputed whenever a
// registration batch changes the tier's member count.
type TierRateInfo struct {
	ID          uint64 `gorm:"primaryKey"`
	Tier        int    `gorm:"uniqueIndex:unique_idx_tier;not null"`
	PerUser     int64  `gorm:"default:0;not null"`
	MemberCount int64  `gorm:"default:0;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
