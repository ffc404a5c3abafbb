package do

import "time"

// PoolInfo is one bounded reward pool. Allocation is fixed at launch from
// the total supply and AllocationBps; Claimed only grows and never exceeds
// Allocation.
type PoolInfo struct {
	ID            uint64 `gorm:"primaryKey"`
	Kind          int    `gorm:"uniqueIndex:unique_idx_kind;not null"`
	AllocationBps int    `gorm:"default:0;not null"`
	Allocation    int64  `gorm:"default:0;not null"`
	Claimed       int64  `gorm:"default:0;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
