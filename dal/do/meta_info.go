package do

import "time"

// MetaInfo is the single-row program state. Launched flips once when the
// program goes live; Distributed flips once when the launch push completes.
type MetaInfo struct {
	ID          uint64 `gorm:"primaryKey"`
	TotalSupply int64  `gorm:"default:0;not null"`
	Launched    bool   `gorm:"default:false;not null"`
	Distributed bool   `gorm:"default:false;not null"`
	Paused      bool   `gorm:"default:false;not null"`
	NextRoundID int64  `gorm:"default:1;not null"`

	// LastSweepTime is nil until the first emergency sweep.
	LastSweepTime *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
