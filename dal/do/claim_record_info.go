package do

import "time"

// ClaimRecordInfo tracks claim consumption per address and category.
// Claimed backs one-shot claims, LastClaimTime backs cooldown claims.
type ClaimRecordInfo struct {
	ID            uint64 `gorm:"primaryKey"`
	Address       string `gorm:"uniqueIndex:unique_idx_claim_record,priority:1;type:varchar(64);not null"`
	Category      int    `gorm:"uniqueIndex:unique_idx_claim_record,priority:2;not null"`
	Claimed       bool   `gorm:"default:false;not null"`
	LastClaimTime *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
