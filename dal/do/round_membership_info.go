package do

import "time"

// RoundMembershipInfo records that an address belongs to a monthly dapp
// round and whether it has already claimed that round's reward.
type RoundMembershipInfo struct {
	ID        uint64 `gorm:"primaryKey"`
	Address   string `gorm:"uniqueIndex:unique_idx_round_member,priority:1;type:varchar(64);not null"`
	RoundID   int64  `gorm:"uniqueIndex:unique_idx_round_member,priority:2;index:idx_round_id;not null"`
	Claimed   bool   `gorm:"default:false;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
