package do

import "time"

// DeployerInfo marks one address as a whitelisted infrastructure developer.
type DeployerInfo struct {
	ID        uint64 `gorm:"primaryKey"`
	Address   string `gorm:"uniqueIndex:unique_idx_deployer_address;type:varchar(64);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
