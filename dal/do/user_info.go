package do

import "time"

// UserInfo is an operator account allowed to call admin RPC methods.
type UserInfo struct {
	ID           uint64 `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex:unique_idx_username;type:varchar(100);not null"`
	PasswordHash string `gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
