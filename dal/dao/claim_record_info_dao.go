package dao

import (
	"context"
	"errors"
	"time"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type ClaimRecordInfoDAO interface {
	Get(ctx context.Context, tx *gorm.DB, address string, category int) (*do.ClaimRecordInfo, error)
	GetByAddress(ctx context.Context, tx *gorm.DB, address string) ([]*do.ClaimRecordInfo, error)
	MarkClaimed(ctx context.Context, tx *gorm.DB, address string, category int) (int64, error)
	ResetClaimed(ctx context.Context, tx *gorm.DB, address string, category int) (int64, error)
	SetLastClaimTime(ctx context.Context, tx *gorm.DB, address string, category int, claimTime time.Time) (int64, error)
}

type ClaimRecordInfoDAOImpl struct{}

var claimRecordInfoDAO ClaimRecordInfoDAO = &ClaimRecordInfoDAOImpl{}

func GetClaimRecordInfoDAOImpl() ClaimRecordInfoDAO {
	return claimRecordInfoDAO
}

// Get returns nil without error when the address has no record for the
// category.
func (c *ClaimRecordInfoDAOImpl) Get(ctx context.Context, tx *gorm.DB, address string, category int) (*do.ClaimRecordInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	info := do.ClaimRecordInfo{}
	query := tx.Model(&do.ClaimRecordInfo{}).
		Where("address = ? AND category = ?", address, category).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if query.Error != nil {
		return nil, query.Error
	}
	return &info, nil
}

func (c *ClaimRecordInfoDAOImpl) GetByAddress(ctx context.Context, tx *gorm.DB, address string) ([]*do.ClaimRecordInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	var infos []*do.ClaimRecordInfo
	query := tx.Model(&do.ClaimRecordInfo{}).Where("address = ?", address).
		Order("category asc").Find(&infos)
	if query.Error != nil {
		return nil, query.Error
	}
	return infos, nil
}

// MarkClaimed flips the one-shot flag, creating the record if needed. Zero
// rows affected means the flag was already set.
func (c *ClaimRecordInfoDAOImpl) MarkClaimed(ctx context.Context, tx *gorm.DB, address string, category int) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	existing, err := c.Get(ctx, tx, address, category)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		created := tx.Create(&do.ClaimRecordInfo{Address: address, Category: category, Claimed: true})
		return created.RowsAffected, created.Error
	}

	query := tx.Model(&do.ClaimRecordInfo{}).
		Where("address = ? AND category = ? AND claimed = ?", address, category, false).
		UpdateColumn("claimed", true)
	return query.RowsAffected, query.Error
}

func (c *ClaimRecordInfoDAOImpl) ResetClaimed(ctx context.Context, tx *gorm.DB, address string, category int) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.ClaimRecordInfo{}).
		Where("address = ? AND category = ?", address, category).
		UpdateColumn("claimed", false)
	return query.RowsAffected, query.Error
}

func (c *ClaimRecordInfoDAOImpl) SetLastClaimTime(ctx context.Context, tx *gorm.DB, address string, category int, claimTime time.Time) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	existing, err := c.Get(ctx, tx, address, category)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		created := tx.Create(&do.ClaimRecordInfo{Address: address, Category: category, LastClaimTime: &claimTime})
		return created.RowsAffected, created.Error
	}

	query := tx.Model(&do.ClaimRecordInfo{}).
		Where("address = ? AND category = ?", address, category).
		UpdateColumn("last_claim_time", claimTime)
	return query.RowsAffected, query.Error
}
