package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type UserFlagInfoDAO interface {
	GetByAddress(ctx context.Context, tx *gorm.DB, address string) (*do.UserFlagInfo, error)
	SetGoodUptime(ctx context.Context, tx *gorm.DB, address string) (int64, error)
}

type UserFlagInfoDAOImpl struct{}

var userFlagInfoDAO UserFlagInfoDAO = &UserFlagInfoDAOImpl{}

func GetUserFlagInfoDAOImpl() UserFlagInfoDAO {
	return userFlagInfoDAO
}

// GetByAddress returns nil without error when the address has no flags yet.
func (u *UserFlagInfoDAOImpl) GetByAddress(ctx context.Context, tx *gorm.DB, address string) (*do.UserFlagInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	info := do.UserFlagInfo{}
	query := tx.Model(&do.UserFlagInfo{}).Where("address = ?", address).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if query.Error != nil {
		return nil, query.Error
	}
	return &info, nil
}

// SetGoodUptime marks the address as having met the uptime requirement. The
// flag is sticky, it is only ever written true.
func (u *UserFlagInfoDAOImpl) SetGoodUptime(ctx context.Context, tx *gorm.DB, address string) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	info := do.UserFlagInfo{}
	query := tx.Model(&do.UserFlagInfo{}).Where("address = ?", address).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		created := tx.Create(&do.UserFlagInfo{Address: address, GoodUptime: true})
		return created.RowsAffected, created.Error
	} else if query.Error != nil {
		return 0, query.Error
	}

	updated := tx.Model(&do.UserFlagInfo{}).Where("address = ?", address).
		UpdateColumn("good_uptime", true)
	return updated.RowsAffected, updated.Error
}
