package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type UserInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.UserInfo) (int64, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*do.UserInfo, error)
	GetNum(ctx context.Context, tx *gorm.DB) (int64, error)
}

type UserInfoDAOImpl struct{}

var userInfoDAO UserInfoDAO = &UserInfoDAOImpl{}

func GetUserInfoDAOImpl() UserInfoDAO {
	return userInfoDAO
}

func (u *UserInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.UserInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to create user info: nil user info")
	}

	query := tx.Create(info)
	return query.RowsAffected, query.Error
}

// GetByUsername returns nil without error when the account does not exist.
func (u *UserInfoDAOImpl) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*do.UserInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	info := do.UserInfo{}
	query := tx.Model(&do.UserInfo{}).Where("username = ?", username).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if query.Error != nil {
		return nil, query.Error
	}
	return &info, nil
}

func (u *UserInfoDAOImpl) GetNum(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	var res int64
	query := tx.Model(&do.UserInfo{}).Count(&res)
	return res, query.Error
}
