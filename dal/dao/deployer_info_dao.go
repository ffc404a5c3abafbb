package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type DeployerInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.DeployerInfo) (int64, error)
	MCreate(ctx context.Context, tx *gorm.DB, infos []*do.DeployerInfo) (int64, error)
	Exists(ctx context.Context, tx *gorm.DB, address string) (bool, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*do.DeployerInfo, error)
	GetNum(ctx context.Context, tx *gorm.DB) (int64, error)
}

type DeployerInfoDAOImpl struct{}

var deployerInfoDAO DeployerInfoDAO = &DeployerInfoDAOImpl{}

func GetDeployerInfoDAOImpl() DeployerInfoDAO {
	return deployerInfoDAO
}

func (d *DeployerInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.DeployerInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to create deployer info: nil deployer info")
	}

	query := tx.Create(info)
	return query.RowsAffected, query.Error
}

func (d *DeployerInfoDAOImpl) MCreate(ctx context.Context, tx *gorm.DB, infos []*do.DeployerInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if infos == nil {
		return 0, errors.New("fail to multi create deployer info: nil deployer infos")
	}

	if len(infos) == 0 {
		return 0, nil
	}

	query := tx.CreateInBatches(infos, len(infos))
	return query.RowsAffected, query.Error
}

func (d *DeployerInfoDAOImpl) Exists(ctx context.Context, tx *gorm.DB, address string) (bool, error) {
	if tx == nil {
		return false, errcode.ErrNilGormDB
	}

	var res int64
	query := tx.Model(&do.DeployerInfo{}).Where("address = ?", address).Count(&res)
	if query.Error != nil {
		return false, query.Error
	}
	return res > 0, nil
}

func (d *DeployerInfoDAOImpl) GetAll(ctx context.Context, tx *gorm.DB) ([]*do.DeployerInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	var infos []*do.DeployerInfo
	query := tx.Model(&do.DeployerInfo{}).Order("id asc").Find(&infos)
	if query.Error != nil {
		return nil, query.Error
	}
	return infos, nil
}

func (d *DeployerInfoDAOImpl) GetNum(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	var res int64
	query := tx.Model(&do.DeployerInfo{}).Count(&res)
	return res, query.Error
}
