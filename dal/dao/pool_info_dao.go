package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type PoolInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.PoolInfo) (int64, error)
	GetByKind(ctx context.Context, tx *gorm.DB, kind int) (*do.PoolInfo, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*do.PoolInfo, error)
	AddClaimed(ctx context.Context, tx *gorm.DB, kind int, amount int64) (int64, error)
}

type PoolInfoDAOImpl struct{}

var poolInfoDAO PoolInfoDAO = &PoolInfoDAOImpl{}

func GetPoolInfoDAOImpl() PoolInfoDAO {
	return poolInfoDAO
}

func (p *PoolInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.PoolInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to create pool info: nil pool info")
	}

	query := tx.Create(info)
	return query.RowsAffected, query.Error
}

func (p *PoolInfoDAOImpl) GetByKind(ctx context.Context, tx *gorm.DB, kind int) (*do.PoolInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	poolInfo := do.PoolInfo{}
	query := tx.Model(&do.PoolInfo{}).Where("kind = ?", kind).First(&poolInfo)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, errcode.ErrPoolNotFound
	} else if query.Error != nil {
		return nil, query.Error
	}
	return &poolInfo, nil
}

func (p *PoolInfoDAOImpl) GetAll(ctx context.Context, tx *gorm.DB) ([]*do.PoolInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	var infos []*do.PoolInfo
	query := tx.Model(&do.PoolInfo{}).Order("kind asc").Find(&infos)
	if query.Error != nil {
		return nil, query.Error
	}
	return infos, nil
}

// AddClaimed moves claimed forward only when the pool still has room for
// amount, so the bound holds even under concurrent writers.
func (p *PoolInfoDAOImpl) AddClaimed(ctx context.Context, tx *gorm.DB, kind int, amount int64) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.PoolInfo{}).
		Where("kind = ? AND claimed + ? <= allocation", kind, amount).
		UpdateColumn("claimed", gorm.Expr("claimed + ?", amount))
	return query.RowsAffected, query.Error
}
