package dao

import (
	"context"
	"errors"
	"time"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type MetaInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.MetaInfo) (int64, error)
	Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error)
	Update(ctx context.Context, tx *gorm.DB, info *do.MetaInfo) (int64, error)
	SetLaunched(ctx context.Context, tx *gorm.DB) (int64, error)
	SetDistributed(ctx context.Context, tx *gorm.DB) (int64, error)
	SetPaused(ctx context.Context, tx *gorm.DB, paused bool) (int64, error)
	SetSweepTime(ctx context.Context, tx *gorm.DB, t time.Time) (int64, error)
	BumpNextRoundID(ctx context.Context, tx *gorm.DB) (int64, error)
}

type MetaInfoDAOImpl struct{}

var metaInfoDAO MetaInfoDAO = &MetaInfoDAOImpl{}

func GetMetaInfoDAOImpl() MetaInfoDAO {
	return metaInfoDAO
}

func (m *MetaInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.MetaInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to create meta info: nil meta info")
	}

	info.ID = 1

	query := tx.Create(info)
	if query.Error != nil {
		return 0, query.Error
	}
	return query.RowsAffected, nil
}

func (m *MetaInfoDAOImpl) Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	metaInfo := do.MetaInfo{}
	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).First(&metaInfo)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, errcode.ErrMetaNotFound
	} else if query.Error != nil {
		return nil, query.Error
	}

	return &metaInfo, nil
}

func (m *MetaInfoDAOImpl) Update(ctx context.Context, tx *gorm.DB, info *do.MetaInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to update meta info: nil meta info")
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).Save(info)
	return query.RowsAffected, query.Error
}

func (m *MetaInfoDAOImpl) SetLaunched(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).UpdateColumn("launched", true)
	return query.RowsAffected, query.Error
}

func (m *MetaInfoDAOImpl) SetDistributed(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).UpdateColumn("distributed", true)
	return query.RowsAffected, query.Error
}

func (m *MetaInfoDAOImpl) SetPaused(ctx context.Context, tx *gorm.DB, paused bool) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).UpdateColumn("paused", paused)
	return query.RowsAffected, query.Error
}

func (m *MetaInfoDAOImpl) SetSweepTime(ctx context.Context, tx *gorm.DB, t time.Time) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).UpdateColumn("last_sweep_time", t)
	return query.RowsAffected, query.Error
}

func (m *MetaInfoDAOImpl) BumpNextRoundID(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.MetaInfo{}).Where("id = ?", 1).
		UpdateColumn("next_round_id", gorm.Expr("next_round_id + ?", 1))
	return query.RowsAffected, query.Error
}
