package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type TierRateInfoDAO interface {
	Upsert(ctx context.Context, tx *gorm.DB, tier int, perUser int64, memberCount int64) (int64, error)
	GetByTier(ctx context.Context, tx *gorm.DB, tier int) (*do.TierRateInfo, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*do.TierRateInfo, error)
}

type TierRateInfoDAOImpl struct{}

var tierRateInfoDAO TierRateInfoDAO = &TierRateInfoDAOImpl{}

func GetTierRateInfoDAOImpl() TierRateInfoDAO {
	return tierRateInfoDAO
}

func (t *TierRateInfoDAOImpl) Upsert(ctx context.Context, tx *gorm.DB, tier int, perUser int64, memberCount int64) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	info := do.TierRateInfo{}
	query := tx.Model(&do.TierRateInfo{}).Where("tier = ?", tier).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		created := tx.Create(&do.TierRateInfo{Tier: tier, PerUser: perUser, MemberCount: memberCount})
		return created.RowsAffected, created.Error
	} else if query.Error != nil {
		return 0, query.Error
	}

	updated := tx.Model(&do.TierRateInfo{}).Where("tier = ?", tier).
		UpdateColumns(map[string]interface{}{"per_user": perUser, "member_count": memberCount})
	return updated.RowsAffected, updated.Error
}

// GetByTier returns nil without error when the tier has no recorded rate yet.
func (t *TierRateInfoDAOImpl) GetByTier(ctx context.Context, tx *gorm.DB, tier int) (*do.TierRateInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	info := do.TierRateInfo{}
	query := tx.Model(&do.TierRateInfo{}).Where("tier = ?", tier).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if query.Error != nil {
		return nil, query.Error
	}
	return &info, nil
}

func (t *TierRateInfoDAOImpl) GetAll(ctx context.Context, tx *gorm.DB) ([]*do.TierRateInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	var infos []*do.TierRateInfo
	query := tx.Model(&do.TierRateInfo{}).Order("tier asc").Find(&infos)
	if query.Error != nil {
		return nil, query.Error
	}
	return infos, nil
}
