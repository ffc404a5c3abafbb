package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type TierAssignmentInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.TierAssignmentInfo) (int64, error)
	GetByAddress(ctx context.Context, tx *gorm.DB, address string) (*do.TierAssignmentInfo, error)
	UpdateTier(ctx context.Context, tx *gorm.DB, address string, tier int) (int64, error)
}

type TierAssignmentInfoDAOImpl struct{}

var tierAssignmentInfoDAO TierAssignmentInfoDAO = &TierAssignmentInfoDAOImpl{}

func GetTierAssignmentInfoDAOImpl() TierAssignmentInfoDAO {
	return tierAssignmentInfoDAO
}

func (t *TierAssignmentInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.TierAssignmentInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to create tier assignment info: nil info")
	}

	query := tx.Create(info)
	return query.RowsAffected, query.Error
}

// GetByAddress returns nil without error when the address has no assignment.
func (t *TierAssignmentInfoDAOImpl) GetByAddress(ctx context.Context, tx *gorm.DB, address string) (*do.TierAssignmentInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	info := do.TierAssignmentInfo{}
	query := tx.Model(&do.TierAssignmentInfo{}).Where("address = ?", address).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if query.Error != nil {
		return nil, query.Error
	}
	return &info, nil
}

func (t *TierAssignmentInfoDAOImpl) UpdateTier(ctx context.Context, tx *gorm.DB, address string, tier int) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.TierAssignmentInfo{}).Where("address = ?", address).
		UpdateColumn("tier", tier)
	return query.RowsAffected, query.Error
}
