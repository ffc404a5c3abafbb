package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type RoundMembershipInfoDAO interface {
	MCreate(ctx context.Context, tx *gorm.DB, infos []*do.RoundMembershipInfo) (int64, error)
	Get(ctx context.Context, tx *gorm.DB, address string, roundID int64) (*do.RoundMembershipInfo, error)
	GetByAddress(ctx context.Context, tx *gorm.DB, address string) ([]*do.RoundMembershipInfo, error)
	SetClaimed(ctx context.Context, tx *gorm.DB, address string, roundID int64) (int64, error)
	DistinctAddresses(ctx context.Context, tx *gorm.DB) ([]string, error)
}

type RoundMembershipInfoDAOImpl struct{}

var roundMembershipInfoDAO RoundMembershipInfoDAO = &RoundMembershipInfoDAOImpl{}

func GetRoundMembershipInfoDAOImpl() RoundMembershipInfoDAO {
	return roundMembershipInfoDAO
}

func (r *RoundMembershipInfoDAOImpl) MCreate(ctx context.Context, tx *gorm.DB, infos []*do.RoundMembershipInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if infos == nil {
		return 0, errors.New("fail to multi create round membership info: nil infos")
	}

	if len(infos) == 0 {
		return 0, nil
	}

	query := tx.CreateInBatches(infos, len(infos))
	return query.RowsAffected, query.Error
}

// Get returns nil without error when the address is not in the round.
func (r *RoundMembershipInfoDAOImpl) Get(ctx context.Context, tx *gorm.DB, address string, roundID int64) (*do.RoundMembershipInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	info := do.RoundMembershipInfo{}
	query := tx.Model(&do.RoundMembershipInfo{}).
		Where("address = ? AND round_id = ?", address, roundID).First(&info)
	if errors.Is(query.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if query.Error != nil {
		return nil, query.Error
	}
	return &info, nil
}

func (r *RoundMembershipInfoDAOImpl) GetByAddress(ctx context.Context, tx *gorm.DB, address string) ([]*do.RoundMembershipInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	var infos []*do.RoundMembershipInfo
	query := tx.Model(&do.RoundMembershipInfo{}).Where("address = ?", address).
		Order("round_id asc").Find(&infos)
	if query.Error != nil {
		return nil, query.Error
	}
	return infos, nil
}

// SetClaimed flips the claimed flag only if it is still unset, so the caller
// can treat zero rows affected as an already-claimed round.
func (r *RoundMembershipInfoDAOImpl) SetClaimed(ctx context.Context, tx *gorm.DB, address string, roundID int64) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	query := tx.Model(&do.RoundMembershipInfo{}).
		Where("address = ? AND round_id = ? AND claimed = ?", address, roundID, false).
		UpdateColumn("claimed", true)
	return query.RowsAffected, query.Error
}

func (r *RoundMembershipInfoDAOImpl) DistinctAddresses(ctx context.Context, tx *gorm.DB) ([]string, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	var addresses []string
	query := tx.Model(&do.RoundMembershipInfo{}).Distinct("address").
		Order("address asc").Pluck("address", &addresses)
	if query.Error != nil {
		return nil, query.Error
	}
	return addresses, nil
}
