package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novanet-dev/nova-incentive-server/dal/dao"
	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type MetaInfoService interface {
	Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error)
	Init(ctx context.Context, tx *gorm.DB, totalSupply int64) (*do.MetaInfo, error)
	SetLaunched(ctx context.Context, tx *gorm.DB) error
	SetDistributed(ctx context.Context, tx *gorm.DB) error
	SetPaused(ctx context.Context, tx *gorm.DB, paused bool) error
	SetSweepTime(ctx context.Context, tx *gorm.DB, t time.Time) error
}

type MetaInfoServiceImpl struct {
	metaInfoDAO dao.MetaInfoDAO
}

var metaInfoService MetaInfoService = &MetaInfoServiceImpl{
	metaInfoDAO: dao.GetMetaInfoDAOImpl(),
}

func GetMetaInfoService() MetaInfoService {
	return metaInfoService
}

func (m *MetaInfoServiceImpl) Get(ctx context.Context, tx *gorm.DB) (*do.MetaInfo, error) {
	return m.metaInfoDAO.Get(ctx, tx)
}

// Init creates the single meta row if it does not exist yet. The recorded
// total supply never changes afterwards, so a mismatch on restart is an
// error rather than an overwrite.
func (m *MetaInfoServiceImpl) Init(ctx context.Context, tx *gorm.DB, totalSupply int64) (*do.MetaInfo, error) {
	if totalSupply <= 0 {
		return nil, fmt.Errorf("invalid total supply %v", totalSupply)
	}

	existing, err := m.metaInfoDAO.Get(ctx, tx)
	if err == nil {
		if existing.TotalSupply != totalSupply {
			return nil, fmt.Errorf("total supply mismatch: recorded %v, configured %v",
				existing.TotalSupply, totalSupply)
		}
		return existing, nil
	}
	if !errors.Is(err, errcode.ErrMetaNotFound) {
		return nil, err
	}

	info := do.MetaInfo{
		TotalSupply: totalSupply,
		NextRoundID: 1,
	}
	_, err = m.metaInfoDAO.Create(ctx, tx, &info)
	if err != nil {
		return nil, err
	}
	log.Infof("Initialized program state with total supply %v", totalSupply)
	return &info, nil
}

func (m *MetaInfoServiceImpl) SetLaunched(ctx context.Context, tx *gorm.DB) error {
	_, err := m.metaInfoDAO.SetLaunched(ctx, tx)
	return err
}

func (m *MetaInfoServiceImpl) SetDistributed(ctx context.Context, tx *gorm.DB) error {
	_, err := m.metaInfoDAO.SetDistributed(ctx, tx)
	return err
}

func (m *MetaInfoServiceImpl) SetPaused(ctx context.Context, tx *gorm.DB, paused bool) error {
	_, err := m.metaInfoDAO.SetPaused(ctx, tx, paused)
	return err
}

func (m *MetaInfoServiceImpl) SetSweepTime(ctx context.Context, tx *gorm.DB, t time.Time) error {
	_, err := m.metaInfoDAO.SetSweepTime(ctx, tx, t)
	return err
}
