package dao

import (
	"context"
	"errors"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/errcode"

	"gorm.io/gorm"
)

type EventInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.EventInfo) (int64, error)
	Get(ctx context.Context, tx *gorm.DB, page int, num int, positiveOrder bool) ([]*do.EventInfo, error)
	GetByType(ctx context.Context, tx *gorm.DB, eventType string, page int, num int, positiveOrder bool) ([]*do.EventInfo, error)
	GetNum(ctx context.Context, tx *gorm.DB) (int64, error)
}

type EventInfoDAOImpl struct{}

var eventInfoDAO EventInfoDAO = &EventInfoDAOImpl{}

func GetEventInfoDAOImpl() EventInfoDAO {
	return eventInfoDAO
}

func (e *EventInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.EventInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("fail to create event info: nil event info")
	}

	query := tx.Create(info)
	return query.RowsAffected, query.Error
}

func (e *EventInfoDAOImpl) Get(ctx context.Context, tx *gorm.DB, page int, num int, positiveOrder bool) ([]*do.EventInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.EventInfo, 0)
	if page < 1 || num < 1 {
		return res, nil
	}
	var query *gorm.DB
	if positiveOrder {
		query = tx.Model(&do.EventInfo{}).Offset((page - 1) * num).Limit(num).Find(&res)
	} else {
		query = tx.Model(&do.EventInfo{}).Order("id desc").Offset((page - 1) * num).Limit(num).Find(&res)
	}

	if query.Error != nil {
		return nil, query.Error
	}
	return res, nil
}

func (e *EventInfoDAOImpl) GetByType(ctx context.Context, tx *gorm.DB, eventType string, page int, num int, positiveOrder bool) ([]*do.EventInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.EventInfo, 0)
	if page < 1 || num < 1 {
		return res, nil
	}
	var query *gorm.DB
	if positiveOrder {
		query = tx.Model(&do.EventInfo{}).Where("type = ?", eventType).Offset((page - 1) * num).Limit(num).Find(&res)
	} else {
		query = tx.Model(&do.EventInfo{}).Where("type = ?", eventType).Order("id desc").Offset((page - 1) * num).Limit(num).Find(&res)
	}

	if query.Error != nil {
		return nil, query.Error
	}
	return res, nil
}

func (e *EventInfoDAOImpl) GetNum(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	var res int64
	query := tx.Model(&do.EventInfo{}).Count(&res)
	return res, query.Error
}
