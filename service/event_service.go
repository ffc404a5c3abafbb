package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/novanet-dev/nova-incentive-server/dal/dao"
	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/model"

	"gorm.io/gorm"
)

// EventService appends to and reads the program's audit event stream.
type EventService interface {
	Append(ctx context.Context, tx *gorm.DB, event *model.Event) error
	Get(ctx context.Context, tx *gorm.DB, page int, num int, positiveOrder bool) ([]*do.EventInfo, error)
	GetByType(ctx context.Context, tx *gorm.DB, eventType string, page int, num int, positiveOrder bool) ([]*do.EventInfo, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type EventServiceImpl struct {
	eventInfoDAO dao.EventInfoDAO
}

var eventService EventService = &EventServiceImpl{
	eventInfoDAO: dao.GetEventInfoDAOImpl(),
}

func GetEventService() EventService {
	return eventService
}

func (e *EventServiceImpl) Append(ctx context.Context, tx *gorm.DB, event *model.Event) error {
	attrs, err := json.Marshal(event.Attributes)
	if err != nil {
		return err
	}

	info := do.EventInfo{
		EventID:    uuid.NewString(),
		Type:       event.Type,
		Attributes: string(attrs),
	}
	_, err = e.eventInfoDAO.Create(ctx, tx, &info)
	if err != nil {
		return err
	}
	log.Debugf("Appended event %v (%v)", info.Type, info.EventID)
	return nil
}

func (e *EventServiceImpl) Get(ctx context.Context, tx *gorm.DB, page int, num int, positiveOrder bool) ([]*do.EventInfo, error) {
	return e.eventInfoDAO.Get(ctx, tx, page, num, positiveOrder)
}

func (e *EventServiceImpl) GetByType(ctx context.Context, tx *gorm.DB, eventType string, page int, num int, positiveOrder bool) ([]*do.EventInfo, error) {
	return e.eventInfoDAO.GetByType(ctx, tx, eventType, page, num, positiveOrder)
}

func (e *EventServiceImpl) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	return e.eventInfoDAO.GetNum(ctx, tx)
}
