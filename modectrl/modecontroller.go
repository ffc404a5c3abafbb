package modectrl

import (
	"context"
	"sync"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/service"

	"gorm.io/gorm"
)

// DistributeFunc runs the one-time launch distribution inside the same
// transaction that flips the program live. It must be idempotent-safe at the
// call site: the controller only ever invokes it once.
type DistributeFunc func(ctx context.Context, tx *gorm.DB) error

// Status is a snapshot of the program's operating mode.
type Status struct {
	Live        bool
	Distributed bool
	Paused      bool
}

// ModeController owns the PreLaunch/Live transition and the pause switch.
// Claims are rejected before launch and while paused; registrations only
// need the pause check.
type ModeController struct {
	mu sync.Mutex

	db              *gorm.DB
	metaInfoService service.MetaInfoService
	eventService    service.EventService
}

func NewModeController(db *gorm.DB) *ModeController {
	return &ModeController{
		db:              db,
		metaInfoService: service.GetMetaInfoService(),
		eventService:    service.GetEventService(),
	}
}

// Status reads the current mode flags.
func (m *ModeController) Status(ctx context.Context) (*Status, error) {
	meta, err := m.metaInfoService.Get(ctx, m.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &Status{
		Live:        meta.Launched,
		Distributed: meta.Distributed,
		Paused:      meta.Paused,
	}, nil
}

// RequireLive fails with ErrModeNotLive while the program is still in its
// pre-launch phase.
func (m *ModeController) RequireLive(ctx context.Context, tx *gorm.DB) error {
	meta, err := m.metaInfoService.Get(ctx, tx)
	if err != nil {
		return err
	}
	if !meta.Launched {
		return incentivejson.ErrModeNotLive
	}
	return nil
}

// RequirePayable fails when the program is not live or payouts are paused.
func (m *ModeController) RequirePayable(ctx context.Context, tx *gorm.DB) error {
	meta, err := m.metaInfoService.Get(ctx, tx)
	if err != nil {
		return err
	}
	if !meta.Launched {
		return incentivejson.ErrModeNotLive
	}
	if meta.Paused {
		return incentivejson.ErrPaused
	}
	return nil
}

// SetLive transitions the program to Live. The first successful call also
// runs the launch distribution; later calls are no-ops so a retried setlive
// can never push rewards twice. The distributed flag only flips after
// distribute returns cleanly, inside the same transaction.
func (m *ModeController) SetLive(ctx context.Context, distribute DistributeFunc) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var status *Status
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta, err := m.metaInfoService.Get(ctx, tx)
		if err != nil {
			return err
		}

		if !meta.Launched {
			if err := m.metaInfoService.SetLaunched(ctx, tx); err != nil {
				return err
			}
			err = m.eventService.Append(ctx, tx, &model.Event{
				Type:       model.EventModeChanged,
				Attributes: map[string]string{"live": "true"},
			})
			if err != nil {
				return err
			}
			log.Infof("Program is now live")
		}

		distributed := meta.Distributed
		if !distributed && distribute != nil {
			if err := distribute(ctx, tx); err != nil {
				return err
			}
			if err := m.metaInfoService.SetDistributed(ctx, tx); err != nil {
				return err
			}
			distributed = true
			log.Infof("Launch distribution completed")
		}

		status = &Status{Live: true, Distributed: distributed, Paused: meta.Paused}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Pause stops payouts. Read methods and registrations keep working.
func (m *ModeController) Pause(ctx context.Context) (*Status, error) {
	return m.setPaused(ctx, true)
}

// Resume re-enables payouts.
func (m *ModeController) Resume(ctx context.Context) (*Status, error) {
	return m.setPaused(ctx, false)
}

func (m *ModeController) setPaused(ctx context.Context, paused bool) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var status *Status
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta, err := m.metaInfoService.Get(ctx, tx)
		if err != nil {
			return err
		}

		if meta.Paused != paused {
			if err := m.metaInfoService.SetPaused(ctx, tx, paused); err != nil {
				return err
			}
			attrs := map[string]string{"paused": "false"}
			if paused {
				attrs["paused"] = "true"
			}
			err = m.eventService.Append(ctx, tx, &model.Event{
				Type:       model.EventModeChanged,
				Attributes: attrs,
			})
			if err != nil {
				return err
			}
			if paused {
				log.Infof("Payouts paused")
			} else {
				log.Infof("Payouts resumed")
			}
		}

		status = &Status{Live: meta.Launched, Distributed: meta.Distributed, Paused: paused}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}
