package rewardmgr

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about reward program events.
type NotificationCallback func(*Notification)

const (
	// NTClaimed is sent after a successful claim payout. Data is
	// *model.ClaimOutcome.
	NTClaimed NotificationType = iota

	// NTWhitelistUpdated is sent after a registration batch is accepted.
	// Data is *WhitelistUpdate.
	NTWhitelistUpdated

	// NTModeChanged is sent when the program mode or pause state changes.
	// Data is *modectrl.Status.
	NTModeChanged

	// NTClaimAmountUpdated is sent when an operator changes a reward
	// parameter. Data is *ParamUpdate.
	NTClaimAmountUpdated
)

// WhitelistUpdate describes an accepted registration batch.
type WhitelistUpdate struct {
	Category   string
	Registered int
}

// ParamUpdate describes one reward parameter change.
type ParamUpdate struct {
	Name   string
	Amount int64
}

// Notification defines notification that is sent to the caller via the
// callback function provided during the call to Subscribe and consists of a
// notification type as well as associated data.
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Subscribe registers a callback to be executed when reward program events
// take place.
func (r *RewardManager) Subscribe(callback NotificationCallback) {
	r.notificationsLock.Lock()
	r.notifications = append(r.notifications, callback)
	r.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data to
// every subscribed callback.
func (r *RewardManager) sendNotification(typ NotificationType, data interface{}) {
	n := Notification{Type: typ, Data: data}
	r.notificationsLock.RLock()
	for _, callback := range r.notifications {
		callback(&n)
	}
	r.notificationsLock.RUnlock()
}
