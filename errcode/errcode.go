package errcode

import "errors"

// Internal data-layer contract errors. These indicate programming mistakes
// (a nil transaction handle, a nil data object) rather than conditions a
// caller is expected to handle.
var (
	ErrNilGormDB    = errors.New("nil gorm db handle")
	ErrNilInfo      = errors.New("nil data object")
	ErrMetaNotFound = errors.New("meta info record not found")
	ErrPoolNotFound = errors.New("pool record not found")
)
