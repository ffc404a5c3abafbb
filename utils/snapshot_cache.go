package utils

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/novanet-dev/nova-incentive-server/model"
)

// EligibilityCache keeps recently computed eligibility snapshots so repeated
// read queries for hot addresses skip the database. Any write touching an
// address must invalidate its entry.
type EligibilityCache struct {
	cache *lru.Cache
}

func NewEligibilityCache(size int) (*EligibilityCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &EligibilityCache{cache: cache}, nil
}

func (e *EligibilityCache) Get(address string) (*model.EligibilitySnapshot, bool) {
	v, ok := e.cache.Get(NormalizeAddress(address))
	if !ok {
		return nil, false
	}
	snapshot, ok := v.(*model.EligibilitySnapshot)
	return snapshot, ok
}

func (e *EligibilityCache) Set(snapshot *model.EligibilitySnapshot) {
	e.cache.Add(NormalizeAddress(snapshot.Address), snapshot)
}

func (e *EligibilityCache) Invalidate(address string) {
	e.cache.Remove(NormalizeAddress(address))
}

// Purge drops every entry, used after bulk writes that touch many addresses.
func (e *EligibilityCache) Purge() {
	e.cache.Purge()
}
