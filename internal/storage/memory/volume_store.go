package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// VolumeStore is an in-memory implementation of storage.VolumeStore.
type VolumeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Activity // keyed by vault|id
}

// NewVolumeStore creates a new in-memory volume store.
func NewVolumeStore() *VolumeStore {
	return &VolumeStore{data: make(map[string]*domain.Activity)}
}

// Insert adds activities; redelivered ones replace the stored copy.
func (s *VolumeStore) Insert(_ context.Context, activities []*domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range activities {
		if a == nil || a.VaultAddress == "" || a.ID == "" {
			return storage.ErrInvalidInput
		}
		s.data[key(a.VaultAddress, a.ID)] = a.Clone()
	}
	return nil
}

// Daily returns per-day totals for [from, to), oldest first.
func (s *VolumeStore) Daily(_ context.Context, vault string, from, to time.Time) ([]*domain.DailyVolume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make(map[int64]*domain.DailyVolume)
	users := make(map[int64]map[string]struct{})
	for _, a := range s.data {
		if a.VaultAddress != vault {
			continue
		}
		ts := time.Unix(a.Timestamp, 0).UTC()
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		day := ts.Truncate(24 * time.Hour)
		d, ok := days[day.Unix()]
		if !ok {
			d = &domain.DailyVolume{Day: day}
			days[day.Unix()] = d
			users[day.Unix()] = make(map[string]struct{})
		}
		addVolume(d, a)
		if a.UserAddress != "" {
			users[day.Unix()][a.UserAddress] = struct{}{}
		}
	}

	result := make([]*domain.DailyVolume, 0, len(days))
	for k, d := range days {
		d.UniqueUsers = uint64(len(users[k]))
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.Before(result[j].Day) })
	return result, nil
}

func addVolume(d *domain.DailyVolume, a *domain.Activity) {
	d.Activities++
	switch {
	case a.Type.IsDeposit():
		d.DepositYes.Add(&d.DepositYes, &a.YesAmount)
		d.DepositNo.Add(&d.DepositNo, &a.NoAmount)
	case a.Type.IsWithdraw():
		d.WithdrawYes.Add(&d.WithdrawYes, &a.YesAmount)
		d.WithdrawNo.Add(&d.WithdrawNo, &a.NoAmount)
	case a.Type == domain.ActivityClaim:
		d.ClaimedUsd.Add(&d.ClaimedUsd, &a.UsdAmount)
	}
}

var _ storage.VolumeStore = (*VolumeStore)(nil)
