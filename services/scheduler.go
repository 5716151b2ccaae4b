package services

import (
	"time"

	"badge-award-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartReservedCodeSweep removes reserved codes that were never claimed
// within ttl. Runs hourly; ttl <= 0 disables the sweep.
func (s *ClaimCodeService) StartReservedCodeSweep(ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-ttl)
			res := s.DB.
				Where("reserved_for <> '' AND claimed_by = '' AND created_at < ?", cutoff).
				Delete(&models.ClaimCode{})
			if res.Error != nil {
				s.Log.Warnw("reserved code sweep failed", "err", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				s.Log.Infow("swept stale reserved codes", "count", res.RowsAffected, "older_than", ttl)
			}
		}),
	)
}
