package lifecycle

import (
	"errors"
	"sort"
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
)

var ErrOverlappingPauses = errors.New("pause intervals overlap")

// ActivePause returns the open record among records, or nil.
func ActivePause(records []models.PauseRecord) *models.PauseRecord {
	for i := range records {
		if records[i].IsOpen() {
			return &records[i]
		}
	}
	return nil
}

// TotalPaused sums the closed intervals. Open pauses count as zero until they
// are resumed.
func TotalPaused(records []models.PauseRecord) time.Duration {
	var total time.Duration
	for _, r := range records {
		if r.ResumedAt == nil {
			continue
		}
		if d := r.ResumedAt.Sub(r.PausedAt); d > 0 {
			total += d
		}
	}
	return total
}

// TotalPausedMinutes is TotalPaused truncated to whole minutes.
func TotalPausedMinutes(records []models.PauseRecord) int {
	return int(TotalPaused(records) / time.Minute)
}

// ValidateLedger checks that at most one record is open and that no two
// intervals overlap.
func ValidateLedger(records []models.PauseRecord) error {
	sorted := make([]models.PauseRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PausedAt.Before(sorted[j].PausedAt)
	})

	open := 0
	for _, r := range sorted {
		if r.IsOpen() {
			open++
		}
	}
	if open > 1 {
		return ErrAlreadyPaused
	}

	for i, r := range sorted {
		if r.IsOpen() {
			if i != len(sorted)-1 {
				return ErrOverlappingPauses
			}
			continue
		}
		if i+1 < len(sorted) && sorted[i+1].PausedAt.Before(*r.ResumedAt) {
			return ErrOverlappingPauses
		}
	}
	return nil
}
