// Package reports derives travel and work time from task timestamps and
// rolls completed tasks up into per-day summaries.
package reports

import (
	"errors"
	"math"
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
)

// TravelShare is the fraction of the elapsed time attributed to travel when
// the task lacks granular timestamps.
const TravelShare = 0.3

var ErrTaskNotCompleted = errors.New("task is not completed")

// Breakdown is the time accounting of one completed task, in whole minutes.
type Breakdown struct {
	TravelMinutes  int  `json:"travel_minutes"`
	WorkMinutes    int  `json:"work_minutes"`
	TotalMinutes   int  `json:"total_minutes"`
	PausedMinutes  int  `json:"paused_minutes"`
	NetWorkMinutes int  `json:"net_work_minutes"`
	HasRealData    bool `json:"has_real_data"`
}

// Compute derives the breakdown of a completed task. pausedMinutes is the
// ledger total and is reported alongside, never subtracted from WorkMinutes.
func Compute(task *models.Task, pausedMinutes int) (Breakdown, error) {
	if task.CompletedAt == nil {
		return Breakdown{}, ErrTaskNotCompleted
	}

	var b Breakdown
	if task.EnRouteAt != nil && task.StartedAt != nil {
		b.TravelMinutes = minutes(task.StartedAt.Sub(*task.EnRouteAt))
		b.WorkMinutes = minutes(task.CompletedAt.Sub(*task.StartedAt))
		b.TotalMinutes = b.TravelMinutes + b.WorkMinutes
		b.HasRealData = true
	} else {
		ref := task.CreatedAt
		if task.ScheduledTime != nil {
			ref = *task.ScheduledTime
		}
		b.TotalMinutes = minutes(task.CompletedAt.Sub(ref))
		b.TravelMinutes = int(math.Round(TravelShare * float64(b.TotalMinutes)))
		b.WorkMinutes = b.TotalMinutes - b.TravelMinutes
	}

	b.PausedMinutes = pausedMinutes
	b.NetWorkMinutes = b.WorkMinutes - pausedMinutes
	if b.NetWorkMinutes < 0 {
		b.NetWorkMinutes = 0
	}
	return b, nil
}

// minutes rounds d to whole minutes, clamping negatives to zero.
func minutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}
