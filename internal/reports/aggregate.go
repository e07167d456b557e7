package reports

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByTotal  SortKey = "total"
	SortByTravel SortKey = "travel"
	SortByWork   SortKey = "work"
	SortByCount  SortKey = "count"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseSortKey validates a sort key, defaulting to date.
func ParseSortKey(v string) (SortKey, error) {
	switch k := SortKey(v); k {
	case "":
		return SortByDate, nil
	case SortByDate, SortByTotal, SortByTravel, SortByWork, SortByCount:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", v)
	}
}

// ParseOrder validates a sort order, defaulting to ascending.
func ParseOrder(v string) (Order, error) {
	switch o := Order(v); o {
	case "":
		return Asc, nil
	case Asc, Desc:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", v)
	}
}

// Row is one completed task with its time breakdown.
type Row struct {
	TaskID       uint64    `json:"task_id"`
	OrderNumber  int64     `json:"order_number"`
	EmployeeID   *uint64   `json:"employee_id"`
	EmployeeName string    `json:"employee_name,omitempty"`
	Address      string    `json:"address"`
	WorkType     string    `json:"work_type"`
	CompletedAt  time.Time `json:"completed_at"`
	Breakdown
}

// Filter selects and orders rows. From and To are inclusive calendar dates
// in Location; a zero bound is open.
type Filter struct {
	EmployeeID *uint64
	From       time.Time
	To         time.Time
	Location   *time.Location
	SortBy     SortKey
	Order      Order
	// NetOfPause makes day totals use pause-adjusted work time.
	NetOfPause bool
}

// DaySummary aggregates the tasks completed on one date.
type DaySummary struct {
	Date           string `json:"date"`
	TaskCount      int    `json:"task_count"`
	TravelMinutes  int    `json:"travel_minutes"`
	WorkMinutes    int    `json:"work_minutes"`
	NetWorkMinutes int    `json:"net_work_minutes"`
	PausedMinutes  int    `json:"paused_minutes"`
	TotalMinutes   int    `json:"total_minutes"`
	AverageMinutes int    `json:"average_minutes"`
	HasEstimates   bool   `json:"has_estimates"`
	Tasks          []Row  `json:"tasks"`
}

// Aggregate groups rows by completion date. Days keep the order in which
// they first appear in rows unless sorting moves them; equal keys keep that
// order.
func Aggregate(rows []Row, f Filter) []DaySummary {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	from, to := dateOf(f.From, loc), dateOf(f.To, loc)

	index := make(map[string]int)
	days := make([]DaySummary, 0)
	for _, r := range rows {
		if f.EmployeeID != nil && (r.EmployeeID == nil || *r.EmployeeID != *f.EmployeeID) {
			continue
		}
		date := dateOf(r.CompletedAt, loc)
		if (!f.From.IsZero() && date < from) || (!f.To.IsZero() && date > to) {
			continue
		}

		i, ok := index[date]
		if !ok {
			i = len(days)
			index[date] = i
			days = append(days, DaySummary{Date: date})
		}
		d := &days[i]
		d.TaskCount++
		d.TravelMinutes += r.TravelMinutes
		d.WorkMinutes += r.WorkMinutes
		d.NetWorkMinutes += r.NetWorkMinutes
		d.PausedMinutes += r.PausedMinutes
		if !r.HasRealData {
			d.HasEstimates = true
		}
		d.Tasks = append(d.Tasks, r)
	}

	for i := range days {
		d := &days[i]
		work := d.WorkMinutes
		if f.NetOfPause {
			work = d.NetWorkMinutes
		}
		d.TotalMinutes = d.TravelMinutes + work
		d.AverageMinutes = int(math.Round(float64(d.TotalMinutes) / float64(d.TaskCount)))
	}

	sortDays(days, f)
	return days
}

func sortDays(days []DaySummary, f Filter) {
	key := f.SortBy
	if key == "" {
		key = SortByDate
	}

	less := func(a, b DaySummary) bool {
		switch key {
		case SortByTotal:
			return a.TotalMinutes < b.TotalMinutes
		case SortByTravel:
			return a.TravelMinutes < b.TravelMinutes
		case SortByWork:
			if f.NetOfPause {
				return a.NetWorkMinutes < b.NetWorkMinutes
			}
			return a.WorkMinutes < b.WorkMinutes
		case SortByCount:
			return a.TaskCount < b.TaskCount
		default:
			return a.Date < b.Date
		}
	}

	sort.SliceStable(days, func(i, j int) bool {
		if f.Order == Desc {
			return less(days[j], days[i])
		}
		return less(days[i], days[j])
	})
}

func dateOf(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(dateLayout)
}
