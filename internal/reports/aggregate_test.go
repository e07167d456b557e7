package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id uint64, employee uint64, completed string, travel, work, paused int, real bool) Row {
	e := employee
	return Row{
		TaskID:      id,
		EmployeeID:  &e,
		CompletedAt: *at(completed),
		Breakdown: Breakdown{
			TravelMinutes:  travel,
			WorkMinutes:    work,
			TotalMinutes:   travel + work,
			PausedMinutes:  paused,
			NetWorkMinutes: work - paused,
			HasRealData:    real,
		},
	}
}

func sampleRows() []Row {
	return []Row{
		row(1, 1, "2024-01-10T09:00:00Z", 10, 50, 0, true),
		row(2, 2, "2024-01-11T09:00:00Z", 20, 40, 10, true),
		row(3, 1, "2024-01-10T18:00:00Z", 27, 63, 0, false),
		row(4, 1, "2024-01-12T23:59:00Z", 5, 5, 0, true),
		row(5, 1, "2024-01-13T00:01:00Z", 5, 5, 0, true),
	}
}

func TestAggregate_GroupsByDate(t *testing.T) {
	days := Aggregate(sampleRows(), Filter{})
	require.Len(t, days, 4)

	first := days[0]
	assert.Equal(t, "2024-01-10", first.Date)
	assert.Equal(t, 2, first.TaskCount)
	assert.Equal(t, 37, first.TravelMinutes)
	assert.Equal(t, 113, first.WorkMinutes)
	assert.Equal(t, 150, first.TotalMinutes)
	assert.Equal(t, 75, first.AverageMinutes)
	assert.True(t, first.HasEstimates)
	assert.Len(t, first.Tasks, 2)

	assert.False(t, days[1].HasEstimates)
}

func TestAggregate_InclusiveDateRangeAndEmployee(t *testing.T) {
	employee := uint64(1)
	days := Aggregate(sampleRows(), Filter{
		EmployeeID: &employee,
		From:       *at("2024-01-10T12:00:00Z"),
		To:         *at("2024-01-12T00:00:00Z"),
	})

	require.Len(t, days, 2)
	assert.Equal(t, "2024-01-10", days[0].Date)
	assert.Equal(t, "2024-01-12", days[1].Date)
}

func TestAggregate_RespectsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	days := Aggregate(sampleRows(), Filter{Location: loc})

	var dates []string
	for _, d := range days {
		dates = append(dates, d.Date)
	}
	assert.Equal(t, []string{"2024-01-10", "2024-01-11", "2024-01-13"}, dates)
}

func TestAggregate_SortingAndStableTies(t *testing.T) {
	days := Aggregate(sampleRows(), Filter{SortBy: SortByCount, Order: Desc})
	require.Len(t, days, 4)
	assert.Equal(t, "2024-01-10", days[0].Date)
	// the three single-task days keep their input order
	assert.Equal(t, []string{"2024-01-11", "2024-01-12", "2024-01-13"},
		[]string{days[1].Date, days[2].Date, days[3].Date})

	days = Aggregate(sampleRows(), Filter{SortBy: SortByTravel, Order: Asc})
	assert.Equal(t, "2024-01-12", days[0].Date)
	assert.Equal(t, "2024-01-13", days[1].Date)

	days = Aggregate(sampleRows(), Filter{SortBy: SortByDate, Order: Desc})
	assert.Equal(t, "2024-01-13", days[0].Date)
}

func TestAggregate_NetOfPause(t *testing.T) {
	days := Aggregate(sampleRows(), Filter{NetOfPause: true, SortBy: SortByDate})
	require.Len(t, days, 4)
	assert.Equal(t, "2024-01-11", days[1].Date)
	assert.Equal(t, 50, days[1].TotalMinutes)
	assert.Equal(t, 30, days[1].NetWorkMinutes)
}

func TestParseSortKeyAndOrder(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortByDate, k)

	_, err = ParseSortKey("priority")
	assert.Error(t, err)

	o, err := ParseOrder("desc")
	require.NoError(t, err)
	assert.Equal(t, Desc, o)

	_, err = ParseOrder("sideways")
	assert.Error(t, err)
}
