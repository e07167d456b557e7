package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/reports"
	"github.com/yukikurage/field-service-api/internal/repository"
)

var ErrInvalidReportQuery = errors.New("invalid report query")

const reportDateLayout = "2006-01-02"

// ReportService builds time reports over completed tasks.
type ReportService struct {
	taskRepo repository.TaskRepository
	location *time.Location
	log      *logrus.Logger
}

// DefaultLocation is the zone used for organizations without a timezone.
func (s *ReportService) DefaultLocation() *time.Location {
	return s.location
}

func NewReportService(taskRepo repository.TaskRepository, location *time.Location) *ReportService {
	if location == nil {
		location = time.UTC
	}
	return &ReportService{taskRepo: taskRepo, location: location, log: logger.Logger}
}

// DailyReportInput takes dates as YYYY-MM-DD in the report time zone. A
// non-nil Location overrides the service default.
type DailyReportInput struct {
	OrganizationID uint64
	Location       *time.Location
	From           string
	To             string
	EmployeeID     *uint64
	SortBy         string
	Order          string
	NetOfPause     bool
}

func (s *ReportService) Daily(ctx context.Context, input DailyReportInput) ([]reports.DaySummary, error) {
	loc := s.location
	if input.Location != nil {
		loc = input.Location
	}

	from, err := parseReportDate(input.From, loc)
	if err != nil {
		return nil, err
	}
	to, err := parseReportDate(input.To, loc)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidReportQuery)
	}

	sortBy, err := reports.ParseSortKey(input.SortBy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReportQuery, err)
	}
	order, err := reports.ParseOrder(input.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReportQuery, err)
	}

	query := repository.CompletedQuery{
		OrganizationID: input.OrganizationID,
		EmployeeID:     input.EmployeeID,
	}
	if !from.IsZero() {
		query.CompletedFrom = &from
	}
	if !to.IsZero() {
		end := to.AddDate(0, 0, 1)
		query.CompletedTo = &end
	}

	tasks, err := s.taskRepo.ListCompleted(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed tasks: %w", err)
	}

	rows := make([]reports.Row, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if err := lifecycle.ValidateLedger(task.PauseRecords); err != nil {
			s.log.WithError(err).WithField("task_id", task.ID).Warn("skipping task with inconsistent pause ledger")
			continue
		}
		breakdown, err := reports.Compute(task, lifecycle.TotalPausedMinutes(task.PauseRecords))
		if err != nil {
			continue
		}

		row := reports.Row{
			TaskID:      task.ID,
			OrderNumber: task.OrderNumber,
			EmployeeID:  task.EmployeeID,
			Address:     task.Address,
			WorkType:    task.WorkType,
			CompletedAt: *task.CompletedAt,
			Breakdown:   breakdown,
		}
		if task.Employee != nil {
			row.EmployeeName = task.Employee.FullName
		}
		rows = append(rows, row)
	}

	return reports.Aggregate(rows, reports.Filter{
		EmployeeID: input.EmployeeID,
		From:       from,
		To:         to,
		Location:   loc,
		SortBy:     sortBy,
		Order:      order,
		NetOfPause: input.NetOfPause,
	}), nil
}

// parseReportDate returns midnight of value in loc, or zero for "".
func parseReportDate(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(reportDateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidReportQuery, value)
	}
	return t, nil
}
