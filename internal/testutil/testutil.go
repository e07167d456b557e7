// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-service-api/internal/database"
	"github.com/yukikurage/field-service-api/internal/events"
	"github.com/yukikurage/field-service-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the full schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.MigrateDatabase(db))
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "hashedpassword"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateOrganization(t testing.TB, db *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, InviteCode: name + "-CODE"}
	require.NoError(t, db.Create(org).Error)
	return org
}

func AddMember(t testing.TB, db *gorm.DB, orgID, userID uint64, role models.OrganizationRole) *models.OrganizationMember {
	t.Helper()
	member := &models.OrganizationMember{OrganizationID: orgID, UserID: userID, Role: role, JoinedAt: time.Now().UTC()}
	require.NoError(t, db.Create(member).Error)
	return member
}

// CreateEmployee creates a user, their employee membership and the employee record.
func CreateEmployee(t testing.TB, db *gorm.DB, orgID uint64, username string, telegramUserID *int64) *models.Employee {
	t.Helper()
	user := CreateUser(t, db, username)
	AddMember(t, db, orgID, user.ID, models.RoleEmployee)

	employee := &models.Employee{
		OrganizationID: orgID,
		UserID:         user.ID,
		FullName:       username,
		Status:         models.EmployeeAvailable,
		TelegramUserID: telegramUserID,
	}
	require.NoError(t, db.Create(employee).Error)
	return employee
}

// CreateTask inserts task as given, numbering it after the organization's last task.
func CreateTask(t testing.TB, db *gorm.DB, task *models.Task) *models.Task {
	t.Helper()
	var last int64
	require.NoError(t, db.Model(&models.Task{}).
		Where("organization_id = ?", task.OrganizationID).
		Select("COALESCE(MAX(order_number), 0)").
		Scan(&last).Error)
	task.OrderNumber = last + 1
	if task.Address == "" {
		task.Address = "1 Test Street"
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []events.StatusChanged
	Err    error
}

func (p *Publisher) Publish(_ context.Context, e events.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *Publisher) Close() error { return nil }

func (p *Publisher) Events() []events.StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.StatusChanged, len(p.events))
	copy(out, p.events)
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
