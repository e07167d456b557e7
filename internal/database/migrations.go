package database

import (
	"fmt"

	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/models"
	"gorm.io/gorm"
)

// compositeIndex is an index gorm tags cannot express on their own.
type compositeIndex struct {
	model   interface{}
	table   string
	name    string
	columns string
}

var compositeIndexes = []compositeIndex{
	// dispatcher board and per-employee task lists
	{&models.Task{}, "tasks", "idx_tasks_org_status", "organization_id, status"},
	{&models.Task{}, "tasks", "idx_tasks_employee_status", "employee_id, status"},
	// daily reports
	{&models.Task{}, "tasks", "idx_tasks_org_completed_at", "organization_id, completed_at"},
	// active pause lookup
	{&models.PauseRecord{}, "pause_records", "idx_pause_records_task_open", "task_id, resumed_at"},
	{&models.Employee{}, "employees", "idx_employees_org_status", "organization_id, status"},
}

// AddIndexes adds the composite indexes used by the hot queries
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		logger.Logger.WithField("index", idx.name).Info("Created index")
	}

	return nil
}

// MigrateDatabase runs the schema migration and then adds the composite indexes
func MigrateDatabase(db *gorm.DB) error {
	logger.Logger.Info("Running database migrations...")

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	logger.Logger.Info("Database migrations completed")
	return nil
}
