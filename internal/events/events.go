// Package events publishes task status changes to downstream consumers.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/field-service-api/internal/config"
	"github.com/yukikurage/field-service-api/internal/models"
)

// StatusChanged is emitted after a lifecycle transition commits.
type StatusChanged struct {
	EventID        string            `json:"event_id"`
	TaskID         uint64            `json:"task_id"`
	OrderNumber    int64             `json:"order_number"`
	OrganizationID uint64            `json:"organization_id"`
	EmployeeID     *uint64           `json:"employee_id,omitempty"`
	From           models.TaskStatus `json:"from"`
	To             models.TaskStatus `json:"to"`
	Channel        string            `json:"channel"`
	Location       *models.Point     `json:"location,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// NewStatusChanged fills the event id.
func NewStatusChanged(task *models.Task, from models.TaskStatus, channel string, loc *models.Point, at time.Time) StatusChanged {
	return StatusChanged{
		EventID:        uuid.NewString(),
		TaskID:         task.ID,
		OrderNumber:    task.OrderNumber,
		OrganizationID: task.OrganizationID,
		EmployeeID:     task.EmployeeID,
		From:           from,
		To:             task.Status,
		Channel:        channel,
		Location:       loc,
		OccurredAt:     at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event StatusChanged) error
	Close() error
}

// New builds the publisher selected by EVENT_BROKER.
func New(cfg *config.Config, log *logrus.Logger) (Publisher, error) {
	switch cfg.EventBroker {
	case "", "log":
		return NewLogPublisher(log), nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required for the kafka event broker")
		}
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	default:
		return nil, fmt.Errorf("unknown EVENT_BROKER %q", cfg.EventBroker)
	}
}
