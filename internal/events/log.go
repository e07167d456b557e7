package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes events to the application log.
type LogPublisher struct {
	log *logrus.Logger
}

func NewLogPublisher(log *logrus.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event StatusChanged) error {
	p.log.WithFields(logrus.Fields{
		"event_id":        event.EventID,
		"task_id":         event.TaskID,
		"order_number":    event.OrderNumber,
		"organization_id": event.OrganizationID,
		"from":            event.From,
		"to":              event.To,
		"channel":         event.Channel,
	}).Info("task status changed")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
