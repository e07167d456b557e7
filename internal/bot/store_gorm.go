package bot

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/field-service-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps sessions in the bot_sessions table. Expiry is enforced by
// Sessions on read.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, actorID int64) (*Wait, error) {
	var row models.BotSession
	err := s.db.WithContext(ctx).First(&row, "actor_id = ?", actorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Wait{
		ActorID:   row.ActorID,
		ChatID:    row.ChatID,
		Kind:      WaitKind(row.WaitingFor),
		TaskID:    row.TaskID,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *GormStore) Put(ctx context.Context, wait Wait, _ time.Duration) error {
	row := models.BotSession{
		ActorID:    wait.ActorID,
		ChatID:     wait.ChatID,
		WaitingFor: string(wait.Kind),
		TaskID:     wait.TaskID,
		CreatedAt:  wait.CreatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, actorID int64) error {
	return s.db.WithContext(ctx).Delete(&models.BotSession{}, "actor_id = ?", actorID).Error
}
