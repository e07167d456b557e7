package models

import "time"

// BotSession is the single pending-input slot of a chat actor.
type BotSession struct {
	ActorID    int64     `gorm:"primaryKey;autoIncrement:false"`
	ChatID     int64     `gorm:"not null"`
	WaitingFor string    `gorm:"type:varchar(32);not null"`
	TaskID     uint64    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}
