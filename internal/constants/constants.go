package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID  = "user_id"
	SessionCookieName = "fieldops_session"
)

// Authentication
const (
	MinPasswordLength = 8
	DefaultTokenTTL   = 24 * time.Hour
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI drafting
const (
	MaxAIGeneratedTasks = 10
)

// Photo uploads
const (
	MaxPhotoSize       = 10 << 20
	MaxPhotosPerUpload = 20
)

// Bot conversational sessions
const (
	DefaultBotSessionTTL = 30 * time.Minute
)
