package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("BOT_SESSION_TTL", "")

	cfg := Load()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.BotSessionTTL)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("BOT_SESSION_TTL", "5m")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("JWT_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.BotSessionTTL)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestReportLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{ReportTimezone: "Mars/Olympus_Mons"}
	assert.Equal(t, time.UTC, cfg.ReportLocation())
}
