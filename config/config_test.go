package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, "purgo-skfinal", cfg.Moderation.Issuer)
	assert.Equal(t, 5*time.Second, cfg.Moderation.Timeout)
	assert.Equal(t, "rabbitmq", cfg.MQ.Backend)
	assert.True(t, cfg.MQ.RabbitMQ.QueueDurable)
	assert.Nil(t, cfg.CORSOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "  s3cret  ")
	t.Setenv("JWT_REFRESH_TTL", "48h")
	t.Setenv("MODERATION_TIMEOUT", "not-a-duration")
	t.Setenv("DB_USE_SSL", "yes")
	t.Setenv("RABBITMQ_QUEUE_DURABLE", "off")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://board.example.com")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 48*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5*time.Second, cfg.Moderation.Timeout)
	assert.True(t, cfg.Database.UseSSL)
	assert.False(t, cfg.MQ.RabbitMQ.QueueDurable)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.MQ.Kafka.Brokers)
	assert.Equal(t, []string{"https://board.example.com"}, cfg.CORSOrigins)
}

func TestGetEnvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FLAG", "maybe")
	assert.True(t, getEnvBool("FLAG", true))
	assert.False(t, getEnvBool("MISSING_FLAG", false))
}
