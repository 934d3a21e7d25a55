package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		cfg := Load()

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, "ledger.events", cfg.Kafka.Topic)
		assert.Equal(t, DefaultLedgerConfig(), cfg.Ledger)
		assert.Equal(t, time.Minute, cfg.Hold.SweepInterval)
	})

	t.Run("environment overrides", func(t *testing.T) {
		viper.Reset()
		t.Setenv("PORT", "9090")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
		t.Setenv("LEDGER_MAX_RETRIES", "3")
		t.Setenv("HOLD_NETWORK_TTL", "72h")

		cfg := Load()

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 3, cfg.Ledger.MaxRetries)
		assert.Equal(t, 72*time.Hour, cfg.Ledger.NetworkHoldTTL)
		assert.Equal(t, 48*time.Hour, cfg.Ledger.DepositHoldTTL)
	})
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,,b "))
}
