package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Kafka  KafkaConfig
	JWT    JWTConfig
	Ledger LedgerConfig
	Hold   HoldConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type JWTConfig struct {
	Secret string
}

// LedgerConfig tunes the transaction engine
type LedgerConfig struct {
	MaxRetries     int
	DepositHoldTTL time.Duration
	NetworkHoldTTL time.Duration
}

type HoldConfig struct {
	SweepInterval  time.Duration
	SweepBatchSize int
	LeaseTTL       time.Duration
}

// DefaultLedgerConfig matches the values Load falls back to
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaxRetries:     5,
		DepositHoldTTL: 48 * time.Hour,
		NetworkHoldTTL: 48 * time.Hour,
	}
}

// Load reads .env (if present) and the environment into a Config.
// Database and Redis settings are read by the database package under the same viper instance.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[CONFIG] No .env file loaded: %v", err)
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.allowed_origins", "*")
	viper.SetDefault("kafka.brokers", "")
	viper.SetDefault("kafka.topic", "ledger.events")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("ledger.max_retries", 5)
	viper.SetDefault("hold.deposit_ttl", 48*time.Hour)
	viper.SetDefault("hold.network_ttl", 48*time.Hour)
	viper.SetDefault("hold.sweep_interval", time.Minute)
	viper.SetDefault("hold.sweep_batch_size", 500)
	viper.SetDefault("hold.lease_ttl", 30*time.Second)

	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("server.port"),
			AllowedOrigins: splitList(viper.GetString("server.allowed_origins")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("kafka.brokers")),
			Topic:   viper.GetString("kafka.topic"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		Ledger: LedgerConfig{
			MaxRetries:     viper.GetInt("ledger.max_retries"),
			DepositHoldTTL: viper.GetDuration("hold.deposit_ttl"),
			NetworkHoldTTL: viper.GetDuration("hold.network_ttl"),
		},
		Hold: HoldConfig{
			SweepInterval:  viper.GetDuration("hold.sweep_interval"),
			SweepBatchSize: viper.GetInt("hold.sweep_batch_size"),
			LeaseTTL:       viper.GetDuration("hold.lease_ttl"),
		},
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
