package config

import (
	"time"

	"github.com/spf13/viper"
)

// InitViper binds the environment and .env keys both entrypoints read.
func InitViper() {
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("database.application_name", "DATABASE_APPLICATION_NAME")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.conn_max_lifetime", "DATABASE_CONN_MAX_LIFETIME")
	viper.BindEnv("database.conn_max_idle_time", "DATABASE_CONN_MAX_IDLE_TIME")
	viper.BindEnv("database.connect_timeout", "DATABASE_CONNECT_TIMEOUT")
	viper.BindEnv("database.statement_timeout", "DATABASE_STATEMENT_TIMEOUT")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("redis.pool_size", "REDIS_POOL_SIZE")
	viper.BindEnv("redis.dial_timeout", "REDIS_DIAL_TIMEOUT")
	viper.BindEnv("redis.read_timeout", "REDIS_READ_TIMEOUT")
	viper.BindEnv("redis.write_timeout", "REDIS_WRITE_TIMEOUT")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	viper.BindEnv("gateway.base_url", "GATEWAY_BASE_URL")
	viper.BindEnv("gateway.key_id", "GATEWAY_KEY_ID")
	viper.BindEnv("gateway.key_secret", "GATEWAY_KEY_SECRET")
	viper.BindEnv("gateway.webhook_secret", "GATEWAY_WEBHOOK_SECRET")
	viper.BindEnv("gateway.timeout", "GATEWAY_TIMEOUT")
	viper.BindEnv("gateway.currency", "GATEWAY_CURRENCY")

	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.public_host", "PUBLIC_HOST")
	viper.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	viper.BindEnv("ledger.sweep_interval", "LEDGER_SWEEP_INTERVAL")
	viper.BindEnv("log.level", "LOG_LEVEL")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.public_host", "localhost:8080")
	viper.SetDefault("server.allowed_origins", []string{"https://*", "http://*"})
	viper.SetDefault("ledger.sweep_interval", 5*time.Minute)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("gateway.currency", DefaultCurrency)

	if err := viper.ReadInConfig(); err != nil {
		GetLogger().WithError(err).Info("Config file not found, using environment and defaults")
	}
}
