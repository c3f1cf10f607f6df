package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goldline/backend/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// RedisConfig covers the optional Redis used for webhook dedupe, settlement
// notifications and the receipt cache. Commands sit on the webhook path, so
// the timeouts stay short: a slow Redis must degrade to "no dedupe", not
// stall the acknowledgement.
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoadRedisConfig reads the redis.* keys with defaults.
func LoadRedisConfig() *RedisConfig {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.dial_timeout", 2*time.Second)
	viper.SetDefault("redis.read_timeout", 500*time.Millisecond)
	viper.SetDefault("redis.write_timeout", 500*time.Millisecond)

	return &RedisConfig{
		Host:         viper.GetString("redis.host"),
		Port:         viper.GetString("redis.port"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		PoolSize:     viper.GetInt("redis.pool_size"),
		DialTimeout:  viper.GetDuration("redis.dial_timeout"),
		ReadTimeout:  viper.GetDuration("redis.read_timeout"),
		WriteTimeout: viper.GetDuration("redis.write_timeout"),
	}
}

func (c *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(c.Host, c.Port),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// ConnectRedis dials and pings. The client is closed again on failure.
func ConnectRedis(ctx context.Context, cfg *RedisConfig) (*redis.Client, error) {
	opts := cfg.Options()
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// InitRedis returns nil when Redis is unreachable; every Redis consumer in
// the ledger treats a nil client as "feature off".
func InitRedis() *redis.Client {
	cfg := LoadRedisConfig()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout+cfg.ReadTimeout)
	defer cancel()

	rdb, err := ConnectRedis(ctx, cfg)
	if err != nil {
		config.GetLogger().WithError(err).Warn("Redis connection failed, continuing without Redis")
		return nil
	}

	config.GetLogger().WithFields(logrus.Fields{
		"addr":      rdb.Options().Addr,
		"pool_size": cfg.PoolSize,
	}).Info("Redis connection established")
	return rdb
}
