package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goldline/backend/internal/config"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LedgerDBConfig describes the Postgres pool behind the payment ledger. Every
// settlement holds one connection for its whole unit of work, so the pool
// bounds how many payments can commit at once and StatementTimeout bounds how
// long one of them may hold its row locks.
type LedgerDBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	ApplicationName string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	// StatementTimeout is sent as a session parameter; zero leaves the server default.
	StatementTimeout time.Duration
}

// LoadLedgerDBConfig reads the database.* keys with defaults.
func LoadLedgerDBConfig() *LedgerDBConfig {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "goldline_loans")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.application_name", "goldline-ledger")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	viper.SetDefault("database.connect_timeout", 5*time.Second)
	viper.SetDefault("database.statement_timeout", 10*time.Second)

	cfg := &LedgerDBConfig{
		Host:             viper.GetString("database.host"),
		Port:             viper.GetString("database.port"),
		User:             viper.GetString("database.user"),
		Password:         viper.GetString("database.password"),
		Name:             viper.GetString("database.name"),
		SSLMode:          viper.GetString("database.ssl_mode"),
		ApplicationName:  viper.GetString("database.application_name"),
		MaxOpenConns:     viper.GetInt("database.max_open_conns"),
		MaxIdleConns:     viper.GetInt("database.max_idle_conns"),
		ConnMaxLifetime:  viper.GetDuration("database.conn_max_lifetime"),
		ConnMaxIdleTime:  viper.GetDuration("database.conn_max_idle_time"),
		ConnectTimeout:   viper.GetDuration("database.connect_timeout"),
		StatementTimeout: viper.GetDuration("database.statement_timeout"),
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns && cfg.MaxOpenConns > 0 {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	return cfg
}

// DSN renders the lib/pq key=value connection string. Keys lib/pq does not
// know itself, such as statement_timeout, reach the server as session
// parameters.
func (c *LedgerDBConfig) DSN() string {
	params := [][2]string{
		{"host", c.Host},
		{"port", c.Port},
		{"user", c.User},
		{"password", c.Password},
		{"dbname", c.Name},
		{"sslmode", c.SSLMode},
		{"application_name", c.ApplicationName},
	}
	if secs := int(c.ConnectTimeout / time.Second); secs > 0 {
		params = append(params, [2]string{"connect_timeout", strconv.Itoa(secs)})
	}
	if ms := c.StatementTimeout.Milliseconds(); ms > 0 {
		params = append(params, [2]string{"statement_timeout", strconv.FormatInt(ms, 10)})
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p[1] == "" {
			continue
		}
		parts = append(parts, p[0]+"="+quoteDSNValue(p[1]))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// OpenLedgerDB opens the pool, applies the limits and checks the server is
// reachable within the connect timeout.
func OpenLedgerDB(ctx context.Context, cfg *LedgerDBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database %s@%s:%s: %w", cfg.Name, cfg.Host, cfg.Port, err)
	}

	config.GetLogger().WithFields(logrus.Fields{
		"host":              cfg.Host,
		"database":          cfg.Name,
		"max_open_conns":    cfg.MaxOpenConns,
		"statement_timeout": cfg.StatementTimeout.String(),
	}).Info("Database connection established")
	return db, nil
}

// InitDB opens the ledger pool from the configured keys.
func InitDB() (*sql.DB, error) {
	return OpenLedgerDB(context.Background(), LoadLedgerDBConfig())
}

// InitDatabase initializes the ledger pool and exits when it is unreachable.
func InitDatabase() *sql.DB {
	db, err := InitDB()
	if err != nil {
		config.GetLogger().WithError(err).Fatal("Failed to initialize database")
	}
	return db
}
