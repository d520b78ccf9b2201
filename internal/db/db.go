package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"essay-tutor-backend/internal/config"
	"essay-tutor-backend/internal/model"
)

var database *gorm.DB

// InitDBFromConfig opens the configured database, applies pool settings and,
// when DB/INITIALIZE is set, migrates the schema.
func InitDBFromConfig(cfg *config.APIConfig) error {
	conn, err := Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if cfg.DB.Initialize {
		if err := Migrate(conn); err != nil {
			_ = Close(conn)
			return fmt.Errorf("migrate database: %w", err)
		}
	}
	database = conn
	return nil
}

// GetDB returns the connection opened by InitDBFromConfig.
func GetDB() *gorm.DB {
	return database
}

// Open connects to postgres or sqlite according to the DB section.
func Open(c config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Driver {
	case "postgres":
		dialector = postgres.Open(PostgresDSN(c))
	case "sqlite":
		dsn := c.DSN
		if dsn == "" {
			dsn = c.Names.Essays + ".db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", c.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if c.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.Pool.MaxOpenConns)
	}
	if c.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.Pool.MaxIdleConns)
	}
	if c.Pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(c.Pool.ConnMaxLifetime) * time.Second)
	}
	return conn, nil
}

// PostgresDSN prefers an explicit DSN and otherwise assembles one from the parts.
func PostgresDSN(c config.DBConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password.Value, c.Names.Essays, c.SSLMode)
}

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(model.Models()...)
}

// Close releases the underlying pool.
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
