package postgres

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"anime-api/internal/platform/gormdb"
)

var pool = gormdb.PoolConfig{
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	ConnMaxLifetime: 30 * time.Minute,
	ConnMaxIdleTime: 10 * time.Minute,
}

// New opens PostgreSQL through the gorm driver (pgx underneath).
func New(ctx context.Context, dsn string) (*gorm.DB, error) {
	return gormdb.Open(ctx, "postgres", postgres.Open(dsn), pool)
}
