package mysql

import (
	"context"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"anime-api/internal/platform/gormdb"
)

var pool = gormdb.PoolConfig{
	MaxIdleConns:    10,
	MaxOpenConns:    50,
	ConnMaxLifetime: 1 * time.Hour,
	ConnMaxIdleTime: 30 * time.Minute,
}

func New(ctx context.Context, dsn string) (*gorm.DB, error) {
	return gormdb.Open(ctx, "mysql", mysql.Open(dsn), pool)
}
