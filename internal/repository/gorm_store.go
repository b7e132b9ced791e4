package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"anime-api/internal/model"
)

// GormStore backs the store with a relational database. Username and email
// uniqueness come from the unique indexes declared on model.User; the DB
// must be opened with TranslateError so violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// binaryIdentityColumns makes username and email compare byte for byte on
// MySQL, whose default collation folds case and accents. The unique indexes
// are rebuilt with the new collation.
const binaryIdentityColumns = "ALTER TABLE `users` " +
	"MODIFY `username` varchar(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL, " +
	"MODIFY `email` varchar(128) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"

func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&model.User{}, &model.Post{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return s.enforceCaseSensitiveIdentity()
}

func (s *GormStore) enforceCaseSensitiveIdentity() error {
	if s.db.Dialector.Name() != "mysql" {
		return nil
	}
	if err := s.db.Exec(binaryIdentityColumns).Error; err != nil {
		return fmt.Errorf("set binary collation on users failed: %w", err)
	}
	return nil
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by username failed: %w", err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

func (s *GormStore) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users failed: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) InsertUser(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (s *GormStore) InsertPost(ctx context.Context, post *model.Post) error {
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("create post failed: %w", err)
	}
	return nil
}

func (s *GormStore) ListPosts(ctx context.Context, offset, limit int) ([]model.Post, error) {
	posts := []model.Post{}
	if limit <= 0 {
		return posts, nil
	}
	if offset < 0 {
		offset = 0
	}
	if err := s.db.WithContext(ctx).
		Order("created_at ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts failed: %w", err)
	}
	return posts, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}
	return sqlDB.Close()
}
