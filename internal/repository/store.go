package repository

import (
	"context"
	"errors"

	"anime-api/internal/model"
)

var (
	// ErrDuplicate is returned by InsertUser when the username or email is
	// already taken. Every store enforces it at write time.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// Store persists users and posts. Lookups return (nil, nil) when the record
// does not exist.
type Store interface {
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error)
	InsertUser(ctx context.Context, user *model.User) error
	InsertPost(ctx context.Context, post *model.Post) error
	// ListPosts returns posts [offset, offset+limit) in the store's order.
	ListPosts(ctx context.Context, offset, limit int) ([]model.Post, error)
	Ping(ctx context.Context) error
	Close() error
}
