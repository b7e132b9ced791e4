package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"anime-api/internal/model"
)

const (
	usersFileName = "users.json"
	postsFileName = "posts.json"
)

type userRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type postRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	EmbedURL    string    `json:"embed_url"`
	Description *string   `json:"description"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// JSONStore keeps users and posts as JSON arrays in two files under dir.
// Every write rewrites the whole file through a temp file and rename. Posts
// are listed in insertion order.
type JSONStore struct {
	mu        sync.RWMutex
	usersPath string
	postsPath string
	closed    bool
}

func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		return nil, errors.New("json store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir failed: %w", err)
	}

	s := &JSONStore{
		usersPath: filepath.Join(dir, usersFileName),
		postsPath: filepath.Join(dir, postsFileName),
	}
	for _, path := range []string{s.usersPath, s.postsPath} {
		if err := initJSONFile(path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func initJSONFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s failed: %w", path, err)
	}
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("init %s failed: %w", path, err)
	}
	return nil
}

func (s *JSONStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, func(r userRecord) bool { return r.Username == username })
}

func (s *JSONStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, func(r userRecord) bool { return r.ID == id })
}

func (s *JSONStore) findUser(ctx context.Context, match func(userRecord) bool) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var users []userRecord
	if err := readJSON(s.usersPath, &users); err != nil {
		return nil, err
	}
	for _, r := range users {
		if match(r) {
			return r.toModel(), nil
		}
	}
	return nil, nil
}

func (s *JSONStore) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrStoreClosed
	}

	var users []userRecord
	if err := readJSON(s.usersPath, &users); err != nil {
		return false, err
	}
	return containsIdentity(users, username, email), nil
}

// InsertUser re-checks uniqueness under the write lock, so two concurrent
// registrations for the same name cannot both succeed.
func (s *JSONStore) InsertUser(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	var users []userRecord
	if err := readJSON(s.usersPath, &users); err != nil {
		return err
	}
	if containsIdentity(users, user.Username, user.Email) {
		return ErrDuplicate
	}
	users = append(users, userRecord{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Password: user.PasswordHash,
	})
	return writeJSON(s.usersPath, users)
}

func (s *JSONStore) InsertPost(ctx context.Context, post *model.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	var posts []postRecord
	if err := readJSON(s.postsPath, &posts); err != nil {
		return err
	}
	posts = append(posts, postRecord{
		ID:          post.ID,
		Title:       post.Title,
		EmbedURL:    post.EmbedURL,
		Description: post.Description,
		UserID:      post.OwnerID,
		CreatedAt:   post.CreatedAt.UTC(),
	})
	return writeJSON(s.postsPath, posts)
}

func (s *JSONStore) ListPosts(ctx context.Context, offset, limit int) ([]model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var records []postRecord
	if err := readJSON(s.postsPath, &records); err != nil {
		return nil, err
	}

	start, end := pageBounds(len(records), offset, limit)
	posts := make([]model.Post, 0, end-start)
	for _, r := range records[start:end] {
		posts = append(posts, r.toModel())
	}
	return posts, nil
}

func (s *JSONStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	for _, path := range []string{s.usersPath, s.postsPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("stat %s failed: %w", path, err)
		}
	}
	return nil
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func containsIdentity(users []userRecord, username, email string) bool {
	for _, u := range users {
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}

func pageBounds(total, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total || end < offset {
		end = total
	}
	return offset, end
}

func readJSON(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s failed: %w", filepath.Base(path), err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s failed: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, data interface{}) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s failed: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s failed: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file failed: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s failed: %w", filepath.Base(path), err)
	}
	return nil
}

func (r userRecord) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.Password,
	}
}

func (r postRecord) toModel() model.Post {
	return model.Post{
		ID:          r.ID,
		Title:       r.Title,
		EmbedURL:    r.EmbedURL,
		Description: r.Description,
		OwnerID:     r.UserID,
		CreatedAt:   r.CreatedAt,
	}
}
