package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"anime-api/internal/logging"
	"anime-api/internal/model"
	"anime-api/internal/repository"
)

// PageCache caches listing pages under a generation that Invalidate bumps.
// Failures are logged and never fail a request.
type PageCache interface {
	Generation(ctx context.Context) (int64, error)
	GetPage(ctx context.Context, gen int64, skip, limit int) ([]model.Post, bool, error)
	SetPage(ctx context.Context, gen int64, skip, limit int, posts []model.Post) error
	Invalidate(ctx context.Context) error
}

type PostEventPublisher interface {
	PublishPostCreated(ctx context.Context, post model.Post) error
}

type PostService struct {
	store        repository.Store
	cache        PageCache
	publisher    PostEventPublisher
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

type CreatePostInput struct {
	Title       string
	EmbedURL    string
	Description *string
}

type ListPostsInput struct {
	Skip  int
	Limit *int
}

// NewPostService wires the post use cases. cache and publisher may be nil.
func NewPostService(store repository.Store, cache PageCache, publisher PostEventPublisher, defaultLimit, maxLimit int) *PostService {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if defaultLimit < 0 || defaultLimit > maxLimit {
		defaultLimit = 10
	}
	return &PostService{
		store:        store,
		cache:        cache,
		publisher:    publisher,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          time.Now,
	}
}

// Create stores a post owned by owner. The owner always comes from the
// authenticated caller, never from the request.
func (s *PostService) Create(ctx context.Context, owner *model.User, input CreatePostInput) (*model.Post, error) {
	if owner == nil || owner.ID == "" {
		return nil, ErrMissingCredential
	}
	title := strings.TrimSpace(input.Title)
	embedURL := strings.TrimSpace(input.EmbedURL)
	if title == "" || embedURL == "" {
		return nil, ErrInvalidInput
	}

	post := &model.Post{
		ID:          uuid.NewString(),
		Title:       title,
		EmbedURL:    embedURL,
		Description: input.Description,
		OwnerID:     owner.ID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn("invalidate post page cache failed", slog.Any("error", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishPostCreated(ctx, *post); err != nil {
			logger.Warn("publish post created event failed", slog.String("post_id", post.ID), slog.Any("error", err))
		}
	}
	return post, nil
}

// List returns posts [skip, skip+limit). A nil limit uses the default page
// size and limits above the configured maximum are clamped to it.
func (s *PostService) List(ctx context.Context, input ListPostsInput) ([]model.Post, error) {
	limit := s.defaultLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	if input.Skip < 0 || limit < 0 {
		return nil, ErrInvalidInput
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if limit == 0 {
		return []model.Post{}, nil
	}

	logger := logging.FromContext(ctx)
	gen, useCache := s.cacheGeneration(ctx, logger)
	if useCache {
		cached, hit, err := s.cache.GetPage(ctx, gen, input.Skip, limit)
		if err != nil {
			logger.Warn("read post page cache failed", slog.Any("error", err))
		} else if hit {
			return cached, nil
		}
	}

	posts, err := s.store.ListPosts(ctx, input.Skip, limit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []model.Post{}
	}
	if useCache {
		if err := s.cache.SetPage(ctx, gen, input.Skip, limit, posts); err != nil {
			logger.Warn("write post page cache failed", slog.Any("error", err))
		}
	}
	return posts, nil
}

func (s *PostService) cacheGeneration(ctx context.Context, logger *slog.Logger) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		logger.Warn("read post page generation failed", slog.Any("error", err))
		return 0, false
	}
	return gen, true
}

// DefaultLimit is the page size used when a caller gives none.
func (s *PostService) DefaultLimit() int {
	return s.defaultLimit
}
