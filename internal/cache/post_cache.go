package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"anime-api/internal/model"
)

const (
	generationKey = "posts:page:generation"
)

// PostPageCache caches listing pages keyed by (generation, skip, limit).
// Invalidate bumps the generation so every cached page is orphaned at once
// and expires through its TTL. Readers take the generation before reading
// the store, so a page built from stale data lands under an old generation.
type PostPageCache struct {
	client  *redisv9.Client
	pageTTL time.Duration
}

func NewPostPageCache(client *redisv9.Client, pageTTL time.Duration) *PostPageCache {
	if pageTTL <= 0 {
		pageTTL = 30 * time.Second
	}
	return &PostPageCache{
		client:  client,
		pageTTL: pageTTL,
	}
}

func (c *PostPageCache) GetPage(ctx context.Context, gen int64, skip, limit int) ([]model.Post, bool, error) {
	raw, err := c.client.Get(ctx, c.pageKey(gen, skip, limit)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get page failed: %w", err)
	}

	var posts []model.Post
	if err := json.Unmarshal([]byte(raw), &posts); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached page failed: %w", err)
	}
	return posts, true, nil
}

func (c *PostPageCache) SetPage(ctx context.Context, gen int64, skip, limit int, posts []model.Post) error {
	payload, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("marshal page cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.pageKey(gen, skip, limit), payload, c.pageTTL).Err(); err != nil {
		return fmt.Errorf("redis set page failed: %w", err)
	}
	return nil
}

func (c *PostPageCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis bump page generation failed: %w", err)
	}
	return nil
}

func (c *PostPageCache) Generation(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, generationKey).Result()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get page generation failed: %w", err)
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse page generation failed: %w", err)
	}
	return gen, nil
}

func (c *PostPageCache) pageKey(gen int64, skip, limit int) string {
	return fmt.Sprintf("posts:page:%d:%d:%d", gen, skip, limit)
}
