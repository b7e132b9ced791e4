package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"anime-api/internal/model"
	"anime-api/internal/pkg/jwtutil"
	"anime-api/internal/pkg/password"
	"anime-api/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

func newTestStore(t *testing.T) *repository.JSONStore {
	t.Helper()
	store, err := repository.NewJSONStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func newTestAuthService(t *testing.T, store repository.Store) (*AuthService, *jwtutil.Issuer) {
	t.Helper()
	issuer, err := jwtutil.NewIssuer("test-secret", jwtutil.DefaultExpiration)
	require.NoError(t, err)
	return NewAuthService(store, password.NewBcryptHasher(bcrypt.MinCost), issuer), issuer
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (f failingStore) FindUserByUsername(context.Context, string) (*model.User, error) {
	return nil, f.err
}
func (f failingStore) FindUserByID(context.Context, string) (*model.User, error) { return nil, f.err }
func (f failingStore) UsernameOrEmailExists(context.Context, string, string) (bool, error) {
	return false, f.err
}
func (f failingStore) InsertUser(context.Context, *model.User) error { return f.err }
func (f failingStore) InsertPost(context.Context, *model.Post) error { return f.err }
func (f failingStore) ListPosts(context.Context, int, int) ([]model.Post, error) {
	return nil, f.err
}
func (f failingStore) Ping(context.Context) error { return f.err }
func (f failingStore) Close() error { return nil }

// racingStore reports no existing user on the pre-check but rejects the
// insert, as happens when a concurrent registration wins.
type racingStore struct {
	repository.Store
}

func (racingStore) UsernameOrEmailExists(context.Context, string, string) (bool, error) {
	return false, nil
}
func (racingStore) InsertUser(context.Context, *model.User) error { return repository.ErrDuplicate }

type fakeCache struct {
	mu          sync.Mutex
	gen         int64
	pages       map[[3]int64][]model.Post
	gets        int
	invalidated int
	err         error
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: map[[3]int64][]model.Post{}}
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.gen, nil
}

func (c *fakeCache) GetPage(_ context.Context, gen int64, skip, limit int) ([]model.Post, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	posts, ok := c.pages[[3]int64{gen, int64(skip), int64(limit)}]
	return posts, ok, nil
}

func (c *fakeCache) SetPage(_ context.Context, gen int64, skip, limit int, posts []model.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[[3]int64{gen, int64(skip), int64(limit)}] = posts
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.gen++
	return c.err
}

type fakePublisher struct {
	published []model.Post
	err       error
}

func (p *fakePublisher) PublishPostCreated(_ context.Context, post model.Post) error {
	p.published = append(p.published, post)
	return p.err
}

// brokenHasher cannot produce digests and records what Verify compares against.
type brokenHasher struct {
	verified []string
}

func (h *brokenHasher) Hash(string) (string, error) { return "", errors.New("entropy unavailable") }

func (h *brokenHasher) Verify(_, digest string) bool {
	h.verified = append(h.verified, digest)
	return false
}
