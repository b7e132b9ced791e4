package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"anime-api/internal/model"
	"anime-api/internal/pkg/jwtutil"
	"anime-api/internal/pkg/password"
	"anime-api/internal/repository"
)

const TokenTypeBearer = "bearer"

// fallbackDigest is a well-formed bcrypt digest at the default cost. It is
// compared against when no dummy digest could be generated.
const fallbackDigest = "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"

// TokenIssuer issues and verifies bearer tokens bound to a user id.
type TokenIssuer interface {
	Issue(subject string) (string, error)
	Verify(token string) (string, error)
}

type AuthService struct {
	store  repository.Store
	hasher password.Hasher
	tokens TokenIssuer
	now    func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResult struct {
	AccessToken string
	TokenType   string
}

func NewAuthService(store repository.Store, hasher password.Hasher, tokens TokenIssuer) *AuthService {
	return &AuthService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

// Register creates a user and returns it. The uniqueness pre-check and the
// insert are not atomic here; the store rejects the loser of a race with
// repository.ErrDuplicate, which is reported the same way.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	if len(input.Password) > password.MaxBytes {
		return nil, fmt.Errorf("%w: password longer than %d bytes", ErrInvalidInput, password.MaxBytes)
	}

	exists, err := s.store.UsernameOrEmailExists(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateIdentity
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	return user, nil
}

// Login returns ErrBadCredentials for an unknown username and for a wrong
// password alike, and spends a hash comparison in both cases.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.Verify(input.Password, s.dummyHash())
		return nil, ErrBadCredentials
	}
	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrBadCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResult{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

// Authenticate resolves a bearer token to its user. An empty token, a token
// that fails verification and a token whose subject no longer exists are
// all rejected; only a nil error may proceed to an authorized operation.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredential
	}

	subject, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, jwtutil.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.store.FindUserByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownSubject
	}
	return user, nil
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			digest = fallbackDigest
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}
