package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/cache"
	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/pkg/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type PasswordHasher interface {
	Hash(ctx context.Context, pw string) (string, error)
	Verify(ctx context.Context, pw, hashed string) bool
	DummyHash() string
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserPatch holds the fields to change; nil means unchanged. Role and
// IsActive are only set by admin routes.
type UserPatch struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Role      *string
	IsActive  *bool
}

// UserService owns user identity rules: one record per email, passwords
// stored only as digests, outward results only as domain.PublicUser.
type UserService struct {
	repo   domain.UserRepository
	hasher PasswordHasher
	log    *zap.Logger

	cache    *cache.Cache
	cacheTTL time.Duration

	now func() time.Time
}

type Option func(*UserService)

// WithCache serves Get from Redis. Writes invalidate the entry.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(s *UserService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

func NewUserService(repo domain.UserRepository, hasher PasswordHasher, l *zap.Logger, opts ...Option) *UserService {
	s := &UserService{repo: repo, hasher: hasher, log: l, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *UserService) LookupByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
}

func (s *UserService) LookupByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) Get(ctx context.Context, id string) (domain.PublicUser, error) {
	load := func(ctx context.Context) (*domain.PublicUser, error) {
		u, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		v := u.Public()
		return &v, nil
	}
	if s.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return domain.PublicUser{}, err
		}
		return *v, nil
	}
	v, err := cache.GetOrLoadJSON(s.cache, ctx, cacheKey(id), s.cacheTTL, load)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return *v, nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.PublicUser, error) {
	u, err := s.create(ctx, in, domain.RoleUser)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return u.Public(), nil
}

func (s *UserService) create(ctx context.Context, in CreateUserInput, role string) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.EmailTaken()
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// the unique index decides races the pre-check could not see
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user created", zap.String("uid", u.ID), zap.String("email", u.Email))
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id string, p UserPatch) (domain.PublicUser, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.PublicUser{}, err
	}

	if p.Email != nil {
		email := domain.NormalizeEmail(*p.Email)
		if email == "" {
			return domain.PublicUser{}, fmt.Errorf("%w: email must not be empty", domain.ErrInvalidInput)
		}
		if email != u.Email {
			other, err := s.repo.FindByEmail(ctx, email)
			switch {
			case err == nil && other.ID != u.ID:
				return domain.PublicUser{}, domain.EmailTaken()
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				return domain.PublicUser{}, err
			}
			u.Email = email
		}
	}
	if p.Password != nil {
		if *p.Password == "" {
			return domain.PublicUser{}, fmt.Errorf("%w: password must not be empty", domain.ErrInvalidInput)
		}
		hash, err := s.hasher.Hash(ctx, *p.Password)
		if err != nil {
			return domain.PublicUser{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		if !domain.ValidRole(*p.Role) {
			return domain.PublicUser{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *p.Role)
		}
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	u.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, u); err != nil {
		return domain.PublicUser{}, err
	}
	s.invalidate(ctx, id)
	return u.Public(), nil
}

func (s *UserService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.Info("user deleted", zap.String("uid", id))
	return nil
}

// List pages through users, newest first. page is 1-based; limit falls
// back to DefaultPageSize and is clamped to MaxPageSize. A page past the
// end is empty, not an error.
func (s *UserService) List(ctx context.Context, page, limit int) (domain.Page, error) {
	page, limit = NormalizePage(page, limit)
	users, total, err := s.repo.List(ctx, pageOffset(page, limit), limit)
	if err != nil {
		return domain.Page{}, err
	}
	items := make([]domain.PublicUser, 0, len(users))
	for i := range users {
		items = append(items, users[i].Public())
	}
	return domain.Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// pageOffset saturates at math.MaxInt so a huge page lands past the end
// instead of wrapping negative.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// EnsureAdmin creates an admin account for email, or promotes and
// reactivates an existing one. An existing password is left alone.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (domain.PublicUser, error) {
	u, err := s.LookupByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.create(ctx, CreateUserInput{Email: email, Password: password, FirstName: "Admin"}, domain.RoleAdmin)
		if errors.Is(err, domain.ErrConflict) {
			// another instance seeded it first
			return s.EnsureAdmin(ctx, email, password)
		}
		if err != nil {
			return domain.PublicUser{}, err
		}
		return u.Public(), nil
	case err != nil:
		return domain.PublicUser{}, err
	}
	if u.Role == domain.RoleAdmin && u.IsActive {
		return u.Public(), nil
	}
	role, active := domain.RoleAdmin, true
	return s.Update(ctx, u.ID, UserPatch{Role: &role, IsActive: &active})
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("uid", id), zap.Error(err))
	}
}

func cacheKey(id string) string { return "user:" + id }
