package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/pkg/utils"
)

// memRepo is a domain.UserRepository with a unique email index.
type memRepo struct {
	mu    sync.Mutex
	byID  map[string]domain.User
	email map[string]string

	findErr error
	// blind hides existing rows from FindByEmail, as a concurrent creator
	// would see them before commit.
	blind bool
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]domain.User{}, email: map[string]string{}}
}

func (r *memRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.email[u.Email]; ok {
		return domain.EmailTaken()
	}
	r.byID[u.ID] = *u
	r.email[u.Email] = u.ID
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	id, ok := r.email[email]
	if !ok || r.blind {
		return nil, domain.ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *memRepo) List(_ context.Context, offset, limit int) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := int64(len(all))
	if offset >= len(all) {
		return []domain.User{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (r *memRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if id, taken := r.email[u.Email]; taken && id != u.ID {
		return domain.EmailTaken()
	}
	delete(r.email, old.Email)
	r.email[u.Email] = u.ID
	r.byID[u.ID] = *u
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.email, u.Email)
	return nil
}

func newTestServices(repo domain.UserRepository, tokens TokenIssuer, opts ...Option) (*UserService, *AuthService, *utils.Hasher) {
	h := utils.NewHasher(bcrypt.MinCost, 4)
	users := NewUserService(repo, h, zap.NewNop(), opts...)
	return users, NewAuthService(users, h, tokens, zap.NewNop()), h
}

// gatedRepo parks the next FindByID after reading the row until release
// is closed, so a write can land while a read is in flight.
type gatedRepo struct {
	*memRepo
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{memRepo: newMemRepo(), read: make(chan struct{}), release: make(chan struct{})}
}

func (r *gatedRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.memRepo.FindByID(ctx, id)
	if r.armed.CompareAndSwap(true, false) {
		close(r.read)
		<-r.release
	}
	return u, err
}
