package utils

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher hashes and checks passwords with bcrypt. At most Concurrency
// hashes run at once; waiters give up when their context is done.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummy     string
}

func NewHasher(cost int, concurrency int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0) * 2
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}
}

func (h *Hasher) Hash(ctx context.Context, pw string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether pw matches hashed. A malformed digest is a mismatch.
func (h *Hasher) Verify(ctx context.Context, pw, hashed string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// DummyHash returns a valid digest at the configured cost that no
// password is expected to match. Checking against it costs the same as a
// real check.
func (h *Hasher) DummyHash() string {
	h.dummyOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte(NewID()), h.cost)
		if err == nil {
			h.dummy = string(b)
		}
	})
	return h.dummy
}
