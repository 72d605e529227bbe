package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-auth-service/internal/core/cache"
	"go-gin-auth-service/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestCreate_HashesAndDefaults(t *testing.T) {
	repo := newMemRepo()
	users, _, h := newTestServices(repo, nil)
	ctx := context.Background()

	pub, err := users.Create(ctx, CreateUserInput{Email: " Ann@Example.com ", Password: "pa55word", FirstName: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, pub.ID)
	assert.Equal(t, "ann@example.com", pub.Email)
	assert.Equal(t, domain.RoleUser, pub.Role)
	assert.True(t, pub.IsActive)
	assert.False(t, pub.CreatedAt.IsZero())
	assert.Equal(t, pub.CreatedAt, pub.UpdatedAt)

	stored, err := repo.FindByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pa55word", stored.PasswordHash)
	assert.True(t, h.Verify(ctx, "pa55word", stored.PasswordHash))
}

func TestCreate_DuplicateEmail(t *testing.T) {
	users, _, _ := newTestServices(newMemRepo(), nil)
	ctx := context.Background()

	_, err := users.Create(ctx, CreateUserInput{Email: "a@b.c", Password: "x1234567"})
	require.NoError(t, err)

	_, err = users.Create(ctx, CreateUserInput{Email: "A@B.C", Password: "other123"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email", ce.Field)
}

func TestCreate_StoreIsAuthoritativeForUniqueness(t *testing.T) {
	repo := newMemRepo()
	repo.blind = true
	users, _, _ := newTestServices(repo, nil)
	ctx := context.Background()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := users.Create(ctx, CreateUserInput{Email: "race@example.com", Password: fmt.Sprintf("pw-%d-xx", i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrConflict):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dupes)
	_, total, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestCreate_RequiresEmailAndPassword(t *testing.T) {
	users, _, _ := newTestServices(newMemRepo(), nil)
	_, err := users.Create(context.Background(), CreateUserInput{Email: "  ", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdate(t *testing.T) {
	repo := newMemRepo()
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	users, _, h := newTestServices(repo, nil, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	a, err := users.Create(ctx, CreateUserInput{Email: "a@b.c", Password: "old-pass"})
	require.NoError(t, err)
	b, err := users.Create(ctx, CreateUserInput{Email: "b@b.c", Password: "old-pass"})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, err := users.Update(ctx, "nope", UserPatch{FirstName: ptr("x")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("email taken by another user", func(t *testing.T) {
		_, err := users.Update(ctx, a.ID, UserPatch{Email: ptr("B@b.c")})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("same email is not a conflict", func(t *testing.T) {
		_, err := users.Update(ctx, a.ID, UserPatch{Email: ptr("a@b.c")})
		assert.NoError(t, err)
	})

	t.Run("fields, password and timestamp", func(t *testing.T) {
		clock = clock.Add(time.Hour)
		pub, err := users.Update(ctx, b.ID, UserPatch{
			Email:     ptr("new@b.c"),
			Password:  ptr("new-pass"),
			FirstName: ptr("Bea"),
		})
		require.NoError(t, err)
		assert.Equal(t, "new@b.c", pub.Email)
		assert.Equal(t, "Bea", pub.FirstName)
		assert.Equal(t, clock, pub.UpdatedAt)
		assert.True(t, pub.UpdatedAt.After(pub.CreatedAt))

		stored, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, h.Verify(ctx, "new-pass", stored.PasswordHash))
		assert.False(t, h.Verify(ctx, "old-pass", stored.PasswordHash))

		_, err = users.LookupByEmail(ctx, "b@b.c")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("bad role", func(t *testing.T) {
		_, err := users.Update(ctx, a.ID, UserPatch{Role: ptr("root")})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRemove(t *testing.T) {
	users, _, _ := newTestServices(newMemRepo(), nil)
	ctx := context.Background()

	u, err := users.Create(ctx, CreateUserInput{Email: "a@b.c", Password: "pw-12345"})
	require.NoError(t, err)
	require.NoError(t, users.Remove(ctx, u.ID))
	assert.ErrorIs(t, users.Remove(ctx, u.ID), domain.ErrNotFound)
	_, err = users.Get(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_Pagination(t *testing.T) {
	users, _, _ := newTestServices(newMemRepo(), nil)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := users.Create(ctx, CreateUserInput{Email: fmt.Sprintf("u%02d@x.io", i), Password: "pw-12345"})
		require.NoError(t, err)
	}

	cases := []struct {
		page, limit         int
		wantItems           int
		wantPage, wantLimit int
	}{
		{1, 10, 10, 1, 10},
		{3, 10, 5, 3, 10},
		{10, 10, 0, 10, 10},
		{0, 0, 10, 1, DefaultPageSize},
		{1, 500, 25, 1, MaxPageSize},
		{math.MaxInt / 2, 100, 0, math.MaxInt / 2, 100},
		{math.MaxInt, 10, 0, math.MaxInt, 10},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tc.page, tc.limit), func(t *testing.T) {
			p, err := users.List(ctx, tc.page, tc.limit)
			require.NoError(t, err)
			assert.Len(t, p.Items, tc.wantItems)
			assert.NotNil(t, p.Items)
			assert.EqualValues(t, 25, p.Total)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantLimit, p.Limit)
		})
	}
}

func TestGet_CachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })

	repo := newMemRepo()
	users, _, _ := newTestServices(repo, nil, WithCache(c, time.Minute))
	ctx := context.Background()

	u, err := users.Create(ctx, CreateUserInput{Email: "a@b.c", Password: "pw-12345", FirstName: "Ann"})
	require.NoError(t, err)

	got, err := users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)

	cached, err := mr.Get("auth:user:" + u.ID)
	require.NoError(t, err)
	assert.NotContains(t, cached, "password")
	assert.NotContains(t, cached, "$2a$")

	_, err = users.Update(ctx, u.ID, UserPatch{FirstName: ptr("Anna")})
	require.NoError(t, err)
	assert.False(t, mr.Exists("auth:user:"+u.ID))

	got, err = users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.FirstName)

	require.NoError(t, users.Remove(ctx, u.ID))
	_, err = users.Get(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_InFlightReadDoesNotOutliveWrite(t *testing.T) {
	for _, tc := range []struct {
		name  string
		write func(ctx context.Context, users *UserService, id string) error
		check func(t *testing.T, got domain.PublicUser, err error)
	}{
		{
			name:  "remove",
			write: func(ctx context.Context, users *UserService, id string) error { return users.Remove(ctx, id) },
			check: func(t *testing.T, _ domain.PublicUser, err error) { assert.ErrorIs(t, err, domain.ErrNotFound) },
		},
		{
			name: "update",
			write: func(ctx context.Context, users *UserService, id string) error {
				_, err := users.Update(ctx, id, UserPatch{FirstName: ptr("Anna")})
				return err
			},
			check: func(t *testing.T, got domain.PublicUser, err error) {
				require.NoError(t, err)
				assert.Equal(t, "Anna", got.FirstName)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			c := cache.New(mr.Addr(), "", 0)
			t.Cleanup(func() { _ = c.Close() })

			repo := newGatedRepo()
			users, _, _ := newTestServices(repo, nil, WithCache(c, time.Minute))
			ctx := context.Background()

			u, err := users.Create(ctx, CreateUserInput{Email: "a@b.c", Password: "pw-12345", FirstName: "Ann"})
			require.NoError(t, err)

			repo.armed.Store(true)
			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = users.Get(ctx, u.ID)
			}()
			<-repo.read

			require.NoError(t, tc.write(ctx, users, u.ID))
			close(repo.release)
			<-done

			got, err := users.Get(ctx, u.ID)
			tc.check(t, got, err)
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	repo := newMemRepo()
	users, _, h := newTestServices(repo, nil)
	ctx := context.Background()

	adm, err := users.EnsureAdmin(ctx, "root@x.io", "root-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, adm.Role)

	again, err := users.EnsureAdmin(ctx, "root@x.io", "ignored")
	require.NoError(t, err)
	assert.Equal(t, adm.ID, again.ID)

	stored, err := repo.FindByID(ctx, adm.ID)
	require.NoError(t, err)
	assert.True(t, h.Verify(ctx, "root-pass", stored.PasswordHash))

	u, err := users.Create(ctx, CreateUserInput{Email: "joe@x.io", Password: "pw-12345"})
	require.NoError(t, err)
	_, err = users.Update(ctx, u.ID, UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	promoted, err := users.EnsureAdmin(ctx, "joe@x.io", "whatever")
	require.NoError(t, err)
	assert.Equal(t, u.ID, promoted.ID)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
	assert.True(t, promoted.IsActive)
}
