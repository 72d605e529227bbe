package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	// loads outlive the caller that started them, up to this bound
	defaultLoadTimeout = 5 * time.Second
	// generation keys must outlive any in-flight load
	genTTL = 24 * time.Hour
)

type Cache struct {
	RDB         *redis.Client
	Prefix      string
	LoadTimeout time.Duration
	sf          singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		RDB:         redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix:      "auth:",
		LoadTimeout: defaultLoadTimeout,
	}
}

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

func (c *Cache) genKey(key string) string { return c.Prefix + "gen:" + key }

// GetOrLoad returns the cached bytes for key or runs load once per key
// across concurrent callers and stores the result. Redis being down only
// costs a reload.
//
// The load runs detached from the first caller's cancellation so coalesced
// waiters are not failed by it. A value is stored only if no Delete of the
// key happened since the load began.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	full := c.Prefix + key
	if b, err := c.RDB.Get(ctx, full).Bytes(); err == nil {
		return b, nil
	}
	ch := c.sf.DoChan(full, func() (any, error) {
		timeout := c.LoadTimeout
		if timeout <= 0 {
			timeout = defaultLoadTimeout
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		gen, genErr := c.RDB.Get(lctx, c.genKey(key)).Result()
		if errors.Is(genErr, redis.Nil) {
			genErr = nil
		}
		b, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			c.setIfCurrent(lctx, key, gen, b, ttl)
		}
		return b, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// setIfCurrent writes the value under WATCH on the generation key; a
// concurrent Delete bumps the generation and aborts the write.
func (c *Cache) setIfCurrent(ctx context.Context, key, gen string, b []byte, ttl time.Duration) {
	gk := c.genKey(key)
	_ = c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.Prefix+key, b, ttl)
			return nil
		})
		return err
	}, gk)
}

// Delete drops keys and bumps their generations, so loads already in
// flight do not write stale values back.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, c.genKey(k))
			p.Expire(ctx, c.genKey(k), genTTL)
			p.Del(ctx, c.Prefix+k)
		}
		return nil
	})
	return err
}
