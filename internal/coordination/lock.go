// Package coordination 基于 Redis 的跨进程运行锁：同一数据源同一时刻只允许一个进程采集发信
package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 10 * time.Minute
	keyPrefix  = "newsdigest:run:"
)

// ErrNotHeld 释放时锁已过期或被其它进程持有
var ErrNotHeld = errors.New("run lock not held")

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// NewRedisClient 建立连接并 ping 一次；ping 失败返回错误，由调用方决定是否降级
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RunLock 每次 TryAcquire 生成新 token，只有持有者能释放
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RunLock{client: client, ttl: ttl}
}

// Key 数据源对应的锁 key
func Key(name string) string {
	return keyPrefix + name
}

// TryAcquire 不阻塞；ok 为 false 表示其它进程正在运行。release 可重复调用
func (l *RunLock) TryAcquire(ctx context.Context, name string) (release func(context.Context) error, ok bool, err error) {
	key := Key(name)
	token := uuid.New().String()

	ok, err = l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	released := false
	release = func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		n, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release run lock %s: %w", key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return release, true, nil
}
