package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNonceLockFailed  = errors.New("failed to acquire nonce lock")
	ErrNonceLockTimeout = errors.New("nonce lock timeout")
)

// NonceAllocator 按签名地址分配 nonce
// chainPending 为链上 pending nonce, 分配结果为 max(chainPending, 本地偏移)
type NonceAllocator interface {
	Next(ctx context.Context, addr common.Address, chainPending uint64) (uint64, error)
	// Reset 丢弃本地偏移, 下次以链上值为准
	Reset(ctx context.Context, addr common.Address) error
}

// LocalNonceAllocator 进程内分配器
type LocalNonceAllocator struct {
	mu   sync.Mutex
	next map[common.Address]uint64
}

// NewLocalNonceAllocator 创建进程内分配器
func NewLocalNonceAllocator() *LocalNonceAllocator {
	return &LocalNonceAllocator{next: make(map[common.Address]uint64)}
}

func (a *LocalNonceAllocator) Next(_ context.Context, addr common.Address, chainPending uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := chainPending
	if local, ok := a.next[addr]; ok && local > n {
		n = local
	}
	a.next[addr] = n + 1
	return n, nil
}

func (a *LocalNonceAllocator) Reset(_ context.Context, addr common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.next, addr)
	return nil
}

// releaseLockScript 只释放自己持有的锁
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisNonceAllocator 多副本共享的分配器
// SET NX 分布式锁保护 读取-递增-写入
type RedisNonceAllocator struct {
	redis       redis.Cmdable
	prefix      string
	chainID     int64
	lockTimeout time.Duration
	lockWait    time.Duration
	stateTTL    time.Duration
}

// RedisNonceConfig 配置
type RedisNonceConfig struct {
	Prefix      string
	ChainID     int64
	LockTimeout time.Duration
	LockWait    time.Duration
	StateTTL    time.Duration
}

// NewRedisNonceAllocator 创建 Redis 分配器
func NewRedisNonceAllocator(rdb redis.Cmdable, cfg *RedisNonceConfig) *RedisNonceAllocator {
	a := &RedisNonceAllocator{
		redis:       rdb,
		prefix:      cfg.Prefix,
		chainID:     cfg.ChainID,
		lockTimeout: cfg.LockTimeout,
		lockWait:    cfg.LockWait,
		stateTTL:    cfg.StateTTL,
	}
	if a.prefix == "" {
		a.prefix = "ludium:payment"
	}
	if a.lockTimeout == 0 {
		a.lockTimeout = 5 * time.Second
	}
	if a.lockWait == 0 {
		a.lockWait = 3 * time.Second
	}
	if a.stateTTL == 0 {
		a.stateTTL = 10 * time.Minute
	}
	return a
}

func (a *RedisNonceAllocator) nonceKey(addr common.Address) string {
	return fmt.Sprintf("%s:nonce:%s:%d", a.prefix, addr.Hex(), a.chainID)
}

func (a *RedisNonceAllocator) lockKey(addr common.Address) string {
	return fmt.Sprintf("%s:nonce:lock:%s:%d", a.prefix, addr.Hex(), a.chainID)
}

// acquireLock 在 lockWait 内轮询获取锁
func (a *RedisNonceAllocator) acquireLock(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(a.lockWait)
	for {
		ok, err := a.redis.SetNX(ctx, key, token, a.lockTimeout).Result()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNonceLockFailed, err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrNonceLockTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (a *RedisNonceAllocator) Next(ctx context.Context, addr common.Address, chainPending uint64) (uint64, error) {
	lockKey := a.lockKey(addr)
	token, err := a.acquireLock(ctx, lockKey)
	if err != nil {
		return 0, err
	}
	defer releaseLockScript.Run(context.WithoutCancel(ctx), a.redis, []string{lockKey}, token)

	n := chainPending
	stored, err := a.redis.Get(ctx, a.nonceKey(addr)).Uint64()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return 0, err
	case stored > n:
		n = stored
	}

	if err := a.redis.Set(ctx, a.nonceKey(addr), n+1, a.stateTTL).Err(); err != nil {
		return 0, err
	}
	return n, nil
}

func (a *RedisNonceAllocator) Reset(ctx context.Context, addr common.Address) error {
	return a.redis.Del(ctx, a.nonceKey(addr)).Err()
}
