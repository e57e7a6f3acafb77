package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock
var ErrLockHeld = errors.New("lock already held")

// Locker provides short-lived mutual exclusion across processes.
// Allocation runs take a per-department lock so two runs never snapshot and
// persist the same department concurrently.
type Locker struct {
	client *Client
	prefix string
}

// Lock is an acquired lock. Release is idempotent.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// NewLocker creates a new locker
func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Acquire takes the named lock for ttl. With Redis disabled it always
// succeeds.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{
		locker: l,
		key:    fmt.Sprintf("%s:lock:%s", l.prefix, name),
		token:  uuid.NewString(),
	}

	if !l.client.Enabled() {
		return lock, nil
	}

	ok, err := l.client.Redis().SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock acquire failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, name)
	}

	return lock, nil
}

// Release frees the lock if it is still owned by this holder
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil || !lk.locker.client.Enabled() {
		return nil
	}

	if err := releaseScript.Run(ctx, lk.locker.client.Redis(), []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("lock release failed: %w", err)
	}
	return nil
}

// DepartmentLockName names the allocation lock for a department/period
func DepartmentLockName(departmentID int64, period string) string {
	return fmt.Sprintf("allocation:%d:%s", departmentID, period)
}
