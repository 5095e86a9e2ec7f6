package aggregates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// CourseLocker serializes structural writes per course. The returned unlock
// func is safe to call more than once.
type CourseLocker interface {
	Lock(ctx context.Context, courseID uuid.UUID) (unlock func(), err error)
}

// LocalLocker is an in-process keyed mutex. Waiters give up when their
// context is done.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*localLock
}

type localLock struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uuid.UUID]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, courseID uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[courseID]
	if !ok {
		e = &localLock{sem: make(chan struct{}, 1)}
		l.locks[courseID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(courseID, e)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(courseID, e)
		})
	}, nil
}

func (l *LocalLocker) release(courseID uuid.UUID, e *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, courseID)
	}
}

// held reports how many callers hold or wait on courseID.
func (l *LocalLocker) held(courseID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.locks[courseID]; ok {
		return e.refs
	}
	return 0
}

// releaseScript deletes the lock key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds a SET NX lease per course so that several service
// instances share one writer per course.
type RedisLocker struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLocker(rdb goredis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: "coursestore:lock:course:", ttl: ttl, poll: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, courseID uuid.UUID) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, errors.New("redis locker not initialized")
	}
	key := l.prefix + courseID.String()
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, RetryableError(fmt.Sprintf("acquire course lock: %v", err))
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
