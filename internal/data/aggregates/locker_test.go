package aggregates

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

func TestLocalLocker_SerializesPerCourse(t *testing.T) {
	l := NewLocalLocker()
	course := uuid.New()

	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), course)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Fatalf("holders at once: want=1 got=%d", peak)
	}
	if got := l.held(course); got != 0 {
		t.Fatalf("lock entries after release: want=0 got=%d", got)
	}
}

func TestLocalLocker_OtherCoursesDoNotBlock(t *testing.T) {
	l := NewLocalLocker()
	unlockA, err := l.Lock(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Lock b: %v", err)
	}
	unlockB()
}

func TestLocalLocker_WaiterHonorsContext(t *testing.T) {
	l := NewLocalLocker()
	course := uuid.New()
	unlock, err := l.Lock(context.Background(), course)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, course); err != context.DeadlineExceeded {
		t.Fatalf("waiter: want=%v got=%v", context.DeadlineExceeded, err)
	}
	if got := l.held(course); got != 1 {
		t.Fatalf("refs after abandoned wait: want=1 got=%d", got)
	}
	unlock()
	unlock()
	if got := l.held(course); got != 0 {
		t.Fatalf("refs after double unlock: want=0 got=%d", got)
	}
}

// Runs against a real Redis when COURSESTORE_TEST_REDIS_ADDR is set.
func TestRedisLocker_Lease(t *testing.T) {
	addr := os.Getenv("COURSESTORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COURSESTORE_TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLocker(rdb, 5*time.Second)
	course := uuid.New()
	unlock, err := l.Lock(context.Background(), course)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, course); err != context.DeadlineExceeded {
		t.Fatalf("second holder: want=%v got=%v", context.DeadlineExceeded, err)
	}

	unlock()
	unlock2, err := l.Lock(context.Background(), course)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}
