package pooled

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/puddle/v2"
)

// TestPoolReleaseDoesNotLeak exercises the resource-acquire/release cycle
// directly against a bare puddle pool, independent of any concrete IRIS
// driver, and checks that no resource stays acquired after 100 cycles.
// It does not construct a PooledConn.
func TestPoolReleaseDoesNotLeak(t *testing.T) {
	constructed := 0
	pool, err := puddle.NewPool(&puddle.Config[int]{
		Constructor: func(ctx context.Context) (int, error) {
			constructed++
			return constructed, nil
		},
		Destructor: func(int) {},
		MaxSize:    4,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 100; i++ {
		res, err := pool.Acquire(ctx)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		res.Release()
	}

	if got := pool.Stat().AcquiredResources(); got != 0 {
		t.Fatalf("expected 0 acquired resources after release, got %d", got)
	}
}
