package pooled

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// reconnectWithBackoff opens a fresh *sql.Conn, retrying with bounded
// exponential backoff on failure. This is the puddle pool's Constructor,
// adapted from the teacher's replica.Pool health-check/reconnect shape
// (a ticker-driven retry loop) into a one-shot bounded retry suitable for
// a pool constructor, which must eventually give up and return an error
// rather than loop forever.
func reconnectWithBackoff(ctx context.Context, db *sql.DB, minBackoff, maxBackoff time.Duration) (*sql.Conn, error) {
	if minBackoff <= 0 {
		minBackoff = 50 * time.Millisecond
	}
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Second
	}
	const maxAttempts = 5
	backoff := minBackoff
	var lastErr error
	for attempt := 0; ; attempt++ {
		conn, err := db.Conn(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Printf("[pooled] connect attempt %d failed: %v", attempt+1, err)
		if attempt+1 >= maxAttempts {
			return nil, lastErr
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
}
