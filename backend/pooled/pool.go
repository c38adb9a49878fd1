// Package pooled implements the out-of-process backend.Conn variant: a
// bounded pool of database/sql connections to an externally registered
// IRIS driver, per spec.md §4.3 ("base+overflow+acquire-timeout+recycle-age").
package pooled

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/mevdschee/pgwire-iris/backend"
)

// Config controls pool sizing and reconnection behavior.
type Config struct {
	DriverName          string
	DSN                 string
	BaseSize            int32
	OverflowSize        int32
	AcquireTimeout      time.Duration
	RecycleAge          time.Duration
	ReconnectMinBackoff time.Duration
	ReconnectMaxBackoff time.Duration
}

// Dialer hands out PooledConn values backed by one puddle.Pool of
// *sql.Conn shared across the process.
type Dialer struct {
	cfg     Config
	db      *sql.DB
	pool    *puddle.Pool[*pooledResource]
	metrics backend.MetricsSink
}

type pooledResource struct {
	conn      *sql.Conn
	createdAt time.Time
}

// NewDialer opens the database/sql.DB against the externally registered
// driver named by cfg.DriverName and builds the puddle-backed pool on top
// of it.
func NewDialer(cfg Config, metrics backend.MetricsSink) (*Dialer, error) {
	db, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pooled: open %s: %w", cfg.DriverName, err)
	}
	maxSize := cfg.BaseSize + cfg.OverflowSize
	if maxSize <= 0 {
		maxSize = 1
	}
	db.SetMaxOpenConns(int(maxSize))

	d := &Dialer{cfg: cfg, db: db, metrics: metrics}
	pool, err := puddle.NewPool(&puddle.Config[*pooledResource]{
		Constructor: d.construct,
		Destructor:  d.destruct,
		MaxSize:     maxSize,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	d.pool = pool
	return d, nil
}

func (d *Dialer) construct(ctx context.Context) (*pooledResource, error) {
	conn, err := reconnectWithBackoff(ctx, d.db, d.cfg.ReconnectMinBackoff, d.cfg.ReconnectMaxBackoff)
	if err != nil {
		return nil, err
	}
	return &pooledResource{conn: conn, createdAt: time.Now()}, nil
}

func (d *Dialer) destruct(r *pooledResource) {
	if err := r.conn.Close(); err != nil {
		log.Printf("[pooled] error closing connection: %v", err)
	}
}

// Dial acquires a pool resource, recycling it first if it has exceeded
// RecycleAge.
func (d *Dialer) Dial(ctx context.Context) (backend.Conn, error) {
	acquireCtx := ctx
	var cancel context.CancelFunc
	if d.cfg.AcquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, d.cfg.AcquireTimeout)
		defer cancel()
	}
	res, err := d.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("pooled: acquire: %w", err)
	}
	if d.cfg.RecycleAge > 0 && time.Since(res.Value().createdAt) > d.cfg.RecycleAge {
		res.Destroy()
		res, err = d.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("pooled: acquire after recycle: %w", err)
		}
	}
	return &PooledConn{res: res, metrics: d.metrics}, nil
}

// Close shuts down the pool and the underlying database/sql.DB.
func (d *Dialer) Close() {
	d.pool.Close()
	d.db.Close()
}

// ActiveConnections reports how many pool resources are currently checked
// out, for the gauge a caller polls on a timer.
func (d *Dialer) ActiveConnections() int32 {
	return d.pool.Stat().AcquiredResources()
}

// PooledConn is the out-of-process backend.Conn variant.
type PooledConn struct {
	res     *puddle.Resource[*pooledResource]
	tx      *sql.Tx
	txState backend.TxStatus
	metrics backend.MetricsSink
}

func (c *PooledConn) sqlConn() *sql.Conn { return c.res.Value().conn }

func (c *PooledConn) Execute(ctx context.Context, sqlText string, params []any, resultFormats []int16) (*backend.Result, error) {
	if looksLikeQuery(sqlText) {
		rows, err := c.queryer().QueryContext(ctx, sqlText, params...)
		if err != nil {
			return nil, translateConnErr(err, c.res)
		}
		defer rows.Close()
		return scanRows(rows)
	}
	res, err := c.execer().ExecContext(ctx, sqlText, params...)
	if err != nil {
		return nil, translateConnErr(err, c.res)
	}
	affected, _ := res.RowsAffected()
	return &backend.Result{RowsAffected: affected, Tag: commandTag(sqlText, affected)}, nil
}

func (c *PooledConn) queryer() interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
} {
	if c.tx != nil {
		return c.tx
	}
	return c.sqlConn()
}

func (c *PooledConn) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if c.tx != nil {
		return c.tx
	}
	return c.sqlConn()
}

func (c *PooledConn) ExecuteMany(ctx context.Context, sqlText string, paramSets [][]any) (int64, error) {
	return backend.RunExecuteMany(ctx, &pooledManyAdapter{c}, c.metrics, sqlText, paramSets)
}

func (c *PooledConn) Begin(ctx context.Context) error {
	tx, err := c.sqlConn().BeginTx(ctx, nil)
	if err != nil {
		return translateConnErr(err, c.res)
	}
	c.tx = tx
	c.txState = backend.TxInTx
	return nil
}

func (c *PooledConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	c.txState = backend.TxIdle
	return err
}

func (c *PooledConn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	c.txState = backend.TxIdle
	return err
}

func (c *PooledConn) Savepoint(ctx context.Context, name string) error {
	_, err := c.execer().ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

func (c *PooledConn) RollbackTo(ctx context.Context, name string) error {
	_, err := c.execer().ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
	if err == nil {
		c.txState = backend.TxInTx
	}
	return err
}

// Cancel does nothing on this variant, so a cancel request routed here by
// the cancel.Registry does not interrupt a running query. A running
// statement ends only when the context passed to Execute is done, which
// is the session's statement-timeout deadline.
func (c *PooledConn) Cancel() {}

func (c *PooledConn) TxStatus() backend.TxStatus {
	if c.tx == nil {
		return backend.TxIdle
	}
	return c.txState
}

func (c *PooledConn) Release() {
	c.res.Release()
}

func translateConnErr(err error, res *puddle.Resource[*pooledResource]) error {
	if isConnectionLost(err) {
		res.Destroy()
		return backend.ErrConnectionLost
	}
	return err
}

func isConnectionLost(err error) bool {
	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}
