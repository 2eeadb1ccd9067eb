// 包 store：PostgreSQL 数据访问层，持有连接池并以工作单元（事务）为粒度对外提供查询
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"geo-directory/internal/logger"
	"geo-directory/internal/metrics"

	_ "github.com/lib/pq"
)

// Isolation：工作单元的隔离策略
type Isolation int

const (
	// IsolationDefault 普通读取使用数据库默认隔离级别
	IsolationDefault Isolation = iota
	// IsolationSerializable 需要严格一致性的操作使用
	IsolationSerializable
)

func (i Isolation) String() string {
	if i == IsolationSerializable {
		return "serializable"
	}
	return "default"
}

func (i Isolation) txOptions() *sql.TxOptions {
	if i == IsolationSerializable {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return &sql.TxOptions{Isolation: sql.LevelDefault}
}

// Store：数据库访问入口；连接池容量与回收周期由 utils.OpenPostgresFromEnv 配置
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db, log: logger.L()} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// 文档注释：在一个工作单元内执行 fn
// 正常返回时提交并归还连接；fn 返回错误、panic 或 ctx 在提交前被取消时，记录日志、回滚、归还连接，
// 并把原始错误（或原始 panic）原样交还调用方。
// 约束：不做重试；池已满时阻塞在 BeginTx 直到有连接可用或 ctx 结束。
func (s *Store) WithUnitOfWork(ctx context.Context, iso Isolation, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, iso.txOptions())
	if err != nil {
		s.log.Error("uow_begin_error", "isolation", iso.String(), "err", err)
		metrics.UnitOfWorkTotal.WithLabelValues(iso.String(), "begin_error").Inc()
		return err
	}
	done := false
	defer func() {
		if done {
			return
		}
		if p := recover(); p != nil {
			s.rollback(tx, iso, fmt.Errorf("panic: %v", p))
			panic(p)
		}
		s.rollback(tx, iso, err)
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	done = true
	metrics.UnitOfWorkTotal.WithLabelValues(iso.String(), "commit").Inc()
	return nil
}

func (s *Store) rollback(tx *sql.Tx, iso Isolation, cause error) {
	s.log.Error("uow_failed", "isolation", iso.String(), "err", cause)
	metrics.UnitOfWorkTotal.WithLabelValues(iso.String(), "rollback").Inc()
	// 提交失败或 ctx 取消后事务可能已由驱动结束
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Error("uow_rollback_error", "isolation", iso.String(), "err", err)
	}
}

// Read：实现 Backend，把事务包装为 Reader
func (s *Store) Read(ctx context.Context, iso Isolation, fn func(ctx context.Context, r Reader) error) error {
	return s.WithUnitOfWork(ctx, iso, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &pgReader{q: tx})
	})
}
