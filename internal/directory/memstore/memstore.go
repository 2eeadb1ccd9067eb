package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"geo-directory/internal/logger"
	"geo-directory/internal/metrics"
	"geo-directory/internal/store"
)

// Store：内存数据源；快照只读，Replace 以整体替换的方式热更新
// 约束：数据集构建后不再修改，工作单元只需在开始时取得当前数据集指针，回滚无需撤销任何状态
type Store struct {
	mu  sync.RWMutex
	d   *dataset
	log *slog.Logger
}

var _ store.Backend = (*Store)(nil)

func New(snap Snapshot) (*Store, error) {
	d, err := build(snap)
	if err != nil {
		return nil, err
	}
	return &Store{d: d, log: logger.L()}, nil
}

// Load：读取快照文件并构建数据源
func Load(path string) (*Store, error) {
	snap, err := LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	s, err := New(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return s, nil
}

// Replace：校验通过后切换到新快照，进行中的工作单元继续使用旧数据集
func (s *Store) Replace(snap Snapshot) error {
	d, err := build(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.d = d
	s.mu.Unlock()
	return nil
}

// SetLogger：替换日志器（测试中静默输出）
func (s *Store) SetLogger(l *slog.Logger) { s.log = l }

// 文档注释：实现 store.Backend
// 约束：失败路径与 PostgreSQL 实现一致，原样返回错误或继续抛出 panic。
func (s *Store) Read(ctx context.Context, iso store.Isolation, fn func(ctx context.Context, r store.Reader) error) (err error) {
	if err = ctx.Err(); err != nil {
		s.fail(iso, err)
		return err
	}
	s.mu.RLock()
	d := s.d
	s.mu.RUnlock()

	done := false
	defer func() {
		if done {
			return
		}
		if p := recover(); p != nil {
			s.fail(iso, fmt.Errorf("panic: %v", p))
			panic(p)
		}
		s.fail(iso, err)
	}()
	if err = fn(ctx, &reader{d: d}); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	done = true
	metrics.UnitOfWorkTotal.WithLabelValues(iso.String(), "commit").Inc()
	return nil
}

func (s *Store) fail(iso store.Isolation, err error) {
	s.log.Error("uow_failed", "backend", "memory", "isolation", iso.String(), "err", err)
	metrics.UnitOfWorkTotal.WithLabelValues(iso.String(), "rollback").Inc()
}
