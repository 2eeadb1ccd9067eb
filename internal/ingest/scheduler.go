package ingest

import (
	"context"
	"os"
	"time"

	"geo-directory/internal/directory/memstore"
	"geo-directory/internal/logger"
)

// StartSnapshotReload：每隔 every 检查快照文件，修改时间变化时重载到内存数据源
// 背景：内存部署下无需重启即可发布新数据；错误由日志记录，任务继续调度
// 约束：every<=0 时不启动；ctx 结束后协程退出；校验失败保留旧数据集，且同一版本文件不再重试
func StartSnapshotReload(ctx context.Context, ms *memstore.Store, path string, every time.Duration) {
	if every <= 0 {
		return
	}
	l := logger.L()
	var last time.Time
	if fi, err := os.Stat(path); err == nil {
		last = fi.ModTime()
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			changed, mod, err := reloadIfChanged(ms, path, last)
			last = mod
			switch {
			case err != nil:
				l.Error("snapshot_reload_error", "path", path, "err", err)
			case changed:
				l.Info("snapshot_reloaded", "path", path, "modified", mod)
			}
		}
	}()
}

func reloadIfChanged(ms *memstore.Store, path string, last time.Time) (bool, time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, last, err
	}
	if !fi.ModTime().After(last) {
		return false, last, nil
	}
	snap, err := memstore.LoadSnapshot(path)
	if err != nil {
		return false, fi.ModTime(), err
	}
	if err := ms.Replace(snap); err != nil {
		return false, fi.ModTime(), err
	}
	return true, fi.ModTime(), nil
}
