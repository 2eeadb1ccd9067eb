// 包 app：进程级依赖容器，启动时构建一次并显式传递给路由层
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"geo-directory/internal/api"
	"geo-directory/internal/auth"
	"geo-directory/internal/cache"
	"geo-directory/internal/directory"
	"geo-directory/internal/directory/memstore"
	"geo-directory/internal/ingest"
	"geo-directory/internal/logger"
	"geo-directory/internal/metrics"
	"geo-directory/internal/middleware"
	"geo-directory/internal/migrate"
	"geo-directory/internal/store"
	"geo-directory/internal/utils"

	"github.com/redis/go-redis/v9"
)

// Container：构建后只读，可被所有请求并发使用
type Container struct {
	Backend  store.Backend
	Service  *directory.Service
	Verifier *auth.Verifier
	Cache    cache.Cache
	Log      *slog.Logger

	db           *sql.DB
	redis        *redis.Client
	memory       *memstore.Store
	snapshotPath string
	adminToken   string
}

// Options：FromEnv 之外的手工装配参数（测试与嵌入场景）
type Options struct {
	Redis        *redis.Client
	CacheTTL     time.Duration
	CacheSize    int
	SnapshotPath string
	AdminToken   string
	// PhoneNumbers：记录中附带 phone_numbers 字段
	PhoneNumbers bool
}

// New：以给定数据源装配容器；b 为 *memstore.Store 时启用快照热更新接口
func New(b store.Backend, opt Options, l *slog.Logger) *Container {
	if opt.CacheTTL <= 0 {
		opt.CacheTTL = time.Minute
	}
	if opt.CacheSize <= 0 {
		opt.CacheSize = 1024
	}
	var svcOpts []directory.Option
	if opt.PhoneNumbers {
		svcOpts = append(svcOpts, directory.WithPhoneNumbers())
	}
	c := &Container{
		Backend:      b,
		Service:      directory.NewService(b, l, svcOpts...),
		Verifier:     auth.NewVerifier(b),
		Cache:        cache.New(opt.Redis, opt.CacheSize, opt.CacheTTL),
		Log:          l,
		redis:        opt.Redis,
		snapshotPath: opt.SnapshotPath,
		adminToken:   opt.AdminToken,
	}
	switch v := b.(type) {
	case *memstore.Store:
		c.memory = v
	case *store.Store:
		c.db = v.DB()
	}
	return c
}

// FromEnv：按 DIRECTORY_BACKEND 选择 PostgreSQL（默认）或内存快照数据源
// 约束：内存数据源的定期重载协程随 ctx 结束
func FromEnv(ctx context.Context, l *slog.Logger) (*Container, error) {
	opt := Options{
		CacheTTL:     time.Duration(utils.EnvInt("RESULT_CACHE_TTL_S", 60)) * time.Second,
		CacheSize:    utils.EnvInt("RESULT_CACHE_SIZE", 1024),
		SnapshotPath: utils.EnvString("DIRECTORY_SNAPSHOT", "data/directory/snapshot.json"),
		AdminToken:   utils.EnvString("ADMIN_TOKEN", ""),
		PhoneNumbers: utils.EnvBool("DIRECTORY_PHONE_NUMBERS", false),
	}
	var b store.Backend
	switch kind := utils.EnvString("DIRECTORY_BACKEND", "postgres"); kind {
	case "memory":
		ms, err := memstore.Load(opt.SnapshotPath)
		if err != nil {
			return nil, err
		}
		ms.SetLogger(l)
		l.Info("snapshot_loaded", "path", opt.SnapshotPath)
		ingest.StartSnapshotReload(ctx, ms, opt.SnapshotPath, time.Duration(utils.EnvInt("SNAPSHOT_RELOAD_INTERVAL_S", 0))*time.Second)
		b = ms
	case "postgres":
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		l.Info("db_open_ok")
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if utils.EnvBool("AUTO_MIGRATE", true) {
			if err := migrate.EnsureSchema(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
		b = store.AttachDB(db)
	default:
		return nil, fmt.Errorf("unknown DIRECTORY_BACKEND %q", kind)
	}

	if rc := utils.OpenRedisFromEnv(); rc != nil {
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		opt.Redis = rc
	}
	return New(b, opt, l), nil
}

// Handler：组装完整的 HTTP 处理链
// 约束：/v1/* 需要 API 密钥；healthz 与 metrics 不需要；访问日志位于最外层以记录限流与认证结果
func (c *Container) Handler(apiBase string) http.Handler {
	mux := http.NewServeMux()
	protected := middleware.RequireAPIKey(c.Verifier)(api.BuildRoutes(c.Service, c.Cache))
	mux.Handle(apiBase+"/v1/", http.StripPrefix(apiBase, protected))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc(apiBase+"/healthz", c.healthz)
	if c.memory != nil && c.adminToken != "" {
		mux.HandleFunc("POST "+apiBase+"/admin/reload-snapshot", c.reloadSnapshot)
	}
	return logger.AccessMiddleware(c.Log)(middleware.RateLimitFromEnv(mux))
}

func (c *Container) healthz(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if c.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := c.db.PingContext(ctx); err != nil {
			c.Log.Warn("healthz_db_error", "err", err)
			status, code = "db_unavailable", http.StatusServiceUnavailable
		}
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// reloadSnapshot：重新读取快照文件并整体替换内存数据集；校验失败时保留旧数据
func (c *Container) reloadSnapshot(w http.ResponseWriter, r *http.Request) {
	if t := r.Header.Get("x-admin-token"); t == "" || t != c.adminToken {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	snap, err := memstore.LoadSnapshot(c.snapshotPath)
	if err == nil {
		err = c.memory.Replace(snap)
	}
	if err != nil {
		c.Log.Error("snapshot_reload_error", "path", c.snapshotPath, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	c.Log.Info("snapshot_reloaded", "path", c.snapshotPath)
	w.WriteHeader(http.StatusNoContent)
}

// Close：释放数据库连接池与 Redis 客户端
func (c *Container) Close() error {
	var err error
	if c.redis != nil {
		err = c.redis.Close()
	}
	if c.db != nil {
		if e := c.db.Close(); e != nil {
			err = e
		}
	}
	return err
}
