package utils

import (
	"database/sql"
	"net"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig：连接池参数；并发上限为 Size+Overflow，超出的调用方在取连接时阻塞等待
type PoolConfig struct {
	Size     int
	Overflow int
	Recycle  time.Duration
}

// PoolConfigFromEnv：PG_POOL_SIZE（50）、PG_MAX_OVERFLOW（100）、PG_POOL_RECYCLE_S（600）
func PoolConfigFromEnv() PoolConfig {
	return PoolConfig{
		Size:     EnvInt("PG_POOL_SIZE", 50),
		Overflow: EnvInt("PG_MAX_OVERFLOW", 100),
		Recycle:  time.Duration(EnvInt("PG_POOL_RECYCLE_S", 600)) * time.Second,
	}
}

// Apply：把池参数写入 *sql.DB
func (c PoolConfig) Apply(db *sql.DB) {
	db.SetMaxOpenConns(c.Size + c.Overflow)
	db.SetMaxIdleConns(c.Size)
	db.SetConnMaxLifetime(c.Recycle)
}

// BuildPostgresDSNFromEnv：用户名与密码按 URL userinfo 规则转义，密码可含 "@"、"/"、":" 等字符
func BuildPostgresDSNFromEnv() string {
	user := url.User(EnvString("PG_USER", "postgres"))
	if pass := EnvString("PG_PASSWORD", ""); pass != "" {
		user = url.UserPassword(user.Username(), pass)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(EnvString("PG_HOST", "localhost"), EnvString("PG_PORT", "5432")),
		Path:     "/" + EnvString("PG_DB", "directory"),
		RawQuery: url.Values{"sslmode": {EnvString("PG_SSLMODE", "disable")}}.Encode(),
	}
	return u.String()
}

// OpenPostgresFromEnv：按环境变量打开连接池（不会主动建立连接，首次使用或 Ping 时才连接）
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	PoolConfigFromEnv().Apply(db)
	return db, nil
}
