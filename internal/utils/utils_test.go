package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "abc")
	t.Setenv("X_INT", "12")
	t.Setenv("X_BAD_INT", "-3")
	t.Setenv("X_BOOL", "false")
	t.Setenv("X_BAD_BOOL", "maybe")

	assert.Equal(t, "abc", EnvString("X_STR", "d"))
	assert.Equal(t, "d", EnvString("X_UNSET", "d"))
	assert.Equal(t, 12, EnvInt("X_INT", 1))
	assert.Equal(t, 1, EnvInt("X_BAD_INT", 1))
	assert.False(t, EnvBool("X_BOOL", true))
	assert.True(t, EnvBool("X_BAD_BOOL", true))
}

func TestPoolConfigFromEnv(t *testing.T) {
	c := PoolConfigFromEnv()
	assert.Equal(t, PoolConfig{Size: 50, Overflow: 100, Recycle: 600 * time.Second}, c)

	t.Setenv("PG_POOL_SIZE", "5")
	t.Setenv("PG_MAX_OVERFLOW", "0")
	t.Setenv("PG_POOL_RECYCLE_S", "30")
	c = PoolConfigFromEnv()
	assert.Equal(t, PoolConfig{Size: 5, Overflow: 0, Recycle: 30 * time.Second}, c)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	c.Apply(db)
	assert.Equal(t, 5, db.Stats().MaxOpenConnections)
}

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "dir")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DB", "")
	assert.Equal(t, "postgres://dir:secret@db:5432/directory?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_PASSWORD", "")
	assert.Equal(t, "postgres://dir@db:5432/directory?sslmode=disable", BuildPostgresDSNFromEnv())
}

func TestBuildPostgresDSNEscapesCredentials(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "dir@corp")
	t.Setenv("PG_PASSWORD", "p@ss/w:rd")
	t.Setenv("PG_DB", "directory")

	u, err := url.Parse(BuildPostgresDSNFromEnv())
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/directory", u.Path)
	assert.Equal(t, "dir@corp", u.User.Username())
	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss/w:rd", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestOpenRedisFromEnvDisabled(t *testing.T) {
	t.Setenv("REDIS_ENABLE", "false")
	assert.Nil(t, OpenRedisFromEnv())
}
