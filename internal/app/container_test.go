package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"geo-directory/internal/directory"
	"geo-directory/internal/directory/memstore"
	"geo-directory/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../directory/memstore/testdata/snapshot.json"

func memoryContainer(t *testing.T, path, token string) *Container {
	t.Helper()
	ms, err := memstore.Load(path)
	require.NoError(t, err)
	ms.SetLogger(logger.Discard())
	return New(ms, Options{SnapshotPath: path, AdminToken: token}, logger.Discard())
}

func do(h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEndToEndAcme(t *testing.T) {
	h := memoryContainer(t, fixture, "").Handler("/api")

	rec := do(h, http.MethodGet, "/api/v1/org/category?cat_id=1&api_key=test-key", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []directory.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	var ids []int64
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{1, 3, 2, 5}, ids)

	rec = do(h, http.MethodGet, "/api/v1/org/category?cat_id=1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/v1/org/category?cat_id=1&api_key=wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Wrong api key."}`, rec.Body.String())
}

func TestUnauthenticatedEndpoints(t *testing.T) {
	h := memoryContainer(t, fixture, "").Handler("/api")

	rec := do(h, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "geodir_")

	rec = do(h, http.MethodPost, "/api/admin/reload-snapshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadSnapshot(t *testing.T) {
	b, err := os.ReadFile(fixture)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))

	h := memoryContainer(t, path, "s3cret").Handler("")
	auth := "?api_key=test-key"

	rec := do(h, http.MethodPost, "/admin/reload-snapshot", map[string]string{"x-admin-token": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, os.WriteFile(path, []byte(`{"addresses":[{"id":9,"lon":1,"lat":1,"country":"X","city":"Y","street":"Z","home":"1"}],
		"organizations":[{"id":9,"name":"Fresh","address_id":9}],
		"api_keys":[{"api_key":"62af8704764faf8ea82fc61ce9c4c3908b6cb97d463a634e9e587d7c885db0ef","user_id":1}]}`), 0o644))
	rec = do(h, http.MethodPost, "/admin/reload-snapshot", map[string]string{"x-admin-token": "s3cret"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(h, http.MethodGet, "/v1/org/id"+auth+"&org_id=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Fresh"`)

	// 校验失败时保留当前数据
	require.NoError(t, os.WriteFile(path, []byte(`{"organizations":[{"id":1,"name":"Broken","address_id":404}]}`), 0o644))
	rec = do(h, http.MethodPost, "/admin/reload-snapshot", map[string]string{"x-admin-token": "s3cret"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	rec = do(h, http.MethodGet, "/v1/org/name"+auth+"&name=fresh", nil)
	assert.Contains(t, rec.Body.String(), `"Fresh"`)
}

func TestFromEnvMemoryBackend(t *testing.T) {
	t.Setenv("DIRECTORY_BACKEND", "memory")
	t.Setenv("DIRECTORY_SNAPSHOT", fixture)
	t.Setenv("REDIS_ENABLE", "false")
	c, err := FromEnv(context.Background(), logger.Discard())
	require.NoError(t, err)
	defer c.Close()

	rec := do(c.Handler("/api"), http.MethodGet, "/api/v1/org/id?org_id=1&api_key=test-key", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Acme"`)
	assert.NotContains(t, rec.Body.String(), "phone_numbers")

	t.Setenv("DIRECTORY_PHONE_NUMBERS", "true")
	withPhones, err := FromEnv(context.Background(), logger.Discard())
	require.NoError(t, err)
	defer withPhones.Close()
	rec = do(withPhones.Handler("/api"), http.MethodGet, "/api/v1/org/id?org_id=1&api_key=test-key", nil)
	assert.Contains(t, rec.Body.String(), `"phone_numbers":["+380440000000","+380441111111"]`)

	t.Setenv("DIRECTORY_BACKEND", "mongo")
	_, err = FromEnv(context.Background(), logger.Discard())
	assert.ErrorContains(t, err, "unknown DIRECTORY_BACKEND")
}
