package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"geo-directory/internal/auth"
	"geo-directory/internal/logger"
	"geo-directory/internal/metrics"
)

// 文档注释：API 密钥认证
// 背景：密钥取自查询参数 api_key，其次为请求头 X-API-Key；通过后把用户写入请求上下文。
// 约束：缺失与错误的密钥均返回 401，存储故障返回 500，二者不可混淆。
func RequireAPIKey(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.URL.Query().Get("api_key")
			if secret == "" {
				secret = r.Header.Get("X-API-Key")
			}
			u, err := v.Verify(r.Context(), secret)
			switch {
			case errors.Is(err, auth.ErrMissingCredential):
				metrics.AuthFailuresTotal.WithLabelValues("missing").Inc()
				writeDetail(w, http.StatusUnauthorized, "Api key not provided.")
				return
			case err != nil:
				logger.L().Error("auth_lookup_error", "err", err)
				writeDetail(w, http.StatusInternalServerError, "Internal server error.")
				return
			case u == nil:
				metrics.AuthFailuresTotal.WithLabelValues("wrong").Inc()
				writeDetail(w, http.StatusUnauthorized, "Wrong api key.")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
