// 包 auth：API 密钥校验（密钥只以 sha256 摘要形式落库）
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"geo-directory/internal/store"
)

// ErrMissingCredential 请求未携带密钥
var ErrMissingCredential = errors.New("api key not provided")

// HashKey：密钥明文的 sha256 十六进制摘要，与 api_key 表中的值比较
func HashKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

type Verifier struct {
	backend store.Backend
}

func NewVerifier(b store.Backend) *Verifier {
	return &Verifier{backend: b}
}

// Verify：返回密钥所属用户；未登记的密钥返回 nil, nil
// 约束：空密钥直接返回 ErrMissingCredential，不访问存储；存储失败原样返回
func (v *Verifier) Verify(ctx context.Context, secret string) (*store.User, error) {
	if secret == "" {
		return nil, ErrMissingCredential
	}
	hash := HashKey(secret)
	return store.Query(ctx, v.backend, store.IsolationDefault, func(ctx context.Context, r store.Reader) (*store.User, error) {
		return r.UserByKeyHash(ctx, hash)
	})
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom：取出中间件注入的用户，未经认证的请求返回 nil
func UserFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(ctxKey{}).(*store.User)
	return u
}
