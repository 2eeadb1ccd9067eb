package auth

import (
	"context"
	"errors"
	"testing"

	"geo-directory/internal/directory/memstore"
	"geo-directory/internal/logger"
	"geo-directory/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureVerifier(t *testing.T) *Verifier {
	t.Helper()
	ms, err := memstore.Load("../directory/memstore/testdata/snapshot.json")
	require.NoError(t, err)
	ms.SetLogger(logger.Discard())
	return NewVerifier(ms)
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, "62af8704764faf8ea82fc61ce9c4c3908b6cb97d463a634e9e587d7c885db0ef", HashKey("test-key"))
}

func TestVerify(t *testing.T) {
	v := fixtureVerifier(t)
	ctx := context.Background()

	u, err := v.Verify(ctx, "test-key")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.ID)

	u, err = v.Verify(ctx, "unregistered")
	assert.NoError(t, err)
	assert.Nil(t, u)

	_, err = v.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

type brokenBackend struct{ err error }

func (b brokenBackend) Read(context.Context, store.Isolation, func(context.Context, store.Reader) error) error {
	return b.err
}

func TestVerifyPropagatesStorageFailure(t *testing.T) {
	cause := errors.New("pool exhausted")
	u, err := NewVerifier(brokenBackend{err: cause}).Verify(context.Background(), "test-key")
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, u)
}

func TestUserContext(t *testing.T) {
	assert.Nil(t, UserFrom(context.Background()))
	ctx := WithUser(context.Background(), &store.User{ID: 7})
	assert.Equal(t, int64(7), UserFrom(ctx).ID)
}
