package utils

import (
	"context"
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"parcel-api/internal/config"
	"parcel-api/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "certs", "server.crt")
	key := filepath.Join(dir, "certs", "server.key")

	require.NoError(t, EnsureSelfSignedCert(cert, key, "parcel-api.local"))
	_, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)

	before, err := os.ReadFile(cert)
	require.NoError(t, err)
	require.NoError(t, EnsureSelfSignedCert(cert, key, "parcel-api.local"))
	after, err := os.ReadFile(cert)
	require.NoError(t, err)
	assert.Equal(t, before, after, "existing pair is kept")
}

func TestOpenRedisFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rc := OpenRedisFromConfig(ctx, &config.Config{RedisEnabled: true, RedisAddr: mr.Addr()}, logger.Discard())
	require.NotNil(t, rc)
	t.Cleanup(func() { _ = rc.Close() })
	require.NoError(t, rc.Set(ctx, "k", "v", 0).Err())
	assert.Equal(t, "v", mustGet(t, mr, "k"))

	assert.Nil(t, OpenRedisFromConfig(ctx, &config.Config{RedisEnabled: false, RedisAddr: mr.Addr()}, logger.Discard()))
	assert.Nil(t, OpenRedis("", "", 0))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, k string) string {
	t.Helper()
	v, err := mr.Get(k)
	require.NoError(t, err)
	return v
}
