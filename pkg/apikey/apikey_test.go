package apikey_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/apikey"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	key, err := apikey.Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key.Plain, apikey.KeyPrefix))
	assert.True(t, strings.HasPrefix(key.Plain, key.Prefix+"_"))
	assert.Len(t, key.Hash, 32)
	assert.Equal(t, apikey.Hash(key.Plain), key.Hash)

	prefix, err := apikey.Prefix(key.Plain)
	require.NoError(t, err)
	assert.Equal(t, key.Prefix, prefix)

	_, secret, ok := strings.Cut(strings.TrimPrefix(key.Plain, key.Prefix), "_")
	require.True(t, ok)
	assert.Len(t, secret, 43, "32 secret bytes, unpadded base64url")

	other, err := apikey.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, key.Plain, other.Plain)
	assert.NotEqual(t, key.Hash, other.Hash)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	key, err := apikey.Generate()
	require.NoError(t, err)

	assert.True(t, apikey.Verify(key.Plain, key.Hash))
	assert.False(t, apikey.Verify(key.Plain+"x", key.Hash))
	assert.False(t, apikey.Verify(key.Plain, nil))
}

func TestPrefix_Malformed(t *testing.T) {
	t.Parallel()

	for _, plain := range []string{"", "sk_abc", "tk_", "tk_short_secret", "tk_0123456789"} {
		_, err := apikey.Prefix(plain)
		assert.ErrorIs(t, err, apikey.ErrMalformedKey, plain)
	}
}
