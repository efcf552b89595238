package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	assert.Len(t, key, len(KeyPrefix)+32)
	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	assert.True(t, ValidFormat(key))

	other, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestValidFormat(t *testing.T) {
	cases := []struct {
		key string
		ok  bool
	}{
		{"rim_abcDEF123456", true},
		{"rim_" + strings.Repeat("a", 32), true},
		{"", false},
		{"rim_short", false},
		{"sk_abcDEF1234567890", false},
		{"rim_abcDEF12345!", false},
		{"rim_abc DEF12345", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, ValidFormat(tc.key), tc.key)
	}
}

func TestPrefix(t *testing.T) {
	key := "rim_abcdefgh12345678"
	assert.Equal(t, "rim_abcdefgh", Prefix(key))
	assert.Len(t, Prefix(key), PrefixLength)

	assert.Equal(t, "short", Prefix("short"))
}

func TestDigest(t *testing.T) {
	d := Digest("rim_abcdefgh12345678")
	assert.Len(t, d, 64, "hex sha-256")
	assert.Equal(t, d, Digest("rim_abcdefgh12345678"), "stable")
	assert.NotEqual(t, d, Digest("rim_abcdefgh12345679"))
}

func TestDigestEqual(t *testing.T) {
	a := Digest("rim_abcdefgh12345678")
	assert.True(t, DigestEqual(a, a))
	assert.False(t, DigestEqual(a, Digest("other")))
	assert.False(t, DigestEqual(a, ""))
}
