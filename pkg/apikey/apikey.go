package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// KeyPrefix marks tenant API keys so they can be recognised in logs and secret scanners.
const KeyPrefix = "tk_"

const (
	lookupLen = 8
	secretLen = 32
)

// lookupBytes are hex encoded into the lookup part.
const lookupBytes = lookupLen / 2

var (
	ErrMalformedKey = errors.New("apikey: malformed key")
	ErrRandom       = errors.New("apikey: failed to read random bytes")
)

// Key is a freshly generated API key. Plain is shown to the caller exactly once;
// only Prefix and Hash are stored.
type Key struct {
	Plain  string
	Prefix string
	Hash   []byte
}

// Generate creates a new key of the form tk_<lookup>_<secret>.
func Generate() (Key, error) {
	buf := make([]byte, lookupBytes+secretLen)
	if _, err := rand.Read(buf); err != nil {
		return Key{}, errors.Join(ErrRandom, err)
	}

	lookup := hex.EncodeToString(buf[:lookupBytes])
	plain := KeyPrefix + lookup + "_" + base64.RawURLEncoding.EncodeToString(buf[lookupBytes:])

	return Key{
		Plain:  plain,
		Prefix: KeyPrefix + lookup,
		Hash:   Hash(plain),
	}, nil
}

// Hash returns the BLAKE2b-256 digest stored in place of the key.
func Hash(plain string) []byte {
	sum := blake2b.Sum256([]byte(plain))
	return sum[:]
}

// Prefix returns the non-secret display prefix of a key.
func Prefix(plain string) (string, error) {
	if !strings.HasPrefix(plain, KeyPrefix) {
		return "", ErrMalformedKey
	}
	rest := strings.TrimPrefix(plain, KeyPrefix)
	lookup, secret, ok := strings.Cut(rest, "_")
	if !ok || len(lookup) != lookupLen || secret == "" {
		return "", ErrMalformedKey
	}
	return KeyPrefix + lookup, nil
}

// Verify reports whether plain hashes to hash in constant time.
func Verify(plain string, hash []byte) bool {
	return subtle.ConstantTimeCompare(Hash(plain), hash) == 1
}
