package slug

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	separator      = "-"
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Option configures Make.
type Option func(*config)

type config struct {
	maxLength    int
	suffixLength int
}

// MaxLength caps the slug length, suffix included. Zero means no limit.
func MaxLength(n int) Option {
	return func(c *config) { c.maxLength = n }
}

// WithSuffix appends a random lowercase alphanumeric suffix of length n.
func WithSuffix(n int) Option {
	return func(c *config) { c.suffixLength = n }
}

// undecomposed maps letters that NFD leaves intact.
var undecomposed = map[rune]string{
	'ł': "l", 'đ': "d", 'ø': "o", 'ß': "ss", 'æ': "ae", 'œ': "oe", 'þ': "th", 'ħ': "h", 'ı': "i",
}

// Make builds a slug from s. It returns "" when s holds no foldable letters or digits.
func Make(s string, opts ...Option) string {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	limit := cfg.maxLength
	if limit > 0 && cfg.suffixLength > 0 {
		limit -= cfg.suffixLength + len(separator)
		if limit < 0 {
			limit = 0
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	lastWasSep := true

	write := func(part string) bool {
		if cfg.maxLength > 0 && b.Len()+len(part) > limit {
			return false
		}
		b.WriteString(part)
		return true
	}

loop:
	for _, r := range strings.ToLower(fold(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if !write(string(r)) {
				break loop
			}
			lastWasSep = false
		case undecomposed[r] != "":
			if !write(undecomposed[r]) {
				break loop
			}
			lastWasSep = false
		case !lastWasSep:
			if !write(separator) {
				break loop
			}
			lastWasSep = true
		}
	}

	result := strings.TrimSuffix(b.String(), separator)
	if cfg.suffixLength <= 0 {
		return result
	}

	n := cfg.suffixLength
	if cfg.maxLength > 0 && n > cfg.maxLength {
		n = cfg.maxLength
	}
	if result == "" {
		return suffix(n)
	}
	return result + separator + suffix(n)
}

// fold strips combining marks after canonical decomposition.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func suffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("slug: crypto/rand failed: " + err.Error())
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}
