package device

import (
	"crypto/rand"
	"strings"
)

// userCodeCharset deliberately omits vowels and ambiguous glyphs so codes are
// easy to read aloud and cannot spell words.
const userCodeCharset = "BCDFGHJKLMNPQRSTVWXZ"

// NewUserCode returns a fresh code in XXXX-XXXX form.
func NewUserCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic("device: crypto/rand unavailable: " + err.Error())
	}
	out := make([]byte, 0, 9)
	for i, b := range buf {
		if i == 4 {
			out = append(out, '-')
		}
		out = append(out, userCodeCharset[int(b)%len(userCodeCharset)])
	}
	return string(out)
}

// NormalizeUserCode maps user input onto the canonical code form: uppercase,
// separators stripped, re-hyphenated.
func NormalizeUserCode(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))
	if len(cleaned) != 8 {
		return cleaned
	}
	return cleaned[:4] + "-" + cleaned[4:]
}
