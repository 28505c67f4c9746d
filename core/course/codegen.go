package course

import (
	"crypto/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/workill/worknote/core"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I).
// Its length is a power of two so masking random bytes stays unbiased.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	shortCodeLen = 6
	longCodeLen  = 8

	// maxShortAttempts short draws, then one final long draw.
	maxShortAttempts = 5
)

var codeRandFunc = randomCode // mockable

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// NormalizeCode prepares a human-entered share code for lookup:
// codes are case-insensitive and stored upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}
