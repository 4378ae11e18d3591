package notify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPhone means the guardian phone number cannot be normalized to a
// deliverable Somali mobile number; dispatch is never attempted.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts a guardian phone number into the 9-digit local
// form the SMS gateway expects (61XXXXXXX):
//
//  1. strip every non-digit character
//  2. drop a leading country code 252
//  3. drop one leading 0
//  4. if the rest does not start with 61, keep the last 7 digits and
//     prepend 61; fewer than 7 digits is an error
//  5. truncate to 9 digits; anything other than exactly 9 is an error
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n := b.String()

	n = strings.TrimPrefix(n, "252")
	n = strings.TrimPrefix(n, "0")

	if !strings.HasPrefix(n, "61") {
		if len(n) < 7 {
			return "", fmt.Errorf("%w: %d digits after normalization", ErrInvalidPhone, len(n))
		}
		n = "61" + n[len(n)-7:]
	}

	if len(n) > 9 {
		n = n[:9]
	}
	if len(n) != 9 {
		return "", fmt.Errorf("%w: expected 9 digits, got %d", ErrInvalidPhone, len(n))
	}
	return n, nil
}
