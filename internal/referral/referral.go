// Package referral generates and validates the 8-character public codes
// used to join or view an auction.
package referral

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// ValidityWindow is how long after the auction date a code keeps working.
const ValidityWindow = 48 * time.Hour

// NewCode returns a random 8-character [A-Z0-9] referral code from a
// cryptographically strong source. Uniqueness is enforced at the store; on
// a collision the caller regenerates.
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	code := make([]byte, codeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}

// IsWellFormed reports whether code has the expected shape.
func IsWellFormed(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// IsActive reports whether a code is still honored at now: codes stay valid
// until two days after the auction date.
func IsActive(auctionDate, now time.Time) bool {
	return !now.After(auctionDate.Add(ValidityWindow))
}

// ShareMessage renders the invite text for a code.
func ShareMessage(auctionName, code string) string {
	return fmt.Sprintf("Join my auction %q! Use referral code: %s", auctionName, code)
}

// DeepLink renders the app link for a code.
func DeepLink(code string) string {
	return fmt.Sprintf("gavel://auction/%s", code)
}
