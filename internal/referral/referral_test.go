package referral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.True(t, IsWellFormed(code), "generated code %q is malformed", code)
		seen[code] = true
	}
	// 100 draws from a 36^8 space should not collide
	assert.Len(t, seen, 100)
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABCD1234", true},
		{"ZZZZZZZZ", true},
		{"00000000", true},
		{"abcd1234", false}, // lowercase
		{"ABC 1234", false}, // space
		{"ABCD123", false},  // too short
		{"ABCD12345", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsWellFormed(tt.code), "code %q", tt.code)
	}
}

func TestIsActive(t *testing.T) {
	auctionDate := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before the auction", auctionDate.Add(-30 * 24 * time.Hour), true},
		{"during the auction", auctionDate, true},
		{"one day after", auctionDate.Add(24 * time.Hour), true},
		{"exactly two days after", auctionDate.Add(48 * time.Hour), true},
		{"past the window", auctionDate.Add(48*time.Hour + time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActive(auctionDate, tt.now))
		})
	}
}

func TestShareMessageCarriesCode(t *testing.T) {
	msg := ShareMessage("Premier League", "ABCD1234")
	assert.Contains(t, msg, "Premier League")
	assert.Contains(t, msg, "ABCD1234")
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "gavel://auction/ABCD1234", DeepLink("ABCD1234"))
}
