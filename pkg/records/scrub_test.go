package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubRecord(t *testing.T) {
	in := map[string]any{
		"phone":      "9876543210",
		"name":       "Rahul Sharma",
		"id":         "abc",
		"user_id":    "u-1",
		"_internal":  "x",
		"created_at": "2024-01-01T10:00:00Z",
		"uuid":       "whatever",
		"session":    "550e8400-e29b-41d4-a716-446655440000",
		"score":      float64(-3),
		"ratio":      float64(0.25),
		"bignum":     float64(123456789012345),
		"count":      float64(7),
		"card":       "123456789012345678",
		"exp":        "1.23e+10",
	}

	out := ScrubRecord(in)

	assert.Equal(t, map[string]any{
		"phone": "9876543210",
		"name":  "Rahul Sharma",
		"count": float64(7),
	}, out)

	// input untouched
	assert.Contains(t, in, "id")
}

func TestScrubRecord_KeepsPlausibleIdentifiers(t *testing.T) {
	out := ScrubRecord(map[string]any{
		"phone_num": float64(9876543210),
		"account":   "34567890123456",
	})
	assert.Len(t, out, 2)
}
