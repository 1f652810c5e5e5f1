package base_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/detabase_sdk_go/pkg/base"
)

func TestResolveTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 250*int64(time.Millisecond))
	at := time.Unix(1_800_000_000, 900*int64(time.Millisecond))

	cases := []struct {
		name     string
		expireIn any
		expireAt any
		want     int64
	}{
		{"seconds int", 300, nil, 1_700_000_300},
		{"seconds float", 1.5, nil, 1_700_000_001},
		{"seconds json.Number", json.Number("60"), nil, 1_700_000_060},
		{"duration", 90 * time.Second, nil, 1_700_000_090},
		{"zero", 0, nil, 1_700_000_000},
		{"time", nil, at, 1_800_000_000},
		{"time pointer", nil, &at, 1_800_000_000},
		{"epoch int64", nil, int64(1_800_000_000), 1_800_000_000},
		{"epoch float floored", nil, 1_800_000_000.7, 1_800_000_000},
		{"epoch json.Number", nil, json.Number("1800000000"), 1_800_000_000},
		{"epoch int64 beyond float precision", nil, int64(1<<53 + 1), 1<<53 + 1},
		{"epoch uint64 max int64", nil, uint64(math.MaxInt64), math.MaxInt64},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ttl, ok, err := base.ResolveTTL(tc.expireIn, tc.expireAt, now)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tc.want, ttl)
		})
	}
}

func TestResolveTTLUnset(t *testing.T) {
	_, ok, err := base.ResolveTTL(nil, nil, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveTTLErrors(t *testing.T) {
	now := time.Now()

	_, _, err := base.ResolveTTL(10, time.Now(), now)
	assert.True(t, errors.Is(err, base.ErrConflictingOptions))

	var nilTime *time.Time
	for name, args := range map[string][2]any{
		"string expireIn": {"300", nil},
		"bool expireIn":   {true, nil},
		"nan expireIn":    {math.NaN(), nil},
		"string expireAt": {nil, "tomorrow"},
		"nil time ptr":    {nil, nilTime},
		"uint64 overflow": {nil, uint64(math.MaxInt64) + 1},
	} {
		_, _, err := base.ResolveTTL(args[0], args[1], now)
		assert.True(t, errors.Is(err, base.ErrInvalidOptionType), "%s: %v", name, err)
	}
}
