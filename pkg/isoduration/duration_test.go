package isoduration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseMilliseconds(t *testing.T) {
	t.Run("Should parse single components", func(t *testing.T) {
		cases := map[string]uint32{
			"PT7M":   420000,
			"PT5H":   18000000,
			"PT13H":  46800000,
			"PT1S":   1000,
			"P1D":    86400000,
			"P1W":    604800000,
			"P1M":    2592000000,
			"PT0S":   0,
			"P0D":    0,
			"PT0.5S": 500,
		}
		for in, want := range cases {
			got, err := ParseMilliseconds(in)
			require.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}
	})

	t.Run("Should combine date and time components", func(t *testing.T) {
		got, err := ParseMilliseconds("P1DT2H3M4.005S")
		require.NoError(t, err)
		assert.Equal(t, uint32(86400000+2*3600000+3*60000+4005), got)
	})

	t.Run("Should truncate fractions beyond milliseconds", func(t *testing.T) {
		got, err := ParseMilliseconds("PT1.23456S")
		require.NoError(t, err)
		assert.Equal(t, uint32(1234), got)
	})

	t.Run("Should accept comma as decimal separator", func(t *testing.T) {
		got, err := ParseMilliseconds("PT2,5S")
		require.NoError(t, err)
		assert.Equal(t, uint32(2500), got)
	})

	t.Run("Should reject malformed strings", func(t *testing.T) {
		for _, in := range []string{"", "P", "PT", "7M", "pt7m", "PT7", "PT7X", "P1H", "PTM", "PT1M1H", "P1DT", "PT1.S", "P1.5D", "PT1.5M", "PT7M ", "P1D1D"} {
			_, err := ParseMilliseconds(in)
			assert.ErrorIs(t, err, ErrInvalid, in)
		}
	})

	t.Run("Should report overflow past uint32 milliseconds", func(t *testing.T) {
		for _, in := range []string{"P1Y", "P2M", "P50D", "PT4294968S", "P49DT17H2M48S", "PT99999999999999999999S"} {
			_, err := ParseMilliseconds(in)
			assert.ErrorIs(t, err, ErrOverflow, in)
		}
	})

	t.Run("Should accept the largest representable value", func(t *testing.T) {
		got, err := ParseMilliseconds("P49DT17H2M47.295S")
		require.NoError(t, err)
		assert.Equal(t, uint32(math.MaxUint32), got)
	})
}

func TestFormatMilliseconds(t *testing.T) {
	t.Run("Should select units deterministically", func(t *testing.T) {
		cases := map[uint32]string{
			0:        "PT0S",
			1:        "PT0.001S",
			1000:     "PT1S",
			420000:   "PT7M",
			18000000: "PT5H",
			46800000: "PT13H",
			86400000: "P1D",
			90061001: "P1DT1H1M1.001S",
		}
		for in, want := range cases {
			got, err := FormatMilliseconds(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("Should stay within the maximum length", func(t *testing.T) {
		got, err := FormatMilliseconds(math.MaxUint32)
		require.NoError(t, err)
		assert.Equal(t, "P49DT17H2M47.295S", got)
		assert.LessOrEqual(t, len(got), MaxLength)
	})
}

func TestRoundTrip(t *testing.T) {
	t.Run("Should reproduce any millisecond count", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			ms := rapid.Uint32().Draw(rt, "ms")
			s, err := FormatMilliseconds(ms)
			if err != nil {
				rt.Fatalf("format %d: %v", ms, err)
			}
			if len(s) > MaxLength {
				rt.Fatalf("format %d produced %q longer than %d", ms, s, MaxLength)
			}
			back, err := ParseMilliseconds(s)
			if err != nil {
				rt.Fatalf("parse %q: %v", s, err)
			}
			if back != ms {
				rt.Fatalf("round trip %d -> %q -> %d", ms, s, back)
			}
		})
	})
}
