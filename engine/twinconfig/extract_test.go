package twinconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestExtractField(t *testing.T) {
	scope := gjson.Parse(`{
		"size": 2048,
		"zero": 0,
		"nullable": null,
		"negative": -1,
		"fraction": 1.5,
		"exponent": 1e3,
		"huge": 4294967296,
		"max": 4294967295,
		"text": "oops",
		"flag": true,
		"nested": {"a": 1},
		"period": "PT7M",
		"badPeriod": "7 minutes",
		"longPeriod": "P1Y",
		"numberPeriod": 420000
	}`)

	t.Run("Should return default with OK for absent or null keys", func(t *testing.T) {
		v, st := ExtractField(scope, "missing", 42, KindUnsigned)
		assert.Equal(t, uint32(42), v)
		assert.Equal(t, StatusOK, st)
		v, st = ExtractField(scope, "nullable", 42, KindDuration)
		assert.Equal(t, uint32(42), v)
		assert.Equal(t, StatusOK, st)
	})

	t.Run("Should decode unsigned integers", func(t *testing.T) {
		v, st := ExtractField(scope, "size", 1, KindUnsigned)
		assert.Equal(t, uint32(2048), v)
		assert.Equal(t, StatusOK, st)
		v, st = ExtractField(scope, "zero", 1, KindUnsigned)
		assert.Equal(t, uint32(0), v)
		assert.Equal(t, StatusOK, st)
		v, st = ExtractField(scope, "max", 1, KindUnsigned)
		assert.Equal(t, uint32(4294967295), v)
		assert.Equal(t, StatusOK, st)
	})

	t.Run("Should reject values of the wrong kind", func(t *testing.T) {
		for _, key := range []string{"negative", "fraction", "exponent", "huge", "text", "flag", "nested"} {
			v, st := ExtractField(scope, key, 7, KindUnsigned)
			assert.Equal(t, uint32(7), v, key)
			assert.Equal(t, StatusTypeMismatch, st, key)
		}
	})

	t.Run("Should decode durations as milliseconds", func(t *testing.T) {
		v, st := ExtractField(scope, "period", 1, KindDuration)
		assert.Equal(t, uint32(420000), v)
		assert.Equal(t, StatusOK, st)
	})

	t.Run("Should reject unparsable or overflowing durations", func(t *testing.T) {
		for _, key := range []string{"badPeriod", "longPeriod", "numberPeriod", "nested"} {
			v, st := ExtractField(scope, key, 9, KindDuration)
			assert.Equal(t, uint32(9), v, key)
			assert.Equal(t, StatusTypeMismatch, st, key)
		}
	})

	t.Run("Should match keys literally", func(t *testing.T) {
		doc := gjson.Parse(`{"a.b": 5, "a": {"b": 6}, "x:y": 7}`)
		v, st := ExtractField(doc, "a.b", 0, KindUnsigned)
		assert.Equal(t, uint32(5), v)
		assert.Equal(t, StatusOK, st)
		v, _ = ExtractField(doc, "x:y", 0, KindUnsigned)
		assert.Equal(t, uint32(7), v)
	})

	t.Run("Should treat a non-object scope as empty", func(t *testing.T) {
		v, st := ExtractField(gjson.Parse(`[1,2]`), "size", 3, KindUnsigned)
		assert.Equal(t, uint32(3), v)
		assert.Equal(t, StatusOK, st)
	})
}

func TestBundleStatus(t *testing.T) {
	t.Run("Should list rejected keys in wire order", func(t *testing.T) {
		b := BundleStatus{
			MaxLocalCacheSize: StatusOK,
			MaxMessageSize:    StatusTypeMismatch,
			SnapshotFrequency: StatusTypeMismatch,
		}
		assert.Equal(t, []string{KeyMaxMessageSize, KeySnapshotFrequency}, b.Rejected())
		assert.Equal(t, StatusNotEvaluated, b.Map()[KeyEventPriorities])
	})

	t.Run("Should render statuses by name", func(t *testing.T) {
		b := BundleStatus{MaxMessageSize: StatusTypeMismatch}
		assert.Contains(t, b.String(), `"MaxMessageSize":"type_mismatch"`)
		assert.Contains(t, b.String(), `"MaxLocalCacheSize":"not_evaluated"`)
	})
	t.Run("Should decode statuses and results by name", func(t *testing.T) {
		var b BundleStatus
		require.NoError(t, json.Unmarshal([]byte(`{"MaxMessageSize":"type_mismatch","EventPriorities":"ok"}`), &b))
		assert.Equal(t, StatusTypeMismatch, b.MaxMessageSize)
		assert.Equal(t, StatusOK, b.EventPriorities)
		assert.Equal(t, StatusNotEvaluated, b.SnapshotFrequency)
		assert.Error(t, json.Unmarshal([]byte(`{"MaxMessageSize":"maybe"}`), &b))

		r, err := ParseResult("parse_exception")
		require.NoError(t, err)
		assert.Equal(t, ResultParseException, r)
		_, err = ParseResult("bogus")
		assert.Error(t, err)
	})
}
