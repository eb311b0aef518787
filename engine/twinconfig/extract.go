package twinconfig

import (
	"strconv"

	"github.com/edge-sentinel/agent/pkg/isoduration"
	"github.com/tidwall/gjson"
)

// ExtractField decodes key from scope. Absent and null keys resolve to def
// with StatusOK. A value of the wrong kind, an unparsable duration or one that
// overflows uint32 milliseconds resolves to def with StatusTypeMismatch.
func ExtractField(scope gjson.Result, key string, def uint32, kind Kind) (uint32, FieldStatus) {
	v, ok := member(scope, key)
	if !ok || v.Type == gjson.Null {
		return def, StatusOK
	}
	switch kind {
	case KindUnsigned:
		if v.Type != gjson.Number {
			return def, StatusTypeMismatch
		}
		n, err := strconv.ParseUint(v.Raw, 10, 32)
		if err != nil {
			return def, StatusTypeMismatch
		}
		return uint32(n), StatusOK
	case KindDuration:
		if v.Type != gjson.String {
			return def, StatusTypeMismatch
		}
		ms, err := isoduration.ParseMilliseconds(v.Str)
		if err != nil {
			return def, StatusTypeMismatch
		}
		return ms, StatusOK
	default:
		return def, StatusTypeMismatch
	}
}

// member finds key among the direct children of an object without going
// through gjson path syntax, so keys containing ':' or '.' match literally.
// The last duplicate wins.
func member(scope gjson.Result, key string) (gjson.Result, bool) {
	if !scope.IsObject() {
		return gjson.Result{}, false
	}
	var (
		found gjson.Result
		ok    bool
	)
	scope.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			found, ok = v, true
		}
		return true
	})
	return found, ok
}

// extractSnapshot runs ExtractField for every scalar key, continuing past
// mismatches so the bundle is complete.
func extractSnapshot(scope gjson.Result, defaults Snapshot) (Snapshot, BundleStatus) {
	var (
		s Snapshot
		b BundleStatus
	)
	s.MaxLocalCacheSize, b.MaxLocalCacheSize = ExtractField(scope, KeyMaxLocalCacheSize, defaults.MaxLocalCacheSize, KindUnsigned)
	s.MaxMessageSize, b.MaxMessageSize = ExtractField(scope, KeyMaxMessageSize, defaults.MaxMessageSize, KindUnsigned)
	s.HighPriorityMessageFrequency, b.HighPriorityMessageFrequency = ExtractField(
		scope, KeyHighPriorityMessageFrequency, defaults.HighPriorityMessageFrequency, KindDuration,
	)
	s.LowPriorityMessageFrequency, b.LowPriorityMessageFrequency = ExtractField(
		scope, KeyLowPriorityMessageFrequency, defaults.LowPriorityMessageFrequency, KindDuration,
	)
	s.SnapshotFrequency, b.SnapshotFrequency = ExtractField(
		scope, KeySnapshotFrequency, defaults.SnapshotFrequency, KindDuration,
	)
	return s, b
}

func scalarsAccepted(b BundleStatus) bool {
	return b.MaxLocalCacheSize != StatusTypeMismatch &&
		b.MaxMessageSize != StatusTypeMismatch &&
		b.HighPriorityMessageFrequency != StatusTypeMismatch &&
		b.LowPriorityMessageFrequency != StatusTypeMismatch &&
		b.SnapshotFrequency != StatusTypeMismatch
}
