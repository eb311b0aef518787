package twinconfig

import "github.com/edge-sentinel/agent/pkg/isoduration"

// Compiled defaults applied for absent, null or rejected fields.
const (
	DefaultMaxLocalCacheSize            uint32 = 2560000
	DefaultMaxMessageSize               uint32 = 204800
	DefaultHighPriorityMessageFrequency        = uint32(7 * isoduration.Minute)
	DefaultLowPriorityMessageFrequency         = uint32(5 * isoduration.Hour)
	DefaultSnapshotFrequency                   = uint32(13 * isoduration.Hour)
)

// Snapshot is the set of scalar settings in force. Sizes are bytes and
// frequencies are milliseconds.
type Snapshot struct {
	MaxLocalCacheSize            uint32 `json:"max_local_cache_size"`
	MaxMessageSize               uint32 `json:"max_message_size"`
	HighPriorityMessageFrequency uint32 `json:"high_priority_message_frequency_ms"`
	LowPriorityMessageFrequency  uint32 `json:"low_priority_message_frequency_ms"`
	SnapshotFrequency            uint32 `json:"snapshot_frequency_ms"`
}

// DefaultSnapshot returns the compiled defaults.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		MaxLocalCacheSize:            DefaultMaxLocalCacheSize,
		MaxMessageSize:               DefaultMaxMessageSize,
		HighPriorityMessageFrequency: DefaultHighPriorityMessageFrequency,
		LowPriorityMessageFrequency:  DefaultLowPriorityMessageFrequency,
		SnapshotFrequency:            DefaultSnapshotFrequency,
	}
}
