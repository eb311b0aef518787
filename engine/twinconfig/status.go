package twinconfig

import (
	"encoding/json"
	"fmt"
)

// FieldStatus records whether one field of an update attempt was accepted.
type FieldStatus int

const (
	// StatusNotEvaluated marks a field no attempt has validated yet.
	StatusNotEvaluated FieldStatus = iota
	StatusOK
	StatusTypeMismatch
)

func (s FieldStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTypeMismatch:
		return "type_mismatch"
	default:
		return "not_evaluated"
	}
}

func (s FieldStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FieldStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ok":
		*s = StatusOK
	case "type_mismatch":
		*s = StatusTypeMismatch
	case "not_evaluated":
		*s = StatusNotEvaluated
	default:
		return fmt.Errorf("unknown field status %q", text)
	}
	return nil
}

// BundleStatus holds one FieldStatus per recognized field for a single attempt.
type BundleStatus struct {
	MaxLocalCacheSize            FieldStatus `json:"MaxLocalCacheSize"`
	MaxMessageSize               FieldStatus `json:"MaxMessageSize"`
	HighPriorityMessageFrequency FieldStatus `json:"HighPriorityMessageFrequency"`
	LowPriorityMessageFrequency  FieldStatus `json:"LowPriorityMessageFrequency"`
	SnapshotFrequency            FieldStatus `json:"SnapshotFrequency"`
	EventPriorities              FieldStatus `json:"EventPriorities"`
}

// Rejected returns the wire keys whose status is StatusTypeMismatch.
func (b BundleStatus) Rejected() []string {
	var keys []string
	for _, f := range b.Fields() {
		if f.Status == StatusTypeMismatch {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Map returns the statuses keyed by wire name.
func (b BundleStatus) Map() map[string]FieldStatus {
	out := make(map[string]FieldStatus, 6)
	for _, f := range b.Fields() {
		out[f.Key] = f.Status
	}
	return out
}

// String renders the bundle as compact JSON for logs and storage.
func (b BundleStatus) String() string {
	data, err := json.Marshal(b)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// KeyedStatus pairs a wire key with its status.
type KeyedStatus struct {
	Key    string
	Status FieldStatus
}

// Fields returns the statuses in wire order.
func (b BundleStatus) Fields() []KeyedStatus {
	return []KeyedStatus{
		{KeyMaxLocalCacheSize, b.MaxLocalCacheSize},
		{KeyMaxMessageSize, b.MaxMessageSize},
		{KeyHighPriorityMessageFrequency, b.HighPriorityMessageFrequency},
		{KeyLowPriorityMessageFrequency, b.LowPriorityMessageFrequency},
		{KeySnapshotFrequency, b.SnapshotFrequency},
		{KeyEventPriorities, b.EventPriorities},
	}
}
