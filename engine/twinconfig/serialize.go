package twinconfig

import (
	"encoding/json"
	"fmt"

	"github.com/edge-sentinel/agent/pkg/isoduration"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SerializedConfiguration builds the reported document for the configuration
// in force, wrapped in the namespace object. Key order is stable.
func (s *Store) SerializedConfiguration() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	fields, err := reportedFields(s.current)
	if err != nil {
		return nil, err
	}
	if err := s.ext.Serialize(fields); err != nil {
		return nil, fmt.Errorf("%w: event priorities: %w", ErrSerialization, err)
	}
	root := orderedmap.New[string, any]()
	root.Set(s.namespace, fields)
	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

func reportedFields(snap Snapshot) (*orderedmap.OrderedMap[string, any], error) {
	fields := orderedmap.New[string, any]()
	fields.Set(KeyMaxLocalCacheSize, snap.MaxLocalCacheSize)
	fields.Set(KeyMaxMessageSize, snap.MaxMessageSize)
	durations := []struct {
		key string
		ms  uint32
	}{
		{KeyHighPriorityMessageFrequency, snap.HighPriorityMessageFrequency},
		{KeyLowPriorityMessageFrequency, snap.LowPriorityMessageFrequency},
		{KeySnapshotFrequency, snap.SnapshotFrequency},
	}
	for _, d := range durations {
		text, err := isoduration.FormatMilliseconds(d.ms)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSerialization, d.key, err)
		}
		fields.Set(d.key, text)
	}
	return fields, nil
}
