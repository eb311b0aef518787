package twinconfig

// Wire keys recognized inside the module namespace object.
const (
	KeyMaxLocalCacheSize            = "MaxLocalCacheSize"
	KeyMaxMessageSize               = "MaxMessageSize"
	KeyHighPriorityMessageFrequency = "HighPriorityMessageFrequency"
	KeyLowPriorityMessageFrequency  = "LowPriorityMessageFrequency"
	KeySnapshotFrequency            = "SnapshotFrequency"
	// KeyEventPriorities names the bundle entry owned by the Extension.
	KeyEventPriorities = "EventPriorities"

	// DesiredKey wraps the namespace object in a complete twin document.
	DesiredKey = "desired"

	// DefaultNamespace is the object name the agent reads and reports under.
	DefaultNamespace = "ms_iotn:urn_azureiot_Security_SecurityAgentConfiguration"
)

// Kind selects how a scalar key is decoded.
type Kind int

const (
	// KindUnsigned is a plain JSON integer in the uint32 range.
	KindUnsigned Kind = iota
	// KindDuration is an ISO 8601 duration string held as milliseconds.
	KindDuration
)

func (k Kind) String() string {
	switch k {
	case KindUnsigned:
		return "unsigned"
	case KindDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Mode selects the shape of an incoming document.
type Mode int

const (
	// ModePatch treats the top-level object as the desired section.
	ModePatch Mode = iota
	// ModeComplete expects a full twin and steps into "desired" first.
	ModeComplete
)

func (m Mode) String() string {
	if m == ModeComplete {
		return "complete"
	}
	return "patch"
}

// ParseMode maps "complete" to ModeComplete and anything else to ModePatch.
func ParseMode(s string) Mode {
	if s == "complete" {
		return ModeComplete
	}
	return ModePatch
}
