package wire

// Kind identifies the schema of a request or report payload.
type Kind uint16

const (
	// KindDiscover asks the lookup service for the SUIDs that support a
	// data type. Addressed to LookupSUID.
	KindDiscover Kind = 1

	// KindDiscoverResult reports the SUIDs found for a data type.
	// Reported by LookupSUID.
	KindDiscoverResult Kind = 2

	// KindAttrQuery asks a sensor for its attributes.
	KindAttrQuery Kind = 3

	// KindAttrResult reports a sensor's attributes.
	KindAttrResult Kind = 4

	// KindConfig sets a sensor's operating point (enable, rate, batching).
	// Fire-and-forget: acknowledged at the transport level only.
	KindConfig Kind = 5

	// KindConfigEvent reports the operating point a sensor actually
	// applied. Never consumed by the synchronous path.
	KindConfigEvent Kind = 6

	// KindSample reports one sensor sample.
	KindSample Kind = 7

	// KindBias reports a calibration bias estimate.
	KindBias Kind = 8
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDiscover:
		return "DISCOVER"
	case KindDiscoverResult:
		return "DISCOVER_RESULT"
	case KindAttrQuery:
		return "ATTR_QUERY"
	case KindAttrResult:
		return "ATTR_RESULT"
	case KindConfig:
		return "CONFIG"
	case KindConfigEvent:
		return "CONFIG_EVENT"
	case KindSample:
		return "SAMPLE"
	case KindBias:
		return "BIAS"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the kind is defined by this protocol version.
func (k Kind) IsValid() bool {
	return k >= KindDiscover && k <= KindBias
}
