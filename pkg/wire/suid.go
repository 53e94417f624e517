package wire

import (
	"encoding/binary"
	"fmt"
)

// SUIDSize is the encoded size of a sensor unique identifier in bytes.
const SUIDSize = 16

// SUID is the opaque 128-bit identifier of a physical sensor or driver
// exposed by the hub. SUIDs are assigned by the hub, obtained through
// discovery, and compared by value.
type SUID struct {
	Low  uint64
	High uint64
}

// LookupSUID is the well-known identifier of the hub's lookup service.
// Discovery requests are addressed to it, and discovery results report it.
var LookupSUID = SUID{Low: 0xACACACACACACACAC, High: 0xACACACACACACACAC}

// IsZero returns true if the SUID is the zero value.
func (s SUID) IsZero() bool {
	return s == SUID{}
}

// String returns the SUID as two 64-bit hex words, high word first.
func (s SUID) String() string {
	return fmt.Sprintf("%016x-%016x", s.High, s.Low)
}

// Bytes returns the 16-byte big-endian encoding, high word first.
func (s SUID) Bytes() []byte {
	b := make([]byte, SUIDSize)
	binary.BigEndian.PutUint64(b[:8], s.High)
	binary.BigEndian.PutUint64(b[8:], s.Low)
	return b
}

// ParseSUID parses the String form: two 64-bit hex words separated by
// a dash, high word first.
func ParseSUID(s string) (SUID, error) {
	var high, low uint64
	if _, err := fmt.Sscanf(s, "%16x-%16x", &high, &low); err != nil {
		return SUID{}, fmt.Errorf("invalid SUID %q: %w", s, err)
	}
	return SUID{High: high, Low: low}, nil
}

// SUIDFromBytes decodes a SUID from its 16-byte encoding.
func SUIDFromBytes(b []byte) (SUID, error) {
	if len(b) != SUIDSize {
		return SUID{}, fmt.Errorf("invalid SUID length: %d", len(b))
	}
	return SUID{
		High: binary.BigEndian.Uint64(b[:8]),
		Low:  binary.BigEndian.Uint64(b[8:]),
	}, nil
}
