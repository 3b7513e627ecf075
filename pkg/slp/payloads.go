package slp

import "encoding/binary"

// Event codes
const (
	EventMessageSplitter       byte = 0x10
	EventPayloadSizes          byte = 0x35
	EventGameStart             byte = 0x36
	EventPreFrame              byte = 0x37
	EventPostFrame             byte = 0x38
	EventGameEnd               byte = 0x39
	EventFrameStart            byte = 0x3A
	EventItemUpdate            byte = 0x3B
	EventFrameBookend          byte = 0x3C
	EventGeckoList             byte = 0x3D
	EventFountainPlatform      byte = 0x3F
	EventWhispyBlow            byte = 0x40
	EventStadiumTransformation byte = 0x41
)

// PayloadSizes maps event codes to their payload length (excluding the code byte).
// It is a value type; a copy can never be changed by the decoder that produced it.
type PayloadSizes struct {
	size  [256]uint16
	known [256]bool
}

// Size returns the cataloged payload length for code
func (p PayloadSizes) Size(code byte) (int, bool) {
	return int(p.size[code]), p.known[code]
}

// Codes returns every cataloged event code in ascending order
func (p PayloadSizes) Codes() []byte {
	var codes []byte
	for c := 0; c < 256; c++ {
		if p.known[c] {
			codes = append(codes, byte(c))
		}
	}
	return codes
}

// ParsePayloadSizes reads the Event Payloads record at the head of the stream.
// It returns the catalog and the number of bytes the record occupies.
func ParsePayloadSizes(stream []byte) (PayloadSizes, int, error) {
	var p PayloadSizes
	if len(stream) == 0 {
		return p, 0, newDecodeError(KindMissingCatalog, 0, 0, "event stream is empty")
	}
	if stream[0] != EventPayloadSizes {
		return p, 0, newDecodeError(KindMissingCatalog, 0, stream[0], "stream must start with the payload size table")
	}
	if len(stream) < 2 {
		return p, 0, newDecodeError(KindMissingCatalog, 0, EventPayloadSizes, "payload size table has no length")
	}

	size := int(stream[1])
	if size < 1 || (size-1)%3 != 0 {
		return p, 0, newDecodeError(KindMissingCatalog, 1, EventPayloadSizes, "payload size table length %d is not 1+3n", size)
	}
	end := 1 + size
	if end > len(stream) {
		return p, 0, newDecodeError(KindMissingCatalog, 1, EventPayloadSizes,
			"payload size table needs %d bytes, stream has %d", end, len(stream))
	}

	p.size[EventPayloadSizes] = uint16(size)
	p.known[EventPayloadSizes] = true
	for pos := 2; pos+3 <= end; pos += 3 {
		code := stream[pos]
		p.size[code] = binary.BigEndian.Uint16(stream[pos+1:])
		p.known[code] = true
	}

	return p, end, nil
}
