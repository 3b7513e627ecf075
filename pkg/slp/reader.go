package slp

import (
	"encoding/binary"
	"math"
)

// payloadReader reads big-endian fields from one event record. The slice
// includes the command byte so offsets match the published event layouts.
// The first failed read is kept in err and later reads return zero values.
type payloadReader struct {
	b      []byte
	offset int
	pol    *Policy
	err    *DecodeError
}

func newPayloadReader(rec record, pol *Policy) *payloadReader {
	return &payloadReader{b: rec.payload, offset: rec.offset, pol: pol}
}

func (r *payloadReader) code() byte {
	return r.b[0]
}

func (r *payloadReader) fail(err *DecodeError) {
	if r.err != nil {
		return
	}
	if err.Offset < 0 {
		err.Offset = r.offset
	}
	if err.Code == 0 {
		err.Code = r.code()
	}
	r.err = err
}

// has checks that n bytes at offset at lie inside the cataloged payload
func (r *payloadReader) has(at, n int) bool {
	if r.err != nil {
		return false
	}
	if at+n > len(r.b) {
		var v Version
		if r.pol != nil {
			v = r.pol.Version()
		}
		r.fail(newDecodeError(KindVersionPolicyViolation, r.offset, r.code(),
			"field at 0x%x needs %d bytes, payload is %d bytes long for version %s",
			at, n, len(r.b)-1, v))
		return false
	}
	return true
}

// present resolves a gated field through the policy
func (r *payloadReader) present(f Field) bool {
	if r.err != nil {
		return false
	}
	if err := r.pol.Check(f); err != nil {
		r.fail(err.(*DecodeError))
		return false
	}
	return r.pol.Present(f)
}

func (r *payloadReader) u8(at int) uint8 {
	if !r.has(at, 1) {
		return 0
	}
	return r.b[at]
}

func (r *payloadReader) s8(at int) int8 {
	return int8(r.u8(at))
}

func (r *payloadReader) bool(at int) bool {
	return r.u8(at) != 0
}

func (r *payloadReader) u16(at int) uint16 {
	if !r.has(at, 2) {
		return 0
	}
	return binary.BigEndian.Uint16(r.b[at:])
}

func (r *payloadReader) u32(at int) uint32 {
	if !r.has(at, 4) {
		return 0
	}
	return binary.BigEndian.Uint32(r.b[at:])
}

func (r *payloadReader) s32(at int) int32 {
	return int32(r.u32(at))
}

func (r *payloadReader) f32(at int) float32 {
	return math.Float32frombits(r.u32(at))
}

func (r *payloadReader) bytes(at, n int) []byte {
	if !r.has(at, n) {
		return nil
	}
	return r.b[at : at+n]
}

// Gated reads return the field default when the policy says the field is absent.

func (r *payloadReader) optU8(f Field, at int) uint8 {
	if !r.present(f) {
		return uint8(r.pol.Default(f))
	}
	return r.u8(at)
}

func (r *payloadReader) optS8(f Field, at int) int8 {
	if !r.present(f) {
		return int8(r.pol.Default(f))
	}
	return r.s8(at)
}

func (r *payloadReader) optBool(f Field, at int) bool {
	if !r.present(f) {
		return r.pol.Default(f) != 0
	}
	return r.bool(at)
}

func (r *payloadReader) optU16(f Field, at int) uint16 {
	if !r.present(f) {
		return uint16(r.pol.Default(f))
	}
	return r.u16(at)
}

func (r *payloadReader) optU32(f Field, at int) uint32 {
	if !r.present(f) {
		return uint32(r.pol.Default(f))
	}
	return r.u32(at)
}

func (r *payloadReader) optF32(f Field, at int) float32 {
	if !r.present(f) {
		return float32(r.pol.Default(f))
	}
	return r.f32(at)
}

func (r *payloadReader) optBytes(f Field, at, n int) []byte {
	if !r.present(f) {
		return nil
	}
	return r.bytes(at, n)
}
