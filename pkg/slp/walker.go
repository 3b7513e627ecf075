package slp

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

// record is one delimited event: the command byte followed by its cataloged payload
type record struct {
	offset  int
	code    byte
	payload []byte
}

// framing is the result of the first pass over the event stream
type framing struct {
	records []record
	// frames counts frame advances: events whose frame number is past every frame seen before
	frames int
	first  int32
	last   int32
	seen   bool
	ended  bool
	// stop is why the pass ended before the stream did, nil when every byte was delimited
	stop *DecodeError
}

func (f *framing) frameCount() int {
	if !f.seen {
		return 0
	}
	return int(f.last-f.first) + 1
}

// advancesFrame reports whether an event kind carries the current frame number at 0x1
func advancesFrame(code byte) bool {
	switch code {
	case EventFrameStart, EventPreFrame, EventPostFrame, EventFrameBookend:
		return true
	}
	return false
}

// frameStream delimits every record after the catalog. It never decodes payloads,
// so its only failures are framing failures.
func frameStream(stream []byte, start int, sizes PayloadSizes) *framing {
	f := &framing{first: FirstFrame, last: FirstFrame - 1}

	pos := start
	for pos < len(stream) {
		code := stream[pos]
		size, ok := sizes.Size(code)
		if !ok {
			f.stop = newDecodeError(KindUnknownEventKind, pos, code, "event code is not in the payload size table")
			return f
		}
		end := pos + 1 + size
		if end > len(stream) {
			f.stop = newDecodeError(KindTruncatedStream, pos, code,
				"record needs %d bytes, %d remain", 1+size, len(stream)-pos)
			return f
		}
		rec := record{offset: pos, code: code, payload: stream[pos:end]}

		if advancesFrame(code) && size >= 4 {
			frame := int32(binary.BigEndian.Uint32(rec.payload[1:]))
			switch {
			case !f.seen:
				f.seen = true
				f.first, f.last = frame, frame
				f.frames = 1
			case frame == f.last+1:
				f.last = frame
				f.frames++
			case frame > f.last+1:
				f.stop = newDecodeError(KindTruncatedStream, pos, code,
					"frame advances from %d to %d", f.last, frame)
				return f
			}
		}
		if code == EventGameEnd {
			f.ended = true
		}

		f.records = append(f.records, rec)
		pos = end
	}
	return f
}

// Load decodes a capture. A nil Replay is returned only for MalformedContainer
// and MissingCatalog; every other error comes with the partial Replay.
func Load(data []byte, opts ...Option) (*Replay, error) {
	o := newOptions(opts)

	c, err := Unwrap(data)
	if err != nil {
		return nil, err
	}
	if c.MetadataErr != nil {
		o.log.WithError(c.MetadataErr).Warn("ignoring unreadable metadata")
	}

	sizes, n, err := ParsePayloadSizes(c.Stream)
	if err != nil {
		return nil, err
	}
	o.log.WithField("codes", len(sizes.Codes())).Debug("read payload size table")

	fr := frameStream(c.Stream, n, sizes)
	o.log.WithFields(logrus.Fields{
		"records": len(fr.records),
		"frames":  fr.frames,
		"first":   fr.first,
		"last":    fr.last,
	}).Debug("framed event stream")

	r := newReplay(o.itemCapacity)
	r.Metadata = c.Metadata
	if fr.seen {
		r.FirstFrame = fr.first
		r.LastFrame = fr.last
	}
	r.FrameCount = fr.frameCount()

	b := newBuilder(r, o.log)
	derr := b.run(fr.records)
	b.finish()

	switch {
	case derr != nil:
		err = derr
	case fr.stop != nil:
		err = fr.stop
	case !fr.ended:
		err = newDecodeError(KindTruncatedStream, len(c.Stream), 0, "stream ended without a game end event")
	}
	if err != nil {
		r.Incomplete = true
		o.log.WithError(err).Warn("replay is incomplete")
	}

	o.log.WithFields(logrus.Fields{
		"start_time":  r.StartTime,
		"version":     r.Version.String(),
		"frame_count": r.FrameCount,
		"items":       r.Items.Len(),
		"incomplete":  r.Incomplete,
	}).Info("decoded replay")

	return r, err
}
