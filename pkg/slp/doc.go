// Package slp decodes Slippi replay captures (.slp) into an in-memory match timeline.
//
// A capture is a UBJSON object whose "raw" key holds the recorded event stream
// as a byte array, optionally followed by a "metadata" object written when the
// recording is finalized. The decoder is read-only and decodes the whole capture
// before returning.
//
// # Container Format
//
//	{ U 0x03 "raw" [ $ U # l [Length(4)] [Event stream] U 0x08 "metadata" {...} }
//
// The event stream starts at byte 15. Length is big-endian; a zero length means
// the console never finalized the recording, in which case the stream runs up to
// the metadata key or the end of the input.
//
// # Event Stream
//
// Every event is a one byte code followed by a payload whose length is taken
// from the payload size table, which must be the first event:
//
//	[0x35][Size(1)] then (Size-1)/3 entries of [Code(1)][Length(2)]
//
// All payload fields are big-endian. Field offsets in this package count the
// command byte as offset 0x0, matching the published event layouts.
//
// Decoded events:
//   - 0x36 Game Start: format version, stage, timer, player blocks, names
//   - 0x37 Pre-Frame Update: inputs and pre-action state per player
//   - 0x38 Post-Frame Update: post-action state per player
//   - 0x39 Game End: end method, LRAS initiator, placements
//   - 0x3A Frame Start, 0x3C Frame Bookend: frame boundaries
//   - 0x3B Item Update: one record per live item per frame
//   - 0x3F Fountain of Dreams platform heights
//
// Other cataloged events (Gecko codes, message splitter, stage hazards) are
// skipped by their cataloged length.
//
// # Versions
//
// Event layouts grow over time. Each field added after 0.1.0 is listed in a
// single table with the version that introduced it and the value older captures
// read as. Decoders read such fields only through the Policy built from the
// Game Start version.
//
// # Usage
//
//	data, err := os.ReadFile("Game_20240101T120000.slp")
//	if err != nil {
//	    return err
//	}
//	replay, err := slp.Load(data, slp.WithLogger(log))
//	if replay == nil {
//	    return err // malformed container or missing payload table
//	}
//	if err != nil {
//	    log.WithError(err).Warn("partial replay")
//	}
//
// # Error Handling
//
// Errors are *DecodeError values carrying a Kind, and match the package
// sentinels with errors.Is. MalformedContainer and MissingCatalog return no
// Replay. UnknownEventKind, TruncatedStream and VersionPolicyViolation return the
// Replay decoded up to that point with Incomplete set.
//
// # Frames
//
// The decoder walks the stream twice. The first pass delimits records and
// counts frame advances, so player frame arrays are allocated once with their
// final length. Rolled back frames are rewritten in place. Ice Climbers partners
// (Nana) are stored in slot port+4.
package slp
