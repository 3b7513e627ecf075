package slp

import (
	"github.com/sirupsen/logrus"
)

// builder owns the Replay while the decode pass runs
type builder struct {
	r   *Replay
	log logrus.FieldLogger
	pol *Policy

	// match settings are held back until Game End
	stage uint16
	timer uint32

	maxFrame    int32
	frameSeen   bool
	leftHeight  float32
	rightHeight float32
}

func newBuilder(r *Replay, log logrus.FieldLogger) *builder {
	return &builder{
		r:           r,
		log:         log,
		leftHeight:  PlatformLeftStart,
		rightHeight: PlatformRightStart,
	}
}

// run dispatches records in stream order and stops at the first decode failure
func (b *builder) run(records []record) *DecodeError {
	for _, rec := range records {
		if err := b.dispatch(rec); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) dispatch(rec record) *DecodeError {
	switch rec.code {
	case EventGameStart:
		return b.gameStart(rec)
	case EventPreFrame, EventPostFrame, EventGameEnd, EventFrameStart,
		EventItemUpdate, EventFrameBookend, EventFountainPlatform:
	default:
		// cataloged but not tracked; the framing pass already skipped it by length
		b.log.WithField("code", rec.code).Trace("skipping event")
		return nil
	}

	if b.pol == nil {
		return newDecodeError(KindVersionPolicyViolation, rec.offset, rec.code, "event precedes game start, no version declared")
	}

	r := newPayloadReader(rec, b.pol)
	switch rec.code {
	case EventPreFrame:
		b.preFrame(r)
	case EventPostFrame:
		b.postFrame(r)
	case EventGameEnd:
		b.gameEnd(r)
	case EventFrameStart:
		b.frameStart(r)
	case EventItemUpdate:
		b.itemUpdate(r)
	case EventFrameBookend:
		b.frameBookend(r)
	case EventFountainPlatform:
		b.platform(r)
	}
	return r.err
}

// allocate gives every active port, and the partner slot of Ice Climbers, exactly FrameCount frames
func (b *builder) allocate() {
	n := b.r.FrameCount
	if n == 0 {
		return
	}
	for i := 0; i < 4; i++ {
		p := &b.r.Players[i]
		if p.Type == PlayerEmpty {
			continue
		}
		p.Frames = make([]PlayerFrame, n)
		if p.ExtCharID == CharIceClimbers {
			b.r.Players[i+4].Frames = make([]PlayerFrame, n)
		}
	}
}

// playerFrame returns the frame cell for a player update, or nil if the slot or frame is not tracked
func (b *builder) playerFrame(port uint8, follower bool, frame int32) *PlayerFrame {
	if port > 3 {
		b.log.WithField("port", port).Debug("player index out of range")
		return nil
	}
	slot := int(port)
	if follower {
		slot += 4
	}
	p := &b.r.Players[slot]
	if p.Frames == nil {
		b.log.WithFields(logrus.Fields{"slot": slot, "frame": frame}).Debug("update for untracked player slot")
		return nil
	}
	idx, ok := b.r.FrameIndex(frame)
	if !ok {
		b.log.WithFields(logrus.Fields{"slot": slot, "frame": frame}).Debug("update outside recorded frames")
		return nil
	}
	return &p.Frames[idx]
}

// item returns the arena slot for spawnID, starting a new lifetime when the
// slot is empty, held by another id or type, or the id went unseen for a frame.
// A frame at or before the last recorded one is a rollback and rewrites history from there.
func (b *builder) item(spawnID uint32, typ uint16, frame int32) *ItemSlot {
	pool := &b.r.Items
	if pool.slots == nil {
		pool.slots = make([]ItemSlot, pool.capacity)
	}
	s := &pool.slots[pool.index(spawnID)]

	fresh := len(s.Frames) == 0 || s.SpawnID != spawnID || s.Type != typ
	if !fresh {
		last := s.Frames[len(s.Frames)-1].Frame
		switch {
		case frame > last+1:
			fresh = true
		case frame <= last:
			keep := len(s.Frames)
			for keep > 0 && s.Frames[keep-1].Frame >= frame {
				keep--
			}
			s.Frames = s.Frames[:keep]
		}
	}
	if fresh {
		if len(s.Frames) > 0 && s.SpawnID != spawnID {
			b.log.WithFields(logrus.Fields{"old": s.SpawnID, "new": spawnID}).Trace("item slot reused")
		}
		*s = ItemSlot{SpawnID: spawnID, Type: typ}
	}
	return s
}

// finish fills values that depend on the whole decode
func (b *builder) finish() {
	r := b.r
	if r.Metadata.StartAt != "" {
		r.StartTime = r.Metadata.StartAt
	} else {
		r.StartTime = r.MatchID
	}
}

// winner picks the winning port: placements when recorded, otherwise stocks then percent on the last frame
func (b *builder) winner(method uint8, placements [4]int8) int8 {
	if method == EndNoContest {
		return -1
	}

	if b.pol.Present(FieldPlacements) {
		w := int8(-1)
		for i, p := range placements {
			if b.r.Players[i].Type == PlayerEmpty || p != 0 {
				continue
			}
			if w >= 0 {
				return -1
			}
			w = int8(i)
		}
		if w >= 0 {
			return w
		}
	}

	last := b.r.FrameCount - 1
	if last < 0 {
		return -1
	}
	w := int8(-1)
	tie := false
	var bestStocks uint8
	var bestPercent float32
	for i := 0; i < 4; i++ {
		p := &b.r.Players[i]
		if p.Frames == nil {
			continue
		}
		f := &p.Frames[last]
		switch {
		case w < 0 || f.Stocks > bestStocks || (f.Stocks == bestStocks && f.PercentPost < bestPercent):
			w, bestStocks, bestPercent, tie = int8(i), f.Stocks, f.PercentPost, false
		case f.Stocks == bestStocks && f.PercentPost == bestPercent:
			tie = true
		}
	}
	if tie {
		return -1
	}
	return w
}
