package slp

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

// Game Start layout
const (
	playerBlockOffset = 0x65
	playerBlockStride = 0x24
)

func (b *builder) gameStart(rec record) *DecodeError {
	if b.pol != nil {
		b.log.WithField("offset", rec.offset).Warn("ignoring repeated game start")
		return nil
	}
	if len(rec.payload) < 5 {
		return newDecodeError(KindVersionPolicyViolation, rec.offset, rec.code, "game start is too short to declare a version")
	}

	raw := binary.BigEndian.Uint32(rec.payload[1:])
	v := VersionFromRaw(raw)
	pol, err := NewPolicy(v)
	if err != nil {
		de := err.(*DecodeError)
		de.Offset, de.Code = rec.offset, rec.code
		return de
	}
	b.pol = pol

	r := newPayloadReader(rec, pol)
	rp := b.r
	rp.Version = v
	rp.VersionRaw = raw
	rp.Teams = r.bool(0xD)
	b.stage = r.u16(0x13)
	b.timer = r.u32(0x15)

	for i := 0; i < 4; i++ {
		base := playerBlockOffset + playerBlockStride*i
		p := &rp.Players[i]
		p.ExtCharID = r.u8(base)
		p.Type = PlayerType(r.u8(base + 0x1))
		p.StartStocks = r.u8(base + 0x2)
		p.Costume = r.u8(base + 0x3)
		p.TeamID = r.u8(base + 0x9)
		p.CPULevel = r.u8(base + 0xF)

		p.Nametag = decodeName(r.optBytes(FieldNametag, 0x161+0x10*i, 0x10))
		p.Tag = decodeName(r.optBytes(FieldDisplayName, 0x1A5+0x1F*i, 0x1F))
		p.TagCode = decodeName(r.optBytes(FieldConnectCode, 0x221+0xA*i, 0xA))
		p.UID = decodeASCII(r.optBytes(FieldSlippiUID, 0x249+0x1D*i, 0x1D))
	}

	rp.Seed = r.u32(0x13D)
	rp.PAL = r.optBool(FieldPAL, 0x1A1)
	rp.FrozenStadium = r.optBool(FieldFrozenStadium, 0x1A2)
	rp.MinorScene = r.optU8(FieldMinorScene, 0x1A3)
	rp.MajorScene = r.optU8(FieldMajorScene, 0x1A4)
	rp.Language = r.optU8(FieldLanguage, 0x2BD)
	rp.MatchID = decodeASCII(r.optBytes(FieldMatchID, 0x2BE, 51))
	rp.GameNumber = r.optU32(FieldGameNumber, 0x2F1)
	rp.TiebreakerNumber = r.optU32(FieldTiebreakerNumber, 0x2F5)
	if r.err != nil {
		return r.err
	}

	for i := 0; i < 4; i++ {
		p := rp.Players[i]
		if p.Type == PlayerEmpty || p.ExtCharID != CharIceClimbers {
			continue
		}
		p.Frames = nil
		rp.Players[i+4] = p
	}
	b.allocate()

	b.log.WithFields(logrus.Fields{
		"version": v.String(),
		"stage":   b.stage,
		"ports":   len(rp.ActivePorts()),
	}).Debug("game start")
	return nil
}

func (b *builder) preFrame(r *payloadReader) {
	frame := r.s32(0x1)
	f := b.playerFrame(r.u8(0x5), r.bool(0x6), frame)
	if f == nil {
		// still resolve every field so policy violations surface
		f = &PlayerFrame{}
	}

	f.Frame = frame
	f.Follower = r.bool(0x6)
	f.Seed = r.u32(0x7)
	f.ActionPre = r.u16(0xB)
	f.PosXPre = r.f32(0xD)
	f.PosYPre = r.f32(0x11)
	f.FaceDirPre = r.f32(0x15)
	f.JoyX = r.f32(0x19)
	f.JoyY = r.f32(0x1D)
	f.CX = r.f32(0x21)
	f.CY = r.f32(0x25)
	f.Trigger = r.f32(0x29)
	f.Buttons = r.u32(0x2D)
	f.PhysButtons = r.u16(0x31)
	f.PhysL = r.f32(0x33)
	f.PhysR = r.f32(0x37)
	f.UCFX = r.optU8(FieldUCFAnalogX, 0x3B)
	f.PercentPre = r.optF32(FieldPrePercent, 0x3C)
	f.RawAnalogY = r.optS8(FieldRawAnalogY, 0x40)
}

func (b *builder) postFrame(r *payloadReader) {
	frame := r.s32(0x1)
	f := b.playerFrame(r.u8(0x5), r.bool(0x6), frame)
	if f == nil {
		f = &PlayerFrame{}
	}

	f.Frame = frame
	f.Follower = r.bool(0x6)
	f.CharID = r.u8(0x7)
	f.ActionPost = r.u16(0x8)
	f.PosXPost = r.f32(0xA)
	f.PosYPost = r.f32(0xE)
	f.FaceDirPost = r.f32(0x12)
	f.PercentPost = r.f32(0x16)
	f.Shield = r.f32(0x1A)
	f.HitWith = r.u8(0x1E)
	f.Combo = r.u8(0x1F)
	f.HurtBy = r.u8(0x20)
	f.Stocks = r.u8(0x21)
	f.ActionFC = r.optF32(FieldActionFrameCounter, 0x22)

	f.Flags = [5]uint8{}
	if flags := r.optBytes(FieldStateFlags, 0x26, 5); flags != nil {
		copy(f.Flags[:], flags)
	}
	f.Hitstun = r.optF32(FieldHitstun, 0x2B)
	f.Airborne = r.optBool(FieldAirborne, 0x2F)
	f.GroundID = r.optU16(FieldGroundID, 0x30)
	f.Jumps = r.optU8(FieldJumpsRemaining, 0x32)
	f.LCancel = r.optU8(FieldLCancel, 0x33)
	f.Hurtbox = r.optU8(FieldHurtbox, 0x34)
	f.SelfAirX = r.optF32(FieldSelfAirX, 0x35)
	f.SelfAirY = r.optF32(FieldSelfAirY, 0x39)
	f.AttackX = r.optF32(FieldAttackX, 0x3D)
	f.AttackY = r.optF32(FieldAttackY, 0x41)
	f.SelfGrdX = r.optF32(FieldSelfGroundX, 0x45)
	f.Hitlag = r.optF32(FieldHitlag, 0x49)
	f.AnimIndex = r.optU32(FieldAnimationIndex, 0x4D)
	f.InstanceHitBy = r.optU16(FieldInstanceHitBy, 0x51)
	f.InstanceID = r.optU16(FieldInstanceID, 0x53)

	// bit 4 of the fifth state flag byte marks a dead character
	if r.present(FieldAlive) {
		f.Alive = f.Flags[4]&0x10 == 0
	} else {
		f.Alive = r.pol.Default(FieldAlive) != 0
	}
}

func (b *builder) gameEnd(r *payloadReader) {
	method := r.u8(0x1)
	lras := r.optS8(FieldLRASInitiator, 0x2)
	placements := [4]int8{-1, -1, -1, -1}
	for i := range placements {
		placements[i] = r.optS8(FieldPlacements, 0x3+i)
	}
	if r.err != nil {
		return
	}

	rp := b.r
	rp.Stage = b.stage
	rp.Timer = b.timer
	rp.EndType = method
	rp.LRASInitiator = lras
	rp.Placements = placements
	rp.WinnerID = b.winner(method, placements)
	rp.Ended = true

	b.log.WithFields(logrus.Fields{
		"end_type": method,
		"winner":   rp.WinnerID,
	}).Debug("game end")
}

func (b *builder) frameStart(r *payloadReader) {
	frame := r.s32(0x1)
	seed := r.optU32(FieldFrameSeed, 0x5)
	scene := r.optU32(FieldSceneFrameCounter, 0x9)
	if r.err != nil {
		return
	}

	if b.frameSeen && frame <= b.maxFrame {
		b.r.RollbackFrames++
	}
	if !b.frameSeen || frame > b.maxFrame {
		b.maxFrame = frame
		b.frameSeen = true
	}

	b.log.WithFields(logrus.Fields{
		"frame": frame,
		"seed":  seed,
		"scene": scene,
	}).Trace("frame start")
}

func (b *builder) frameBookend(r *payloadReader) {
	frame := r.s32(0x1)
	finalized := int32(r.optU32(FieldLatestFinalizedFrame, 0x5))
	if r.err != nil {
		return
	}
	b.log.WithFields(logrus.Fields{
		"frame":     frame,
		"finalized": finalized,
	}).Trace("frame bookend")
}

func (b *builder) itemUpdate(r *payloadReader) {
	f := ItemFrame{
		Frame:       r.s32(0x1),
		State:       r.u8(0x7),
		FaceDir:     r.f32(0x8),
		XVel:        r.f32(0xC),
		YVel:        r.f32(0x10),
		XPos:        r.f32(0x14),
		YPos:        r.f32(0x18),
		Damage:      r.u16(0x1C),
		Expire:      r.f32(0x1E),
		MissileType: r.optU8(FieldItemMissileType, 0x26),
		TurnipFace:  r.optU8(FieldItemTurnipFace, 0x27),
		Launched:    r.optU8(FieldItemLaunched, 0x28),
		ChargePower: r.optU8(FieldItemChargePower, 0x29),
		Owner:       r.optS8(FieldItemOwner, 0x2A),
		InstanceID:  r.optU16(FieldItemInstanceID, 0x2B),
	}
	typ := r.u16(0x5)
	spawnID := r.u32(0x22)
	if r.err != nil {
		return
	}

	s := b.item(spawnID, typ, f.Frame)
	s.Frames = append(s.Frames, f)
}

func (b *builder) platform(r *payloadReader) {
	if !r.present(FieldFountainPlatforms) {
		b.log.WithField("version", r.pol.Version().String()).Debug("platform event before platforms were recorded")
		return
	}
	frame := r.s32(0x1)
	which := r.u8(0x5)
	height := r.f32(0x6)
	if r.err != nil {
		return
	}
	if b.stage != StageFountainOfDreams {
		b.log.WithField("stage", b.stage).Debug("platform event outside fountain of dreams")
		return
	}

	switch which {
	case 0:
		b.rightHeight = height
	case 1:
		b.leftHeight = height
	default:
		b.log.WithField("platform", which).Debug("unknown platform")
		return
	}

	pf := b.r.PlatformFrames
	for len(pf) > 0 && pf[len(pf)-1].Frame > frame {
		pf = pf[:len(pf)-1]
	}
	entry := PlatformFrame{Frame: frame, LeftHeight: b.leftHeight, RightHeight: b.rightHeight}
	if len(pf) > 0 && pf[len(pf)-1].Frame == frame {
		pf[len(pf)-1] = entry
	} else {
		pf = append(pf, entry)
	}
	b.r.PlatformFrames = pf
}
