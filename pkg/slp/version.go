package slp

import "fmt"

// Version is the (major, minor, build) triple declared by the Game Start event
type Version struct {
	Major uint8
	Minor uint8
	Build uint8
}

// V builds a Version
func V(major, minor, build uint8) Version {
	return Version{Major: major, Minor: minor, Build: build}
}

// VersionFromRaw unpacks the big-endian u32 stored in Game Start (the low byte is unused)
func VersionFromRaw(raw uint32) Version {
	return Version{
		Major: uint8(raw >> 24),
		Minor: uint8(raw >> 16),
		Build: uint8(raw >> 8),
	}
}

// Raw packs the version the way it appears on the wire
func (v Version) Raw() uint32 {
	return uint32(v.Major)<<24 | uint32(v.Minor)<<16 | uint32(v.Build)<<8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// AtLeast reports whether v >= o
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	return v.Build >= o.Build
}

// MinSupportedVersion is the oldest format revision with a field policy
var MinSupportedVersion = V(0, 1, 0)

// Field identifies a payload field that was added after the first format revision
type Field int

// Version-gated fields. Fields present since 0.1.0 are not listed.
const (
	// Game Start
	FieldNametag Field = iota
	FieldPAL
	FieldFrozenStadium
	FieldMinorScene
	FieldMajorScene
	FieldDisplayName
	FieldConnectCode
	FieldSlippiUID
	FieldLanguage
	FieldMatchID
	FieldGameNumber
	FieldTiebreakerNumber

	// Pre-Frame Update
	FieldUCFAnalogX
	FieldPrePercent
	FieldRawAnalogY

	// Post-Frame Update
	FieldActionFrameCounter
	FieldStateFlags
	FieldHitstun
	FieldAirborne
	FieldGroundID
	FieldJumpsRemaining
	FieldLCancel
	FieldAlive
	FieldHurtbox
	FieldSelfAirX
	FieldSelfAirY
	FieldAttackX
	FieldAttackY
	FieldSelfGroundX
	FieldHitlag
	FieldAnimationIndex
	FieldInstanceHitBy
	FieldInstanceID

	// Game End
	FieldLRASInitiator
	FieldPlacements

	// Frame Start / Frame Bookend
	FieldFrameSeed
	FieldSceneFrameCounter
	FieldLatestFinalizedFrame

	// Item Update
	FieldItemMissileType
	FieldItemTurnipFace
	FieldItemLaunched
	FieldItemChargePower
	FieldItemOwner
	FieldItemInstanceID

	// Fountain of Dreams platform events
	FieldFountainPlatforms

	fieldCount
)

type fieldPolicy struct {
	name  string
	since Version
	def   float64
}

// fieldTable is the single source of truth for when each field appeared and what older captures read as
var fieldTable = map[Field]fieldPolicy{
	FieldNametag:          {"nametag", V(1, 3, 0), 0},
	FieldPAL:              {"pal", V(1, 5, 0), 0},
	FieldFrozenStadium:    {"frozen_stadium", V(2, 0, 0), 0},
	FieldMinorScene:       {"minor_scene", V(3, 7, 0), 0},
	FieldMajorScene:       {"major_scene", V(3, 7, 0), 0},
	FieldDisplayName:      {"display_name", V(3, 9, 0), 0},
	FieldConnectCode:      {"connect_code", V(3, 9, 0), 0},
	FieldSlippiUID:        {"slippi_uid", V(3, 11, 0), 0},
	FieldLanguage:         {"language", V(3, 12, 0), 0},
	FieldMatchID:          {"match_id", V(3, 14, 0), 0},
	FieldGameNumber:       {"game_number", V(3, 14, 0), 0},
	FieldTiebreakerNumber: {"tiebreaker_number", V(3, 14, 0), 0},

	FieldUCFAnalogX: {"ucf_x", V(1, 2, 0), 0},
	FieldPrePercent: {"percent_pre", V(1, 4, 0), 0},
	FieldRawAnalogY: {"raw_analog_y", V(3, 15, 0), 0},

	FieldActionFrameCounter: {"action_fc", V(0, 2, 0), 0},
	FieldStateFlags:         {"state_flags", V(2, 0, 0), 0},
	FieldHitstun:            {"hitstun", V(2, 0, 0), 0},
	FieldAirborne:           {"airborne", V(2, 0, 0), 0},
	FieldGroundID:           {"ground_id", V(2, 0, 0), 0},
	FieldJumpsRemaining:     {"jumps", V(2, 0, 0), 0},
	FieldLCancel:            {"l_cancel", V(2, 0, 0), 0},
	FieldAlive:              {"alive", V(2, 0, 0), 0},
	FieldHurtbox:            {"hurtbox", V(2, 1, 0), 0},
	FieldSelfAirX:           {"self_air_x", V(3, 5, 0), 0},
	FieldSelfAirY:           {"self_air_y", V(3, 5, 0), 0},
	FieldAttackX:            {"attack_x", V(3, 5, 0), 0},
	FieldAttackY:            {"attack_y", V(3, 5, 0), 0},
	FieldSelfGroundX:        {"self_grd_x", V(3, 5, 0), 0},
	FieldHitlag:             {"hitlag", V(3, 8, 0), 0},
	FieldAnimationIndex:     {"anim_index", V(3, 11, 0), 0},
	FieldInstanceHitBy:      {"instance_hit_by", V(3, 16, 0), 0},
	FieldInstanceID:         {"instance_id", V(3, 16, 0), 0},

	FieldLRASInitiator: {"lras_initiator", V(2, 0, 0), -1},
	FieldPlacements:    {"placements", V(3, 13, 0), -1},

	FieldFrameSeed:            {"frame_seed", V(2, 2, 0), 0},
	FieldSceneFrameCounter:    {"scene_frame_counter", V(3, 10, 0), 0},
	FieldLatestFinalizedFrame: {"latest_finalized_frame", V(3, 7, 0), 0},

	FieldItemMissileType: {"missile_type", V(3, 2, 0), 0},
	FieldItemTurnipFace:  {"turnip_face", V(3, 2, 0), 0},
	FieldItemLaunched:    {"is_launched", V(3, 2, 0), 0},
	FieldItemChargePower: {"charged_power", V(3, 2, 0), 0},
	FieldItemOwner:       {"owner", V(3, 6, 0), -1},
	FieldItemInstanceID:  {"item_instance_id", V(3, 16, 0), 0},

	FieldFountainPlatforms: {"fod_platforms", V(3, 18, 0), 0},
}

func (f Field) String() string {
	if p, ok := fieldTable[f]; ok {
		return p.name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Since returns the format version that introduced the field
func (f Field) Since() (Version, bool) {
	p, ok := fieldTable[f]
	return p.since, ok
}

// Policy answers, for one decode, which gated fields exist in the payloads.
// It is fixed when the Game Start event is read and never changes afterwards.
type Policy struct {
	version Version
	present [fieldCount]bool
}

// NewPolicy builds the policy for a declared format version
func NewPolicy(v Version) (*Policy, error) {
	if !v.AtLeast(MinSupportedVersion) {
		return nil, &DecodeError{
			Kind:   KindVersionPolicyViolation,
			Offset: -1,
			Msg:    fmt.Sprintf("no field policy for format version %s (oldest supported is %s)", v, MinSupportedVersion),
		}
	}
	p := &Policy{version: v}
	for f, fp := range fieldTable {
		p.present[f] = v.AtLeast(fp.since)
	}
	return p, nil
}

// Version returns the version the policy was built for
func (p *Policy) Version() Version {
	return p.version
}

// Check returns a VersionPolicyViolation if the field has no policy entry
func (p *Policy) Check(f Field) error {
	if _, ok := fieldTable[f]; !ok {
		return &DecodeError{
			Kind:   KindVersionPolicyViolation,
			Offset: -1,
			Msg:    fmt.Sprintf("%s has no version policy", f),
		}
	}
	return nil
}

// Present reports whether the field is in the payload for this version.
// Unknown fields are never present; use Check to surface them as errors.
func (p *Policy) Present(f Field) bool {
	if f < 0 || f >= fieldCount {
		return false
	}
	return p.present[f]
}

// Default returns the value substituted when the field is not present
func (p *Policy) Default(f Field) float64 {
	return fieldTable[f].def
}
