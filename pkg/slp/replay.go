package slp

// FirstFrame is the frame number of the first recorded frame in a normal match
const FirstFrame int32 = -123

// CharIceClimbers is the external character id that records a partner in slots 4-7
const CharIceClimbers uint8 = 14

// StageFountainOfDreams is the only stage that emits platform events
const StageFountainOfDreams uint16 = 2

// Initial Fountain of Dreams platform heights
const (
	PlatformLeftStart  float32 = 20.0
	PlatformRightStart float32 = 28.0
)

// DefaultItemCapacity is the number of item slots in a replay's item arena
const DefaultItemCapacity = 4096

// PlayerType is the Game Start player type byte
type PlayerType uint8

const (
	PlayerHuman PlayerType = 0
	PlayerCPU   PlayerType = 1
	PlayerDemo  PlayerType = 2
	PlayerEmpty PlayerType = 3
)

func (t PlayerType) String() string {
	switch t {
	case PlayerHuman:
		return "human"
	case PlayerCPU:
		return "cpu"
	case PlayerDemo:
		return "demo"
	case PlayerEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Game End methods
const (
	EndUnresolved uint8 = 0
	EndTime       uint8 = 1
	EndGame       uint8 = 2
	EndResolved   uint8 = 3
	EndNoContest  uint8 = 7
)

// Replay is the reconstructed timeline of one capture
type Replay struct {
	// StartTime identifies the match in every export
	StartTime string

	// Set only when Game End is decoded
	Stage    uint16
	Timer    uint32
	WinnerID int8
	EndType  uint8

	LRASInitiator int8
	Placements    [4]int8

	Version    Version
	VersionRaw uint32

	FirstFrame int32
	LastFrame  int32
	FrameCount int

	// RollbackFrames counts frame starts that rewound to an already recorded frame
	RollbackFrames int

	Seed             uint32
	Teams            bool
	PAL              bool
	FrozenStadium    bool
	MinorScene       uint8
	MajorScene       uint8
	Language         uint8
	MatchID          string
	GameNumber       uint32
	TiebreakerNumber uint32

	Players        [8]PlayerSlot
	Items          ItemPool
	PlatformFrames []PlatformFrame

	Metadata Metadata

	// Incomplete is set whenever decoding stopped before Game End
	Incomplete bool
	Ended      bool
}

func newReplay(itemCapacity int) *Replay {
	r := &Replay{
		WinnerID:      -1,
		LRASInitiator: -1,
		Placements:    [4]int8{-1, -1, -1, -1},
		FirstFrame:    FirstFrame,
		LastFrame:     FirstFrame - 1,
		Items:         ItemPool{capacity: itemCapacity},
	}
	for i := range r.Players {
		r.Players[i].Port = uint8(i % 4)
		r.Players[i].Type = PlayerEmpty
	}
	return r
}

// SlippiVersion returns the display form of the declared format version
func (r *Replay) SlippiVersion() string {
	return r.Version.String()
}

// ActivePorts returns the indexes of slots 0-7 holding a player, including an
// Ice Climbers partner. Frames is empty when the capture ends before its first frame.
func (r *Replay) ActivePorts() []int {
	var out []int
	for i := range r.Players {
		if r.Players[i].Active() {
			out = append(out, i)
		}
	}
	return out
}

// FrameIndex converts a frame number to an index into player frame arrays
func (r *Replay) FrameIndex(frame int32) (int, bool) {
	idx := int(frame - r.FirstFrame)
	return idx, idx >= 0 && idx < r.FrameCount
}

// PlayerSlot is one port (0-3) or an Ice Climbers partner slot (4-7)
type PlayerSlot struct {
	Port        uint8
	Type        PlayerType
	ExtCharID   uint8
	StartStocks uint8
	Costume     uint8
	TeamID      uint8
	CPULevel    uint8

	// Tag is the display name, Nametag the in-game name entry, TagCode the connect code
	Tag     string
	Nametag string
	TagCode string
	UID     string

	// Frames has exactly FrameCount entries, or is nil when the slot is unused
	Frames []PlayerFrame
}

// Active reports whether the slot holds a player
func (p *PlayerSlot) Active() bool {
	return p.Type != PlayerEmpty
}

// PlayerFrame holds the pre-frame and post-frame views for one player on one frame
type PlayerFrame struct {
	Frame    int32
	Follower bool

	// pre-frame
	Seed        uint32
	ActionPre   uint16
	PosXPre     float32
	PosYPre     float32
	FaceDirPre  float32
	JoyX        float32
	JoyY        float32
	CX          float32
	CY          float32
	Trigger     float32
	Buttons     uint32
	PhysButtons uint16
	PhysL       float32
	PhysR       float32
	UCFX        uint8
	PercentPre  float32
	RawAnalogY  int8

	// post-frame
	CharID        uint8
	ActionPost    uint16
	PosXPost      float32
	PosYPost      float32
	FaceDirPost   float32
	PercentPost   float32
	Shield        float32
	HitWith       uint8
	Combo         uint8
	HurtBy        uint8
	Stocks        uint8
	ActionFC      float32
	Flags         [5]uint8
	Hitstun       float32
	Airborne      bool
	GroundID      uint16
	Jumps         uint8
	LCancel       uint8
	Hurtbox       uint8
	SelfAirX      float32
	SelfAirY      float32
	AttackX       float32
	AttackY       float32
	SelfGrdX      float32
	Hitlag        float32
	AnimIndex     uint32
	InstanceHitBy uint16
	InstanceID    uint16
	Alive         bool
}

// ItemSlot is one occupant of an item arena slot
type ItemSlot struct {
	SpawnID uint32
	Type    uint16
	// Frames has one entry per frame the current occupant was updated
	Frames []ItemFrame
}

// ItemFrame is one Item Update event
type ItemFrame struct {
	Frame       int32
	State       uint8
	FaceDir     float32
	XVel        float32
	YVel        float32
	XPos        float32
	YPos        float32
	Damage      uint16
	Expire      float32
	MissileType uint8
	TurnipFace  uint8
	Launched    uint8
	ChargePower uint8
	Owner       int8
	InstanceID  uint16
}

// ItemPool is a fixed capacity arena of item slots addressed by spawn id modulo capacity
type ItemPool struct {
	capacity int
	slots    []ItemSlot
}

// Capacity returns the number of slots in the arena
func (p *ItemPool) Capacity() int {
	return p.capacity
}

func (p *ItemPool) index(spawnID uint32) int {
	return int(spawnID % uint32(p.capacity))
}

// live reports whether slot i has an occupant. A slot only ever holds ids that
// map to its index, so occupancy is the recorded frame count.
func (p *ItemPool) live(i int) bool {
	return len(p.slots[i].Frames) > 0
}

// Get returns the live slot currently holding spawnID. An earlier id that
// shared the slot is stale and not found.
func (p *ItemPool) Get(spawnID uint32) (*ItemSlot, bool) {
	if p.slots == nil {
		return nil, false
	}
	i := p.index(spawnID)
	if !p.live(i) || p.slots[i].SpawnID != spawnID {
		return nil, false
	}
	return &p.slots[i], true
}

// Live returns every live slot in arena order
func (p *ItemPool) Live() []*ItemSlot {
	var out []*ItemSlot
	for i := range p.slots {
		if p.live(i) {
			out = append(out, &p.slots[i])
		}
	}
	return out
}

// Len returns the number of live slots
func (p *ItemPool) Len() int {
	n := 0
	for i := range p.slots {
		if p.live(i) {
			n++
		}
	}
	return n
}

// PlatformFrame is the Fountain of Dreams platform heights on one frame
type PlatformFrame struct {
	Frame       int32
	LeftHeight  float32
	RightHeight float32
}
