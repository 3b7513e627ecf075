// Package slptest builds synthetic Slippi captures for tests.
package slptest

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/ssargent/slippc/pkg/slp"
	"golang.org/x/text/encoding/japanese"
)

// Full payload sizes for the newest layouts, excluding the command byte
var FullSizes = map[byte]int{
	slp.EventGameStart:        0x2F8,
	slp.EventPreFrame:         0x40,
	slp.EventPostFrame:        0x54,
	slp.EventGameEnd:          0x6,
	slp.EventFrameStart:       0xC,
	slp.EventItemUpdate:       0x2C,
	slp.EventFrameBookend:     0x8,
	slp.EventFountainPlatform: 0x9,
}

// Player is one Game Start player block
type Player struct {
	Char        uint8
	Type        slp.PlayerType
	Stocks      uint8
	Costume     uint8
	Team        uint8
	CPULevel    uint8
	Nametag     string
	DisplayName string
	ConnectCode string
	UID         string
}

// GameStart describes the Game Start event. Ports beyond len(Players) are empty.
type GameStart struct {
	Stage      uint16
	Timer      uint32
	Teams      bool
	Seed       uint32
	PAL        bool
	Players    []Player
	Language   uint8
	MatchID    string
	GameNumber uint32
	Tiebreaker uint32
}

// Pre is a Pre-Frame Update
type Pre struct {
	Frame       int32
	Port        uint8
	Follower    bool
	Seed        uint32
	Action      uint16
	X, Y        float32
	Facing      float32
	JoyX, JoyY  float32
	CX, CY      float32
	Trigger     float32
	Buttons     uint32
	PhysButtons uint16
	PhysL       float32
	PhysR       float32
	UCFX        uint8
	Percent     float32
	RawY        int8
}

// Post is a Post-Frame Update
type Post struct {
	Frame         int32
	Port          uint8
	Follower      bool
	Char          uint8
	Action        uint16
	X, Y          float32
	Facing        float32
	Percent       float32
	Shield        float32
	LastAttack    uint8
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
	SelfGroundX   float32
	Hitlag        float32
	AnimIndex     uint32
	InstanceHitBy uint16
	InstanceID    uint16
}

// Item is an Item Update
type Item struct {
	Frame      int32
	Type       uint16
	State      uint8
	Facing     float32
	XVel, YVel float32
	X, Y       float32
	Damage     uint16
	Expire     float32
	SpawnID    uint32
	Flags      [4]uint8
	Owner      int8
	InstanceID uint16
}

// Writer accumulates events and renders a capture
type Writer struct {
	Version slp.Version
	// Unfinalized writes a zero raw length, as a console does while recording
	Unfinalized bool
	// Metadata string entries written after the stream; empty means no metadata block
	Metadata  map[string]string
	LastFrame *int32

	sizes  map[byte]int
	events bytes.Buffer
	chars  [4]uint8
	types  [4]slp.PlayerType
}

// NewWriter returns a writer with every decoded event cataloged at its full size
func NewWriter(v slp.Version) *Writer {
	w := &Writer{Version: v, sizes: make(map[byte]int)}
	for code, n := range FullSizes {
		w.sizes[code] = n
	}
	for i := range w.types {
		w.types[i] = slp.PlayerEmpty
	}
	return w
}

// SetSize overrides the cataloged payload size of code
func (w *Writer) SetSize(code byte, n int) {
	w.sizes[code] = n
}

// Uncatalog removes code from the payload size table
func (w *Writer) Uncatalog(code byte) {
	delete(w.sizes, code)
}

func (w *Writer) payload(code byte) []byte {
	b := make([]byte, 1+w.sizes[code])
	b[0] = code
	return b
}

// Raw appends bytes verbatim to the event stream
func (w *Writer) Raw(b []byte) {
	w.events.Write(b)
}

// Event appends a cataloged event with an arbitrary payload (padded or cut to the cataloged size)
func (w *Writer) Event(code byte, payload []byte) {
	b := w.payload(code)
	copy(b[1:], payload)
	w.events.Write(b)
}

func (w *Writer) GameStart(gs GameStart) {
	b := w.payload(slp.EventGameStart)
	putU32(b, 0x1, w.Version.Raw())
	putBool(b, 0xD, gs.Teams)
	putU16(b, 0x13, gs.Stage)
	putU32(b, 0x15, gs.Timer)
	for i := 0; i < 4; i++ {
		p := Player{Type: slp.PlayerEmpty}
		if i < len(gs.Players) {
			p = gs.Players[i]
		}
		w.chars[i] = p.Char
		w.types[i] = p.Type

		base := 0x65 + 0x24*i
		putU8(b, base, p.Char)
		putU8(b, base+0x1, uint8(p.Type))
		putU8(b, base+0x2, p.Stocks)
		putU8(b, base+0x3, p.Costume)
		putU8(b, base+0x9, p.Team)
		putU8(b, base+0xF, p.CPULevel)
		putBytes(b, 0x161+0x10*i, 0x10, shiftJIS(p.Nametag))
		putBytes(b, 0x1A5+0x1F*i, 0x1F, shiftJIS(p.DisplayName))
		putBytes(b, 0x221+0xA*i, 0xA, shiftJIS(p.ConnectCode))
		putBytes(b, 0x249+0x1D*i, 0x1D, []byte(p.UID))
	}
	putU32(b, 0x13D, gs.Seed)
	putBool(b, 0x1A1, gs.PAL)
	putU8(b, 0x2BD, gs.Language)
	putBytes(b, 0x2BE, 51, []byte(gs.MatchID))
	putU32(b, 0x2F1, gs.GameNumber)
	putU32(b, 0x2F5, gs.Tiebreaker)
	w.events.Write(b)
}

func (w *Writer) FrameStart(frame int32, seed uint32) {
	b := w.payload(slp.EventFrameStart)
	putS32(b, 0x1, frame)
	putU32(b, 0x5, seed)
	putU32(b, 0x9, uint32(frame+123))
	w.events.Write(b)
}

func (w *Writer) Bookend(frame int32) {
	b := w.payload(slp.EventFrameBookend)
	putS32(b, 0x1, frame)
	putS32(b, 0x5, frame)
	w.events.Write(b)
}

func (w *Writer) Pre(p Pre) {
	b := w.payload(slp.EventPreFrame)
	putS32(b, 0x1, p.Frame)
	putU8(b, 0x5, p.Port)
	putBool(b, 0x6, p.Follower)
	putU32(b, 0x7, p.Seed)
	putU16(b, 0xB, p.Action)
	putF32(b, 0xD, p.X)
	putF32(b, 0x11, p.Y)
	putF32(b, 0x15, p.Facing)
	putF32(b, 0x19, p.JoyX)
	putF32(b, 0x1D, p.JoyY)
	putF32(b, 0x21, p.CX)
	putF32(b, 0x25, p.CY)
	putF32(b, 0x29, p.Trigger)
	putU32(b, 0x2D, p.Buttons)
	putU16(b, 0x31, p.PhysButtons)
	putF32(b, 0x33, p.PhysL)
	putF32(b, 0x37, p.PhysR)
	putU8(b, 0x3B, p.UCFX)
	putF32(b, 0x3C, p.Percent)
	putU8(b, 0x40, uint8(p.RawY))
	w.events.Write(b)
}

func (w *Writer) Post(p Post) {
	b := w.payload(slp.EventPostFrame)
	putS32(b, 0x1, p.Frame)
	putU8(b, 0x5, p.Port)
	putBool(b, 0x6, p.Follower)
	putU8(b, 0x7, p.Char)
	putU16(b, 0x8, p.Action)
	putF32(b, 0xA, p.X)
	putF32(b, 0xE, p.Y)
	putF32(b, 0x12, p.Facing)
	putF32(b, 0x16, p.Percent)
	putF32(b, 0x1A, p.Shield)
	putU8(b, 0x1E, p.LastAttack)
	putU8(b, 0x1F, p.Combo)
	putU8(b, 0x20, p.HurtBy)
	putU8(b, 0x21, p.Stocks)
	putF32(b, 0x22, p.ActionFC)
	putBytes(b, 0x26, 5, p.Flags[:])
	putF32(b, 0x2B, p.Hitstun)
	putBool(b, 0x2F, p.Airborne)
	putU16(b, 0x30, p.GroundID)
	putU8(b, 0x32, p.Jumps)
	putU8(b, 0x33, p.LCancel)
	putU8(b, 0x34, p.Hurtbox)
	putF32(b, 0x35, p.SelfAirX)
	putF32(b, 0x39, p.SelfAirY)
	putF32(b, 0x3D, p.AttackX)
	putF32(b, 0x41, p.AttackY)
	putF32(b, 0x45, p.SelfGroundX)
	putF32(b, 0x49, p.Hitlag)
	putU32(b, 0x4D, p.AnimIndex)
	putU16(b, 0x51, p.InstanceHitBy)
	putU16(b, 0x53, p.InstanceID)
	w.events.Write(b)
}

func (w *Writer) Item(it Item) {
	b := w.payload(slp.EventItemUpdate)
	putS32(b, 0x1, it.Frame)
	putU16(b, 0x5, it.Type)
	putU8(b, 0x7, it.State)
	putF32(b, 0x8, it.Facing)
	putF32(b, 0xC, it.XVel)
	putF32(b, 0x10, it.YVel)
	putF32(b, 0x14, it.X)
	putF32(b, 0x18, it.Y)
	putU16(b, 0x1C, it.Damage)
	putF32(b, 0x1E, it.Expire)
	putU32(b, 0x22, it.SpawnID)
	putBytes(b, 0x26, 4, it.Flags[:])
	putU8(b, 0x2A, uint8(it.Owner))
	putU16(b, 0x2B, it.InstanceID)
	w.events.Write(b)
}

// Platform writes a Fountain of Dreams platform height; platform 0 is right, 1 is left
func (w *Writer) Platform(frame int32, platform uint8, height float32) {
	b := w.payload(slp.EventFountainPlatform)
	putS32(b, 0x1, frame)
	putU8(b, 0x5, platform)
	putF32(b, 0x6, height)
	w.events.Write(b)
}

func (w *Writer) GameEnd(method uint8, lras int8, placements [4]int8) {
	b := w.payload(slp.EventGameEnd)
	putU8(b, 0x1, method)
	putU8(b, 0x2, uint8(lras))
	for i, p := range placements {
		putU8(b, 0x3+i, uint8(p))
	}
	w.events.Write(b)
}

// Frames writes n complete frames starting at slp.FirstFrame for every active
// port (and Ice Climbers partners): Frame Start, Pre, Post, Bookend. Post values
// come from state, which may be nil.
func (w *Writer) Frames(n int, state func(frame int32, port uint8, follower bool) Post) {
	for i := 0; i < n; i++ {
		w.Frame(slp.FirstFrame+int32(i), state)
	}
}

// Frame writes one complete frame
func (w *Writer) Frame(frame int32, state func(frame int32, port uint8, follower bool) Post) {
	w.FrameStart(frame, uint32(frame)*7)
	for port := uint8(0); port < 4; port++ {
		if w.types[port] == slp.PlayerEmpty {
			continue
		}
		followers := []bool{false}
		if w.chars[port] == slp.CharIceClimbers {
			followers = append(followers, true)
		}
		for _, follower := range followers {
			w.Pre(Pre{
				Frame:    frame,
				Port:     port,
				Follower: follower,
				Seed:     uint32(frame),
				X:        float32(frame),
				Y:        float32(port),
				JoyX:     0.5,
				UCFX:     1,
				Percent:  float32(port) + 1,
			})
			post := Post{Stocks: 4}
			if state != nil {
				post = state(frame, port, follower)
			}
			post.Frame, post.Port, post.Follower = frame, port, follower
			if post.Char == 0 {
				post.Char = w.chars[port]
			}
			w.Post(post)
		}
	}
	w.Bookend(frame)
}

// Stream renders the payload size table followed by the events
func (w *Writer) Stream() []byte {
	codes := make([]int, 0, len(w.sizes))
	for code := range w.sizes {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)

	var b bytes.Buffer
	b.WriteByte(slp.EventPayloadSizes)
	b.WriteByte(byte(1 + 3*len(codes)))
	for _, code := range codes {
		b.WriteByte(byte(code))
		var n [2]byte
		binary.BigEndian.PutUint16(n[:], uint16(w.sizes[byte(code)]))
		b.Write(n[:])
	}
	b.Write(w.events.Bytes())
	return b.Bytes()
}

// Bytes renders the complete capture
func (w *Writer) Bytes() []byte {
	stream := w.Stream()

	var b bytes.Buffer
	b.Write([]byte{'{', 'U', 3, 'r', 'a', 'w', '[', '$', 'U', '#', 'l'})
	var n [4]byte
	if !w.Unfinalized {
		binary.BigEndian.PutUint32(n[:], uint32(len(stream)))
	}
	b.Write(n[:])
	b.Write(stream)

	hasMetadata := len(w.Metadata) > 0 || w.LastFrame != nil
	if w.Unfinalized && !hasMetadata {
		// an interrupted recording ends inside the raw array
		return b.Bytes()
	}
	if hasMetadata {
		b.Write([]byte{'U', 8})
		b.WriteString("metadata")
		b.WriteByte('{')
		keys := make([]string, 0, len(w.Metadata))
		for k := range w.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeKey(&b, k)
			b.WriteByte('S')
			b.WriteByte('U')
			b.WriteByte(byte(len(w.Metadata[k])))
			b.WriteString(w.Metadata[k])
		}
		if w.LastFrame != nil {
			writeKey(&b, "lastFrame")
			b.WriteByte('l')
			binary.BigEndian.PutUint32(n[:], uint32(*w.LastFrame))
			b.Write(n[:])
		}
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.Bytes()
}

func writeKey(b *bytes.Buffer, k string) {
	b.WriteByte('U')
	b.WriteByte(byte(len(k)))
	b.WriteString(k)
}

func shiftJIS(s string) []byte {
	if s == "" {
		return nil
	}
	out, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// put helpers silently drop fields that do not fit a shortened payload

func fits(b []byte, at, n int) bool {
	return at+n <= len(b)
}

func putU8(b []byte, at int, v uint8) {
	if fits(b, at, 1) {
		b[at] = v
	}
}

func putBool(b []byte, at int, v bool) {
	if v {
		putU8(b, at, 1)
	}
}

func putU16(b []byte, at int, v uint16) {
	if fits(b, at, 2) {
		binary.BigEndian.PutUint16(b[at:], v)
	}
}

func putU32(b []byte, at int, v uint32) {
	if fits(b, at, 4) {
		binary.BigEndian.PutUint32(b[at:], v)
	}
}

func putS32(b []byte, at int, v int32) {
	putU32(b, at, uint32(v))
}

func putF32(b []byte, at int, v float32) {
	putU32(b, at, math.Float32bits(v))
}

func putBytes(b []byte, at, n int, v []byte) {
	if !fits(b, at, n) {
		return
	}
	copy(b[at:at+n], v)
}
