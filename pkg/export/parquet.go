package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/ssargent/slippc/pkg/slp"
)

// Table file names
const (
	FramesTable    = "frames.parquet"
	ItemsTable     = "items.parquet"
	PlatformsTable = "platforms.parquet"
)

// PlayerFrameRow is one row of frames.parquet, keyed by (match_id, player_index, frame_number)
type PlayerFrameRow struct {
	MatchID     string  `parquet:"match_id"`
	PlayerID    string  `parquet:"player_id"`
	PlayerIndex uint8   `parquet:"player_index"`
	FrameNumber uint32  `parquet:"frame_number"`
	CharID      uint8   `parquet:"char_id"`
	Follower    bool    `parquet:"follower"`
	Seed        uint32  `parquet:"seed"`
	UCFX        uint8   `parquet:"ucf_x"`
	Stocks      uint8   `parquet:"stocks"`
	Alive       bool    `parquet:"alive"`
	AnimIndex   uint32  `parquet:"anim_index"`
	PosXPre     float32 `parquet:"pos_x_pre"`
	PosYPre     float32 `parquet:"pos_y_pre"`
	PosXPost    float32 `parquet:"pos_x_post"`
	PosYPost    float32 `parquet:"pos_y_post"`
	JoyX        float32 `parquet:"joy_x"`
	JoyY        float32 `parquet:"joy_y"`
	CX          float32 `parquet:"c_x"`
	CY          float32 `parquet:"c_y"`
	Trigger     float32 `parquet:"trigger"`
	Buttons     uint32  `parquet:"buttons"`
	PhysL       float32 `parquet:"phys_l"`
	PhysR       float32 `parquet:"phys_r"`
	Shield      float32 `parquet:"shield"`
	HitWith     uint8   `parquet:"hit_with"`
	Combo       uint8   `parquet:"combo"`
	HurtBy      uint8   `parquet:"hurt_by"`
	PercentPre  float32 `parquet:"percent_pre"`
	PercentPost float32 `parquet:"percent_post"`
	ActionPre   uint16  `parquet:"action_pre"`
	ActionPost  uint16  `parquet:"action_post"`
	ActionFC    float32 `parquet:"action_fc"`
	FaceDirPre  float32 `parquet:"face_dir_pre"`
	FaceDirPost float32 `parquet:"face_dir_post"`
	Hitstun     float32 `parquet:"hitstun"`
	Airborne    bool    `parquet:"airborne"`
	GroundID    uint16  `parquet:"ground_id"`
	Jumps       uint8   `parquet:"jumps"`
	LCancel     uint8   `parquet:"l_cancel"`
	Hurtbox     uint8   `parquet:"hurtbox"`
	Hitlag      float32 `parquet:"hitlag"`
	SelfAirX    float32 `parquet:"self_air_x"`
	SelfAirY    float32 `parquet:"self_air_y"`
	AttackX     float32 `parquet:"attack_x"`
	AttackY     float32 `parquet:"attack_y"`
	SelfGrdX    float32 `parquet:"self_grd_x"`
}

// ItemFrameRow is one row of items.parquet, keyed by (match_id, spawn_id, frame)
type ItemFrameRow struct {
	MatchID      string  `parquet:"match_id"`
	SpawnID      uint32  `parquet:"spawn_id"`
	ItemType     uint16  `parquet:"item_type"`
	Frame        uint32  `parquet:"frame"`
	State        uint8   `parquet:"state"`
	FaceDir      float32 `parquet:"face_dir"`
	XVel         float32 `parquet:"xvel"`
	YVel         float32 `parquet:"yvel"`
	XPos         float32 `parquet:"xpos"`
	YPos         float32 `parquet:"ypos"`
	Damage       uint16  `parquet:"damage"`
	Expire       float32 `parquet:"expire"`
	MissileType  uint8   `parquet:"missile_type"`
	TurnipFace   uint8   `parquet:"turnip_face"`
	IsLaunched   uint8   `parquet:"is_launched"`
	ChargedPower uint8   `parquet:"charged_power"`
	Owner        int8    `parquet:"owner"`
}

// PlatformFrameRow is one row of platforms.parquet, keyed by (match_id, frame)
type PlatformFrameRow struct {
	MatchID     string  `parquet:"match_id"`
	Frame       int32   `parquet:"frame"`
	LeftHeight  float32 `parquet:"left_height"`
	RightHeight float32 `parquet:"right_height"`
}

// PlayerFrameRows flattens every active slot's frames. player_id is the connect
// code of the slot's port, so Ice Climbers partners share the primary's id.
func PlayerFrameRows(r *slp.Replay) []PlayerFrameRow {
	var rows []PlayerFrameRow
	for _, i := range r.ActivePorts() {
		p := &r.Players[i]
		id := r.Players[i%4].TagCode
		for f := range p.Frames {
			pf := &p.Frames[f]
			rows = append(rows, PlayerFrameRow{
				MatchID:     r.StartTime,
				PlayerID:    id,
				PlayerIndex: uint8(i),
				FrameNumber: uint32(f),
				CharID:      pf.CharID,
				Follower:    pf.Follower,
				Seed:        pf.Seed,
				UCFX:        pf.UCFX,
				Stocks:      pf.Stocks,
				Alive:       pf.Alive,
				AnimIndex:   pf.AnimIndex,
				PosXPre:     pf.PosXPre,
				PosYPre:     pf.PosYPre,
				PosXPost:    pf.PosXPost,
				PosYPost:    pf.PosYPost,
				JoyX:        pf.JoyX,
				JoyY:        pf.JoyY,
				CX:          pf.CX,
				CY:          pf.CY,
				Trigger:     pf.Trigger,
				Buttons:     pf.Buttons,
				PhysL:       pf.PhysL,
				PhysR:       pf.PhysR,
				Shield:      pf.Shield,
				HitWith:     pf.HitWith,
				Combo:       pf.Combo,
				HurtBy:      pf.HurtBy,
				PercentPre:  pf.PercentPre,
				PercentPost: pf.PercentPost,
				ActionPre:   pf.ActionPre,
				ActionPost:  pf.ActionPost,
				ActionFC:    pf.ActionFC,
				FaceDirPre:  pf.FaceDirPre,
				FaceDirPost: pf.FaceDirPost,
				Hitstun:     pf.Hitstun,
				Airborne:    pf.Airborne,
				GroundID:    pf.GroundID,
				Jumps:       pf.Jumps,
				LCancel:     pf.LCancel,
				Hurtbox:     pf.Hurtbox,
				Hitlag:      pf.Hitlag,
				SelfAirX:    pf.SelfAirX,
				SelfAirY:    pf.SelfAirY,
				AttackX:     pf.AttackX,
				AttackY:     pf.AttackY,
				SelfGrdX:    pf.SelfGrdX,
			})
		}
	}
	return rows
}

// ItemFrameRows flattens every live item. frame counts from the first recorded frame.
func ItemFrameRows(r *slp.Replay) []ItemFrameRow {
	var rows []ItemFrameRow
	for _, it := range r.Items.Live() {
		for _, f := range it.Frames {
			rows = append(rows, ItemFrameRow{
				MatchID:      r.StartTime,
				SpawnID:      it.SpawnID,
				ItemType:     it.Type,
				Frame:        uint32(f.Frame - r.FirstFrame),
				State:        f.State,
				FaceDir:      f.FaceDir,
				XVel:         f.XVel,
				YVel:         f.YVel,
				XPos:         f.XPos,
				YPos:         f.YPos,
				Damage:       f.Damage,
				Expire:       f.Expire,
				MissileType:  f.MissileType,
				TurnipFace:   f.TurnipFace,
				IsLaunched:   f.Launched,
				ChargedPower: f.ChargePower,
				Owner:        f.Owner,
			})
		}
	}
	return rows
}

// PlatformFrameRows flattens the platform heights
func PlatformFrameRows(r *slp.Replay) []PlatformFrameRow {
	rows := make([]PlatformFrameRow, 0, len(r.PlatformFrames))
	for _, pf := range r.PlatformFrames {
		rows = append(rows, PlatformFrameRow{
			MatchID:     r.StartTime,
			Frame:       pf.Frame,
			LeftHeight:  pf.LeftHeight,
			RightHeight: pf.RightHeight,
		})
	}
	return rows
}

// WriteParquet writes frames.parquet and items.parquet into dir, plus
// platforms.parquet when the match recorded platform heights
func WriteParquet(dir string, r *slp.Replay) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	opt := parquet.Compression(&parquet.Zstd)
	if err := parquet.WriteFile(filepath.Join(dir, FramesTable), PlayerFrameRows(r), opt); err != nil {
		return fmt.Errorf("failed to write %s: %w", FramesTable, err)
	}
	if err := parquet.WriteFile(filepath.Join(dir, ItemsTable), ItemFrameRows(r), opt); err != nil {
		return fmt.Errorf("failed to write %s: %w", ItemsTable, err)
	}
	if len(r.PlatformFrames) == 0 {
		return nil
	}
	if err := parquet.WriteFile(filepath.Join(dir, PlatformsTable), PlatformFrameRows(r), opt); err != nil {
		return fmt.Errorf("failed to write %s: %w", PlatformsTable, err)
	}
	return nil
}
