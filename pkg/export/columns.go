package export

import "github.com/ssargent/slippc/pkg/slp"

// column is one named per-frame value in the text document
type column[T any] struct {
	name string
	get  func(*T) interface{}
}

var playerColumns = []column[slp.PlayerFrame]{
	{"follower", func(f *slp.PlayerFrame) interface{} { return f.Follower }},
	{"seed", func(f *slp.PlayerFrame) interface{} { return f.Seed }},
	{"action_pre", func(f *slp.PlayerFrame) interface{} { return f.ActionPre }},
	{"pos_x_pre", func(f *slp.PlayerFrame) interface{} { return f.PosXPre }},
	{"pos_y_pre", func(f *slp.PlayerFrame) interface{} { return f.PosYPre }},
	{"face_dir_pre", func(f *slp.PlayerFrame) interface{} { return f.FaceDirPre }},
	{"joy_x", func(f *slp.PlayerFrame) interface{} { return f.JoyX }},
	{"joy_y", func(f *slp.PlayerFrame) interface{} { return f.JoyY }},
	{"c_x", func(f *slp.PlayerFrame) interface{} { return f.CX }},
	{"c_y", func(f *slp.PlayerFrame) interface{} { return f.CY }},
	{"trigger", func(f *slp.PlayerFrame) interface{} { return f.Trigger }},
	{"buttons", func(f *slp.PlayerFrame) interface{} { return f.Buttons }},
	{"phys_buttons", func(f *slp.PlayerFrame) interface{} { return f.PhysButtons }},
	{"phys_l", func(f *slp.PlayerFrame) interface{} { return f.PhysL }},
	{"phys_r", func(f *slp.PlayerFrame) interface{} { return f.PhysR }},
	{"ucf_x", func(f *slp.PlayerFrame) interface{} { return f.UCFX }},
	{"percent_pre", func(f *slp.PlayerFrame) interface{} { return f.PercentPre }},
	{"raw_analog_y", func(f *slp.PlayerFrame) interface{} { return f.RawAnalogY }},
	{"char_id", func(f *slp.PlayerFrame) interface{} { return f.CharID }},
	{"action_post", func(f *slp.PlayerFrame) interface{} { return f.ActionPost }},
	{"pos_x_post", func(f *slp.PlayerFrame) interface{} { return f.PosXPost }},
	{"pos_y_post", func(f *slp.PlayerFrame) interface{} { return f.PosYPost }},
	{"face_dir_post", func(f *slp.PlayerFrame) interface{} { return f.FaceDirPost }},
	{"percent_post", func(f *slp.PlayerFrame) interface{} { return f.PercentPost }},
	{"shield", func(f *slp.PlayerFrame) interface{} { return f.Shield }},
	{"hit_with", func(f *slp.PlayerFrame) interface{} { return f.HitWith }},
	{"combo", func(f *slp.PlayerFrame) interface{} { return f.Combo }},
	{"hurt_by", func(f *slp.PlayerFrame) interface{} { return f.HurtBy }},
	{"stocks", func(f *slp.PlayerFrame) interface{} { return f.Stocks }},
	{"action_fc", func(f *slp.PlayerFrame) interface{} { return f.ActionFC }},
	{"flags_1", func(f *slp.PlayerFrame) interface{} { return f.Flags[0] }},
	{"flags_2", func(f *slp.PlayerFrame) interface{} { return f.Flags[1] }},
	{"flags_3", func(f *slp.PlayerFrame) interface{} { return f.Flags[2] }},
	{"flags_4", func(f *slp.PlayerFrame) interface{} { return f.Flags[3] }},
	{"flags_5", func(f *slp.PlayerFrame) interface{} { return f.Flags[4] }},
	{"hitstun", func(f *slp.PlayerFrame) interface{} { return f.Hitstun }},
	{"airborne", func(f *slp.PlayerFrame) interface{} { return f.Airborne }},
	{"ground_id", func(f *slp.PlayerFrame) interface{} { return f.GroundID }},
	{"jumps", func(f *slp.PlayerFrame) interface{} { return f.Jumps }},
	{"l_cancel", func(f *slp.PlayerFrame) interface{} { return f.LCancel }},
	{"hurtbox", func(f *slp.PlayerFrame) interface{} { return f.Hurtbox }},
	{"self_air_x", func(f *slp.PlayerFrame) interface{} { return f.SelfAirX }},
	{"self_air_y", func(f *slp.PlayerFrame) interface{} { return f.SelfAirY }},
	{"attack_x", func(f *slp.PlayerFrame) interface{} { return f.AttackX }},
	{"attack_y", func(f *slp.PlayerFrame) interface{} { return f.AttackY }},
	{"self_grd_x", func(f *slp.PlayerFrame) interface{} { return f.SelfGrdX }},
	{"hitlag", func(f *slp.PlayerFrame) interface{} { return f.Hitlag }},
	{"anim_index", func(f *slp.PlayerFrame) interface{} { return f.AnimIndex }},
	{"instance_hit_by", func(f *slp.PlayerFrame) interface{} { return f.InstanceHitBy }},
	{"instance_id", func(f *slp.PlayerFrame) interface{} { return f.InstanceID }},
	{"alive", func(f *slp.PlayerFrame) interface{} { return f.Alive }},
}

var itemColumns = []column[slp.ItemFrame]{
	{"state", func(f *slp.ItemFrame) interface{} { return f.State }},
	{"face_dir", func(f *slp.ItemFrame) interface{} { return f.FaceDir }},
	{"xvel", func(f *slp.ItemFrame) interface{} { return f.XVel }},
	{"yvel", func(f *slp.ItemFrame) interface{} { return f.YVel }},
	{"xpos", func(f *slp.ItemFrame) interface{} { return f.XPos }},
	{"ypos", func(f *slp.ItemFrame) interface{} { return f.YPos }},
	{"damage", func(f *slp.ItemFrame) interface{} { return f.Damage }},
	{"expire", func(f *slp.ItemFrame) interface{} { return f.Expire }},
	{"missile_type", func(f *slp.ItemFrame) interface{} { return f.MissileType }},
	{"turnip_face", func(f *slp.ItemFrame) interface{} { return f.TurnipFace }},
	{"is_launched", func(f *slp.ItemFrame) interface{} { return f.Launched }},
	{"charged_power", func(f *slp.ItemFrame) interface{} { return f.ChargePower }},
	{"owner", func(f *slp.ItemFrame) interface{} { return f.Owner }},
	{"instance_id", func(f *slp.ItemFrame) interface{} { return f.InstanceID }},
}
