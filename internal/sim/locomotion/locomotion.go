// Package locomotion moves the first-person player: damped horizontal
// velocity driven by key and analog intents, a separate look channel, and a
// per-axis clamp to the room.
package locomotion

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelyard.dev/internal/sim/geom"
	"voxelyard.dev/internal/sim/tuning"
)

// Intent is the movement part of one tick's input. Analog axes are in
// [-1,1]; AnalogY > 0 means forward.
type Intent struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Sprint  bool

	AnalogX float64
	AnalogY float64
}

// Bounds is the box the player position is clamped to, one axis at a time.
type Bounds struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

type Params struct {
	BaseSpeed        float64
	SprintMultiplier float64
	Gain             float64
	Damping          float64
	AnalogThreshold  float64
	LookSensitivity  float64
	Bounds           Bounds
}

func ParamsFromTuning(t tuning.Tuning) Params {
	l, w := t.Locomotion, t.World
	return Params{
		BaseSpeed:        l.BaseSpeed,
		SprintMultiplier: l.SprintMultiplier,
		Gain:             l.Gain,
		Damping:          l.Damping,
		AnalogThreshold:  l.AnalogThreshold,
		LookSensitivity:  l.LookSensitivity,
		Bounds: Bounds{
			Min: mgl64.Vec3{-w.Bound, w.FloorY, -w.Bound},
			Max: mgl64.Vec3{w.Bound, w.CeilingY, w.Bound},
		},
	}
}

// Player is the locomotion state. Yaw 0 looks down -Z; positive pitch looks up.
type Player struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Yaw      float64
	Pitch    float64
}

func NewPlayer(spawn mgl64.Vec3) Player {
	return Player{Position: spawn}
}

// ViewDirection is the unit eye direction for the current yaw and pitch.
func (p Player) ViewDirection() mgl64.Vec3 {
	sy, cy := math.Sincos(p.Yaw)
	sp, cp := math.Sincos(p.Pitch)
	return mgl64.Vec3{-sy * cp, sp, -cy * cp}
}

// Forward is the view direction projected onto the floor.
func (p Player) Forward() mgl64.Vec3 {
	sy, cy := math.Sincos(p.Yaw)
	return mgl64.Vec3{-sy, 0, -cy}
}

func (p Player) Right() mgl64.Vec3 {
	return p.Forward().Cross(geom.Up)
}

// Look applies a rotational delta. Pitch stops at straight up and straight
// down so the camera never flips.
func (p *Player) Look(dYaw, dPitch, sensitivity float64) {
	if sensitivity == 0 {
		sensitivity = 1
	}
	p.Yaw = wrapAngle(p.Yaw - dYaw*sensitivity)
	p.Pitch = mgl64.Clamp(p.Pitch-dPitch*sensitivity, -math.Pi/2, math.Pi/2)
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Direction combines the intents into a unit horizontal vector, or zero.
func Direction(p Player, in Intent, threshold float64) mgl64.Vec3 {
	ax := mgl64.Clamp(in.AnalogX, -1, 1)
	ay := mgl64.Clamp(in.AnalogY, -1, 1)
	fwd := in.Forward || ay > threshold
	back := in.Back || ay < -threshold
	left := in.Left || ax < -threshold
	right := in.Right || ax > threshold

	var d mgl64.Vec3
	f, r := p.Forward(), p.Right()
	if fwd {
		d = d.Add(f)
	}
	if back {
		d = d.Sub(f)
	}
	if right {
		d = d.Add(r)
	}
	if left {
		d = d.Sub(r)
	}
	if d.Len() < 1e-12 {
		return mgl64.Vec3{}
	}
	return d.Normalize()
}

// Step advances the player by delta seconds. Damping applies every tick,
// with or without input. Y is never integrated, only clamped.
func (p *Player) Step(delta float64, in Intent, params Params) {
	if delta < 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		delta = 0
	}
	dir := Direction(*p, in, params.AnalogThreshold)
	if dir != (mgl64.Vec3{}) {
		speed := params.BaseSpeed
		if in.Sprint {
			speed *= params.SprintMultiplier
		}
		p.Velocity = p.Velocity.Add(dir.Mul(speed * delta * params.Gain))
	}
	p.Velocity = p.Velocity.Mul(params.Damping)
	p.Position = p.Position.Add(mgl64.Vec3{p.Velocity.X() * delta, 0, p.Velocity.Z() * delta})
	p.Position = params.Bounds.Clamp(p.Position)
}

func (b Bounds) Clamp(v mgl64.Vec3) mgl64.Vec3 {
	for i := 0; i < 3; i++ {
		v[i] = mgl64.Clamp(v[i], b.Min[i], b.Max[i])
	}
	return v
}
