package logic

import "math"

// InputState is one frame of controller intent. Direction is in degrees, 0 = +X, 90 = +Y.
type InputState struct {
	Frame     int64   `json:"frame" msgpack:"frame"`
	Direction float64 `json:"direction" msgpack:"direction"`
}

// SimulationState is the result of applying one InputState.
type SimulationState struct {
	Frame     int64   `json:"frame" msgpack:"frame"`
	Direction float64 `json:"direction" msgpack:"direction"`
	Position  Vector2 `json:"position" msgpack:"position"`
}

// Motion holds the integrator constants shared by the server and client predictors.
type Motion struct {
	Speed float64
	Dt    float64
	MaxX  float64
	MaxY  float64
}

func NewMotion(cfg *GameConfig) Motion {
	return Motion{
		Speed: cfg.Gameplay.MoveSpeed,
		Dt:    cfg.TickInterval(),
		MaxX:  float64(cfg.Map.Width)/2*cfg.Map.TileSpacingX + cfg.Map.BoundsTolerance,
		MaxY:  float64(cfg.Map.Height)/2*cfg.Map.TileSpacingY + cfg.Map.BoundsTolerance,
	}
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Integrate advances s by one input: a step of Speed*Dt along the input direction, clamped to bounds.
func Integrate(s SimulationState, in InputState, m Motion) SimulationState {
	rad := in.Direction * math.Pi / 180
	step := m.Speed * m.Dt
	pos := Vector2{
		X: s.Position.X + math.Cos(rad)*step,
		Y: s.Position.Y + math.Sin(rad)*step,
	}
	return SimulationState{
		Frame:     in.Frame,
		Direction: in.Direction,
		Position:  m.Clamp(pos),
	}
}

// Clamp limits pos symmetrically around the origin.
func (m Motion) Clamp(pos Vector2) Vector2 {
	return Vector2{
		X: clampFloat(pos.X, -m.MaxX, m.MaxX),
		Y: clampFloat(pos.Y, -m.MaxY, m.MaxY),
	}
}

// Follow moves pos one step toward target, stopping gap short of it. Returns the new position
// and the heading in degrees.
func Follow(pos, target Vector2, step, gap float64) (Vector2, float64) {
	dx := target.X - pos.X
	dy := target.Y - pos.Y
	angle := math.Atan2(dy, dx)
	heading := NormalizeDegrees(angle * 180 / math.Pi)
	dist := math.Hypot(dx, dy)
	if dist <= gap {
		return pos, heading
	}
	move := math.Min(step, dist-gap)
	return Vector2{X: pos.X + math.Cos(angle)*move, Y: pos.Y + math.Sin(angle)*move}, heading
}

// LerpDegrees turns from a toward b by fraction t along the shorter arc.
func LerpDegrees(a, b, t float64) float64 {
	diff := math.Mod(b-a+540, 360) - 180
	return NormalizeDegrees(a + diff*t)
}
