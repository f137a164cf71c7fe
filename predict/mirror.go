package predict

import (
	"math"

	"hexarena/logic"
)

// turnRate is the fraction of the remaining facing error closed per client tick.
const turnRate = 0.35

// Mirror follows a non-owned actor. It never predicts: each tick it snaps to the newest
// authoritative state and turns its facing toward that state's direction.
type Mirror struct {
	ID     logic.ActorID
	State  logic.SimulationState
	Facing float64

	pending    logic.SimulationState
	hasPending bool
}

func NewMirror(id logic.ActorID, s logic.SimulationState) *Mirror {
	return &Mirror{ID: id, State: s, Facing: s.Direction}
}

// Offer buffers an authoritative state for the next Tick.
func (m *Mirror) Offer(s logic.SimulationState) {
	if !m.hasPending || s.Frame > m.pending.Frame {
		m.pending = s
		m.hasPending = true
	}
}

// Tick applies the buffered state unless it is not newer than what is shown. It reports
// whether the position changed.
func (m *Mirror) Tick() bool {
	applied := false
	if m.hasPending {
		m.hasPending = false
		if m.pending.Frame > m.State.Frame {
			m.State = m.pending
			applied = true
		}
	}
	m.Facing = logic.LerpDegrees(m.Facing, m.State.Direction, turnRate)
	return applied
}

// Extrapolate projects the mirror forward by elapsed seconds along its last direction for
// rendering. Projection stops after one tick interval.
func (m *Mirror) Extrapolate(elapsed float64, motion logic.Motion) logic.Vector2 {
	if elapsed <= 0 {
		return m.State.Position
	}
	elapsed = math.Min(elapsed, motion.Dt)
	rad := m.State.Direction * math.Pi / 180
	return motion.Clamp(logic.Vector2{
		X: m.State.Position.X + math.Cos(rad)*motion.Speed*elapsed,
		Y: m.State.Position.Y + math.Sin(rad)*motion.Speed*elapsed,
	})
}
