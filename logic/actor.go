package logic

import "time"

// Actor is one connected controller (human or bot) in a room.
type Actor struct {
	ID           ActorID
	Name         string
	Color        uint32
	BasePosition Vector2
	State        SimulationState
	Base         *Base
	Held         []*NetworkObject
	LastSeen     time.Time

	queue     []InputState
	lastFrame int64
	removed   bool
}

func newActor(id ActorID, name string, color uint32, basePos Vector2, now time.Time) *Actor {
	return &Actor{
		ID:           id,
		Name:         name,
		Color:        color,
		BasePosition: basePos,
		State:        SimulationState{Position: basePos},
		LastSeen:     now,
	}
}

// enqueue appends in if it is newer than anything already queued. Stale or duplicate frames are dropped.
func (a *Actor) enqueue(in InputState, at time.Time) bool {
	if in.Frame <= a.lastFrame {
		return false
	}
	in.Direction = NormalizeDegrees(in.Direction)
	a.queue = append(a.queue, in)
	a.lastFrame = in.Frame
	if at.After(a.LastSeen) {
		a.LastSeen = at
	}
	return true
}

// Alive reports whether input arrived within timeout of now.
func (a *Actor) Alive(now time.Time, timeout time.Duration) bool {
	return now.Sub(a.LastSeen) <= timeout
}

// Advance drains the whole input queue in arrival order. It returns false when nothing was applied.
func (a *Actor) Advance(m Motion) bool {
	if len(a.queue) == 0 {
		return false
	}
	for _, in := range a.queue {
		a.State = Integrate(a.State, in, m)
	}
	a.queue = a.queue[:0]
	return true
}

// UpdateChain drags held objects behind the actor, each one following the one ahead.
func (a *Actor) UpdateChain(step, gap float64) {
	leader := a.State.Position
	for _, o := range a.Held {
		o.Position, o.Rotation = Follow(o.Position, leader, step, gap)
		leader = o.Position
	}
}

func (a *Actor) release(o *NetworkObject) {
	for i, h := range a.Held {
		if h == o {
			a.Held = append(a.Held[:i], a.Held[i+1:]...)
			return
		}
	}
}

func (a *Actor) Removed() bool { return a.removed }
