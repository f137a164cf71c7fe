package predict

import (
	"context"
	"log"
	"sync"
	"time"

	"hexarena/logic"
)

// Frame is what a render pass sees.
type Frame struct {
	Self   logic.Vector2
	Facing float64
	Others map[logic.ActorID]logic.Vector2
}

// Loop is the client-side clock. It runs LocalTick at the server tick rate and an
// extrapolating render pass at RenderHz. Network goroutines feed it through OfferStream
// and Forget; it never waits on the network.
type Loop struct {
	Predictor *Predictor
	Owned     logic.ActorID

	// Steer returns the direction for the next local frame.
	Steer func() float64
	// Send ships a predicted input to the server. Errors are logged and the frame is kept.
	Send func(logic.InputState) error
	// Render is optional.
	Render   func(Frame)
	RenderHz int

	motion logic.Motion
	tick   time.Duration
	logger *log.Logger

	mu       sync.Mutex
	mirrors  map[logic.ActorID]*Mirror
	lastTick time.Time
}

func NewLoop(cfg *logic.GameConfig, owned logic.ActorID, p *Predictor, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		Predictor: p,
		Owned:     owned,
		RenderHz:  60,
		motion:    logic.NewMotion(cfg),
		tick:      time.Second / time.Duration(cfg.Server.TickRateHz),
		logger:    logger,
		mirrors:   make(map[logic.ActorID]*Mirror),
	}
}

// OfferStream routes one simulationStateStream message.
func (l *Loop) OfferStream(states []logic.ActorState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range states {
		if s.ActorID == l.Owned {
			l.Predictor.Offer(s.State)
			continue
		}
		m, ok := l.mirrors[s.ActorID]
		if !ok {
			l.mirrors[s.ActorID] = NewMirror(s.ActorID, s.State)
			continue
		}
		m.Offer(s.State)
	}
}

// Track starts mirroring an actor announced by actorJoined or initialState.
func (l *Loop) Track(info logic.ActorInfo) {
	if info.ID == l.Owned {
		return
	}
	l.mu.Lock()
	if _, ok := l.mirrors[info.ID]; !ok {
		l.mirrors[info.ID] = NewMirror(info.ID, info.State)
	}
	l.mu.Unlock()
}

// Forget drops a mirror after actorLeft.
func (l *Loop) Forget(id logic.ActorID) {
	l.mu.Lock()
	delete(l.mirrors, id)
	l.mu.Unlock()
}

// Step runs one local tick.
func (l *Loop) Step(now time.Time) logic.InputState {
	dir := 0.0
	if l.Steer != nil {
		dir = l.Steer()
	}
	in, _ := l.Predictor.LocalTick(dir)

	l.mu.Lock()
	for _, m := range l.mirrors {
		m.Tick()
	}
	l.lastTick = now
	l.mu.Unlock()

	if l.Send != nil {
		if err := l.Send(in); err != nil {
			l.logger.Printf("predict: send frame %d: %v", in.Frame, err)
		}
	}
	return in
}

// Snapshot extrapolates every mirror to now.
func (l *Loop) Snapshot(now time.Time) Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	elapsed := 0.0
	if !l.lastTick.IsZero() {
		elapsed = now.Sub(l.lastTick).Seconds()
	}
	self := l.Predictor.State()
	f := Frame{Self: self.Position, Facing: self.Direction, Others: make(map[logic.ActorID]logic.Vector2, len(l.mirrors))}
	for id, m := range l.mirrors {
		f.Others[id] = m.Extrapolate(elapsed, l.motion)
	}
	return f
}

// Run blocks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	var render <-chan time.Time
	if l.Render != nil && l.RenderHz > 0 {
		rt := time.NewTicker(time.Second / time.Duration(l.RenderHz))
		defer rt.Stop()
		render = rt.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Step(now)
		case now := <-render:
			l.Render(l.Snapshot(now))
		}
	}
}
