package predict

import (
	"log"
	"sync"

	"hexarena/logic"
)

// Predictor runs the owned actor ahead of the server and corrects it when authoritative
// states arrive. Offer may be called from any goroutine; everything else belongs to the
// client tick goroutine.
type Predictor struct {
	motion    logic.Motion
	tolerance float64
	logger    *log.Logger

	// fixed-size ring caches indexed by frame % len
	inputs []logic.InputState
	states []logic.SimulationState
	filled []bool

	frame         int64
	lastCorrected int64
	current       logic.SimulationState

	mu      sync.Mutex
	auth    logic.SimulationState
	hasAuth bool

	Stats Stats
}

// Stats counts reconcile outcomes.
type Stats struct {
	Reconciled int
	Replayed   int
	Snapped    int
	Aborted    int
}

// NewPredictor starts predicting from start at startFrame, the first frame the server will accept.
func NewPredictor(cfg *logic.GameConfig, start logic.SimulationState, startFrame int64, logger *log.Logger) *Predictor {
	if logger == nil {
		logger = log.Default()
	}
	size := max(cfg.Client.CacheSize, 1)
	return &Predictor{
		motion:        logic.NewMotion(cfg),
		tolerance:     cfg.Client.ReconcileTolerance,
		logger:        logger,
		inputs:        make([]logic.InputState, size),
		states:        make([]logic.SimulationState, size),
		filled:        make([]bool, size),
		frame:         startFrame,
		lastCorrected: startFrame - 1,
		current:       start,
	}
}

// Offer records an authoritative state for the owned actor. Only the newest frame is kept.
func (p *Predictor) Offer(s logic.SimulationState) {
	p.mu.Lock()
	if !p.hasAuth || s.Frame > p.auth.Frame {
		p.auth = s
		p.hasAuth = true
	}
	p.mu.Unlock()
}

func (p *Predictor) latest() (logic.SimulationState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auth, p.hasAuth
}

// LocalTick reconciles against the latest authoritative state if it is new, then predicts one
// frame with direction. The returned input is what should be sent to the server.
func (p *Predictor) LocalTick(direction float64) (logic.InputState, logic.SimulationState) {
	if auth, ok := p.latest(); ok && auth.Frame > p.lastCorrected {
		p.Reconcile(auth)
	}
	in := logic.InputState{Frame: p.frame, Direction: logic.NormalizeDegrees(direction)}
	p.current = logic.Integrate(p.current, in, p.motion)
	p.store(in, p.current)
	p.frame++
	return in, p.current
}

func (p *Predictor) slot(frame int64) int {
	return int(frame % int64(len(p.inputs)))
}

func (p *Predictor) store(in logic.InputState, s logic.SimulationState) {
	i := p.slot(in.Frame)
	p.inputs[i] = in
	p.states[i] = s
	p.filled[i] = true
}

// cached returns the input and predicted state for frame if the ring still holds them.
func (p *Predictor) cached(frame int64) (logic.InputState, logic.SimulationState, bool) {
	if frame < 0 {
		return logic.InputState{}, logic.SimulationState{}, false
	}
	i := p.slot(frame)
	if !p.filled[i] || p.inputs[i].Frame != frame || p.states[i].Frame != frame {
		return logic.InputState{}, logic.SimulationState{}, false
	}
	return p.inputs[i], p.states[i], true
}

// Reconcile corrects the prediction with an authoritative state. Stale or duplicate states are ignored.
func (p *Predictor) Reconcile(auth logic.SimulationState) {
	if auth.Frame <= p.lastCorrected {
		return
	}
	defer func() { p.lastCorrected = auth.Frame }()
	p.Stats.Reconciled++

	_, predicted, ok := p.cached(auth.Frame)
	if !ok {
		// beyond the cache horizon, nothing to replay
		p.snap(auth)
		return
	}
	if logic.Distance(predicted.Position, auth.Position) <= p.tolerance {
		return
	}

	p.Stats.Replayed++
	state := auth
	p.states[p.slot(auth.Frame)] = auth
	for f := auth.Frame + 1; f < p.frame; f++ {
		in, _, ok := p.cached(f)
		if !ok {
			p.logger.Printf("predict: frame %d missing during replay from %d, snapping", f, auth.Frame)
			p.Stats.Aborted++
			p.snap(auth)
			return
		}
		state = logic.Integrate(state, in, p.motion)
		p.states[p.slot(f)] = state
	}
	p.current = state
}

func (p *Predictor) snap(auth logic.SimulationState) {
	p.Stats.Snapped++
	p.current = auth
	if p.frame <= auth.Frame {
		p.frame = auth.Frame + 1
	}
}

// State is the current predicted state.
func (p *Predictor) State() logic.SimulationState { return p.current }

// Frame is the next frame LocalTick will produce.
func (p *Predictor) Frame() int64 { return p.frame }

func (p *Predictor) LastCorrected() int64 { return p.lastCorrected }

// Predicted returns the cached prediction for frame, if any.
func (p *Predictor) Predicted(frame int64) (logic.SimulationState, bool) {
	_, s, ok := p.cached(frame)
	return s, ok
}
