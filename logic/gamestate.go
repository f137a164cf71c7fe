package logic

import (
	"log"
	"math/rand"
	"slices"
	"sync"
	"time"
)

var actorPalette = []uint32{
	0xE6194B, 0x3CB44B, 0xFFE119, 0x4363D8, 0xF58231, 0x911EB4,
	0x46F0F0, 0xF032E6, 0xBCF60C, 0xFABEBE, 0x008080, 0xE6BEFF,
}

// ExitReason explains why an actor left the room.
type ExitReason string

const (
	ExitLeft     ExitReason = "left"
	ExitGameOver ExitReason = "game_over"
)

// Exit is reported once per removed actor.
type Exit struct {
	ActorID   ActorID
	Name      string
	Reason    ExitReason
	PeakTiles int
}

type pendingInput struct {
	actor ActorID
	input InputState
	at    time.Time
}

// GameState is the authoritative simulation of one room. Everything except HandleInput
// must be called from the room's tick goroutine.
type GameState struct {
	Config    *GameConfig
	Grid      HexGrid
	Motion    Motion
	Territory *Territory
	Objects   *Registry

	actors  map[ActorID]*Actor
	order   []ActorID
	nextID  ActorID
	tick    int64
	spawner *Spawner
	rng     *rand.Rand
	now     func() time.Time
	logger  *log.Logger

	inputMu sync.Mutex
	inputs  []pendingInput

	events []Event
	exits  []Exit
}

// Option customizes a GameState.
type Option func(*GameState)

// WithClock replaces time.Now for liveness checks.
func WithClock(now func() time.Time) Option {
	return func(gs *GameState) { gs.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(gs *GameState) { gs.logger = l }
}

func NewGameState(cfg *GameConfig, opts ...Option) *GameState {
	grid := NewHexGrid(cfg.Map)
	seed := cfg.Objects.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	gs := &GameState{
		Config:    cfg,
		Grid:      grid,
		Motion:    NewMotion(cfg),
		Territory: NewTerritory(grid),
		actors:    make(map[ActorID]*Actor),
		spawner:   NewSpawner(grid, cfg.Map.SafeSpawnMarginPct, rng),
		rng:       rng,
		now:       time.Now,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(gs)
	}
	gs.Objects = NewRegistry(cfg.Objects, gs.Territory, gs.spawner, rng, gs.emit)
	gs.Objects.SeedFlowers()
	return gs
}

func (gs *GameState) emit(ev Event) {
	gs.events = append(gs.events, ev)
}

func (gs *GameState) timeout() time.Duration {
	return time.Duration(gs.Config.Server.ConnectionTimeoutMs) * time.Millisecond
}

// AddActor spawns a new actor with its territory. It returns nil when the room is full.
func (gs *GameState) AddActor(name string) *Actor {
	if len(gs.actors) >= gs.Config.Server.MaxActors {
		return nil
	}
	gs.nextID++
	id := gs.nextID
	radius := gs.Config.Gameplay.DefaultBaseRadius
	center := gs.spawner.BaseCenter(gs.Territory, radius)
	if name == "" {
		name = "Player"
	}
	a := newActor(id, name, actorPalette[int(id-1)%len(actorPalette)], gs.Grid.HexToWorld(center), gs.now())
	gs.actors[id] = a
	gs.order = append(gs.order, id)
	a.Base = NewBase(id, center, radius, gs.Territory)

	gs.emit(Event{Type: EventActorJoined, Payload: a.info()})
	gs.flushTerritory()
	gs.emit(Event{Type: EventInitialState, To: id, Payload: gs.initialState(a)})
	gs.logger.Printf("Actor %d (%s) spawned at %v", id, name, center)
	// the initial claim may have erased a neighbour entirely
	gs.settleDestroyed()
	return a
}

// ReattachActor refreshes a paused actor for a reconnecting client and resends its initial state.
func (gs *GameState) ReattachActor(id ActorID) *Actor {
	a, ok := gs.actors[id]
	if !ok || a.removed {
		return nil
	}
	a.LastSeen = gs.now()
	gs.emit(Event{Type: EventInitialState, To: id, Payload: gs.initialState(a)})
	return a
}

// HandleInput buffers an input for the next tick. Safe to call from any goroutine.
func (gs *GameState) HandleInput(id ActorID, in InputState) {
	gs.inputMu.Lock()
	gs.inputs = append(gs.inputs, pendingInput{actor: id, input: in, at: gs.now()})
	gs.inputMu.Unlock()
}

func (gs *GameState) drainInputs() {
	gs.inputMu.Lock()
	pending := gs.inputs
	gs.inputs = nil
	gs.inputMu.Unlock()

	for _, p := range pending {
		a, ok := gs.actors[p.actor]
		if !ok {
			continue
		}
		a.enqueue(p.input, p.at)
	}
}

// HandlePickup gives the actor the nearest free pickable object within reach.
func (gs *GameState) HandlePickup(id ActorID) {
	a, ok := gs.actors[id]
	if !ok {
		return
	}
	o := gs.Objects.NearestPickable(a.State.Position, []ObjectKind{KindPollen, KindPesticide})
	if o == nil || Distance(o.Position, a.State.Position) > gs.Config.Gameplay.MaxPickupDistance {
		return
	}
	if !gs.Objects.Pickup(o, a) {
		return
	}
	gs.emit(Event{Type: EventObjectsPicked, Payload: ObjectsPicked{ActorID: id, ObjectIDs: []ObjectID{o.ID}}})
}

// HandleDrop releases everything the actor holds.
func (gs *GameState) HandleDrop(id ActorID) {
	a, ok := gs.actors[id]
	if !ok || len(a.Held) == 0 {
		return
	}
	held := slices.Clone(a.Held)
	drops := make([]ObjectDrop, 0, len(held))
	for _, o := range held {
		drops = append(drops, ObjectDrop{ID: o.ID, Position: o.Position, Rotation: o.Rotation})
	}
	gs.emit(Event{Type: EventObjectsDropped, Payload: ObjectsDropped{ActorID: id, Drops: drops}})
	for _, o := range held {
		gs.Objects.Drop(o)
	}
}

// RemoveActor releases the actor's tiles and held objects, then forgets it. Repeated calls are no-ops.
func (gs *GameState) RemoveActor(id ActorID, reason ExitReason) {
	a, ok := gs.actors[id]
	if !ok || a.removed {
		return
	}
	a.removed = true
	peak := a.Base.PeakTiles()
	for _, idx := range gs.Territory.TilesOf(a.Base) {
		gs.Territory.SetOwner(idx, nil)
	}
	if len(a.Held) > 0 {
		drops := make([]ObjectDrop, 0, len(a.Held))
		for _, o := range slices.Clone(a.Held) {
			drops = append(drops, ObjectDrop{ID: o.ID, Position: o.Position, Rotation: o.Rotation})
			gs.Objects.Release(o)
		}
		gs.emit(Event{Type: EventObjectsDropped, Payload: ObjectsDropped{ActorID: id, Drops: drops}})
	}
	delete(gs.actors, id)
	if i := slices.Index(gs.order, id); i >= 0 {
		gs.order = slices.Delete(gs.order, i, i+1)
	}
	gs.flushTerritory()
	if reason == ExitGameOver {
		gs.emit(Event{Type: EventGameOver, Payload: ActorRef{ID: id}})
	}
	gs.emit(Event{Type: EventActorLeft, Payload: ActorRef{ID: id}})
	gs.exits = append(gs.exits, Exit{ActorID: id, Name: a.Name, Reason: reason, PeakTiles: peak})
	gs.logger.Printf("Actor %d removed (%s)", id, reason)
}

// UpdateTick advances the room by one tick.
func (gs *GameState) UpdateTick() {
	gs.tick++
	gs.drainInputs()

	now := gs.now()
	timeout := gs.timeout()
	states := make([]ActorState, 0, len(gs.order))
	for _, id := range gs.order {
		a := gs.actors[id]
		if !a.Alive(now, timeout) {
			continue
		}
		a.Advance(gs.Motion)
		a.Base.Tick()
		a.UpdateChain(gs.Config.Gameplay.FollowStep, gs.Config.Gameplay.FollowGap)
		states = append(states, ActorState{ActorID: id, State: a.State})
	}
	gs.Objects.Tick(gs.tick)
	gs.flushTerritory()
	gs.settleDestroyed()

	if gs.tick%int64(gs.Config.Server.BroadcastEvery) == 0 {
		states = slices.DeleteFunc(states, func(s ActorState) bool { return gs.actors[s.ActorID] == nil })
		gs.emit(Event{Type: EventSimulationStates, Payload: StateStream{Tick: gs.tick, States: states}})
	}
}

func (gs *GameState) flushTerritory() {
	for _, c := range gs.Territory.DrainChanges() {
		gs.emit(Event{Type: EventTileOwnerChanged, Payload: TileInfo{Owner: c.Owner, Index: c.Index}})
	}
}

// settleDestroyed removes owners of bases that ran out of tiles.
func (gs *GameState) settleDestroyed() {
	for {
		destroyed := gs.Territory.DrainDestroyed()
		if len(destroyed) == 0 {
			return
		}
		for _, b := range destroyed {
			gs.RemoveActor(b.Owner, ExitGameOver)
		}
	}
}

// DrainEvents returns outbound events in emission order and clears the buffer.
func (gs *GameState) DrainEvents() []Event {
	out := gs.events
	gs.events = nil
	return out
}

// DrainExits returns actors removed since the last drain.
func (gs *GameState) DrainExits() []Exit {
	out := gs.exits
	gs.exits = nil
	return out
}

func (gs *GameState) Actor(id ActorID) *Actor { return gs.actors[id] }
func (gs *GameState) ActorCount() int         { return len(gs.actors) }
func (gs *GameState) Tick() int64             { return gs.tick }

// Summary describes the current tick for the journal.
func (gs *GameState) Summary(events int) TickLogEntry {
	now := gs.now()
	active := 0
	for _, a := range gs.actors {
		if a.Alive(now, gs.timeout()) {
			active++
		}
	}
	return TickLogEntry{
		Tick:    gs.tick,
		Actors:  len(gs.actors),
		Active:  active,
		Objects: gs.Objects.Len(),
		Tiles:   len(gs.Territory.OwnedTiles()),
		Events:  events,
		Digest:  gs.Territory.Digest(),
	}
}

func (a *Actor) info() ActorInfo {
	return ActorInfo{ID: a.ID, Name: a.Name, Color: a.Color, BasePosition: a.BasePosition, State: a.State}
}

func (gs *GameState) initialState(owned *Actor) InitialState {
	st := InitialState{
		OwnedID:     owned.ID,
		StartFrame:  max(owned.State.Frame, owned.lastFrame) + 1,
		Self:        owned.info(),
		Actors:      make([]ActorInfo, 0, len(gs.order)),
		Objects:     make([]ObjectInfo, 0, gs.Objects.Len()),
		HeldObjects: []HeldInfo{},
		OwnedTiles:  []TileInfo{},
	}
	for _, id := range gs.order {
		if id == owned.ID {
			continue
		}
		st.Actors = append(st.Actors, gs.actors[id].info())
	}
	for _, o := range gs.Objects.Objects() {
		st.Objects = append(st.Objects, o.Info())
		if o.Owner != nil {
			st.HeldObjects = append(st.HeldObjects, HeldInfo{ActorID: o.Owner.ID, ObjectID: o.ID})
		}
	}
	for _, c := range gs.Territory.OwnedTiles() {
		st.OwnedTiles = append(st.OwnedTiles, TileInfo{Owner: c.Owner, Index: c.Index})
	}
	return st
}
