package logic

import (
	"io"
	"log"
	"math"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testConfig() *GameConfig {
	cfg := DefaultConfig()
	cfg.Objects.Seed = 42
	cfg.Objects.TargetCount = 0
	cfg.Objects.FlowerCount = 0
	return &cfg
}

func newTestState(cfg *GameConfig) (*GameState, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	gs := NewGameState(cfg, WithClock(clock.Now), WithLogger(log.New(io.Discard, "", 0)))
	return gs, clock
}

func eventsOf(evs []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestSingleInputMovesAlongX(t *testing.T) {
	cfg := testConfig()
	gs, _ := newTestState(cfg)
	a := gs.AddActor("alice")
	p := a.BasePosition

	gs.HandleInput(a.ID, InputState{Frame: 1, Direction: 0})
	gs.UpdateTick()

	want := cfg.Gameplay.MoveSpeed * cfg.TickInterval()
	if dx := a.State.Position.X - p.X; math.Abs(dx-want) > 1e-9 {
		t.Fatalf("dx = %f, want %f", dx, want)
	}
	if a.State.Position.Y != p.Y {
		t.Fatalf("y moved: %f != %f", a.State.Position.Y, p.Y)
	}
	if a.State.Frame != 1 {
		t.Fatalf("frame = %d, want 1", a.State.Frame)
	}
}

func TestBufferedInputsAllApplyInOneTick(t *testing.T) {
	cfg := testConfig()
	gs, _ := newTestState(cfg)
	a := gs.AddActor("bob")
	p := a.BasePosition

	gs.HandleInput(a.ID, InputState{Frame: 1, Direction: 90})
	gs.HandleInput(a.ID, InputState{Frame: 2, Direction: 90})
	gs.UpdateTick()

	want := 2 * cfg.Gameplay.MoveSpeed * cfg.TickInterval()
	if dy := a.State.Position.Y - p.Y; math.Abs(dy-want) > 1e-9 {
		t.Fatalf("dy = %f, want %f", dy, want)
	}
	if math.Abs(a.State.Position.X-p.X) > 1e-9 {
		t.Fatalf("x drifted by %f", a.State.Position.X-p.X)
	}
	if a.State.Frame != 2 {
		t.Fatalf("published frame = %d, want 2", a.State.Frame)
	}
}

func TestStaleInputsAreDropped(t *testing.T) {
	gs, _ := newTestState(testConfig())
	a := gs.AddActor("carol")
	gs.HandleInput(a.ID, InputState{Frame: 3, Direction: 0})
	gs.UpdateTick()
	x := a.State.Position.X

	gs.HandleInput(a.ID, InputState{Frame: 3, Direction: 0})
	gs.HandleInput(a.ID, InputState{Frame: 2, Direction: 0})
	gs.UpdateTick()
	if a.State.Position.X != x {
		t.Fatalf("duplicate or old frames moved the actor")
	}
}

func TestUnknownActorRequestsAreIgnored(t *testing.T) {
	gs, _ := newTestState(testConfig())
	gs.DrainEvents()
	gs.HandleInput(99, InputState{Frame: 1})
	gs.HandlePickup(99)
	gs.HandleDrop(99)
	gs.RemoveActor(99, ExitLeft)
	gs.UpdateTick()
	for _, ev := range gs.DrainEvents() {
		if ev.Type != EventSimulationStates {
			t.Fatalf("unexpected event %v", ev.Type)
		}
	}
}

func TestPositionIsClampedToMapBounds(t *testing.T) {
	cfg := testConfig()
	cfg.Gameplay.MoveSpeed = 100
	gs, _ := newTestState(cfg)
	a := gs.AddActor("runner")
	for f := int64(1); f <= 200; f++ {
		gs.HandleInput(a.ID, InputState{Frame: f, Direction: 0})
	}
	gs.UpdateTick()
	if a.State.Position.X != gs.Motion.MaxX {
		t.Fatalf("x = %f, want clamp %f", a.State.Position.X, gs.Motion.MaxX)
	}
	wantMax := float64(cfg.Map.Width)/2*cfg.Map.TileSpacingX + cfg.Map.BoundsTolerance
	if gs.Motion.MaxX != wantMax {
		t.Fatalf("MaxX = %f, want %f", gs.Motion.MaxX, wantMax)
	}
}

func TestIdleActorIsPausedNotRemoved(t *testing.T) {
	cfg := testConfig()
	gs, clock := newTestState(cfg)
	a := gs.AddActor("sleepy")
	gs.DrainEvents()

	clock.Advance(time.Duration(cfg.Server.ConnectionTimeoutMs+1) * time.Millisecond)
	gs.HandleInput(a.ID, InputState{Frame: 1})
	// input was stamped after the timeout, so the actor is live again
	gs.UpdateTick()
	if a.State.Frame != 1 {
		t.Fatalf("resumed actor did not advance")
	}

	clock.Advance(time.Duration(cfg.Server.ConnectionTimeoutMs+1) * time.Millisecond)
	gs.DrainEvents()
	gs.UpdateTick()
	streams := eventsOf(gs.DrainEvents(), EventSimulationStates)
	if len(streams) != 1 {
		t.Fatalf("stream events = %d", len(streams))
	}
	if n := len(streams[0].Payload.(StateStream).States); n != 0 {
		t.Fatalf("paused actor was ticked (%d states)", n)
	}
	if gs.Actor(a.ID) == nil {
		t.Fatalf("paused actor was removed")
	}
}

func TestJoinEmitsJoinedAndInitialState(t *testing.T) {
	gs, _ := newTestState(testConfig())
	first := gs.AddActor("one")
	gs.DrainEvents()
	second := gs.AddActor("two")
	evs := gs.DrainEvents()

	joined := eventsOf(evs, EventActorJoined)
	if len(joined) != 1 || joined[0].To != 0 || joined[0].Payload.(ActorInfo).ID != second.ID {
		t.Fatalf("actorJoined = %+v", joined)
	}
	init := eventsOf(evs, EventInitialState)
	if len(init) != 1 || init[0].To != second.ID {
		t.Fatalf("initialState = %+v", init)
	}
	st := init[0].Payload.(InitialState)
	if st.OwnedID != second.ID || st.StartFrame != 1 {
		t.Fatalf("initial state header = %+v", st)
	}
	if len(st.Actors) != 1 || st.Actors[0].ID != first.ID {
		t.Fatalf("other actors = %+v", st.Actors)
	}
	if len(st.OwnedTiles) != gs.Territory.CountOf(first.Base)+gs.Territory.CountOf(second.Base) {
		t.Fatalf("owned tiles = %d", len(st.OwnedTiles))
	}
	if second.ID == first.ID {
		t.Fatalf("actor ids reused")
	}
}

func TestRemoveActorReleasesEverythingOnce(t *testing.T) {
	gs, _ := newTestState(testConfig())
	a := gs.AddActor("leaver")
	o := gs.Objects.Spawn(KindPollen, a.State.Position)
	gs.HandlePickup(a.ID)
	if o.Owner != a {
		t.Fatalf("pickup within reach failed")
	}
	gs.DrainEvents()

	gs.RemoveActor(a.ID, ExitLeft)
	gs.RemoveActor(a.ID, ExitLeft)

	if o.Owner != nil {
		t.Fatalf("held object still owned after removal")
	}
	if n := len(gs.Territory.OwnedTiles()); n != 0 {
		t.Fatalf("%d tiles still owned", n)
	}
	evs := gs.DrainEvents()
	if n := len(eventsOf(evs, EventActorLeft)); n != 1 {
		t.Fatalf("actorLeft events = %d, want 1", n)
	}
	if n := len(eventsOf(evs, EventGameOver)); n != 0 {
		t.Fatalf("voluntary leave emitted gameOver")
	}
	exits := gs.DrainExits()
	if len(exits) != 1 || exits[0].Reason != ExitLeft || exits[0].PeakTiles == 0 {
		t.Fatalf("exits = %+v", exits)
	}

	// the emptied base is drained on the next tick without a second removal
	gs.UpdateTick()
	if n := len(eventsOf(gs.DrainEvents(), EventActorLeft)); n != 0 {
		t.Fatalf("second actorLeft after tick")
	}
}

func TestExplosionWipingBaseEndsGame(t *testing.T) {
	cfg := testConfig()
	cfg.Gameplay.DefaultBaseRadius = 1
	cfg.Objects.ExplosionRadiusMin = 3
	cfg.Objects.ExplosionRadiusMax = 3
	cfg.Objects.PesticideFuseTicks = 2
	gs, _ := newTestState(cfg)
	victim := gs.AddActor("victim")

	p := gs.Objects.Spawn(KindPesticide, victim.BasePosition)
	gs.Objects.Pickup(p, &Actor{ID: 99})
	gs.Objects.Drop(p)
	gs.DrainEvents()

	for i := 0; i < 3; i++ {
		gs.UpdateTick()
	}
	evs := gs.DrainEvents()
	over := eventsOf(evs, EventGameOver)
	if len(over) != 1 || over[0].Payload.(ActorRef).ID != victim.ID {
		t.Fatalf("gameOver events = %+v", over)
	}
	if gs.Actor(victim.ID) != nil {
		t.Fatalf("victim still present")
	}
	if len(eventsOf(evs, EventObjectSpawnedUnmanaged)) != 1 {
		t.Fatalf("expected one explosion effect")
	}
	if gs.Objects.Get(p.ID) != nil {
		t.Fatalf("pesticide survived its explosion")
	}
}

func TestHeldObjectsFollowInChain(t *testing.T) {
	cfg := testConfig()
	gs, _ := newTestState(cfg)
	a := gs.AddActor("train")
	first := gs.Objects.Spawn(KindPollen, a.State.Position)
	gs.HandlePickup(a.ID)
	second := gs.Objects.Spawn(KindPollen, a.State.Position)
	gs.HandlePickup(a.ID)
	if len(a.Held) != 2 {
		t.Fatalf("held = %d, want 2", len(a.Held))
	}

	for f := int64(1); f <= 40; f++ {
		gs.HandleInput(a.ID, InputState{Frame: f, Direction: 0})
		gs.UpdateTick()
	}
	if !(a.State.Position.X > first.Position.X && first.Position.X > second.Position.X) {
		t.Fatalf("chain out of order: actor %f first %f second %f", a.State.Position.X, first.Position.X, second.Position.X)
	}
	gap := Distance(a.State.Position, first.Position)
	if gap > cfg.Gameplay.FollowGap+cfg.Gameplay.MoveSpeed*cfg.TickInterval()+1e-9 {
		t.Fatalf("first link trails by %f", gap)
	}
}

func TestPickupOutOfReachIsIgnored(t *testing.T) {
	cfg := testConfig()
	gs, _ := newTestState(cfg)
	a := gs.AddActor("shorty")
	far := a.State.Position.Add(Vector2{X: cfg.Gameplay.MaxPickupDistance + 1})
	o := gs.Objects.Spawn(KindPollen, far)
	gs.DrainEvents()
	gs.HandlePickup(a.ID)
	if o.Owner != nil || len(gs.DrainEvents()) != 0 {
		t.Fatalf("picked up an object out of reach")
	}
}

func TestArmedPesticideDoesNotBlockPickup(t *testing.T) {
	cfg := testConfig()
	gs, _ := newTestState(cfg)
	a := gs.AddActor("picker")
	pest := gs.Objects.Spawn(KindPesticide, a.State.Position)
	gs.HandlePickup(a.ID)
	if pest.Owner != a {
		t.Fatalf("pesticide not picked up")
	}
	gs.HandleDrop(a.ID)
	if !pest.Armed() {
		t.Fatalf("dropped pesticide should be armed")
	}

	pollen := gs.Objects.Spawn(KindPollen, a.State.Position.Add(Vector2{X: cfg.Gameplay.MaxPickupDistance / 2}))
	gs.DrainEvents()
	gs.HandlePickup(a.ID)
	if pollen.Owner != a || len(a.Held) != 1 || a.Held[0] != pollen {
		t.Fatalf("pollen owner=%v held=%d", pollen.Owner, len(a.Held))
	}
	if pest.Owner != nil {
		t.Fatalf("armed pesticide was picked up again")
	}
}

func TestDropPollenHomeUpgradesBase(t *testing.T) {
	cfg := testConfig()
	gs, _ := newTestState(cfg)
	a := gs.AddActor("gardener")
	gs.Objects.Spawn(KindPollen, a.State.Position)
	gs.HandlePickup(a.ID)
	gs.DrainEvents()

	gs.HandleDrop(a.ID)
	evs := gs.DrainEvents()
	if len(eventsOf(evs, EventObjectsDropped)) != 1 || len(eventsOf(evs, EventObjectDestroyed)) != 1 {
		t.Fatalf("drop events = %+v", evs)
	}
	before := gs.Territory.CountOf(a.Base)
	gs.UpdateTick()
	if gs.Territory.CountOf(a.Base) != before+1 {
		t.Fatalf("base did not grow after pollen delivery")
	}
}

func TestReattachResendsInitialState(t *testing.T) {
	gs, _ := newTestState(testConfig())
	a := gs.AddActor("phoenix")
	gs.HandleInput(a.ID, InputState{Frame: 7})
	gs.UpdateTick()
	gs.DrainEvents()

	if gs.ReattachActor(a.ID) != a {
		t.Fatalf("reattach failed")
	}
	init := eventsOf(gs.DrainEvents(), EventInitialState)
	if len(init) != 1 || init[0].Payload.(InitialState).StartFrame != 8 {
		t.Fatalf("reattach initial state = %+v", init)
	}
	if gs.ReattachActor(1234) != nil {
		t.Fatalf("reattach of unknown actor should fail")
	}
}

func TestRoomCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxActors = 1
	gs, _ := newTestState(cfg)
	if gs.AddActor("a") == nil {
		t.Fatalf("first join rejected")
	}
	if gs.AddActor("b") != nil {
		t.Fatalf("join beyond capacity accepted")
	}
}

func TestLoopJoinRepliesBeforePublishing(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxActors = 1
	gl := NewGameLoop(cfg, log.New(io.Discard, "", 0))

	reply := make(chan JoinResult, 1)
	b := gl.Handle(Command{Type: CmdJoin, Name: "first", Reply: reply})
	res := <-reply
	if !res.OK || res.ActorID == 0 {
		t.Fatalf("join result = %+v", res)
	}
	if len(eventsOf(b.Events, EventInitialState)) != 1 {
		t.Fatalf("join batch missing initial state")
	}

	gl.Handle(Command{Type: CmdJoin, Name: "second", Reply: reply})
	if res := <-reply; res.OK {
		t.Fatalf("join into a full room succeeded")
	}

	gl.Handle(Command{Type: CmdRejoin, ActorID: res.ActorID, Reply: reply})
	if again := <-reply; !again.OK || again.ActorID != res.ActorID {
		t.Fatalf("rejoin = %+v, want actor %d", again, res.ActorID)
	}

	b = gl.Handle(Command{Type: CmdLeave, ActorID: res.ActorID})
	if len(b.Exits) != 1 || b.Exits[0].Reason != ExitLeft {
		t.Fatalf("leave exits = %+v", b.Exits)
	}
}

type memJournal struct{ entries []TickLogEntry }

func (j *memJournal) WriteTick(e TickLogEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

func TestLoopStepWritesJournal(t *testing.T) {
	gl := NewGameLoop(testConfig(), log.New(io.Discard, "", 0))
	j := &memJournal{}
	gl.Journal = j
	gl.Handle(Command{Type: CmdJoin, Name: "x"})
	for i := 0; i < 3; i++ {
		gl.Step()
	}
	if len(j.entries) != 3 {
		t.Fatalf("journal entries = %d, want 3", len(j.entries))
	}
	last := j.entries[2]
	if last.Tick != 3 || last.Actors != 1 || last.Tiles == 0 || last.Digest == "" {
		t.Fatalf("last entry = %+v", last)
	}
}
