package logic

import (
	"log"
	"time"
)

type CommandType int

const (
	CmdJoin CommandType = iota
	CmdRejoin
	CmdLeave
	CmdPickup
	CmdDrop
)

// Command is a state-changing request serialized through the loop goroutine.
// Inputs do not go through here; they use GameState.HandleInput directly.
type Command struct {
	Type    CommandType
	ActorID ActorID
	Name    string
	Reply   chan<- JoinResult
	// Attach runs on the loop goroutine with the join result, before any event of the join is published.
	Attach  func(JoinResult)
}

type JoinResult struct {
	ActorID ActorID
	OK      bool
}

// Batch is everything one tick or command produced, in order.
type Batch struct {
	Tick   int64
	Events []Event
	Exits  []Exit
}

// TickJournal receives a summary of every tick.
type TickJournal interface {
	WriteTick(TickLogEntry) error
}

// GameLoop is the fixed-rate scheduler for one room. It is the only writer of its GameState.
type GameLoop struct {
	GameState   *GameState
	CommandChan chan Command
	EventChan   chan Batch
	StopChan    chan struct{}
	Journal     TickJournal

	logger *log.Logger
}

func NewGameLoop(cfg *GameConfig, logger *log.Logger, opts ...Option) *GameLoop {
	if logger == nil {
		logger = log.Default()
	}
	opts = append([]Option{WithLogger(logger)}, opts...)
	return &GameLoop{
		GameState:   NewGameState(cfg, opts...),
		CommandChan: make(chan Command, 64),
		EventChan:   make(chan Batch, 64),
		StopChan:    make(chan struct{}),
		logger:      logger,
	}
}

func (gl *GameLoop) Stop() {
	close(gl.StopChan)
}

func (gl *GameLoop) Run() {
	interval := time.Second / time.Duration(gl.GameState.Config.Server.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	gl.logger.Printf("GameLoop started, tick %v", interval)

	for {
		select {
		case cmd := <-gl.CommandChan:
			gl.publish(gl.Handle(cmd))

		case <-ticker.C:
			gl.publish(gl.Step())

		case <-gl.StopChan:
			gl.logger.Println("GameLoop stopped")
			return
		}
	}
}

func (gl *GameLoop) publish(b Batch) {
	if len(b.Events) == 0 && len(b.Exits) == 0 {
		return
	}
	select {
	case gl.EventChan <- b:
	case <-gl.StopChan:
	}
}

// Step runs one tick and returns what it produced.
func (gl *GameLoop) Step() Batch {
	gs := gl.GameState
	gs.UpdateTick()
	b := gl.drain()
	if gl.Journal != nil {
		if err := gl.Journal.WriteTick(gs.Summary(len(b.Events))); err != nil {
			gl.logger.Printf("journal: %v", err)
		}
	}
	return b
}

// Handle applies one command. Join replies are sent before the resulting events are published.
func (gl *GameLoop) Handle(cmd Command) Batch {
	gs := gl.GameState
	switch cmd.Type {
	case CmdJoin:
		a := gs.AddActor(cmd.Name)
		gl.reply(cmd, a)
	case CmdRejoin:
		a := gs.ReattachActor(cmd.ActorID)
		if a == nil {
			a = gs.AddActor(cmd.Name)
		}
		gl.reply(cmd, a)
	case CmdLeave:
		gs.RemoveActor(cmd.ActorID, ExitLeft)
	case CmdPickup:
		gs.HandlePickup(cmd.ActorID)
	case CmdDrop:
		gs.HandleDrop(cmd.ActorID)
	}
	return gl.drain()
}

func (gl *GameLoop) reply(cmd Command, a *Actor) {
	res := JoinResult{}
	if a != nil && !a.Removed() {
		res = JoinResult{ActorID: a.ID, OK: true}
	}
	if cmd.Attach != nil {
		cmd.Attach(res)
	}
	if cmd.Reply != nil {
		cmd.Reply <- res
	}
}

func (gl *GameLoop) drain() Batch {
	gs := gl.GameState
	return Batch{Tick: gs.Tick(), Events: gs.DrainEvents(), Exits: gs.DrainExits()}
}
