package network

import (
	"io"
	"log"
	"time"

	"github.com/sasha-s/go-deadlock"

	"hexarena/journal"
	"hexarena/logic"
	"hexarena/protocol"
)

// Conn is the send side of one client connection.
type Conn interface {
	Send([]byte) error
	Close() error
}

// Recorder persists session records. *storage.Store satisfies it.
type Recorder interface {
	RecordJoin(sessionID, room string, actorID int32, name string)
	RecordExit(sessionID, name, reason string, peakTiles int)
}

type member struct {
	conn    Conn
	session string
	name    string
	bound   func(logic.ActorID)

	// set when the connection went away
	detachedAt time.Time
	leaving    bool
}

func (m *member) unbind() {
	if m.bound != nil {
		m.bound(0)
	}
}

// Room runs one GameLoop and fans its events out to the attached connections.
type Room struct {
	ID       string
	Config   *logic.GameConfig
	GameLoop *logic.GameLoop
	Wire     protocol.Wire
	Recorder Recorder

	logger  *log.Logger
	journal io.Closer

	mu       deadlock.RWMutex
	clients  map[logic.ActorID]*member
	detached map[logic.ActorID]*member
	quit     chan struct{}
	done     chan struct{}
}

// RoomOptions carries the optional collaborators of a room.
type RoomOptions struct {
	Recorder   Recorder
	JournalDir string
	Logger     *log.Logger
	GameOpts   []logic.Option
}

func NewRoom(id string, cfg *logic.GameConfig, opts RoomOptions) (*Room, error) {
	wire, err := protocol.NewWire(cfg.Transport)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[room "+id+"] ", log.LstdFlags|log.Lmicroseconds)
	}
	r := &Room{
		ID:       id,
		Config:   cfg,
		GameLoop: logic.NewGameLoop(cfg, logger, opts.GameOpts...),
		Wire:     wire,
		Recorder: opts.Recorder,
		logger:   logger,
		clients:  make(map[logic.ActorID]*member),
		detached: make(map[logic.ActorID]*member),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if opts.JournalDir != "" {
		tl := journal.NewTickLog(opts.JournalDir, id)
		r.GameLoop.Journal = tl
		r.journal = tl
	}
	return r, nil
}

// Run starts the game loop and dispatches its batches until Stop.
func (r *Room) Run() {
	defer close(r.done)
	go r.GameLoop.Run()
	r.logger.Printf("Room %s started. Tick: %d Hz", r.ID, r.Config.Server.TickRateHz)

	reap := time.NewTicker(time.Second)
	defer reap.Stop()

	for {
		select {
		case b := <-r.GameLoop.EventChan:
			r.dispatch(b)
		case now := <-reap.C:
			r.reapDetached(now)
		case <-r.quit:
			return
		}
	}
}

// Stop halts the loop and closes the journal. Attached connections are closed.
func (r *Room) Stop() {
	close(r.quit)
	r.GameLoop.Stop()
	<-r.done
	r.mu.Lock()
	for id, m := range r.clients {
		_ = m.conn.Close()
		delete(r.clients, id)
	}
	r.mu.Unlock()
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.logger.Printf("journal close: %v", err)
		}
	}
}

func (r *Room) submit(cmd logic.Command) bool {
	select {
	case r.GameLoop.CommandChan <- cmd:
		return true
	case <-r.quit:
		return false
	}
}

// Join creates a new actor for conn. bound is called with the actor id once attached, and with 0
// when the actor is gone.
func (r *Room) Join(conn Conn, sessionID, name string, bound func(logic.ActorID)) {
	r.submit(logic.Command{
		Type:   logic.CmdJoin,
		Name:   name,
		Attach: func(res logic.JoinResult) { r.attach(res, conn, sessionID, name, bound) },
	})
}

// Rejoin re-attaches conn to a paused actor, or joins fresh if it is gone. token must be the
// session id the actor's last JoinAck carried; a mismatch gets a fresh actor instead.
func (r *Room) Rejoin(conn Conn, sessionID string, id logic.ActorID, token, name string, bound func(logic.ActorID)) {
	if !r.ownsSession(id, token) {
		r.logger.Printf("rejoin of actor %d with wrong session, joining fresh", id)
		r.Join(conn, sessionID, name, bound)
		return
	}
	r.submit(logic.Command{
		Type:    logic.CmdRejoin,
		ActorID: id,
		Name:    name,
		Attach:  func(res logic.JoinResult) { r.attach(res, conn, sessionID, name, bound) },
	})
}

// ownsSession reports whether token may resume id. Ids unknown to the room pass; the loop
// turns them into a fresh join.
func (r *Room) ownsSession(id logic.ActorID, token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.clients[id]
	if !ok {
		m, ok = r.detached[id]
	}
	return !ok || m.session == token
}

// attach runs on the loop goroutine, so the joiner is routable before its initialState is dispatched.
func (r *Room) attach(res logic.JoinResult, conn Conn, sessionID, name string, bound func(logic.ActorID)) {
	ack := protocol.JoinAck{Success: res.OK, SessionID: sessionID, ActorID: res.ActorID}
	if !res.OK {
		r.send(conn, protocol.CodeJoin, ack)
		return
	}
	ack.Config = r.Config

	r.mu.Lock()
	if old, ok := r.clients[res.ActorID]; ok && old.conn != conn {
		old.unbind()
		_ = old.conn.Close()
	}
	r.clients[res.ActorID] = &member{conn: conn, session: sessionID, name: name, bound: bound}
	delete(r.detached, res.ActorID)
	r.mu.Unlock()

	if bound != nil {
		bound(res.ActorID)
	}
	r.send(conn, protocol.CodeJoin, ack)
	if r.Recorder != nil {
		r.Recorder.RecordJoin(sessionID, r.ID, int32(res.ActorID), name)
	}
}

// Detach forgets conn. The actor stays in the world, paused, until the disconnect grace expires.
func (r *Room) Detach(id logic.ActorID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.clients[id]
	if !ok || m.conn != conn {
		return
	}
	delete(r.clients, id)
	m.detachedAt = time.Now()
	r.detached[id] = m
}

// Pickup and Drop forward item requests to the loop.
func (r *Room) Pickup(id logic.ActorID) { r.submit(logic.Command{Type: logic.CmdPickup, ActorID: id}) }
func (r *Room) Drop(id logic.ActorID)   { r.submit(logic.Command{Type: logic.CmdDrop, ActorID: id}) }

// Input is safe from any goroutine and bypasses the command queue.
func (r *Room) Input(id logic.ActorID, in logic.InputState) {
	r.GameLoop.GameState.HandleInput(id, in)
}

// Leave removes the actor immediately.
func (r *Room) Leave(id logic.ActorID) {
	r.submit(logic.Command{Type: logic.CmdLeave, ActorID: id})
}

func (r *Room) reapDetached(now time.Time) {
	grace := time.Duration(r.Config.Server.DisconnectGraceMs) * time.Millisecond
	var expired []logic.ActorID
	r.mu.Lock()
	for id, m := range r.detached {
		if !m.leaving && now.Sub(m.detachedAt) >= grace {
			m.leaving = true
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()
	if len(expired) == 0 {
		return
	}
	// the loop may be blocked publishing to us
	go func() {
		for _, id := range expired {
			r.Leave(id)
		}
	}()
}

func (r *Room) send(conn Conn, code int, payload any) {
	b, err := r.Wire.Marshal(code, payload)
	if err != nil {
		r.logger.Printf("encode %d: %v", code, err)
		return
	}
	_ = conn.Send(b)
}

func (r *Room) dispatch(b logic.Batch) {
	var failed []logic.ActorID
	r.mu.RLock()
	for _, ev := range b.Events {
		frame, err := r.Wire.MarshalEvent(ev)
		if err != nil {
			r.logger.Printf("encode %s: %v", ev.Type, err)
			continue
		}
		if ev.To != 0 {
			if m, ok := r.clients[ev.To]; ok {
				if err := m.conn.Send(frame); err != nil {
					failed = append(failed, ev.To)
				}
			}
			continue
		}
		for id, m := range r.clients {
			if err := m.conn.Send(frame); err != nil {
				failed = append(failed, id)
			}
		}
	}
	r.mu.RUnlock()

	for _, ex := range b.Exits {
		r.mu.Lock()
		m, ok := r.clients[ex.ActorID]
		if !ok {
			m, ok = r.detached[ex.ActorID]
		}
		delete(r.clients, ex.ActorID)
		delete(r.detached, ex.ActorID)
		r.mu.Unlock()

		if ok {
			m.unbind()
			if r.Recorder != nil {
				r.Recorder.RecordExit(m.session, ex.Name, string(ex.Reason), ex.PeakTiles)
			}
		}
		r.logger.Printf("Actor %d (%s) exited: %s, peak %d tiles", ex.ActorID, ex.Name, ex.Reason, ex.PeakTiles)
	}

	for _, id := range failed {
		r.mu.Lock()
		if m, ok := r.clients[id]; ok {
			delete(r.clients, id)
			m.detachedAt = time.Now()
			r.detached[id] = m
			_ = m.conn.Close()
		}
		r.mu.Unlock()
	}
}

// RoomInfo is returned by /rooms.
type RoomInfo struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Paused  int    `json:"paused"`
}

func (r *Room) Info() RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomInfo{ID: r.ID, Players: len(r.clients), Paused: len(r.detached)}
}
