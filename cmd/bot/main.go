// Command bot joins a room, predicts its own movement locally and wanders around
// picking things up. It is a load and soak tool for the reconciliation path.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hexarena/logic"
	"hexarena/predict"
	"hexarena/protocol"
)

type session struct {
	conn   *websocket.Conn
	wire   protocol.Wire
	logger *log.Logger

	writeMu sync.Mutex
}

func (s *session) send(code int, payload any) error {
	b, err := s.wire.Marshal(code, payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (s *session) read() (protocol.Message, error) {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return protocol.Message{}, err
		}
		m, err := s.wire.Unmarshal(frame)
		if err != nil {
			s.logger.Printf("bad frame: %v", err)
			continue
		}
		return m, nil
	}
}

// handshake waits for the JoinAck and the initialState that follows it.
func (s *session) handshake() (*logic.GameConfig, logic.InitialState, error) {
	var cfg *logic.GameConfig
	for {
		m, err := s.read()
		if err != nil {
			return nil, logic.InitialState{}, err
		}
		if m.Type == protocol.CodeJoin {
			var ack protocol.JoinAck
			if err := m.Decode(&ack); err != nil {
				return nil, logic.InitialState{}, err
			}
			if !ack.Success {
				return nil, logic.InitialState{}, errRejected
			}
			cfg = ack.Config
			s.logger.Printf("JOINED actor=%d session=%s", ack.ActorID, ack.SessionID)
			continue
		}
		if logic.EventType(m.Type) != logic.EventInitialState || cfg == nil {
			continue
		}
		ev, err := protocol.DecodeEvent(m)
		if err != nil {
			return nil, logic.InitialState{}, err
		}
		return cfg, ev.Payload.(logic.InitialState), nil
	}
}

var errRejected = errors.New("join rejected")

// wander turns a little every tick and sometimes picks a new heading.
func wander(r *rand.Rand, start float64) func() float64 {
	heading := start
	return func() float64 {
		if r.Intn(40) == 0 {
			heading = r.Float64() * 360
		}
		heading += r.Float64()*10 - 5
		return heading
	}
}

func main() {
	var (
		addr  = flag.String("url", "ws://localhost:8080/ws", "ws url")
		room  = flag.String("room", "alpha", "room id")
		name  = flag.String("name", "bot", "player name")
		codec = flag.String("codec", "json", "wire codec, must match the server")
		seed  = flag.Int64("seed", 0, "steering seed, 0 for time based")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	wire, err := protocol.NewWire(logic.TransportConfig{Codec: *codec})
	if err != nil {
		logger.Fatalf("wire: %v", err)
	}
	u, err := url.Parse(*addr)
	if err != nil {
		logger.Fatalf("url: %v", err)
	}
	q := u.Query()
	q.Set("room", *room)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	s := &session{conn: conn, wire: wire, logger: logger}

	if err := s.send(protocol.CodeJoin, protocol.JoinRequest{Name: *name}); err != nil {
		logger.Fatalf("send join: %v", err)
	}
	cfg, start, err := s.handshake()
	if err != nil {
		logger.Fatalf("handshake: %v", err)
	}
	logger.Printf("INITIAL frame=%d actors=%d objects=%d tiles=%d", start.StartFrame, len(start.Actors), len(start.Objects), len(start.OwnedTiles))

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	p := predict.NewPredictor(cfg, start.Self.State, start.StartFrame, logger)
	loop := predict.NewLoop(cfg, start.OwnedID, p, logger)
	loop.Steer = wander(rng, start.Self.State.Direction)
	loop.Send = func(in logic.InputState) error { return s.send(protocol.CodeInput, in) }
	for _, a := range start.Actors {
		loop.Track(a)
	}
	// Render runs on the tick goroutine, so the predictor can be read here
	renders := 0
	loop.RenderHz = 1
	loop.Render = func(f predict.Frame) {
		renders++
		if renders%5 != 0 {
			return
		}
		st := p.Stats
		logger.Printf("pos=(%.2f,%.2f) frame=%d corrected=%d reconciled=%d replayed=%d snapped=%d others=%d",
			f.Self.X, f.Self.Y, p.Frame(), p.LastCorrected(), st.Reconciled, st.Replayed, st.Snapped, len(f.Others))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("loop: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		conn.Close()
	}()

	// alternate pickup and drop every few seconds
	go func() {
		t := time.NewTicker(3 * time.Second)
		defer t.Stop()
		pick := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				code := protocol.CodeDrop
				if pick {
					code = protocol.CodePickup
				}
				pick = !pick
				if err := s.send(code, nil); err != nil {
					logger.Printf("send %d: %v", code, err)
				}
			}
		}
	}()

	for {
		m, err := s.read()
		if err != nil {
			if ctx.Err() == nil {
				logger.Printf("read: %v", err)
			}
			return
		}
		if m.Type == protocol.CodeJoin {
			continue
		}
		ev, err := protocol.DecodeEvent(m)
		if err != nil {
			continue
		}
		switch pl := ev.Payload.(type) {
		case logic.StateStream:
			loop.OfferStream(pl.States)
		case logic.ActorInfo:
			loop.Track(pl)
		case logic.ActorRef:
			if ev.Type == logic.EventGameOver && pl.ID == start.OwnedID {
				logger.Printf("GAME OVER")
				return
			}
			if ev.Type == logic.EventActorLeft {
				loop.Forget(pl.ID)
			}
		}
	}
}
