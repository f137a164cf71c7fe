package network

import (
	"log"
	"regexp"
	"sort"

	"github.com/sasha-s/go-deadlock"

	"hexarena/logic"
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// RoomManager hosts rooms by id. Rooms are created on first use and live until Close.
type RoomManager struct {
	Config  logic.GameConfig
	Options RoomOptions

	mu     deadlock.RWMutex
	rooms  map[string]*Room
	logger *log.Logger
}

func NewManager(cfg logic.GameConfig, opts RoomOptions, logger *log.Logger) *RoomManager {
	if logger == nil {
		logger = log.Default()
	}
	return &RoomManager{
		Config:  cfg,
		Options: opts,
		rooms:   make(map[string]*Room),
		logger:  logger,
	}
}

// ValidRoomID reports whether id can name a room.
func ValidRoomID(id string) bool { return roomIDPattern.MatchString(id) }

// GetOrCreate returns the room for id, starting it if needed.
func (rm *RoomManager) GetOrCreate(id string) (*Room, error) {
	rm.mu.RLock()
	r, ok := rm.rooms[id]
	rm.mu.RUnlock()
	if ok {
		return r, nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if r, ok := rm.rooms[id]; ok {
		return r, nil
	}
	// rooms get their own copy of the config
	cfg := rm.Config
	r, err := NewRoom(id, &cfg, rm.Options)
	if err != nil {
		return nil, err
	}
	rm.rooms[id] = r
	go r.Run()
	rm.logger.Printf("Created Room %s", id)
	return r, nil
}

func (rm *RoomManager) GetRoom(id string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[id]
}

// ListRooms returns every room sorted by id.
func (rm *RoomManager) ListRooms() []RoomInfo {
	rm.mu.RLock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		rooms = append(rooms, r)
	}
	rm.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops every room.
func (rm *RoomManager) Close() {
	rm.mu.Lock()
	rooms := rm.rooms
	rm.rooms = make(map[string]*Room)
	rm.mu.Unlock()
	for _, r := range rooms {
		r.Stop()
	}
}
