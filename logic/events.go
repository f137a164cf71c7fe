package logic

// EventType is the numeric tag carried on the wire for outbound events.
type EventType int

const (
	EventActorJoined            EventType = 3001
	EventInitialState           EventType = 3002
	EventActorLeft              EventType = 3003
	EventGameOver               EventType = 3004
	EventObjectSpawned          EventType = 3005
	EventObjectSpawnedUnmanaged EventType = 3006
	EventObjectDestroyed        EventType = 3007
	EventTileOwnerChanged       EventType = 3008
	EventObjectsPicked          EventType = 3009
	EventObjectsDropped         EventType = 3010
	EventSimulationStates       EventType = 3011
)

func (t EventType) String() string {
	switch t {
	case EventActorJoined:
		return "actorJoined"
	case EventInitialState:
		return "initialState"
	case EventActorLeft:
		return "actorLeft"
	case EventGameOver:
		return "gameOver"
	case EventObjectSpawned:
		return "objectSpawned"
	case EventObjectSpawnedUnmanaged:
		return "objectSpawnedUnmanaged"
	case EventObjectDestroyed:
		return "objectDestroyed"
	case EventTileOwnerChanged:
		return "tileOwnerChanged"
	case EventObjectsPicked:
		return "objectsPicked"
	case EventObjectsDropped:
		return "objectsDropped"
	case EventSimulationStates:
		return "simulationStateStream"
	}
	return "unknown"
}

// Event is an outbound message. To == 0 means broadcast to the whole room.
type Event struct {
	Type    EventType
	To      ActorID
	Payload any
}

// ActorInfo carries an actor's fixed attributes plus its latest state.
type ActorInfo struct {
	ID           ActorID         `json:"id" msgpack:"id"`
	Name         string          `json:"name" msgpack:"name"`
	Color        uint32          `json:"color" msgpack:"color"`
	BasePosition Vector2         `json:"base_position" msgpack:"base_position"`
	State        SimulationState `json:"state" msgpack:"state"`
}

type ActorRef struct {
	ID ActorID `json:"id" msgpack:"id"`
}

type ObjectInfo struct {
	ID       ObjectID   `json:"id" msgpack:"id"`
	Kind     ObjectKind `json:"kind" msgpack:"kind"`
	Position Vector2    `json:"position" msgpack:"position"`
	Rotation float64    `json:"rotation" msgpack:"rotation"`
	Owner    ActorID    `json:"owner,omitempty" msgpack:"owner,omitempty"`
}

type ObjectRef struct {
	ID ObjectID `json:"id" msgpack:"id"`
}

// EffectInfo describes a cosmetic, untracked object such as an explosion burst.
type EffectInfo struct {
	Kind     string  `json:"kind" msgpack:"kind"`
	Position Vector2 `json:"position" msgpack:"position"`
	Radius   int     `json:"radius,omitempty" msgpack:"radius,omitempty"`
}

// TileInfo is a tile's owner; Owner 0 means vacant.
type TileInfo struct {
	Owner ActorID  `json:"owner" msgpack:"owner"`
	Index HexIndex `json:"index" msgpack:"index"`
}

type HeldInfo struct {
	ActorID  ActorID  `json:"actor_id" msgpack:"actor_id"`
	ObjectID ObjectID `json:"object_id" msgpack:"object_id"`
}

type InitialState struct {
	OwnedID     ActorID      `json:"owned_id" msgpack:"owned_id"`
	StartFrame  int64        `json:"start_frame" msgpack:"start_frame"`
	Self        ActorInfo    `json:"self" msgpack:"self"`
	Actors      []ActorInfo  `json:"actors" msgpack:"actors"`
	Objects     []ObjectInfo `json:"objects" msgpack:"objects"`
	HeldObjects []HeldInfo   `json:"held_objects" msgpack:"held_objects"`
	OwnedTiles  []TileInfo   `json:"owned_tiles" msgpack:"owned_tiles"`
}

type ObjectsPicked struct {
	ActorID   ActorID    `json:"actor_id" msgpack:"actor_id"`
	ObjectIDs []ObjectID `json:"object_ids" msgpack:"object_ids"`
}

type ObjectDrop struct {
	ID       ObjectID `json:"id" msgpack:"id"`
	Position Vector2  `json:"position" msgpack:"position"`
	Rotation float64  `json:"rotation" msgpack:"rotation"`
}

type ObjectsDropped struct {
	ActorID ActorID      `json:"actor_id" msgpack:"actor_id"`
	Drops   []ObjectDrop `json:"drops" msgpack:"drops"`
}

type ActorState struct {
	ActorID ActorID         `json:"actor_id" msgpack:"actor_id"`
	State   SimulationState `json:"state" msgpack:"state"`
}

type StateStream struct {
	Tick   int64        `json:"tick" msgpack:"tick"`
	States []ActorState `json:"states" msgpack:"states"`
}

// TickLogEntry summarizes one tick for the room journal.
type TickLogEntry struct {
	Tick    int64  `json:"tick"`
	Actors  int    `json:"actors"`
	Active  int    `json:"active"`
	Objects int    `json:"objects"`
	Tiles   int    `json:"tiles"`
	Events  int    `json:"events"`
	Digest  string `json:"digest"`
}
