package protocol

import (
	"fmt"

	"hexarena/logic"
)

// DecodeEvent unpacks an outbound event on the client side into its typed payload.
func DecodeEvent(m Message) (logic.Event, error) {
	t := logic.EventType(m.Type)
	var err error
	var payload any
	switch t {
	case logic.EventActorJoined:
		payload, err = decodeAs[logic.ActorInfo](m)
	case logic.EventInitialState:
		payload, err = decodeAs[logic.InitialState](m)
	case logic.EventActorLeft, logic.EventGameOver:
		payload, err = decodeAs[logic.ActorRef](m)
	case logic.EventObjectSpawned:
		payload, err = decodeAs[logic.ObjectInfo](m)
	case logic.EventObjectSpawnedUnmanaged:
		payload, err = decodeAs[logic.EffectInfo](m)
	case logic.EventObjectDestroyed:
		payload, err = decodeAs[logic.ObjectRef](m)
	case logic.EventTileOwnerChanged:
		payload, err = decodeAs[logic.TileInfo](m)
	case logic.EventObjectsPicked:
		payload, err = decodeAs[logic.ObjectsPicked](m)
	case logic.EventObjectsDropped:
		payload, err = decodeAs[logic.ObjectsDropped](m)
	case logic.EventSimulationStates:
		payload, err = decodeAs[logic.StateStream](m)
	default:
		return logic.Event{}, fmt.Errorf("unknown event type %d", m.Type)
	}
	if err != nil {
		return logic.Event{}, fmt.Errorf("decode %s: %w", t, err)
	}
	return logic.Event{Type: t, Payload: payload}, nil
}

func decodeAs[T any](m Message) (any, error) {
	var p T
	err := m.Decode(&p)
	return p, err
}
