package logic

import (
	"math"
	"math/rand"
	"slices"
)

// Registry spawns and tracks networked objects and resolves pickup, drop and explosions.
type Registry struct {
	cfg       ObjectsConfig
	territory *Territory
	spawner   *Spawner
	rng       *rand.Rand
	emit      func(Event)

	objects   map[ObjectID]*NetworkObject
	order     []*NetworkObject
	nextID    ObjectID
	tick      int64
	nextSpawn int64
}

func NewRegistry(cfg ObjectsConfig, territory *Territory, spawner *Spawner, rng *rand.Rand, emit func(Event)) *Registry {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Registry{
		cfg:       cfg,
		territory: territory,
		spawner:   spawner,
		rng:       rng,
		emit:      emit,
		objects:   make(map[ObjectID]*NetworkObject),
		nextSpawn: int64(cfg.SpawnIntervalTicks),
	}
}

// SeedFlowers places the fixed population of stationary sources.
func (r *Registry) SeedFlowers() {
	for i := 0; i < r.cfg.FlowerCount; i++ {
		f := r.Spawn(KindFlower, r.spawner.RandomPosition())
		f.Rotation = r.rng.Float64() * 360
	}
}

// Spawn creates and announces a new object.
func (r *Registry) Spawn(kind ObjectKind, pos Vector2) *NetworkObject {
	r.nextID++
	o := &NetworkObject{
		ID:       r.nextID,
		Kind:     kind,
		Position: pos,
	}
	o.behavior = newBehavior(kind, r)
	r.objects[o.ID] = o
	r.order = append(r.order, o)
	r.emit(Event{Type: EventObjectSpawned, Payload: o.Info()})
	return o
}

// Get returns the live object with id, or nil.
func (r *Registry) Get(id ObjectID) *NetworkObject {
	if id == 0 {
		return nil
	}
	return r.objects[id]
}

// Tick runs the spawn policy and every object's own tick.
func (r *Registry) Tick(tick int64) {
	r.tick = tick
	if tick >= r.nextSpawn {
		r.nextSpawn = tick + int64(r.cfg.SpawnIntervalTicks)
		if r.PickableCount() < r.cfg.TargetCount {
			kind := KindPollen
			if r.rng.Float64() < r.cfg.PesticideWeight {
				kind = KindPesticide
			}
			r.Spawn(kind, r.spawner.RandomPosition())
		}
	}
	for _, o := range slices.Clone(r.order) {
		if r.objects[o.ID] != o {
			continue
		}
		o.behavior.networkTick(o, r)
	}
}

// Pickup hands o to a. It fails if o is owned, not pickable, or a is nil.
func (r *Registry) Pickup(o *NetworkObject, a *Actor) bool {
	if o == nil || a == nil || r.objects[o.ID] != o || !o.Pickable() {
		return false
	}
	o.Owner = a
	o.Moved = true
	a.Held = append(a.Held, o)
	return true
}

// Drop releases o where it stands. It returns false when the drop consumed the object.
func (r *Registry) Drop(o *NetworkObject) bool {
	if o == nil || r.objects[o.ID] != o || o.Owner == nil {
		return true
	}
	by := o.Owner
	by.release(o)
	o.Owner = nil
	return o.behavior.dropped(o, r, by)
}

// Release clears ownership without running drop effects.
func (r *Registry) Release(o *NetworkObject) {
	if o == nil || o.Owner == nil {
		return
	}
	o.Owner.release(o)
	o.Owner = nil
}

// Destroy removes o and detaches it from its holder. Unknown objects are ignored.
func (r *Registry) Destroy(o *NetworkObject) {
	if o == nil || r.objects[o.ID] != o {
		return
	}
	if o.Owner != nil {
		o.Owner.release(o)
		o.Owner = nil
	}
	delete(r.objects, o.ID)
	if i := slices.Index(r.order, o); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.emit(Event{Type: EventObjectDestroyed, Payload: ObjectRef{ID: o.ID}})
}

func (r *Registry) explode(o *NetworkObject) {
	radius := r.cfg.ExplosionRadiusMin
	if span := r.cfg.ExplosionRadiusMax - r.cfg.ExplosionRadiusMin; span > 0 {
		radius += r.rng.Intn(span + 1)
	}
	center := r.territory.Grid().WorldToHex(o.Position)
	for _, idx := range BigHexagon(center, radius, false) {
		r.territory.SetOwner(idx, nil)
	}
	r.emit(Event{Type: EventObjectSpawnedUnmanaged, Payload: EffectInfo{Kind: "explosion", Position: o.Position, Radius: radius}})
	r.Destroy(o)
}

// NearestObjectOfType scans for the closest object of one of kinds. Held objects are skipped
// unless includeHeld is set. Distance limits are the caller's business.
func (r *Registry) NearestObjectOfType(pos Vector2, kinds []ObjectKind, includeHeld bool) *NetworkObject {
	return r.nearest(pos, kinds, func(o *NetworkObject) bool { return includeHeld || o.Owner == nil })
}

// NearestPickable is NearestObjectOfType restricted to objects Pickup would accept, so an
// armed pesticide never hides a pollen behind it.
func (r *Registry) NearestPickable(pos Vector2, kinds []ObjectKind) *NetworkObject {
	return r.nearest(pos, kinds, (*NetworkObject).Pickable)
}

func (r *Registry) nearest(pos Vector2, kinds []ObjectKind, keep func(*NetworkObject) bool) *NetworkObject {
	var best *NetworkObject
	bestDist := math.Inf(1)
	for _, o := range r.order {
		if !slices.Contains(kinds, o.Kind) || !keep(o) {
			continue
		}
		if d := Distance(pos, o.Position); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

func (r *Registry) PickableCount() int {
	n := 0
	for _, o := range r.order {
		if o.Kind == KindPollen || o.Kind == KindPesticide {
			n++
		}
	}
	return n
}

func (r *Registry) Len() int { return len(r.order) }

// Objects returns the live objects in spawn order.
func (r *Registry) Objects() []*NetworkObject {
	return slices.Clone(r.order)
}
