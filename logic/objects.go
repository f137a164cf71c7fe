package logic

import "math"

// ObjectKind tags the closed set of networked object variants.
type ObjectKind uint8

const (
	KindFlower ObjectKind = iota + 1
	KindPollen
	KindPesticide
)

func (k ObjectKind) String() string {
	switch k {
	case KindFlower:
		return "flower"
	case KindPollen:
		return "pollen"
	case KindPesticide:
		return "pesticide"
	}
	return "unknown"
}

// NetworkObject is a registry-tracked world object. Behavior is fixed by Kind at construction.
type NetworkObject struct {
	ID       ObjectID
	Kind     ObjectKind
	Position Vector2
	Rotation float64
	Owner    *Actor
	Moved    bool

	behavior objectBehavior
}

func (o *NetworkObject) Info() ObjectInfo {
	info := ObjectInfo{ID: o.ID, Kind: o.Kind, Position: o.Position, Rotation: o.Rotation}
	if o.Owner != nil {
		info.Owner = o.Owner.ID
	}
	return info
}

// Pickable reports whether an actor may pick o up right now.
func (o *NetworkObject) Pickable() bool {
	return o.Owner == nil && o.behavior.pickable()
}

// Armed reports whether o is a pesticide with a running fuse.
func (o *NetworkObject) Armed() bool {
	p, ok := o.behavior.(*pesticideBehavior)
	return ok && p.armed
}

type objectBehavior interface {
	networkTick(o *NetworkObject, r *Registry)
	pickable() bool
	// dropped runs after the owner is cleared. It returns false when the object was consumed.
	dropped(o *NetworkObject, r *Registry, by *Actor) bool
}

func newBehavior(kind ObjectKind, r *Registry) objectBehavior {
	switch kind {
	case KindFlower:
		return &flowerBehavior{
			slots:     make([]ObjectID, flowerSlots),
			nextSpawn: r.tick + int64(r.cfg.FlowerSpawnIntervalTicks),
		}
	case KindPollen:
		return pollenBehavior{}
	case KindPesticide:
		return &pesticideBehavior{}
	}
	return nil
}

const flowerSlots = 3

// flowerBehavior is a stationary source that grows pollen into fixed anchor slots around itself.
type flowerBehavior struct {
	slots     []ObjectID
	cursor    int
	nextSpawn int64
}

func (f *flowerBehavior) pickable() bool { return false }

func (f *flowerBehavior) dropped(*NetworkObject, *Registry, *Actor) bool { return true }

func (f *flowerBehavior) networkTick(o *NetworkObject, r *Registry) {
	if r.tick < f.nextSpawn {
		return
	}
	f.nextSpawn = r.tick + int64(r.cfg.FlowerSpawnIntervalTicks)
	for n := 0; n < len(f.slots); n++ {
		i := (f.cursor + n) % len(f.slots)
		if child := r.Get(f.slots[i]); child != nil && !child.Moved {
			continue
		}
		angle := o.Rotation*math.Pi/180 + float64(i)*2*math.Pi/float64(len(f.slots))
		pos := Vector2{
			X: o.Position.X + math.Cos(angle)*r.cfg.FlowerSlotRadius,
			Y: o.Position.Y + math.Sin(angle)*r.cfg.FlowerSlotRadius,
		}
		f.slots[i] = r.Spawn(KindPollen, pos).ID
		f.cursor = (i + 1) % len(f.slots)
		return
	}
}

// pollenBehavior feeds upgrade credit into the carrier's base when dropped on its own territory.
type pollenBehavior struct{}

func (pollenBehavior) pickable() bool                        { return true }
func (pollenBehavior) networkTick(*NetworkObject, *Registry) {}

func (pollenBehavior) dropped(o *NetworkObject, r *Registry, by *Actor) bool {
	if by == nil || by.Base == nil || by.Base.Destroyed() {
		return true
	}
	tile := r.territory.Grid().WorldToHex(o.Position)
	if r.territory.OwnerOf(tile) != by.Base {
		return true
	}
	by.Base.Upgrade(r.cfg.PollenCredit)
	r.Destroy(o)
	return false
}

// pesticideBehavior arms on drop and clears a random-radius hexagon of territory when the fuse expires.
type pesticideBehavior struct {
	armed  bool
	expiry int64
}

func (p *pesticideBehavior) pickable() bool { return !p.armed }

func (p *pesticideBehavior) dropped(o *NetworkObject, r *Registry, _ *Actor) bool {
	p.armed = true
	p.expiry = r.tick + int64(r.cfg.PesticideFuseTicks)
	return true
}

func (p *pesticideBehavior) networkTick(o *NetworkObject, r *Registry) {
	if !p.armed || r.tick < p.expiry {
		return
	}
	r.explode(o)
}
