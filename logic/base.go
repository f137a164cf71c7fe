package logic

// BaseState is the territory growth phase.
type BaseState int

const (
	BaseGrowing BaseState = iota
	BaseUpgrading
	BaseDestroyed
)

func (s BaseState) String() string {
	switch s {
	case BaseGrowing:
		return "growing"
	case BaseUpgrading:
		return "upgrading"
	case BaseDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Base grows an actor's territory ring by ring, one tile per tick while credit lasts.
type Base struct {
	Owner  ActorID
	Center HexIndex
	Level  int

	territory *Territory
	pending   []HexIndex
	credit    int
	tileCount int
	peakTiles int
	destroyed bool
}

// NewBase registers a base with the ledger and synchronously claims the filled hexagon
// of the given radius around center.
func NewBase(owner ActorID, center HexIndex, radius int, territory *Territory) *Base {
	b := &Base{
		Owner:     owner,
		Center:    center,
		Level:     radius,
		territory: territory,
	}
	territory.register(b)
	for _, idx := range BigHexagon(center, radius, false) {
		territory.SetOwner(idx, b)
	}
	return b
}

// Upgrade adds claim credit. Non-positive amounts are ignored.
func (b *Base) Upgrade(points int) {
	if points <= 0 || b.destroyed {
		return
	}
	b.credit += points
}

// Tick spends one credit to claim at most one tile, refilling the queue with the next ring when empty.
func (b *Base) Tick() {
	if b.destroyed || b.credit <= 0 {
		return
	}
	b.credit--
	if len(b.pending) == 0 {
		b.nextRing()
	}
	if len(b.pending) == 0 {
		return
	}
	tile := b.pending[0]
	b.pending = b.pending[1:]
	b.territory.SetOwner(tile, b)
}

func (b *Base) nextRing() {
	grid := b.territory.Grid()
	limit := grid.Width
	if grid.Height > limit {
		limit = grid.Height
	}
	if b.Level > limit {
		return
	}
	b.Level++
	for _, idx := range BigHexagon(b.Center, b.Level, true) {
		if grid.InBounds(idx) {
			b.pending = append(b.pending, idx)
		}
	}
}

// onTileCountChanged reports whether this call destroyed the base. Only the first
// transition to zero tiles does.
func (b *Base) onTileCountChanged(n int) bool {
	b.tileCount = n
	if n > b.peakTiles {
		b.peakTiles = n
	}
	if n != 0 || b.destroyed {
		return false
	}
	b.destroyed = true
	b.pending = nil
	b.credit = 0
	return true
}

func (b *Base) State() BaseState {
	switch {
	case b.destroyed:
		return BaseDestroyed
	case len(b.pending) > 0:
		return BaseGrowing
	default:
		return BaseUpgrading
	}
}

func (b *Base) Destroyed() bool { return b.destroyed }
func (b *Base) Credit() int     { return b.credit }
func (b *Base) Pending() int    { return len(b.pending) }
func (b *Base) TileCount() int  { return b.tileCount }
func (b *Base) PeakTiles() int  { return b.peakTiles }
