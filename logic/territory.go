package logic

import (
	"encoding/binary"
	"encoding/hex"
	"slices"

	"lukechampine.com/blake3"
)

// TileChange records one ownership transition. Owner and Prev are zero when the tile is vacant.
type TileChange struct {
	Index HexIndex
	Owner ActorID
	Prev  ActorID
}

// Territory is the hex ownership ledger. Each in-bounds tile maps to at most one Base.
// It is single-writer: only the room's tick goroutine touches it.
type Territory struct {
	grid   HexGrid
	owners []*Base
	tiles  map[*Base]map[HexIndex]struct{}

	changes   []TileChange
	destroyed []*Base
}

func NewTerritory(grid HexGrid) *Territory {
	return &Territory{
		grid:   grid,
		owners: make([]*Base, grid.Width*grid.Height),
		tiles:  make(map[*Base]map[HexIndex]struct{}),
	}
}

func (t *Territory) Grid() HexGrid { return t.grid }

func (t *Territory) slot(idx HexIndex) int {
	return idx.Row*t.grid.Width + idx.Col
}

func (t *Territory) register(b *Base) {
	if _, ok := t.tiles[b]; !ok {
		t.tiles[b] = make(map[HexIndex]struct{})
	}
}

func (t *Territory) unregister(b *Base) {
	if set, ok := t.tiles[b]; ok && len(set) == 0 {
		delete(t.tiles, b)
	}
}

// SetOwner assigns idx to b, or vacates it when b is nil. The previous owner loses the tile
// and is notified before the new owner gains it. Out-of-bounds tiles, unknown bases and
// reassignment to the current owner are no-ops.
func (t *Territory) SetOwner(idx HexIndex, b *Base) {
	if !t.grid.InBounds(idx) {
		return
	}
	if b != nil {
		if _, known := t.tiles[b]; !known || b.destroyed {
			return
		}
	}
	i := t.slot(idx)
	prev := t.owners[i]
	if prev == b {
		return
	}

	change := TileChange{Index: idx}
	if prev != nil {
		change.Prev = prev.Owner
		set := t.tiles[prev]
		delete(set, idx)
		t.owners[i] = nil
		if prev.onTileCountChanged(len(set)) {
			t.destroyed = append(t.destroyed, prev)
		}
	}
	if b != nil {
		t.tiles[b][idx] = struct{}{}
		t.owners[i] = b
		change.Owner = b.Owner
		b.onTileCountChanged(len(t.tiles[b]))
	}
	t.changes = append(t.changes, change)
}

// OwnerOf returns the base owning idx, or nil.
func (t *Territory) OwnerOf(idx HexIndex) *Base {
	if !t.grid.InBounds(idx) {
		return nil
	}
	return t.owners[t.slot(idx)]
}

// TilesOf returns a copy of b's tiles in row-major order. Unknown bases yield nil.
func (t *Territory) TilesOf(b *Base) []HexIndex {
	set, ok := t.tiles[b]
	if !ok {
		return nil
	}
	out := make([]HexIndex, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	slices.SortFunc(out, func(a, b HexIndex) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
	return out
}

func (t *Territory) CountOf(b *Base) int {
	return len(t.tiles[b])
}

// OwnedTiles lists every claimed tile with its owner, row-major.
func (t *Territory) OwnedTiles() []TileChange {
	out := make([]TileChange, 0, len(t.owners)/4)
	for i, b := range t.owners {
		if b == nil {
			continue
		}
		out = append(out, TileChange{
			Index: HexIndex{Col: i % t.grid.Width, Row: i / t.grid.Width},
			Owner: b.Owner,
		})
	}
	return out
}

// DrainChanges returns and clears ownership transitions recorded since the last drain.
func (t *Territory) DrainChanges() []TileChange {
	out := t.changes
	t.changes = nil
	return out
}

// DrainDestroyed returns bases that reached zero tiles since the last drain. Each base appears once.
func (t *Territory) DrainDestroyed() []*Base {
	out := t.destroyed
	t.destroyed = nil
	for _, b := range out {
		t.unregister(b)
	}
	return out
}

// Digest hashes the owner table so two ledgers can be compared cheaply.
func (t *Territory) Digest() string {
	buf := make([]byte, 4*len(t.owners))
	for i, b := range t.owners {
		var id ActorID
		if b != nil {
			id = b.Owner
		}
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(id))
	}
	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
