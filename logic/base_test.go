package logic

import "testing"

func TestNewBaseClaimsFilledHexagon(t *testing.T) {
	terr := newTestTerritory()
	center := HexIndex{Col: 40, Row: 40}
	b := NewBase(1, center, 3, terr)

	want := BigHexagon(center, 3, false)
	if got := terr.CountOf(b); got != len(want) {
		t.Fatalf("initial tiles = %d, want %d", got, len(want))
	}
	for _, idx := range want {
		if terr.OwnerOf(idx) != b {
			t.Fatalf("tile %v not claimed", idx)
		}
	}
	if b.State() != BaseUpgrading {
		t.Fatalf("state = %v, want upgrading", b.State())
	}
}

func TestBaseTickWithoutCreditDoesNothing(t *testing.T) {
	terr := newTestTerritory()
	b := NewBase(1, HexIndex{Col: 40, Row: 40}, 2, terr)
	terr.DrainChanges()
	for i := 0; i < 10; i++ {
		b.Tick()
	}
	if n := len(terr.DrainChanges()); n != 0 {
		t.Fatalf("claimed %d tiles with no credit", n)
	}
	b.Upgrade(-3)
	b.Upgrade(0)
	if b.Credit() != 0 {
		t.Fatalf("credit = %d, want 0", b.Credit())
	}
}

func TestBaseGrowthIsThrottledToOneTilePerTick(t *testing.T) {
	terr := newTestTerritory()
	center := HexIndex{Col: 40, Row: 40}
	b := NewBase(1, center, 2, terr)
	start := terr.CountOf(b)
	terr.DrainChanges()

	ring := BigHexagon(center, 3, true)
	b.Upgrade(len(ring) + 5)

	b.Tick()
	if b.Level != 3 || b.State() != BaseGrowing {
		t.Fatalf("after first tick level=%d state=%v", b.Level, b.State())
	}
	if b.Pending() != len(ring)-1 {
		t.Fatalf("pending = %d, want %d", b.Pending(), len(ring)-1)
	}

	k := b.Pending()
	for i := 0; i < k; i++ {
		before := terr.CountOf(b)
		b.Tick()
		if got := terr.CountOf(b) - before; got != 1 {
			t.Fatalf("tick %d claimed %d tiles, want 1", i, got)
		}
	}
	if got := terr.CountOf(b); got != start+len(ring) {
		t.Fatalf("tiles = %d, want %d", got, start+len(ring))
	}
	for _, idx := range ring {
		if terr.OwnerOf(idx) != b {
			t.Fatalf("ring tile %v unclaimed", idx)
		}
	}
	if b.State() != BaseUpgrading {
		t.Fatalf("state = %v after ring, want upgrading", b.State())
	}
	if b.Credit() != 5 {
		t.Fatalf("credit = %d, want 5 left over", b.Credit())
	}
}

func TestBaseGrowthStealsFromNeighbour(t *testing.T) {
	terr := newTestTerritory()
	a := NewBase(1, HexIndex{Col: 40, Row: 40}, 1, terr)
	b := NewBase(2, HexIndex{Col: 41, Row: 40}, 1, terr)
	a.Upgrade(6)
	for i := 0; i < 6; i++ {
		a.Tick()
	}
	if terr.OwnerOf(HexIndex{Col: 41, Row: 40}) != a {
		t.Fatalf("neighbour tile not taken")
	}
	if !b.Destroyed() {
		t.Fatalf("neighbour with zero tiles should be destroyed")
	}
	destroyed := terr.DrainDestroyed()
	if len(destroyed) != 1 || destroyed[0] != b {
		t.Fatalf("destroyed = %v", destroyed)
	}
}

func TestBaseDestructionIsIdempotent(t *testing.T) {
	terr := newTestTerritory()
	b := NewBase(1, HexIndex{Col: 10, Row: 10}, 1, terr)
	if !b.onTileCountChanged(0) {
		t.Fatalf("first zero-tile notification should destroy")
	}
	if b.onTileCountChanged(0) {
		t.Fatalf("second zero-tile notification destroyed again")
	}
	b.Upgrade(10)
	b.Tick()
	if b.Credit() != 0 || b.State() != BaseDestroyed {
		t.Fatalf("destroyed base kept growing: credit=%d state=%v", b.Credit(), b.State())
	}
}
