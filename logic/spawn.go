package logic

import "math/rand"

// Spawner picks random positions inside the safe-spawn area, i.e. the map minus a margin on every side.
type Spawner struct {
	grid   HexGrid
	margin float64
	rng    *rand.Rand
}

func NewSpawner(grid HexGrid, marginPct float64, rng *rand.Rand) *Spawner {
	return &Spawner{grid: grid, margin: marginPct, rng: rng}
}

func (s *Spawner) span() (int, int, int, int) {
	mx := int(float64(s.grid.Width) * s.margin)
	my := int(float64(s.grid.Height) * s.margin)
	return mx, s.grid.Width - 1 - mx, my, s.grid.Height - 1 - my
}

// RandomTile returns an in-bounds tile inside the safe area.
func (s *Spawner) RandomTile() HexIndex {
	minC, maxC, minR, maxR := s.span()
	return HexIndex{
		Col: minC + s.rng.Intn(maxC-minC+1),
		Row: minR + s.rng.Intn(maxR-minR+1),
	}
}

// RandomPosition returns a world position inside the safe area, jittered within its tile.
func (s *Spawner) RandomPosition() Vector2 {
	p := s.grid.HexToWorld(s.RandomTile())
	p.X += (s.rng.Float64() - 0.5) * s.grid.SpacingX
	p.Y += (s.rng.Float64() - 0.5) * s.grid.SpacingY
	return p
}

// BaseCenter picks a spawn tile, preferring one whose whole starting hexagon is unclaimed.
func (s *Spawner) BaseCenter(t *Territory, radius int) HexIndex {
	var fallback HexIndex
	for attempt := 0; attempt < 32; attempt++ {
		c := s.RandomTile()
		if attempt == 0 {
			fallback = c
		}
		free := true
		for _, idx := range BigHexagon(c, radius, false) {
			if t.OwnerOf(idx) != nil {
				free = false
				break
			}
		}
		if free {
			return c
		}
		if t.OwnerOf(c) == nil {
			fallback = c
		}
	}
	return fallback
}
