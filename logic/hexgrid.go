package logic

import "math"

// HexIndex is an offset (column, row) tile address. Odd rows sit half a column to the left of even rows.
type HexIndex struct {
	Col int `json:"col" msgpack:"col"`
	Row int `json:"row" msgpack:"row"`
}

// HexGrid converts between tile indices and world coordinates. It holds no mutable state.
type HexGrid struct {
	Width    int
	Height   int
	SpacingX float64
	SpacingY float64
}

func NewHexGrid(m MapConfig) HexGrid {
	return HexGrid{Width: m.Width, Height: m.Height, SpacingX: m.TileSpacingX, SpacingY: m.TileSpacingY}
}

func isOdd(n int) bool { return n&1 == 1 }

// HexToWorld returns the world-space center of a tile.
func (g HexGrid) HexToWorld(idx HexIndex) Vector2 {
	x := (float64(idx.Col) - float64(g.Width)/2) * g.SpacingX
	y := (float64(idx.Row) - float64(g.Height)/2) * g.SpacingY
	if isOdd(idx.Row) {
		x -= g.SpacingX / 2
	}
	return Vector2{X: x, Y: y}
}

// WorldToHex is the exact inverse of HexToWorld on tile centers.
func (g HexGrid) WorldToHex(pos Vector2) HexIndex {
	row := int(math.Round(pos.Y/g.SpacingY + float64(g.Height)/2))
	x := pos.X
	if isOdd(row) {
		x += g.SpacingX / 2
	}
	col := int(math.Round(x/g.SpacingX + float64(g.Width)/2))
	return HexIndex{Col: col, Row: row}
}

func (g HexGrid) InBounds(idx HexIndex) bool {
	return idx.Col >= 0 && idx.Col < g.Width && idx.Row >= 0 && idx.Row < g.Height
}

// Center is the tile at the world origin.
func (g HexGrid) Center() HexIndex {
	return HexIndex{Col: g.Width / 2, Row: g.Height / 2}
}

// BigHexagon enumerates a hexagonal tile region. Radius 1 is the center tile alone.
// With outlineOnly set, interior rows contribute just their first and last tile while the
// topmost and bottommost rows are emitted whole. Rows are emitted top to bottom, left to right.
func BigHexagon(center HexIndex, radius int, outlineOnly bool) []HexIndex {
	if radius < 1 {
		return nil
	}
	centerParity := center.Row & 1
	out := make([]HexIndex, 0, 3*radius*(radius-1)+1)
	for dy := -(radius - 1); dy <= radius-1; dy++ {
		row := center.Row + dy
		ady := dy
		if ady < 0 {
			ady = -ady
		}
		length := (2*radius - 1) - ady
		// brick offset: odd rows are shifted half a column left of even rows
		shift := (ady + (row & 1) - centerParity) / 2
		start := center.Col - (radius - 1) + shift
		edgeRow := ady == radius-1
		for i := 0; i < length; i++ {
			if outlineOnly && !edgeRow && i != 0 && i != length-1 {
				continue
			}
			out = append(out, HexIndex{Col: start + i, Row: row})
		}
	}
	return out
}
