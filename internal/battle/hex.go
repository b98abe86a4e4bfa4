// Package battle contains the tactical battle engine: the hex battle map,
// movement, line of sight, striking and the battle phase cycle.
// Collaborators drive it through the command and query methods on Battle.
package battle

import "fmt"

// Direction is one of the six hex directions, clockwise from north.
type Direction int

const (
	North Direction = iota
	NorthEast
	SouthEast
	South
	SouthWest
	NorthWest
)

// NoDirection is returned when two hexes have no direction between them.
const NoDirection Direction = -1

// Directions lists all six directions in order.
var Directions = [6]Direction{North, NorthEast, SouthEast, South, SouthWest, NorthWest}

// Opposite returns the direction pointing back.
func (d Direction) Opposite() Direction {
	return (d + 3) % 6
}

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case North:
		return "n"
	case NorthEast:
		return "ne"
	case SouthEast:
		return "se"
	case South:
		return "s"
	case SouthWest:
		return "sw"
	case NorthWest:
		return "nw"
	default:
		return "none"
	}
}

// ParseDirection converts a direction name to a Direction.
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if d.String() == s {
			return d, nil
		}
	}
	return NoDirection, fmt.Errorf("unknown direction %q", s)
}

// Terrain is the terrain type of a single battle hex.
type Terrain int

const (
	Plain Terrain = iota
	Bramble
	Sand
	Tree
	Bog
	Volcano
	Drift
)

// String returns the terrain name.
func (t Terrain) String() string {
	switch t {
	case Plain:
		return "plain"
	case Bramble:
		return "bramble"
	case Sand:
		return "sand"
	case Tree:
		return "tree"
	case Bog:
		return "bog"
	case Volcano:
		return "volcano"
	case Drift:
		return "drift"
	default:
		return "unknown"
	}
}

// ParseTerrain converts a terrain name to a Terrain.
func ParseTerrain(s string) (Terrain, error) {
	for t := Plain; t <= Drift; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return Plain, fmt.Errorf("unknown terrain %q", s)
}

// Hexside is an obstacle marking on one edge of a hex. It is stored on the
// higher of the two hexes sharing the edge.
type Hexside int

const (
	NoHexside Hexside = iota
	Dune
	Cliff
	Slope
	Wall
)

// String returns the hexside name.
func (h Hexside) String() string {
	switch h {
	case NoHexside:
		return "none"
	case Dune:
		return "dune"
	case Cliff:
		return "cliff"
	case Slope:
		return "slope"
	case Wall:
		return "wall"
	default:
		return "unknown"
	}
}

// ParseHexside converts a hexside name to a Hexside.
func ParseHexside(s string) (Hexside, error) {
	for h := NoHexside; h <= Wall; h++ {
		if h.String() == s {
			return h, nil
		}
	}
	return NoHexside, fmt.Errorf("unknown hexside %q", s)
}

// IsObstacle reports whether the hexside counts toward line-of-sight obstacles.
func (h Hexside) IsObstacle() bool {
	return h != NoHexside
}

// Cost is the movement cost to enter a hex.
type Cost int

const (
	CostNormal     Cost = 1
	CostSlow       Cost = 2
	CostImpassable Cost = 5
)

// Hex is a single battle map hex. Hexes never change once the grid is built;
// occupancy is derived from critter positions.
type Hex struct {
	label     string
	x, y      int
	terrain   Terrain
	elevation int
	hexsides  [6]Hexside
	neighbors [6]*Hex
	entrance  bool
}

// Label returns the hex label, e.g. "D4" or "X3".
func (h *Hex) Label() string { return h.label }

// X returns the column.
func (h *Hex) X() int { return h.x }

// Y returns the row. For entrances this is the entry side.
func (h *Hex) Y() int { return h.y }

// Terrain returns the hex terrain.
func (h *Hex) Terrain() Terrain { return h.terrain }

// Elevation returns the hex elevation (0-2).
func (h *Hex) Elevation() int { return h.elevation }

// IsEntrance reports whether this is an off-board entrance.
func (h *Hex) IsEntrance() bool { return h.entrance }

// String returns the label.
func (h *Hex) String() string { return h.label }

// Neighbor returns the adjacent hex in the given direction, or nil.
func (h *Hex) Neighbor(d Direction) *Hex {
	if d < North || d > NorthWest {
		return nil
	}
	return h.neighbors[d]
}

// Hexside returns the marking this hex owns on the given edge.
func (h *Hex) Hexside(d Direction) Hexside {
	if d < North || d > NorthWest {
		return NoHexside
	}
	return h.hexsides[d]
}

// OppositeHexside returns the marking the neighbor owns on the shared edge.
func (h *Hex) OppositeHexside(d Direction) Hexside {
	n := h.Neighbor(d)
	if n == nil {
		return NoHexside
	}
	return n.Hexside(d.Opposite())
}

// IsCliff reports whether either side of the edge is a cliff.
func (h *Hex) IsCliff(d Direction) bool {
	return h.Hexside(d) == Cliff || h.OppositeHexside(d) == Cliff
}

// HasWall reports whether any edge of this hex is a wall.
func (h *Hex) HasWall() bool {
	for _, s := range h.hexsides {
		if s == Wall {
			return true
		}
	}
	return false
}

// BlocksLineOfSight reports whether the hex terrain itself blocks sight.
func (h *Hex) BlocksLineOfSight() bool {
	return h.terrain == Tree
}

// hexLabel derives the board label from map coordinates.
func hexLabel(x, y int) string {
	off := (x - 3) / 2
	if off < 0 {
		off = -off
	}
	return fmt.Sprintf("%c%d", 'A'+x, 6-y-off)
}

// entranceLabel returns the label of the entrance on the given side.
func entranceLabel(side int) string {
	return fmt.Sprintf("X%d", side)
}
