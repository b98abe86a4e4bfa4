package battle

import (
	"fmt"
	"sort"
)

const (
	boardSize = 6

	// MaxEntranceCritters is the most critters one entrance can hold.
	MaxEntranceCritters = 7

	// TowerCenter is the label of the tower keep.
	TowerCenter = "D4"
)

// onBoard marks which cells of the 6x6 array are real hexes, indexed [x][y].
var onBoard = [boardSize][boardSize]bool{
	{false, false, true, true, true, false},
	{false, true, true, true, true, false},
	{false, true, true, true, true, true},
	{true, true, true, true, true, true},
	{false, true, true, true, true, true},
	{false, true, true, true, true, false},
}

type entranceLink struct {
	dir  Direction
	x, y int
}

// entranceLinks lists, per entry side, which board hexes an entrance touches.
var entranceLinks = [6][]entranceLink{
	{{South, 3, 0}, {SouthWest, 4, 1}, {NorthWest, 5, 1}},
	{{South, 5, 1}, {SouthWest, 5, 2}, {NorthWest, 5, 3}, {North, 5, 4}},
	{{SouthWest, 5, 4}, {NorthWest, 4, 5}, {North, 3, 5}},
	{{NorthWest, 3, 5}, {North, 2, 5}, {NorthEast, 1, 4}, {SouthEast, 0, 4}},
	{{North, 0, 4}, {NorthEast, 0, 3}, {SouthEast, 0, 2}},
	{{NorthEast, 0, 2}, {SouthEast, 1, 1}, {South, 2, 1}, {SouthWest, 3, 0}},
}

// HexLayout is the terrain of one hex in a battleland.
type HexLayout struct {
	Terrain   Terrain
	Elevation int
	Hexsides  [6]Hexside
}

// Layout describes one battleland. Hexes it does not list are plain at
// elevation 0 with no hexsides.
type Layout struct {
	Name  string
	Code  string
	Tower bool
	Hexes map[string]HexLayout
}

// Grid is one battle map: 27 board hexes plus six entrances.
type Grid struct {
	name      string
	code      string
	tower     bool
	cells     [boardSize][boardSize]*Hex
	byLabel   map[string]*Hex
	entrances [6]*Hex
	startList []*Hex
}

// NewGrid builds the battle map for a layout.
func NewGrid(layout Layout) (*Grid, error) {
	g := &Grid{
		name:    layout.Name,
		code:    layout.Code,
		tower:   layout.Tower,
		byLabel: make(map[string]*Hex),
	}

	for x := 0; x < boardSize; x++ {
		for y := 0; y < boardSize; y++ {
			if !onBoard[x][y] {
				continue
			}
			h := &Hex{label: hexLabel(x, y), x: x, y: y}
			g.cells[x][y] = h
			g.byLabel[h.label] = h
		}
	}

	for label, hl := range layout.Hexes {
		h, ok := g.byLabel[label]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", layout.Name, ErrNoSuchHex, label)
		}
		if hl.Elevation < 0 || hl.Elevation > 2 {
			return nil, fmt.Errorf("%s: hex %s: elevation %d out of range", layout.Name, label, hl.Elevation)
		}
		h.terrain = hl.Terrain
		h.elevation = hl.Elevation
		h.hexsides = hl.Hexsides
	}

	for x := 0; x < boardSize; x++ {
		for y := 0; y < boardSize; y++ {
			h := g.cells[x][y]
			if h == nil {
				continue
			}
			for _, d := range Directions {
				nx, ny := neighborCoords(x, y, d)
				h.neighbors[d] = g.At(nx, ny)
			}
		}
	}

	for side := 0; side < 6; side++ {
		e := &Hex{label: entranceLabel(side), x: -1, y: side, entrance: true}
		for _, link := range entranceLinks[side] {
			e.neighbors[link.dir] = g.cells[link.x][link.y]
		}
		g.entrances[side] = e
		g.byLabel[e.label] = e
	}

	if g.tower {
		center := g.byLabel[TowerCenter]
		g.startList = append(g.startList, center)
		for _, d := range Directions {
			if n := center.Neighbor(d); n != nil {
				g.startList = append(g.startList, n)
			}
		}
	}

	return g, nil
}

// neighborCoords returns the map coordinates one step from (x, y).
// Odd columns sit half a hex lower than even ones.
func neighborCoords(x, y int, d Direction) (int, int) {
	switch d {
	case North:
		return x, y - 1
	case NorthEast:
		return x + 1, y - ((x + 1) & 1)
	case SouthEast:
		return x + 1, y + (x & 1)
	case South:
		return x, y + 1
	case SouthWest:
		return x - 1, y + (x & 1)
	case NorthWest:
		return x - 1, y - ((x + 1) & 1)
	default:
		return -1, -1
	}
}

// Name returns the battleland name.
func (g *Grid) Name() string { return g.name }

// Code returns the master-board terrain code of the battleland.
func (g *Grid) Code() string { return g.code }

// IsTower reports whether this battleland has a tower start list.
func (g *Grid) IsTower() bool { return g.tower }

// At returns the board hex at map coordinates, or nil.
func (g *Grid) At(x, y int) *Hex {
	if x < 0 || y < 0 || x >= boardSize || y >= boardSize {
		return nil
	}
	return g.cells[x][y]
}

// Hex looks up a board hex or entrance by label.
func (g *Grid) Hex(label string) (*Hex, bool) {
	h, ok := g.byLabel[label]
	return h, ok
}

// Entrance returns the entrance for an entry side.
func (g *Grid) Entrance(side int) *Hex {
	if side < 0 || side > 5 {
		return nil
	}
	return g.entrances[side]
}

// Neighbor returns the hex adjacent to h in direction d, or nil.
func (g *Grid) Neighbor(h *Hex, d Direction) *Hex {
	if h == nil {
		return nil
	}
	return h.Neighbor(d)
}

// OppositeHexside returns the marking on the far side of h's edge in direction d.
func (g *Grid) OppositeHexside(h *Hex, d Direction) Hexside {
	return h.OppositeHexside(d)
}

// IsCliff reports whether the edge of h in direction d is a cliff from either side.
func (g *Grid) IsCliff(h *Hex, d Direction) bool {
	return h.IsCliff(d)
}

// EntryCost is the package-level EntryCost for hexes of this grid.
func (g *Grid) EntryCost(h *Hex, t *CreatureType, cameFrom Direction, occupied bool) Cost {
	return EntryCost(h, t, cameFrom, occupied)
}

// Hexes returns every board hex, sorted by label.
func (g *Grid) Hexes() []*Hex {
	out := make([]*Hex, 0, len(g.byLabel))
	for _, h := range g.byLabel {
		if !h.entrance {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}

// StartList returns the tower hexes a defender may deploy to on turn 1.
// It is empty for battlelands without a tower.
func (g *Grid) StartList() []*Hex {
	return g.startList
}

// EntryCost returns what it costs creature t to step into h from the
// neighbor in direction cameFrom (as seen from h).
func EntryCost(h *Hex, t *CreatureType, cameFrom Direction, occupied bool) Cost {
	terrain := h.Terrain()
	if occupied || terrain == Tree ||
		(terrain == Volcano && !t.CanFlyOverVolcano()) ||
		(terrain == Bog && !t.IsNative(NativeBog)) {
		return CostImpassable
	}

	hexside := h.Hexside(cameFrom)
	if (hexside == Cliff || h.OppositeHexside(cameFrom) == Cliff) && !t.Flier {
		return CostImpassable
	}

	if (hexside == Wall || (hexside == Slope && !t.IsNative(NativeSlope))) &&
		!t.Flier && h.Elevation() > elevationOf(h.Neighbor(cameFrom)) {
		return CostSlow
	}

	if (terrain == Bramble && !t.IsNative(NativeBramble)) ||
		(terrain == Drift && !t.IsNative(NativeDrift)) ||
		(terrain == Sand && !t.IsNative(NativeSandDune) && !t.Flier) {
		return CostSlow
	}

	return CostNormal
}

// CanBeFlownOver reports whether a flier of type t may cross h.
func CanBeFlownOver(h *Hex, t *CreatureType) bool {
	return h.Terrain() != Volcano || t.CanFlyOverVolcano()
}

// HexDamage returns the damage h deals to a creature of type t each fight phase.
func HexDamage(h *Hex, t *CreatureType) int {
	if h.Terrain() == Drift && !t.IsNative(NativeDrift) {
		return 1
	}
	return 0
}

func elevationOf(h *Hex) int {
	if h == nil {
		return 0
	}
	return h.Elevation()
}
