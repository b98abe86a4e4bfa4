package battle

// OutOfRange is the range reported for hexes that cannot be measured,
// such as entrances when they are not allowed.
const OutOfRange = 5

// brambleBlocked is what BrambleHexes returns when a path is blocked.
const brambleBlocked = 10

// maxWalkSteps bounds a path walk; no path on the board is longer.
const maxWalkSteps = 16

// Occupancy reports whether a hex currently holds a critter.
type Occupancy func(h *Hex) bool

// doubledY returns the row of h in half-hex units. Odd columns sit half a
// hex lower, so every hex gets an integer coordinate.
func doubledY(h *Hex) int {
	return 2*h.y + (h.x & 1)
}

// delta returns the column and half-row differences from a to b.
func delta(a, b *Hex) (dx, dy int) {
	return b.x - a.x, doubledY(b) - doubledY(a)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// onHexspine reports whether the straight line from a to b runs along
// hex edges, so two paths are equally valid.
func onHexspine(dx, dy int) bool {
	return dy == 0 || abs(dy) == 3*abs(dx)
}

// toLeft picks which side of a hexspine a walk leans to. dy is never 0.
func toLeft(dx, dy int) bool {
	ratio := float64(2*dx) / float64(dy)
	return ratio >= 1.5 || (ratio >= 0 && ratio <= .75) || (ratio >= -1.5 && ratio <= -.75)
}

// Range returns the distance from a to b in hexes, counting both ends, so
// adjacent hexes are at range 2. Entrances are out of range.
func Range(a, b *Hex) int {
	return RangeVia(a, b, false)
}

// RangeVia is Range, except that when allowEntrance is set an entrance is
// one hex further than its closest neighbor.
func RangeVia(a, b *Hex, allowEntrance bool) int {
	if a == nil || b == nil {
		return OutOfRange
	}
	if a.entrance || b.entrance {
		if !allowEntrance || (a.entrance && b.entrance) {
			return OutOfRange
		}
		if b.entrance {
			a, b = b, a
		}
		nearest := minRangeToNeighbor(a, b)
		if nearest >= OutOfRange {
			return OutOfRange
		}
		return 1 + nearest
	}

	dx, dy := delta(a, b)
	xd, yd := abs(dx), abs(dy)
	switch {
	case xd >= yd:
		return xd + 1
	case 2*xd >= yd:
		return xd + 2
	case yd >= 4*xd:
		return (yd+1)/2 + 1
	default:
		return yd/2 + 2
	}
}

func minRangeToNeighbor(entrance, h *Hex) int {
	best := OutOfRange
	for _, n := range entrance.neighbors {
		if n == nil || n.entrance {
			continue
		}
		if r := RangeVia(n, h, false); r < best {
			best = r
		}
	}
	return best
}

// DirectionTo returns the direction of the path from a to b. On a
// hexspine two directions are possible; left picks the one further left.
// It returns NoDirection for the same hex or an entrance.
func DirectionTo(a, b *Hex, left bool) Direction {
	if a == nil || b == nil || a == b || a.entrance || b.entrance {
		return NoDirection
	}
	dx, dy := delta(a, b)

	if dx >= 0 {
		switch {
		case dy > 3*dx:
			return South
		case dy == 3*dx:
			return pick(left, SouthEast, South)
		case dy < -3*dx:
			return North
		case dy == -3*dx:
			return pick(left, North, NorthEast)
		case dy > 0:
			return SouthEast
		case dy < 0:
			return NorthEast
		default:
			return pick(left, NorthEast, SouthEast)
		}
	}

	switch {
	case dy < 3*dx:
		return North
	case dy == 3*dx:
		return pick(left, NorthWest, North)
	case dy > -3*dx:
		return South
	case dy == -3*dx:
		return pick(left, South, SouthWest)
	case dy > 0:
		return SouthWest
	case dy < 0:
		return NorthWest
	default:
		return pick(left, SouthWest, NorthWest)
	}
}

func pick(left bool, l, r Direction) Direction {
	if left {
		return l
	}
	return r
}

type walkResult int

const (
	walkContinue walkResult = iota
	walkClear
	walkBlocked
)

// losWalk carries the state of one line-of-sight path walk.
type losWalk struct {
	initial, final  *Hex
	left            bool
	tower           bool
	occupied        Occupancy
	strikeElevation int

	strikerAtop      bool
	strikerAtopCliff bool
	midObstacle      bool
	midCliff         bool
	midChit          bool
	totalObstacles   int
}

func newLOSWalk(g *Grid, from, to *Hex, left bool, occ Occupancy) *losWalk {
	elev := from.elevation
	if to.elevation < elev {
		elev = to.elevation
	}
	return &losWalk{
		initial:         from,
		final:           to,
		left:            left,
		tower:           g.tower,
		occupied:        occ,
		strikeElevation: elev,
	}
}

func (w *losWalk) noteObstacle(side Hexside) {
	w.midObstacle = true
	w.totalObstacles++
	if side == Cliff {
		w.midCliff = true
	}
}

// step advances from current one hex toward the target.
func (w *losWalk) step(current *Hex) (*Hex, walkResult) {
	if current == w.final {
		return nil, walkClear
	}
	if current.entrance || w.final.entrance {
		return nil, walkBlocked
	}

	dir := DirectionTo(current, w.final, w.left)
	next := current.Neighbor(dir)
	if next == nil {
		return nil, walkBlocked
	}

	side := current.Hexside(dir)
	opposite := current.OppositeHexside(dir)

	switch {
	case current == w.initial:
		if side.IsObstacle() {
			w.strikerAtop = true
			w.totalObstacles++
			if side == Cliff {
				w.strikerAtopCliff = true
			}
		}
		if opposite.IsObstacle() {
			w.noteObstacle(opposite)
		}

	case next == w.final:
		if side.IsObstacle() {
			w.noteObstacle(side)
		}
		targetAtop, targetAtopCliff := false, false
		if opposite.IsObstacle() {
			targetAtop = true
			w.totalObstacles++
			targetAtopCliff = opposite == Cliff
		}
		return nil, w.resolve(targetAtop, targetAtopCliff)

	default:
		if w.midChit {
			return nil, walkBlocked
		}
		if side.IsObstacle() || opposite.IsObstacle() {
			w.midObstacle = true
			w.totalObstacles++
			if side == Cliff || opposite == Cliff {
				w.midCliff = true
			}
		}
	}

	if next.BlocksLineOfSight() {
		return nil, walkBlocked
	}

	// A chit at the base of a cliff the striker stands atop does not block.
	if w.occupied(next) && next.elevation >= w.strikeElevation &&
		(!w.strikerAtopCliff || current != w.initial) {
		w.midChit = true
	}
	return next, walkContinue
}

// resolve decides the walk once the hex before the target is reached.
func (w *losWalk) resolve(targetAtop, targetAtopCliff bool) walkResult {
	if w.midChit && !targetAtopCliff {
		return walkBlocked
	}
	if w.midCliff && !w.strikerAtopCliff && !targetAtopCliff {
		return walkBlocked
	}
	if w.midObstacle && !w.strikerAtop && !targetAtop {
		return walkBlocked
	}
	// Three obstacles need striker and target each atop one.
	if w.totalObstacles >= 3 && (!w.strikerAtop || !targetAtop) &&
		!w.strikerAtopCliff && !targetAtopCliff {
		return walkBlocked
	}
	// Tower walls block at range 3.
	if w.tower && w.totalObstacles >= 2 && Range(w.initial, w.final) == 3 {
		return walkBlocked
	}
	return walkClear
}

func (w *losWalk) run() bool {
	current := w.initial
	for i := 0; i < maxWalkSteps; i++ {
		next, res := w.step(current)
		switch res {
		case walkClear:
			return false
		case walkBlocked:
			return true
		}
		current = next
	}
	return true
}

// LOSBlocked reports whether line of sight from one hex to another is
// blocked. Along a hexspine it is blocked only if both paths are blocked.
func (g *Grid) LOSBlocked(from, to *Hex, occ Occupancy) bool {
	if from == to {
		return false
	}
	if from.entrance || to.entrance {
		return true
	}
	if occ == nil {
		occ = func(*Hex) bool { return false }
	}

	dx, dy := delta(from, to)
	if onHexspine(dx, dy) {
		return newLOSWalk(g, from, to, true, occ).run() &&
			newLOSWalk(g, from, to, false, occ).run()
	}
	return newLOSWalk(g, from, to, toLeft(dx, dy), occ).run()
}

// BrambleHexes counts the bramble hexes between two hexes. A path through
// a tree, an occupied hex or off the board counts as blocked and returns a
// large number. Along a hexspine the lower path count is used.
func (g *Grid) BrambleHexes(from, to *Hex, occ Occupancy) int {
	if from == to {
		return 0
	}
	if from.entrance || to.entrance {
		return brambleBlocked
	}
	if occ == nil {
		occ = func(*Hex) bool { return false }
	}

	dx, dy := delta(from, to)
	if onHexspine(dx, dy) {
		l := brambleWalk(from, to, true, occ)
		r := brambleWalk(from, to, false, occ)
		if l < r {
			return l
		}
		return r
	}
	return brambleWalk(from, to, toLeft(dx, dy), occ)
}

func brambleWalk(from, to *Hex, left bool, occ Occupancy) int {
	count := 0
	current := from
	for i := 0; i < maxWalkSteps; i++ {
		next := current.Neighbor(DirectionTo(current, to, left))
		if next == nil {
			return brambleBlocked
		}
		if next == to {
			return count
		}
		if next.BlocksLineOfSight() || occ(next) {
			return brambleBlocked
		}
		if next.terrain == Bramble {
			count++
		}
		current = next
	}
	return brambleBlocked
}

// rangestrikePossible applies range, skill, lord and sight limits.
func (b *Battle) rangestrikePossible(c, target *Critter) bool {
	from, to := c.current, target.current
	r := Range(from, to)
	if r > c.Skill() {
		return false
	}
	if c.creature.CanRangestrikeLords() {
		return true
	}
	return r >= 3 && !target.creature.Lord && !b.grid.LOSBlocked(from, to, b.occupied)
}

// RangestrikePossible reports whether the critter could rangestrike
// whatever stands in the labelled hex.
func (b *Battle) RangestrikePossible(tag int, targetLabel string) bool {
	c, ok := b.Critter(tag)
	if !ok {
		return false
	}
	target, ok := b.CritterAt(targetLabel)
	if !ok {
		return false
	}
	return b.rangestrikePossible(c, target)
}

// LOSBlocked reports whether sight between two labelled hexes is blocked
// given where critters stand now.
func (b *Battle) LOSBlocked(fromLabel, toLabel string) (bool, error) {
	from, err := b.hex(fromLabel)
	if err != nil {
		return false, err
	}
	to, err := b.hex(toLabel)
	if err != nil {
		return false, err
	}
	return b.grid.LOSBlocked(from, to, b.occupied), nil
}
