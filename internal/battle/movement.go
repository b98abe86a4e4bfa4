package battle

import (
	"fmt"

	"go.uber.org/zap"
)

// searchFrame is one pending hex in the reachability search.
type searchFrame struct {
	hex       *Hex
	movesLeft int
	cameFrom  Direction
}

// reachable returns every hex c could end its move on, starting from its
// current hex with the given movement points. Fliers may also pass over
// any hex they can fly over for one point. The start hex is not included.
func (b *Battle) reachable(c *Critter, flies bool, movePoints int, ignoreMobileAllies bool) map[*Hex]bool {
	found := make(map[*Hex]bool)
	stack := []searchFrame{{hex: c.current, movesLeft: movePoints, cameFrom: NoDirection}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, d := range Directions {
			if d == f.cameFrom {
				continue
			}
			n := f.hex.Neighbor(d)
			if n == nil {
				continue
			}
			back := d.Opposite()

			occupied := false
			if other := b.critterAt(n); other != nil && other != c {
				occupied = !(ignoreMobileAllies && other.legion == c.legion && !b.inContact(other, false))
			}
			cost := int(EntryCost(n, c.creature, back, occupied))

			if cost != int(CostImpassable) && cost <= f.movesLeft {
				found[n] = true
				if !flies && f.movesLeft > cost {
					stack = append(stack, searchFrame{hex: n, movesLeft: f.movesLeft - cost, cameFrom: back})
				}
			}

			if flies && f.movesLeft > 1 && CanBeFlownOver(n, c.creature) {
				stack = append(stack, searchFrame{hex: n, movesLeft: f.movesLeft - 1, cameFrom: back})
			}
		}
	}

	delete(found, c.current)
	return found
}

// towerStart returns the unoccupied tower start hexes, or all of them when
// mobile allies are ignored.
func (b *Battle) towerStart(ignoreMobileAllies bool) map[*Hex]bool {
	found := make(map[*Hex]bool)
	for _, h := range b.grid.StartList() {
		if ignoreMobileAllies || !b.occupied(h) {
			found[h] = true
		}
	}
	return found
}

func (b *Battle) moves(c *Critter, ignoreMobileAllies bool) map[*Hex]bool {
	if c.IsDead() || c.HasMoved() || b.inContact(c, false) {
		return nil
	}
	if b.grid.IsTower() && b.turn == 1 && b.active == Defender && c.Side() == Defender {
		return b.towerStart(ignoreMobileAllies)
	}
	return b.reachable(c, c.creature.Flier, c.Skill(), ignoreMobileAllies)
}

func hexSetLabels(set map[*Hex]bool) []string {
	labels := make(map[string]bool, len(set))
	for h := range set {
		labels[h.label] = true
	}
	return sortedLabels(labels)
}

// LegalMoves returns the hexes the critter may move to, sorted by label.
// It is empty once the critter has moved or while it is engaged.
func (b *Battle) LegalMoves(tag int) []string {
	c, ok := b.Critter(tag)
	if !ok {
		return nil
	}
	return hexSetLabels(b.moves(c, false))
}

// PlanMoves is LegalMoves with allies that could step aside treated as
// absent. It is for planning only; Move never accepts such a destination
// while the ally is still there.
func (b *Battle) PlanMoves(tag int) []string {
	c, ok := b.Critter(tag)
	if !ok {
		return nil
	}
	return hexSetLabels(b.moves(c, true))
}

func (b *Battle) checkCommand(phases ...Phase) error {
	if b.over {
		return ErrBattleOver
	}
	if b.awaiting != AwaitNothing {
		return fmt.Errorf("%w: waiting for %s", ErrWrongPhase, b.awaiting)
	}
	for _, p := range phases {
		if b.phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongPhase, b.phase)
}

// Move moves a critter of the active legion. Moving to its own hex is a
// null move: always legal and the critter still counts as not moved.
func (b *Battle) Move(tag int, label string) error {
	if err := b.checkCommand(PhaseMove); err != nil {
		return b.reject("move", err)
	}
	c, err := b.activeCritter(tag)
	if err != nil {
		return b.reject("move", err)
	}
	dest, err := b.hex(label)
	if err != nil {
		return b.reject("move", err)
	}

	if dest == c.current {
		b.event(EventMove, fmt.Sprintf("%s stays in %s", c.Name(), dest),
			zap.Int("critter", tag), zap.String("hex", label))
		return nil
	}
	if !b.moves(c, false)[dest] {
		return b.reject("move", fmt.Errorf("%w: %s to %s", ErrIllegalMove, c.Name(), label))
	}

	from := c.current
	b.history.push(moveRecord{tag: tag, from: from})
	c.current = dest
	c.visible = true
	b.event(EventMove, fmt.Sprintf("%s moves from %s to %s", c.Name(), from, dest),
		zap.Int("critter", tag), zap.String("hex", label))
	return nil
}

// UndoMove returns a critter to where it started this phase.
func (b *Battle) UndoMove(tag int) error {
	if err := b.checkCommand(PhaseMove); err != nil {
		return b.reject("undo move", err)
	}
	c, err := b.activeCritter(tag)
	if err != nil {
		return b.reject("undo move", err)
	}
	if !c.HasMoved() {
		return nil
	}
	b.undo(c)
	b.history.remove(tag)
	return nil
}

// UndoLastMove undoes the most recent move still in the history.
func (b *Battle) UndoLastMove() error {
	if err := b.checkCommand(PhaseMove); err != nil {
		return b.reject("undo last move", err)
	}
	for {
		rec, ok := b.history.pop()
		if !ok {
			return nil
		}
		if c, found := b.Critter(rec.tag); found && c.HasMoved() {
			b.undo(c)
			return nil
		}
	}
}

// CanUndo reports whether UndoLastMove has a move to take back.
func (b *Battle) CanUndo() bool {
	return b.history.len() > 0
}

// UndoAllMoves returns every critter of the active legion to its start.
func (b *Battle) UndoAllMoves() error {
	if err := b.checkCommand(PhaseMove); err != nil {
		return b.reject("undo all moves", err)
	}
	for _, c := range b.ActiveLegion().critters {
		if c.HasMoved() {
			b.undo(c)
		}
	}
	b.history.clear()
	return nil
}

func (b *Battle) undo(c *Critter) {
	from := c.current
	c.current = c.starting
	b.event(EventUndo, fmt.Sprintf("%s returns from %s to %s", c.Name(), from, c.starting),
		zap.Int("critter", c.tag), zap.String("hex", c.starting.label))
}

// commitMoves fixes every critter's starting hex at its current hex.
func (b *Battle) commitMoves() {
	for _, l := range b.legions {
		for _, c := range l.critters {
			c.starting = c.current
		}
	}
	b.history.clear()
}

// removeOffboardCreatures kills active critters still in an entrance.
func (b *Battle) removeOffboardCreatures() {
	for _, c := range b.ActiveLegion().critters {
		if c.current.IsEntrance() && !c.IsDead() {
			c.kill()
		}
	}
	b.removeDead()
}

// DoneWithMoves ends the move phase. Critters left in the entrance die;
// an unplaced summon or reinforcement goes back where it came from.
func (b *Battle) DoneWithMoves() error {
	if err := b.checkCommand(PhaseMove); err != nil {
		return b.reject("done with moves", err)
	}
	b.removeOffboardCreatures()
	b.commitMoves()
	b.event(EventPhase, fmt.Sprintf("%s done with moves", b.ActiveLegion().MarkerID))
	if !b.over {
		b.advancePhase()
	}
	return nil
}
