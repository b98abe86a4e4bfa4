package battle

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// PenaltyOption is one way to resolve a strike that could carry further
// by accepting fewer dice or a higher strike number.
type PenaltyOption struct {
	Dice         int      `json:"dice"`
	StrikeNumber int      `json:"strikeNumber"`
	CarryTargets []string `json:"carryTargets"`
}

// StrikeResult describes a resolved strike, or the penalty options a
// strike is waiting on when PenaltyOptions is not empty.
type StrikeResult struct {
	Striker        int             `json:"striker"`
	Target         string          `json:"target"`
	Dice           int             `json:"dice"`
	StrikeNumber   int             `json:"strikeNumber"`
	Rolls          []int           `json:"rolls,omitempty"`
	Hits           int             `json:"hits"`
	Killed         bool            `json:"killed"`
	Carry          int             `json:"carry"`
	CarryTargets   []string        `json:"carryTargets,omitempty"`
	PenaltyOptions []PenaltyOption `json:"penaltyOptions,omitempty"`
}

// Pending reports whether a penalty option must be chosen first.
func (r StrikeResult) Pending() bool {
	return len(r.PenaltyOptions) > 0
}

// strikePlan is everything about a strike that can be known before rolling.
type strikePlan struct {
	striker, target *Critter
	dice, sn        int
	carryPossible   bool
	carries         map[string]bool
	options         []PenaltyOption
}

func (b *Battle) isRangestrike(c *Critter) bool {
	return !b.inContact(c, true)
}

// dice returns how many dice c rolls against t.
func (b *Battle) dice(c, t *Critter) int {
	h := c.current
	dice := c.Power()
	volcano := c.creature.IsNative(NativeVolcano) && h.terrain == Volcano

	if b.isRangestrike(c) {
		dice /= 2
		if volcano {
			dice += 2
		}
		return dice
	}

	if volcano {
		dice += 2
	}
	dir := DirectionTo(h, t.current, false)
	switch side := h.Hexside(dir); {
	case side == Dune && c.creature.IsNative(NativeSandDune):
		dice += 2
	case side == Slope && c.creature.IsNative(NativeSlope):
		dice++
	case !c.creature.IsNative(NativeSandDune) && h.OppositeHexside(dir) == Dune:
		dice--
	}
	return dice
}

// attackerSkill returns c's skill against t after terrain modifiers.
func (b *Battle) attackerSkill(c, t *Critter) int {
	h, th := c.current, t.current
	skill := c.Skill()

	if !b.isRangestrike(c) {
		if h.terrain == Bramble && !c.creature.IsNative(NativeBramble) {
			skill--
		}
		switch {
		case h.elevation > th.elevation:
			if h.Hexside(DirectionTo(h, th, false)) == Wall {
				skill++
			}
		case h.elevation < th.elevation:
			side := th.Hexside(DirectionTo(th, h, false))
			if (side == Slope && !c.creature.IsNative(NativeSlope)) || side == Wall {
				skill--
			}
		}
		return skill
	}

	if c.creature.MagicMissile {
		return skill
	}
	if r := Range(h, th); r >= 4 {
		skill -= r - 3
	}
	if !c.creature.IsNative(NativeBramble) {
		skill -= b.grid.BrambleHexes(h, th, b.occupied)
	}
	if th.HasWall() && th.elevation > h.elevation {
		skill -= th.elevation - h.elevation
	}
	if th.terrain == Volcano {
		skill--
	}
	return skill
}

// strikeNumber returns the roll c needs on each die to hit t.
func (b *Battle) strikeNumber(c, t *Critter) int {
	sn := 4 - b.attackerSkill(c, t) + t.Skill()

	magic := b.isRangestrike(c) && c.creature.MagicMissile
	if t.current.terrain == Bramble && t.creature.IsNative(NativeBramble) &&
		!c.creature.IsNative(NativeBramble) && !magic {
		sn++
	}
	// Sixes always hit.
	if sn > 6 {
		sn = 6
	}
	return sn
}

// strikeTargets returns the hexes c may strike. Any adjacent enemy, even a
// dead one, rules out rangestrikes.
func (b *Battle) strikeTargets(c *Critter, allowRangestrike bool) map[*Hex]bool {
	if c.struck || c.current.IsEntrance() || c.legion.side == b.conceder {
		return nil
	}
	found := make(map[*Hex]bool)
	h := c.current

	adjacentEnemy := false
	for _, d := range Directions {
		if h.IsCliff(d) {
			continue
		}
		n := h.Neighbor(d)
		if n == nil {
			continue
		}
		if other := b.critterAt(n); other != nil && c.isEnemy(other) {
			adjacentEnemy = true
			if !other.IsDead() {
				found[n] = true
			}
		}
	}

	if allowRangestrike && !adjacentEnemy && c.creature.Rangestriker &&
		b.phase != PhaseStrikeback && c.legion == b.ActiveLegion() {
		for _, t := range b.legions[c.Side().Other()].critters {
			if !t.IsDead() && b.rangestrikePossible(c, t) {
				found[t.current] = true
			}
		}
	}
	return found
}

// StrikeTargets returns the hexes the critter may strike, sorted.
func (b *Battle) StrikeTargets(tag int) []string {
	c, ok := b.Critter(tag)
	if !ok {
		return nil
	}
	return hexSetLabels(b.strikeTargets(c, true))
}

// possibleCarryToDir reports whether terrain lets a strike on the target
// hex carry to the striker's neighbor in direction d.
func possibleCarryToDir(striker, target *Hex, d Direction) bool {
	n := striker.Neighbor(d)
	if n == nil || n == target || striker.IsCliff(d) {
		return false
	}
	// Only strikes up a dune may carry up a dune.
	back := DirectionTo(target, striker, false)
	if striker.OppositeHexside(d) == Dune && target.Hexside(back) != Dune {
		return false
	}
	return true
}

// planStrike works out dice, strike number and carry choices for c on t.
func (b *Battle) planStrike(c, t *Critter) strikePlan {
	p := strikePlan{
		striker: c,
		target:  t,
		dice:    b.dice(c, t),
		sn:      b.strikeNumber(c, t),
		carries: make(map[string]bool),
	}
	p.carryPossible = b.numInContact(c, false) >= 2 && p.dice > t.remaining()
	if !p.carryPossible {
		return p
	}

	type key struct{ dice, sn int }
	groups := make(map[key]map[string]bool)
	for _, d := range Directions {
		if !possibleCarryToDir(c.current, t.current, d) {
			continue
		}
		n := c.current.Neighbor(d)
		victim := b.critterAt(n)
		if victim == nil || !c.isEnemy(victim) || victim.IsDead() {
			continue
		}

		// There is no bonus for carrying.
		vd := b.dice(c, victim)
		if vd > p.dice {
			vd = p.dice
		}
		vsn := b.strikeNumber(c, victim)
		if vsn < p.sn {
			vsn = p.sn
		}
		if vd <= t.remaining() {
			continue
		}

		if vd == p.dice && vsn == p.sn {
			p.carries[n.label] = true
			continue
		}
		k := key{vd, vsn}
		if groups[k] == nil {
			groups[k] = make(map[string]bool)
		}
		groups[k][n.label] = true
	}

	if len(groups) == 0 {
		return p
	}
	groups[key{p.dice, p.sn}] = make(map[string]bool)
	for k, targets := range groups {
		for label := range p.carries {
			targets[label] = true
		}
		p.options = append(p.options, PenaltyOption{
			Dice:         k.dice,
			StrikeNumber: k.sn,
			CarryTargets: sortedLabels(targets),
		})
	}
	sort.Slice(p.options, func(i, j int) bool {
		if p.options[i].Dice != p.options[j].Dice {
			return p.options[i].Dice > p.options[j].Dice
		}
		return p.options[i].StrikeNumber < p.options[j].StrikeNumber
	})
	return p
}

// strikeSetup validates a strike command and returns striker and target.
func (b *Battle) strikeSetup(tag int, label string) (*Critter, *Critter, error) {
	if err := b.checkCommand(PhaseFight, PhaseStrikeback); err != nil {
		return nil, nil, err
	}
	c, err := b.activeCritter(tag)
	if err != nil {
		return nil, nil, err
	}
	if c.struck {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyStruck, c.Name())
	}
	h, err := b.hex(label)
	if err != nil {
		return nil, nil, err
	}
	if !b.strikeTargets(c, true)[h] {
		return nil, nil, fmt.Errorf("%w: %s cannot strike %s", ErrIllegalTarget, c.Name(), label)
	}
	return c, b.critterAt(h), nil
}

func checkRolls(rolls []int, dice int) error {
	if len(rolls) == 0 {
		return nil
	}
	if len(rolls) != dice {
		return fmt.Errorf("%w: got %d rolls for %d dice", ErrBadRolls, len(rolls), dice)
	}
	for _, r := range rolls {
		if r < 1 || r > 6 {
			return fmt.Errorf("%w: roll %d", ErrBadRolls, r)
		}
	}
	return nil
}

// Strike has a critter of the active legion strike the labelled hex. When
// the strike could carry further by accepting a penalty, nothing is rolled
// and the options are returned for ChooseStrikePenalty. Explicit rolls
// replace the dice roller.
func (b *Battle) Strike(tag int, label string, rolls ...int) (StrikeResult, error) {
	c, t, err := b.strikeSetup(tag, label)
	if err != nil {
		return StrikeResult{}, b.reject("strike", err)
	}
	p := b.planStrike(c, t)
	if len(p.options) > 0 {
		b.leaveCarryMode()
		b.event(EventStrike, fmt.Sprintf("%s in %s must choose a strike penalty against %s in %s",
			c.Name(), c.current, t.Name(), t.current), zap.Int("critter", tag), zap.String("hex", label))
		return StrikeResult{
			Striker:        tag,
			Target:         label,
			Dice:           p.dice,
			StrikeNumber:   p.sn,
			PenaltyOptions: p.options,
		}, nil
	}
	if err := checkRolls(rolls, p.dice); err != nil {
		return StrikeResult{}, b.reject("strike", err)
	}
	return b.resolveStrike(c, t, p.dice, p.sn, p.carryPossible, p.carries, rolls), nil
}

// ChooseStrikePenalty resolves a pending strike with one of its options.
func (b *Battle) ChooseStrikePenalty(tag int, label string, dice, strikeNumber int, rolls ...int) (StrikeResult, error) {
	c, t, err := b.strikeSetup(tag, label)
	if err != nil {
		return StrikeResult{}, b.reject("choose strike penalty", err)
	}
	p := b.planStrike(c, t)
	for _, o := range p.options {
		if o.Dice != dice || o.StrikeNumber != strikeNumber {
			continue
		}
		if err := checkRolls(rolls, dice); err != nil {
			return StrikeResult{}, b.reject("choose strike penalty", err)
		}
		carries := make(map[string]bool, len(o.CarryTargets))
		for _, l := range o.CarryTargets {
			carries[l] = true
		}
		return b.resolveStrike(c, t, dice, strikeNumber, len(carries) > 0, carries, rolls), nil
	}
	return StrikeResult{}, b.reject("choose strike penalty",
		fmt.Errorf("%w: %d dice at %d", ErrNoPenaltyOption, dice, strikeNumber))
}

// resolveStrike rolls and applies damage. Overkill becomes carry damage
// only when a carry is possible and there is somewhere to carry to.
func (b *Battle) resolveStrike(c, t *Critter, dice, sn int, carryPossible bool, carries map[string]bool, rolls []int) StrikeResult {
	b.leaveCarryMode()
	if len(rolls) == 0 {
		rolls = b.roller.Roll(dice)
	}
	hits := countHits(rolls, sn)
	excess := t.wound(hits)
	if !carryPossible {
		excess = 0
	}
	c.struck = true
	c.visible = true
	t.visible = true

	if excess > 0 && len(carries) > 0 {
		b.carryDamage = excess
		for l := range carries {
			b.carryTargets[l] = true
		}
	}

	b.event(EventStrike, fmt.Sprintf("%s in %s strikes %s in %s with strike number %d, rolling %v: %d hits",
		c.Name(), c.current, t.Name(), t.current, sn, rolls, hits),
		zap.Int("critter", c.tag), zap.String("hex", t.current.label),
		zap.Int("dice", dice), zap.Int("hits", hits), zap.Int("carry", b.carryDamage))

	return StrikeResult{
		Striker:      c.tag,
		Target:       t.current.label,
		Dice:         dice,
		StrikeNumber: sn,
		Rolls:        rolls,
		Hits:         hits,
		Killed:       t.IsDead(),
		Carry:        b.carryDamage,
		CarryTargets: b.CarryTargets(),
	}
}

// makeForcedStrikes strikes with every unstruck active critter that has
// exactly one target, repeating while kills leave others with one target.
func (b *Battle) makeForcedStrikes(allowRangestrike bool) {
	for repeat := true; repeat && !b.over; {
		repeat = false
		for _, c := range b.ActiveLegion().critters {
			if c.struck {
				continue
			}
			targets := b.strikeTargets(c, allowRangestrike)
			if len(targets) != 1 {
				continue
			}
			for h := range targets {
				t := b.critterAt(h)
				p := b.planStrike(c, t)
				b.resolveStrike(c, t, p.dice, p.sn, p.carryPossible, p.carries, nil)
				if t.IsDead() {
					repeat = true
				}
			}
		}
	}
}

// MakeForcedStrikes resolves every strike that has only one possible target.
func (b *Battle) MakeForcedStrikes(allowRangestrike bool) error {
	if err := b.checkCommand(PhaseFight, PhaseStrikeback); err != nil {
		return b.reject("forced strikes", err)
	}
	b.makeForcedStrikes(allowRangestrike)
	return nil
}

func (b *Battle) forcedStrikeRemaining() bool {
	for _, c := range b.ActiveLegion().critters {
		if !c.struck && b.inContact(c, false) && c.legion.side != b.conceder {
			return true
		}
	}
	return false
}

// commitStrikes readies the active legion to strike again next time.
func (b *Battle) commitStrikes() {
	for _, c := range b.ActiveLegion().critters {
		c.struck = false
	}
	b.leaveCarryMode()
}

// DoneWithStrikes ends the strike phase. It fails while an unstruck
// critter is still engaged with a live enemy.
func (b *Battle) DoneWithStrikes() error {
	if err := b.checkCommand(PhaseFight, PhaseStrikeback); err != nil {
		return b.reject("done with strikes", err)
	}
	if b.forcedStrikeRemaining() {
		return b.reject("done with strikes", ErrForcedStrikesRemain)
	}
	b.commitStrikes()
	b.event(EventPhase, fmt.Sprintf("%s done with strikes", b.ActiveLegion().MarkerID))
	b.advancePhase()
	return nil
}

// applyDriftDamage wounds non-natives standing in drift, once per fight phase.
func (b *Battle) applyDriftDamage() {
	if b.phase != PhaseFight || b.driftDamageApplied {
		return
	}
	b.driftDamageApplied = true
	for _, c := range b.Critters() {
		if dmg := HexDamage(c.current, c.creature); dmg > 0 {
			c.wound(dmg)
			b.event(EventDriftDamage, fmt.Sprintf("%s in %s takes %d hex damage", c.Name(), c.current, dmg),
				zap.Int("critter", c.tag), zap.String("hex", c.current.label))
		}
	}
}
