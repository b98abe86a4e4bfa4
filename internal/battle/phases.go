package battle

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Phase represents the current phase of a battle turn.
type Phase int

const (
	PhaseSummon Phase = iota
	PhaseRecruit
	PhaseMove
	PhaseFight
	PhaseStrikeback
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSummon:
		return "summon"
	case PhaseRecruit:
		return "recruit"
	case PhaseMove:
		return "move"
	case PhaseFight:
		return "fight"
	case PhaseStrikeback:
		return "strikeback"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	v, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	return p >= PhaseSummon && p <= PhaseStrikeback
}

// IsFight reports whether strikes are allowed in this phase.
func (p Phase) IsFight() bool {
	return p == PhaseFight || p == PhaseStrikeback
}

// ParsePhase converts a phase name to a Phase.
func ParsePhase(s string) (Phase, error) {
	for p := PhaseSummon; p <= PhaseStrikeback; p++ {
		if strings.EqualFold(p.String(), s) {
			return p, nil
		}
	}
	return PhaseSummon, fmt.Errorf("%w: unknown phase %q", ErrInvalidState, s)
}

// SummonState tracks whether the attacker may still summon an angel.
type SummonState int

const (
	NoKills SummonState = iota
	FirstBlood
	TooLate
)

// String returns the summon state name.
func (s SummonState) String() string {
	switch s {
	case NoKills:
		return "no_kills"
	case FirstBlood:
		return "first_blood"
	case TooLate:
		return "too_late"
	default:
		return "unknown"
	}
}

// ParseSummonState converts a summon state name to a SummonState.
func ParseSummonState(s string) (SummonState, error) {
	for st := NoKills; st <= TooLate; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return NoKills, fmt.Errorf("%w: unknown summon state %q", ErrInvalidState, s)
}

// MarshalText encodes the summon state by name.
func (s SummonState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a summon state name.
func (s *SummonState) UnmarshalText(text []byte) error {
	v, err := ParseSummonState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Awaiting names an outside decision the battle is paused on.
type Awaiting int

const (
	AwaitNothing Awaiting = iota
	AwaitSummon
	AwaitRecruit
)

// String returns the awaited decision.
func (a Awaiting) String() string {
	switch a {
	case AwaitSummon:
		return "summon"
	case AwaitRecruit:
		return "recruit"
	default:
		return "nothing"
	}
}

// ParseAwaiting converts a name from Awaiting.String back.
func ParseAwaiting(s string) (Awaiting, error) {
	switch s {
	case "", "nothing":
		return AwaitNothing, nil
	case "summon":
		return AwaitSummon, nil
	case "recruit":
		return AwaitRecruit, nil
	default:
		return AwaitNothing, fmt.Errorf("%w: unknown awaiting %q", ErrInvalidState, s)
	}
}

// MarshalText encodes the awaited decision by name.
func (a Awaiting) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an awaited decision name.
func (a *Awaiting) UnmarshalText(text []byte) error {
	v, err := ParseAwaiting(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

const lastTurn = 7

func (b *Battle) setPhase(p Phase) {
	b.phase = p
	b.event(EventPhase, fmt.Sprintf("battle phase advances to %s", p))
}

// setupPhase prepares the current phase and reports whether it has
// nothing to do and should be skipped.
func (b *Battle) setupPhase() bool {
	switch b.phase {
	case PhaseSummon:
		return b.setupSummon()
	case PhaseRecruit:
		return b.setupRecruit()
	case PhaseMove:
		return b.setupMove()
	default:
		return b.setupFight()
	}
}

// advancePhase moves to the next phase, skipping any with nothing to do.
func (b *Battle) advancePhase() {
	for again := true; again && !b.over; {
		again = b.nextPhase()
	}
}

func (b *Battle) nextPhase() bool {
	switch b.phase {
	case PhaseSummon, PhaseRecruit:
		b.setPhase(PhaseMove)
		return b.setupMove()

	case PhaseMove:
		// Reaching the end of a move phase counts as entering, even with
		// everything left off-board.
		if b.active == Attacker && b.conceder == NoSide {
			b.attackerEntered = true
		}
		b.setPhase(PhaseFight)
		return b.setupFight()

	case PhaseFight:
		// The active legion switches between fight and strikeback.
		b.active = b.active.Other()
		b.driftDamageApplied = false
		b.setPhase(PhaseStrikeback)
		return b.setupFight()

	case PhaseStrikeback:
		b.removeDead()
		b.checkForElimination()
		return b.advanceTurn()
	}
	return false
}

func (b *Battle) advanceTurn() bool {
	if b.over {
		return false
	}

	// The active legion is the one that just struck back.
	if b.active == Attacker {
		b.setPhase(PhaseSummon)
		return b.setupSummon()
	}

	b.turn++
	if b.turn > lastTurn {
		b.timeLoss()
		return false
	}
	b.event(EventTurn, fmt.Sprintf("battle turn %d", b.turn))
	b.setPhase(PhaseRecruit)
	return b.setupRecruit()
}

func (b *Battle) setupSummon() bool {
	advance := true
	if b.summonState == FirstBlood {
		if b.campaign.CanSummonAngel(b.Attacker()) {
			b.awaiting = AwaitSummon
			advance = false
		}
		// Last chance to summon until the battle is over.
		b.summonState = TooLate
	}
	return advance
}

func (b *Battle) setupRecruit() bool {
	if b.turn == 4 && b.campaign.CanRecruit(b.Defender()) {
		b.awaiting = AwaitRecruit
		return false
	}
	return true
}

func (b *Battle) setupMove() bool {
	return len(b.MobileCritters()) == 0
}

func (b *Battle) setupFight() bool {
	b.applyDriftDamage()
	b.makeForcedStrikes(false)
	if len(b.CrittersWithTargets()) == 0 {
		b.commitStrikes()
		return true
	}
	return false
}

// SummonAngel brings a summonable creature from the donor legion into the
// attacker's entrance. It is only allowed while the battle waits for it.
func (b *Battle) SummonAngel(name, donor string) error {
	if b.over {
		return b.reject("summon angel", ErrBattleOver)
	}
	if b.awaiting != AwaitSummon {
		return b.reject("summon angel", ErrCannotSummon)
	}
	t, ok := b.catalog.Lookup(name)
	if !ok {
		return b.reject("summon angel", fmt.Errorf("%w: %s", ErrUnknownCreature, name))
	}
	att := b.Attacker()
	if !t.Summonable || att.Height() >= MaxEntranceCritters {
		return b.reject("summon angel", fmt.Errorf("%w: %s", ErrCannotSummon, name))
	}

	c, err := b.addCritter(att, name, b.grid.Entrance(att.EntrySide))
	if err != nil {
		return b.reject("summon angel", err)
	}
	if att.Player != nil {
		att.Player.Summoned = true
		att.Player.Donor = donor
	}
	b.awaiting = AwaitNothing
	b.event(EventSummon, fmt.Sprintf("%s summons %s from %s", att.MarkerID, name, donor),
		zap.Int("critter", c.tag))
	b.advancePhase()
	return nil
}

// SkipSummon declines the offered summon.
func (b *Battle) SkipSummon() error {
	if b.over {
		return b.reject("skip summon", ErrBattleOver)
	}
	if b.awaiting != AwaitSummon {
		return b.reject("skip summon", ErrCannotSummon)
	}
	b.awaiting = AwaitNothing
	b.event(EventSummon, fmt.Sprintf("%s does not summon", b.Attacker().MarkerID))
	b.advancePhase()
	return nil
}

// Reinforce takes one creature from the pool into the defender's entrance.
func (b *Battle) Reinforce(name string) error {
	if b.over {
		return b.reject("reinforce", ErrBattleOver)
	}
	if b.awaiting != AwaitRecruit {
		return b.reject("reinforce", ErrCannotRecruit)
	}
	if _, ok := b.catalog.Lookup(name); !ok {
		return b.reject("reinforce", fmt.Errorf("%w: %s", ErrUnknownCreature, name))
	}
	def := b.Defender()
	if def.Height() >= MaxEntranceCritters {
		return b.reject("reinforce", fmt.Errorf("%w: legion %s is full", ErrCannotRecruit, def.MarkerID))
	}
	if !b.pool.TakeOne(name) {
		return b.reject("reinforce", fmt.Errorf("%w: no %s left", ErrCannotRecruit, name))
	}

	c, err := b.addCritter(def, name, b.grid.Entrance(def.EntrySide))
	if err != nil {
		b.pool.PutBack(name)
		return b.reject("reinforce", err)
	}
	def.RecruitName = name
	b.awaiting = AwaitNothing
	b.event(EventRecruit, fmt.Sprintf("%s recruits %s", def.MarkerID, name), zap.Int("critter", c.tag))
	b.advancePhase()
	return nil
}

// SkipReinforce declines the offered reinforcement.
func (b *Battle) SkipReinforce() error {
	if b.over {
		return b.reject("skip reinforce", ErrBattleOver)
	}
	if b.awaiting != AwaitRecruit {
		return b.reject("skip reinforce", ErrCannotRecruit)
	}
	b.awaiting = AwaitNothing
	b.event(EventRecruit, fmt.Sprintf("%s does not recruit", b.Defender().MarkerID))
	b.advancePhase()
	return nil
}

// Concede kills every critter of one side. When that side is acting the
// phase advances at once.
func (b *Battle) Concede(side Side) error {
	if b.over {
		return b.reject("concede", ErrBattleOver)
	}
	l := b.Legion(side)
	if l == nil {
		return b.reject("concede", fmt.Errorf("%w: side %d", ErrInvalidState, side))
	}
	b.conceder = side
	for _, c := range l.critters {
		c.kill()
	}
	b.event(EventConcede, fmt.Sprintf("%s concedes the battle", l.MarkerID))

	if side == b.active {
		b.awaiting = AwaitNothing
		b.leaveCarryMode()
		b.advancePhase()
	}
	return nil
}

// Conceded reports whether a side has conceded.
func (b *Battle) Conceded() bool { return b.conceder != NoSide }
