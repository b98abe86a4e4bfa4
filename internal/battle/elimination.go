package battle

import (
	"fmt"

	"go.uber.org/zap"
)

// Outcome is how a battle ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeMutualTitan
	OutcomeAttackerTitanSlain
	OutcomeDefenderTitanSlain
	OutcomeMutualElimination
	OutcomeAttackerEliminated
	OutcomeDefenderEliminated
	OutcomeTimeLoss
)

var outcomeNames = map[Outcome]string{
	OutcomeNone:               "none",
	OutcomeMutualTitan:        "mutual_titan",
	OutcomeAttackerTitanSlain: "attacker_titan_slain",
	OutcomeDefenderTitanSlain: "defender_titan_slain",
	OutcomeMutualElimination:  "mutual_elimination",
	OutcomeAttackerEliminated: "attacker_eliminated",
	OutcomeDefenderEliminated: "defender_eliminated",
	OutcomeTimeLoss:           "time_loss",
}

// String returns the outcome name.
func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	for k, v := range outcomeNames {
		if v == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("%w: unknown outcome %q", ErrInvalidState, text)
}

// PlayerDeath records a player knocked out of the game by a battle.
// Slayer is empty when nobody gets the credit.
type PlayerDeath struct {
	Player string `json:"player"`
	Slayer string `json:"slayer,omitempty"`
}

// Result is what a finished battle reports to the campaign.
type Result struct {
	Outcome         Outcome       `json:"outcome"`
	Winner          Side          `json:"winner"`
	Turn            int           `json:"turn"`
	AttackerRemoved bool          `json:"attackerRemoved"`
	DefenderRemoved bool          `json:"defenderRemoved"`
	AttackerPoints  int           `json:"attackerPoints"`
	DefenderPoints  int           `json:"defenderPoints"`
	Deaths          []PlayerDeath `json:"deaths,omitempty"`
}

// TimeLoss reports whether the battle ran out of turns.
func (r Result) TimeLoss() bool { return r.Outcome == OutcomeTimeLoss }

// classifyElimination maps the state after removing the dead to exactly
// one outcome. OutcomeNone means the battle goes on.
func classifyElimination(attackerTitanDead, defenderTitanDead, attackerElim, defenderElim bool) Outcome {
	switch {
	case attackerTitanDead && defenderTitanDead:
		return OutcomeMutualTitan
	case attackerTitanDead:
		return OutcomeAttackerTitanSlain
	case defenderTitanDead:
		return OutcomeDefenderTitanSlain
	case attackerElim && defenderElim:
		return OutcomeMutualElimination
	case attackerElim:
		return OutcomeAttackerEliminated
	case defenderElim:
		return OutcomeDefenderEliminated
	default:
		return OutcomeNone
	}
}

// removeDead takes dead critters off the board, scoring them for the
// other side, and reports which legions are gone.
func (b *Battle) removeDead() (attackerElim, defenderElim bool) {
	b.defenderElim = b.removeDeadFrom(b.Defender())
	b.attackerElim = b.removeDeadFrom(b.Attacker())

	if b.Attacker().titanGone() {
		b.attackerElim = true
	}
	if b.Defender().titanGone() {
		b.defenderElim = true
	}
	return b.attackerElim, b.defenderElim
}

func (b *Battle) removeDeadFrom(l *Legion) bool {
	alive := make([]*Critter, 0, len(l.critters))
	for _, c := range l.critters {
		if c.IsDead() {
			b.cleanupDead(c)
		} else {
			alive = append(alive, c)
		}
	}
	l.critters = alive
	return len(alive) == 0
}

func (b *Battle) cleanupDead(c *Critter) {
	l := c.legion
	p := l.Player
	returned := false

	switch {
	// After turn 1, creatures left off-board go back with no points.
	case c.current.IsEntrance() && b.turn > 1:
		if l.side == Attacker {
			if p != nil && p.Donor != "" {
				b.campaign.ReturnToDonor(p.Donor, c)
				b.event(EventSummon, fmt.Sprintf("%s returns to %s", c.Name(), p.Donor),
					zap.Int("critter", c.tag))
				p.Summoned = false
				p.Donor = ""
				returned = true
			} else {
				b.log.Warn("off-board attacker without a donor",
					zap.String("battle", b.id), zap.Int("critter", c.tag))
			}
		} else {
			b.pool.PutBack(c.Name())
			l.RecruitName = ""
			returned = true
			b.event(EventRecruit, fmt.Sprintf("%s reinforcement %s is undone", l.MarkerID, c.Name()),
				zap.Int("critter", c.tag))
		}

	case l.side == Attacker:
		b.Defender().addToTally(c.PointValue())

	default:
		b.Attacker().addToTally(c.PointValue())
		// Creatures left off-board do not open summoning.
		if b.summonState == NoKills && !c.current.IsEntrance() {
			b.summonState = FirstBlood
		}
	}

	if !returned && c.creature.IsImmortal() {
		b.pool.PutBack(c.Name())
	}
	if c.creature.Titan && p != nil {
		p.TitanEliminated = true
	}
	b.event(EventDeath, fmt.Sprintf("%s in %s is removed", c.Name(), c.current),
		zap.Int("critter", c.tag), zap.String("hex", c.current.label))
}

// removeLegion takes every remaining critter of l out of the battle.
func (b *Battle) removeLegion(l *Legion) {
	for _, c := range l.critters {
		if c.creature.IsImmortal() {
			b.pool.PutBack(c.Name())
		}
	}
	l.critters = nil
	b.event(EventDeath, fmt.Sprintf("legion %s is eliminated", l.MarkerID))
}

func playerDeath(p, slayer *Player) []PlayerDeath {
	if p == nil {
		return nil
	}
	d := PlayerDeath{Player: p.Name}
	if slayer != nil {
		d.Slayer = slayer.Name
	}
	p.die(d.Slayer)
	return []PlayerDeath{d}
}

func (b *Battle) checkForElimination() {
	att, def := b.Attacker(), b.Defender()
	outcome := classifyElimination(att.titanGone(), def.titanGone(), b.attackerElim, b.defenderElim)
	if outcome == OutcomeNone {
		return
	}

	r := Result{Outcome: outcome, Winner: NoSide, Turn: b.turn}
	switch outcome {
	case OutcomeMutualTitan:
		// Nobody gets points; the defender dies first.
		r.Deaths = append(playerDeath(def.Player, nil), playerDeath(att.Player, nil)...)
		b.removeLegion(def)
		b.removeLegion(att)
		r.AttackerRemoved, r.DefenderRemoved = true, true

	case OutcomeAttackerTitanSlain:
		if b.defenderElim {
			b.removeLegion(def)
			r.DefenderRemoved = true
		} else {
			r.DefenderPoints = def.addTallyToPoints()
			r.Winner = Defender
		}
		r.Deaths = playerDeath(att.Player, def.Player)
		b.removeLegion(att)
		r.AttackerRemoved = true

	case OutcomeDefenderTitanSlain:
		if b.attackerElim {
			b.removeLegion(att)
			r.AttackerRemoved = true
		} else {
			r.AttackerPoints = att.addTallyToPoints()
			r.Winner = Attacker
		}
		r.Deaths = playerDeath(def.Player, att.Player)
		b.removeLegion(def)
		r.DefenderRemoved = true

	case OutcomeMutualElimination:
		b.removeLegion(att)
		b.removeLegion(def)
		r.AttackerRemoved, r.DefenderRemoved = true, true

	case OutcomeAttackerEliminated:
		r.DefenderPoints = def.addTallyToPoints()
		b.removeLegion(att)
		r.AttackerRemoved = true
		r.Winner = Defender

	case OutcomeDefenderEliminated:
		r.AttackerPoints = att.addTallyToPoints()
		b.removeLegion(def)
		r.DefenderRemoved = true
		r.Winner = Attacker
	}
	b.finish(r)
}

// timeLoss ends a battle that ran past the last turn. The attacker is
// removed and the defender scores nothing.
func (b *Battle) timeLoss() {
	att, def := b.Attacker(), b.Defender()
	r := Result{
		Outcome:         OutcomeTimeLoss,
		Winner:          Defender,
		Turn:            b.turn,
		AttackerRemoved: true,
	}
	if att.HasTitan() {
		r.Deaths = playerDeath(att.Player, def.Player)
	}
	b.removeLegion(att)
	b.event(EventBattleOver, "time loss")
	b.finish(r)
}

func (b *Battle) finish(r Result) {
	b.over = true
	b.result = &r
	b.awaiting = AwaitNothing
	b.leaveCarryMode()
	b.history.clear()
	b.event(EventBattleOver, fmt.Sprintf("battle over: %s, winner %s", r.Outcome, r.Winner),
		zap.Int("attackerPoints", r.AttackerPoints), zap.Int("defenderPoints", r.DefenderPoints))
	b.campaign.BattleOver(b, r)
}
