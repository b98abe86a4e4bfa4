package battle

import "fmt"

// Side identifies one of the two legions in a battle.
type Side int

const (
	Defender Side = iota
	Attacker
)

// NoSide is used when a battle has no winner.
const NoSide Side = -1

// Other returns the opposing side.
func (s Side) Other() Side {
	return 1 - s
}

// String returns the side name.
func (s Side) String() string {
	switch s {
	case Defender:
		return "defender"
	case Attacker:
		return "attacker"
	default:
		return "none"
	}
}

// ParseSide converts a side name to a Side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "defender":
		return Defender, true
	case "attacker":
		return Attacker, true
	default:
		return NoSide, false
	}
}

// MarshalText encodes the side by name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a side name; "none" is NoSide.
func (s *Side) UnmarshalText(text []byte) error {
	if string(text) == "none" {
		*s = NoSide
		return nil
	}
	side, ok := ParseSide(string(text))
	if !ok {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidState, text)
	}
	*s = side
	return nil
}

// Player is the campaign-side owner of a legion.
type Player struct {
	Name            string `json:"name"`
	Score           int    `json:"score"`
	TitanEliminated bool   `json:"titanEliminated"`
	Dead            bool   `json:"dead"`
	Slayer          string `json:"slayer,omitempty"`
	Summoned        bool   `json:"summoned"`
	Donor           string `json:"donor,omitempty"`
}

// TitanPower returns the power of this player's Titan.
func (p *Player) TitanPower() int {
	return 6 + p.Score/100
}

// die marks the player as out of the game.
func (p *Player) die(slayer string) {
	p.Dead = true
	p.Slayer = slayer
}

// Legion is one side's stack of critters in a battle.
type Legion struct {
	MarkerID  string
	Player    *Player
	EntrySide int

	// Campaign bookkeeping, carried through snapshots unchanged.
	CurrentHex  string
	StartingHex string
	Moved       bool
	ParentID    string
	RecruitName string

	side     Side
	critters []*Critter
	tally    int
}

// Side returns whether this legion attacks or defends.
func (l *Legion) Side() Side { return l.side }

// Critters returns the legion roster in order.
func (l *Legion) Critters() []*Critter {
	out := make([]*Critter, len(l.critters))
	copy(out, l.critters)
	return out
}

// Height returns the number of critters in the legion.
func (l *Legion) Height() int { return len(l.critters) }

// BattleTally returns the points scored by this legion so far in the battle.
func (l *Legion) BattleTally() int { return l.tally }

// PlayerName returns the owner's name, or "" without an owner.
func (l *Legion) PlayerName() string {
	if l.Player == nil {
		return ""
	}
	return l.Player.Name
}

// HasTitan reports whether a Titan is in the roster.
func (l *Legion) HasTitan() bool {
	for _, c := range l.critters {
		if c.creature.Titan {
			return true
		}
	}
	return false
}

// titanGone reports whether the owning player has lost its Titan or is absent.
func (l *Legion) titanGone() bool {
	return l.Player == nil || l.Player.TitanEliminated
}

func (l *Legion) addToTally(points int) {
	l.tally += points
}

// addTallyToPoints moves the battle tally into the owner's score.
func (l *Legion) addTallyToPoints() int {
	points := l.tally
	if l.Player != nil {
		l.Player.Score += points
	}
	l.tally = 0
	return points
}
