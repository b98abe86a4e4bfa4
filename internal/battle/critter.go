package battle

// Critter is one creature fighting in a battle.
type Critter struct {
	tag      int
	creature *CreatureType
	legion   *Legion
	current  *Hex
	starting *Hex
	hits     int
	struck   bool
	visible  bool
}

// Tag returns the in-battle identifier.
func (c *Critter) Tag() int { return c.tag }

// Name returns the creature name.
func (c *Critter) Name() string { return c.creature.Name }

// Type returns the creature type.
func (c *Critter) Type() *CreatureType { return c.creature }

// Legion returns the owning legion.
func (c *Critter) Legion() *Legion { return c.legion }

// Side returns the owning legion's side.
func (c *Critter) Side() Side { return c.legion.side }

// Hex returns the current hex.
func (c *Critter) Hex() *Hex { return c.current }

// StartingHex returns where the critter began this move phase.
func (c *Critter) StartingHex() *Hex { return c.starting }

// Hits returns damage taken.
func (c *Critter) Hits() int { return c.hits }

// HasStruck reports whether the critter struck this phase.
func (c *Critter) HasStruck() bool { return c.struck }

// Visible reports whether other players can see the creature.
func (c *Critter) Visible() bool { return c.visible }

// HasMoved reports whether the critter has left its starting hex.
func (c *Critter) HasMoved() bool { return c.current != c.starting }

// Power returns current power. Titans grow with their owner's score.
func (c *Critter) Power() int {
	if c.creature.Titan {
		if c.legion != nil && c.legion.Player != nil {
			return c.legion.Player.TitanPower()
		}
		return 6
	}
	return c.creature.Power
}

// Skill returns the creature skill.
func (c *Critter) Skill() int { return c.creature.Skill }

// PointValue returns what killing this critter is worth.
func (c *Critter) PointValue() int { return c.Power() * c.Skill() }

// IsDead reports whether hits have reached power.
func (c *Critter) IsDead() bool { return c.hits >= c.Power() }

// remaining returns how many more hits the critter can take.
func (c *Critter) remaining() int { return c.Power() - c.hits }

// wound applies damage and returns the excess beyond what killed it.
func (c *Critter) wound(damage int) int {
	if damage <= 0 {
		return 0
	}
	excess := 0
	c.hits += damage
	if p := c.Power(); c.hits > p {
		excess = c.hits - p
		c.hits = p
	}
	return excess
}

func (c *Critter) kill() {
	c.hits = c.Power()
}

func (c *Critter) isEnemy(other *Critter) bool {
	return c.legion != other.legion
}
