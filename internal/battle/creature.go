package battle

import (
	"fmt"
	"sort"
)

// Native is a bit set of terrains and hexsides a creature is native to.
type Native uint8

const (
	NativeBramble Native = 1 << iota
	NativeDrift
	NativeBog
	NativeSandDune
	NativeSlope
	NativeVolcano
)

// Has reports whether all bits of n are set.
func (s Native) Has(n Native) bool {
	return s&n == n
}

// ParseNative converts a native name to its bit.
func ParseNative(s string) (Native, error) {
	switch s {
	case "bramble":
		return NativeBramble, nil
	case "drift":
		return NativeDrift, nil
	case "bog":
		return NativeBog, nil
	case "sand", "dune":
		return NativeSandDune, nil
	case "slope":
		return NativeSlope, nil
	case "volcano":
		return NativeVolcano, nil
	default:
		return 0, fmt.Errorf("unknown native terrain %q", s)
	}
}

// CreatureType holds the shared stats of one kind of creature.
type CreatureType struct {
	Name         string
	Power        int
	Skill        int
	MaxCount     int
	Rangestriker bool
	Flier        bool
	Lord         bool
	Demilord     bool
	Titan        bool
	Summonable   bool
	MagicMissile bool
	Natives      Native
}

// IsImmortal reports whether the creature returns to the pool when removed.
func (t *CreatureType) IsImmortal() bool {
	return t.Lord || t.Demilord
}

// IsNative reports whether the creature is native to n.
func (t *CreatureType) IsNative(n Native) bool {
	return t.Natives.Has(n)
}

// CanFlyOverVolcano reports whether the creature may enter or cross volcano hexes.
func (t *CreatureType) CanFlyOverVolcano() bool {
	return t.Natives.Has(NativeVolcano)
}

// CanRangestrikeLords reports whether the creature ignores the lord,
// minimum-range and line-of-sight limits on rangestrikes.
func (t *CreatureType) CanRangestrikeLords() bool {
	return t.MagicMissile
}

// Catalog is the set of creature types a battle can use.
type Catalog struct {
	types map[string]*CreatureType
	names []string
}

// NewCatalog builds a catalog, rejecting duplicates and impossible stats.
func NewCatalog(types []*CreatureType) (*Catalog, error) {
	c := &Catalog{types: make(map[string]*CreatureType, len(types))}
	for _, t := range types {
		if t.Name == "" {
			return nil, fmt.Errorf("creature without a name")
		}
		if _, dup := c.types[t.Name]; dup {
			return nil, fmt.Errorf("duplicate creature %s", t.Name)
		}
		if !t.Titan && t.Power <= 0 {
			return nil, fmt.Errorf("creature %s: power must be positive", t.Name)
		}
		if t.Skill <= 0 {
			return nil, fmt.Errorf("creature %s: skill must be positive", t.Name)
		}
		c.types[t.Name] = t
		c.names = append(c.names, t.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Lookup returns the creature type with the given name.
func (c *Catalog) Lookup(name string) (*CreatureType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Names returns all creature names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
