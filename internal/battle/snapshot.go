package battle

import (
	"fmt"
)

// CritterSnapshot is the saved state of one critter.
type CritterSnapshot struct {
	Tag         int    `json:"tag"`
	Name        string `json:"name"`
	Visible     bool   `json:"visible"`
	Hits        int    `json:"hits"`
	CurrentHex  string `json:"currentHex"`
	StartingHex string `json:"startingHex"`
	Struck      bool   `json:"struck"`
}

// LegionSnapshot is the saved state of one legion.
type LegionSnapshot struct {
	MarkerID    string            `json:"markerId"`
	Player      *Player           `json:"player,omitempty"`
	EntrySide   int               `json:"entrySide"`
	CurrentHex  string            `json:"currentHex,omitempty"`
	StartingHex string            `json:"startingHex,omitempty"`
	Moved       bool              `json:"moved"`
	ParentID    string            `json:"parentId,omitempty"`
	RecruitName string            `json:"recruitName,omitempty"`
	BattleTally int               `json:"battleTally"`
	Critters    []CritterSnapshot `json:"critters"`
}

// Snapshot is everything needed to rebuild a battle, including the
// pending carry and any decision the battle is waiting on.
type Snapshot struct {
	ID                 string         `json:"id"`
	MasterHex          string         `json:"masterHex"`
	Terrain            string         `json:"terrain"`
	Turn               int            `json:"turn"`
	ActiveSide         Side           `json:"activeSide"`
	Phase              Phase          `json:"phase"`
	SummonState        SummonState    `json:"summonState"`
	Awaiting           Awaiting       `json:"awaiting"`
	CarryDamage        int            `json:"carryDamage"`
	CarryTargets       []string       `json:"carryTargets,omitempty"`
	DriftDamageApplied bool           `json:"driftDamageApplied"`
	AttackerEntered    bool           `json:"attackerEntered"`
	Conceder           Side           `json:"conceder"`
	Over               bool           `json:"over"`
	Result             *Result        `json:"result,omitempty"`
	NextTag            int            `json:"nextTag"`
	Attacker           LegionSnapshot `json:"attacker"`
	Defender           LegionSnapshot `json:"defender"`
}

// Snapshot captures the battle state. The move history is not saved, so
// a restored battle cannot undo moves made before the snapshot.
func (b *Battle) Snapshot() Snapshot {
	s := Snapshot{
		ID:                 b.id,
		MasterHex:          b.masterHex,
		Terrain:            b.grid.Code(),
		Turn:               b.turn,
		ActiveSide:         b.active,
		Phase:              b.phase,
		SummonState:        b.summonState,
		Awaiting:           b.awaiting,
		CarryDamage:        b.carryDamage,
		CarryTargets:       b.CarryTargets(),
		DriftDamageApplied: b.driftDamageApplied,
		AttackerEntered:    b.attackerEntered,
		Conceder:           b.conceder,
		Over:               b.over,
		NextTag:            b.nextTag,
		Attacker:           snapshotLegion(b.Attacker()),
		Defender:           snapshotLegion(b.Defender()),
	}
	if len(s.CarryTargets) == 0 {
		s.CarryTargets = nil
	}
	if b.result != nil {
		r := *b.result
		s.Result = &r
	}
	return s
}

func snapshotLegion(l *Legion) LegionSnapshot {
	ls := LegionSnapshot{
		MarkerID:    l.MarkerID,
		EntrySide:   l.EntrySide,
		CurrentHex:  l.CurrentHex,
		StartingHex: l.StartingHex,
		Moved:       l.Moved,
		ParentID:    l.ParentID,
		RecruitName: l.RecruitName,
		BattleTally: l.tally,
		Critters:    make([]CritterSnapshot, 0, len(l.critters)),
	}
	if l.Player != nil {
		p := *l.Player
		ls.Player = &p
	}
	for _, c := range l.critters {
		ls.Critters = append(ls.Critters, CritterSnapshot{
			Tag:         c.tag,
			Name:        c.Name(),
			Visible:     c.visible,
			Hits:        c.hits,
			CurrentHex:  c.current.label,
			StartingHex: c.starting.label,
			Struck:      c.struck,
		})
	}
	return ls
}

// Restore rebuilds a battle from a snapshot taken on the same grid. The
// restored battle resumes exactly where the snapshot left off; no phase
// setup runs again.
func Restore(grid *Grid, catalog *Catalog, snap Snapshot, opts Options) (*Battle, error) {
	if grid == nil || catalog == nil {
		return nil, fmt.Errorf("%w: grid and catalog are required", ErrInvalidState)
	}
	if snap.Terrain != "" && snap.Terrain != grid.Code() {
		return nil, fmt.Errorf("%w: snapshot terrain %q on grid %q", ErrInvalidState, snap.Terrain, grid.Code())
	}
	if snap.Turn < 1 {
		return nil, fmt.Errorf("%w: turn %d", ErrInvalidState, snap.Turn)
	}
	if snap.ActiveSide != Attacker && snap.ActiveSide != Defender {
		return nil, fmt.Errorf("%w: active side %d", ErrInvalidState, snap.ActiveSide)
	}
	if !snap.Phase.Valid() {
		return nil, fmt.Errorf("%w: phase %d", ErrInvalidState, snap.Phase)
	}
	if snap.Awaiting < AwaitNothing || snap.Awaiting > AwaitRecruit {
		return nil, fmt.Errorf("%w: awaiting %d", ErrInvalidState, snap.Awaiting)
	}
	if snap.ID != "" {
		opts.ID = snap.ID
	}
	opts = opts.withDefaults()

	b := newBattle(grid, catalog, opts)
	b.masterHex = snap.MasterHex
	b.turn = snap.Turn
	b.active = snap.ActiveSide
	b.phase = snap.Phase
	b.summonState = snap.SummonState
	b.awaiting = snap.Awaiting
	b.driftDamageApplied = snap.DriftDamageApplied
	b.attackerEntered = snap.AttackerEntered
	b.conceder = snap.Conceder
	b.over = snap.Over
	if snap.Result != nil {
		r := *snap.Result
		b.result = &r
	}

	tags := make(map[int]bool)
	maxTag := 0
	for _, ls := range []struct {
		side Side
		snap LegionSnapshot
	}{{Attacker, snap.Attacker}, {Defender, snap.Defender}} {
		l, err := b.restoreLegion(ls.side, ls.snap, tags)
		if err != nil {
			return nil, err
		}
		b.legions[ls.side] = l
		for _, c := range l.critters {
			if c.tag > maxTag {
				maxTag = c.tag
			}
		}
	}
	b.nextTag = snap.NextTag
	if b.nextTag <= maxTag {
		b.nextTag = maxTag + 1
	}

	if snap.CarryDamage > 0 && len(snap.CarryTargets) > 0 {
		for _, label := range snap.CarryTargets {
			if _, ok := grid.Hex(label); !ok {
				return nil, fmt.Errorf("%w: carry target %s", ErrNoSuchHex, label)
			}
			b.carryTargets[label] = true
		}
		b.carryDamage = snap.CarryDamage
	}

	b.log.Info("battle restored", b.fields()...)
	return b, nil
}

func (b *Battle) restoreLegion(side Side, s LegionSnapshot, tags map[int]bool) (*Legion, error) {
	if len(s.Critters) > MaxEntranceCritters {
		return nil, fmt.Errorf("%w: legion %s has %d creatures", ErrInvalidState, s.MarkerID, len(s.Critters))
	}
	l := &Legion{
		MarkerID:    s.MarkerID,
		EntrySide:   s.EntrySide,
		CurrentHex:  s.CurrentHex,
		StartingHex: s.StartingHex,
		Moved:       s.Moved,
		ParentID:    s.ParentID,
		RecruitName: s.RecruitName,
		side:        side,
		tally:       s.BattleTally,
	}
	if s.Player != nil {
		p := *s.Player
		l.Player = &p
	} else {
		l.Player = &Player{Name: s.MarkerID}
	}

	for _, cs := range s.Critters {
		t, ok := b.catalog.Lookup(cs.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCreature, cs.Name)
		}
		if cs.Tag <= 0 || tags[cs.Tag] {
			return nil, fmt.Errorf("%w: bad or duplicate tag %d", ErrInvalidState, cs.Tag)
		}
		tags[cs.Tag] = true

		current, err := b.hex(cs.CurrentHex)
		if err != nil {
			return nil, err
		}
		starting := current
		if cs.StartingHex != "" {
			if starting, err = b.hex(cs.StartingHex); err != nil {
				return nil, err
			}
		}
		c := &Critter{
			tag:      cs.Tag,
			creature: t,
			legion:   l,
			current:  current,
			starting: starting,
			hits:     cs.Hits,
			struck:   cs.Struck,
			visible:  cs.Visible,
		}
		if cs.Hits < 0 || cs.Hits > c.Power() {
			return nil, fmt.Errorf("%w: %s has %d hits", ErrInvalidState, cs.Name, cs.Hits)
		}
		l.critters = append(l.critters, c)
	}
	return l, nil
}
