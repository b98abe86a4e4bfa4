package battle

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreaturePool is the shared stock of creatures owned by the campaign.
type CreaturePool interface {
	TakeOne(name string) bool
	PutBack(name string)
}

// Campaign is the game layer a battle reports to.
type Campaign interface {
	// CanSummonAngel reports whether the attacker may summon an angel now.
	CanSummonAngel(attacker *Legion) bool
	// CanRecruit reports whether the defender may take a reinforcement.
	CanRecruit(defender *Legion) bool
	// ReturnToDonor gives back a summoned creature that never entered the battle.
	ReturnToDonor(donor string, c *Critter)
	// BattleOver is called exactly once when the battle ends.
	BattleOver(b *Battle, r Result)
}

// Options holds the collaborators of a battle. Zero values get defaults.
type Options struct {
	ID       string
	Logger   *zap.Logger
	Roller   Roller
	Pool     CreaturePool
	Campaign Campaign
	Events   func(Event)
}

func (o Options) withDefaults() Options {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Roller == nil {
		o.Roller = NewRandomRoller(0)
	}
	if o.Pool == nil {
		o.Pool = nopPool{}
	}
	if o.Campaign == nil {
		o.Campaign = nopCampaign{}
	}
	return o
}

type nopPool struct{}

func (nopPool) TakeOne(string) bool { return true }
func (nopPool) PutBack(string)      {}

type nopCampaign struct{}

func (nopCampaign) CanSummonAngel(*Legion) bool   { return false }
func (nopCampaign) CanRecruit(*Legion) bool       { return false }
func (nopCampaign) ReturnToDonor(string, *Critter) {}
func (nopCampaign) BattleOver(*Battle, Result)    {}

// LegionSetup describes a legion entering a battle.
type LegionSetup struct {
	MarkerID    string
	Player      *Player
	EntrySide   int
	Creatures   []string
	CurrentHex  string
	StartingHex string
	Moved       bool
	ParentID    string
	RecruitName string
}

// Setup describes a new engagement.
type Setup struct {
	MasterHex string
	Attacker  LegionSetup
	Defender  LegionSetup
}

// Battle is one engagement between an attacking and a defending legion.
// It is not safe for concurrent use; callers serialize commands.
type Battle struct {
	id        string
	masterHex string
	grid      *Grid
	catalog   *Catalog
	log       *zap.Logger
	roller    Roller
	pool      CreaturePool
	campaign  Campaign
	events    func(Event)

	legions [2]*Legion

	phase              Phase
	turn               int
	active             Side
	summonState        SummonState
	awaiting           Awaiting
	carryDamage        int
	carryTargets       map[string]bool
	driftDamageApplied bool
	attackerEntered    bool
	conceder           Side
	attackerElim       bool
	defenderElim       bool
	over               bool
	result             *Result

	history moveHistory
	nextTag int
}

// New starts a battle on grid. The attacker's entry side must be 1, 3 or 5;
// anything else is corrected to 3. The defender enters opposite.
func New(grid *Grid, catalog *Catalog, setup Setup, opts Options) (*Battle, error) {
	if grid == nil || catalog == nil {
		return nil, fmt.Errorf("%w: grid and catalog are required", ErrInvalidState)
	}
	opts = opts.withDefaults()

	b := newBattle(grid, catalog, opts)
	b.masterHex = setup.MasterHex
	b.phase = PhaseMove
	b.turn = 1
	b.active = Defender
	b.summonState = NoKills

	side := setup.Attacker.EntrySide
	if side != 1 && side != 3 && side != 5 {
		b.log.Warn("fixing bogus entry side", zap.String("battle", b.id), zap.Int("side", side))
		side = 3
	}
	setup.Attacker.EntrySide = side
	setup.Defender.EntrySide = (side + 3) % 6
	setup.Defender.RecruitName = ""

	for _, ls := range []struct {
		side  Side
		setup LegionSetup
	}{{Attacker, setup.Attacker}, {Defender, setup.Defender}} {
		l, err := b.placeLegion(ls.side, ls.setup)
		if err != nil {
			return nil, err
		}
		b.legions[ls.side] = l
	}

	b.event(EventEngage, fmt.Sprintf("%s (%s) attacks %s (%s) in %s",
		b.Attacker().MarkerID, b.Attacker().PlayerName(),
		b.Defender().MarkerID, b.Defender().PlayerName(), b.masterHex))

	if b.setupPhase() {
		b.advancePhase()
	}
	return b, nil
}

func newBattle(grid *Grid, catalog *Catalog, opts Options) *Battle {
	return &Battle{
		id:           opts.ID,
		grid:         grid,
		catalog:      catalog,
		log:          opts.Logger,
		roller:       opts.Roller,
		pool:         opts.Pool,
		campaign:     opts.Campaign,
		events:       opts.Events,
		carryTargets: make(map[string]bool),
		conceder:     NoSide,
		nextTag:      1,
	}
}

func (b *Battle) placeLegion(side Side, s LegionSetup) (*Legion, error) {
	if len(s.Creatures) > MaxEntranceCritters {
		return nil, fmt.Errorf("%w: legion %s has %d creatures", ErrInvalidState, s.MarkerID, len(s.Creatures))
	}
	if s.Player == nil {
		s.Player = &Player{Name: s.MarkerID}
	}
	l := &Legion{
		MarkerID:    s.MarkerID,
		Player:      s.Player,
		EntrySide:   s.EntrySide,
		CurrentHex:  s.CurrentHex,
		StartingHex: s.StartingHex,
		Moved:       s.Moved,
		ParentID:    s.ParentID,
		RecruitName: s.RecruitName,
		side:        side,
	}
	entrance := b.grid.Entrance(s.EntrySide)
	for _, name := range s.Creatures {
		if _, err := b.addCritter(l, name, entrance); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (b *Battle) addCritter(l *Legion, name string, at *Hex) (*Critter, error) {
	t, ok := b.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCreature, name)
	}
	c := &Critter{
		tag:      b.nextTag,
		creature: t,
		legion:   l,
		current:  at,
		starting: at,
		visible:  true,
	}
	b.nextTag++
	l.critters = append(l.critters, c)
	return c, nil
}

// ID returns the battle identifier.
func (b *Battle) ID() string { return b.id }

// MasterHex returns the label of the master-board hex being fought over.
func (b *Battle) MasterHex() string { return b.masterHex }

// Grid returns the battle map.
func (b *Battle) Grid() *Grid { return b.grid }

// Phase returns the current phase.
func (b *Battle) Phase() Phase { return b.phase }

// TurnNumber returns the battle turn, starting at 1.
func (b *Battle) TurnNumber() int { return b.turn }

// ActiveSide returns the side currently acting.
func (b *Battle) ActiveSide() Side { return b.active }

// SummonState returns the angel-summoning state.
func (b *Battle) SummonState() SummonState { return b.summonState }

// Awaiting returns the external choice the battle is waiting on, if any.
func (b *Battle) Awaiting() Awaiting { return b.awaiting }

// IsOver reports whether the battle has ended.
func (b *Battle) IsOver() bool { return b.over }

// AttackerEntered reports whether the attacker finished a move phase without conceding.
func (b *Battle) AttackerEntered() bool { return b.attackerEntered }

// Winner returns the winning side, or NoSide while running or with no winner.
func (b *Battle) Winner() Side {
	if b.result == nil {
		return NoSide
	}
	return b.result.Winner
}

// Result returns the outcome once the battle is over.
func (b *Battle) Result() (Result, bool) {
	if b.result == nil {
		return Result{}, false
	}
	return *b.result, true
}

// Legion returns the legion on the given side.
func (b *Battle) Legion(s Side) *Legion {
	if s != Attacker && s != Defender {
		return nil
	}
	return b.legions[s]
}

// Attacker returns the attacking legion.
func (b *Battle) Attacker() *Legion { return b.legions[Attacker] }

// Defender returns the defending legion.
func (b *Battle) Defender() *Legion { return b.legions[Defender] }

// ActiveLegion returns the legion whose turn it is.
func (b *Battle) ActiveLegion() *Legion { return b.legions[b.active] }

// Critter finds a critter by tag.
func (b *Battle) Critter(tag int) (*Critter, bool) {
	for _, l := range b.legions {
		for _, c := range l.critters {
			if c.tag == tag {
				return c, true
			}
		}
	}
	return nil, false
}

// CritterAt returns the first critter in the labelled hex.
func (b *Battle) CritterAt(label string) (*Critter, bool) {
	h, ok := b.grid.Hex(label)
	if !ok {
		return nil, false
	}
	c := b.critterAt(h)
	return c, c != nil
}

// Critters returns every critter, attacker first.
func (b *Battle) Critters() []*Critter {
	var out []*Critter
	for _, s := range []Side{Attacker, Defender} {
		out = append(out, b.legions[s].critters...)
	}
	return out
}

func (b *Battle) critterAt(h *Hex) *Critter {
	for _, s := range []Side{Attacker, Defender} {
		for _, c := range b.legions[s].critters {
			if c.current == h {
				return c
			}
		}
	}
	return nil
}

func (b *Battle) occupied(h *Hex) bool {
	return b.critterAt(h) != nil
}

// numInContact counts enemies adjacent to c and not across a cliff.
func (b *Battle) numInContact(c *Critter, countDead bool) int {
	h := c.current
	if h.IsEntrance() {
		return 0
	}
	count := 0
	for _, d := range Directions {
		if h.IsCliff(d) {
			continue
		}
		n := h.Neighbor(d)
		if n == nil {
			continue
		}
		other := b.critterAt(n)
		if other != nil && c.isEnemy(other) && (countDead || !other.IsDead()) {
			count++
		}
	}
	return count
}

func (b *Battle) inContact(c *Critter, countDead bool) bool {
	return b.numInContact(c, countDead) > 0
}

// InContact reports whether the critter is engaged with a live enemy.
func (b *Battle) InContact(tag int) bool {
	c, ok := b.Critter(tag)
	return ok && b.inContact(c, false)
}

// MobileCritters returns the hexes of active critters that may still move.
func (b *Battle) MobileCritters() []string {
	set := make(map[string]bool)
	for _, c := range b.ActiveLegion().critters {
		if !c.IsDead() && !c.HasMoved() && !b.inContact(c, false) {
			set[c.current.label] = true
		}
	}
	return sortedLabels(set)
}

// CrittersWithTargets returns the hexes of active critters that can strike.
func (b *Battle) CrittersWithTargets() []string {
	set := make(map[string]bool)
	for _, c := range b.ActiveLegion().critters {
		if len(b.strikeTargets(c, true)) > 0 {
			set[c.current.label] = true
		}
	}
	return sortedLabels(set)
}

// activeCritter validates that tag names a critter of the active legion.
func (b *Battle) activeCritter(tag int) (*Critter, error) {
	c, ok := b.Critter(tag)
	if !ok {
		return nil, fmt.Errorf("%w: tag %d", ErrNoSuchCritter, tag)
	}
	if c.legion != b.ActiveLegion() {
		return nil, fmt.Errorf("%w: %s (tag %d)", ErrNotActive, c.Name(), tag)
	}
	return c, nil
}

func (b *Battle) hex(label string) (*Hex, error) {
	h, ok := b.grid.Hex(label)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchHex, label)
	}
	return h, nil
}

func sortedLabels(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for label := range set {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
