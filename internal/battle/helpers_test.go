package battle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Helper to build a small creature catalog for tests
func createTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]*CreatureType{
		{Name: "Titan", Power: 0, Skill: 4, MaxCount: 1, Titan: true, Lord: true},
		{Name: "Angel", Power: 6, Skill: 4, MaxCount: 18, Flier: true, Lord: true, Summonable: true},
		{Name: "Ogre", Power: 6, Skill: 2, MaxCount: 25, Natives: NativeBog},
		{Name: "Centaur", Power: 3, Skill: 4, MaxCount: 25},
		{Name: "Gargoyle", Power: 4, Skill: 3, MaxCount: 21, Flier: true},
		{Name: "Ranger", Power: 4, Skill: 4, MaxCount: 28, Flier: true, Rangestriker: true, Natives: NativeBog},
		{Name: "Warlock", Power: 5, Skill: 4, MaxCount: 6, Rangestriker: true, MagicMissile: true, Demilord: true},
		{Name: "Dragon", Power: 9, Skill: 3, MaxCount: 18, Flier: true, Rangestriker: true, Natives: NativeVolcano},
		{Name: "Lion", Power: 5, Skill: 3, MaxCount: 28, Natives: NativeSandDune},
		{Name: "Troll", Power: 8, Skill: 2, MaxCount: 28, Natives: NativeDrift},
		{Name: "Cyclops", Power: 9, Skill: 2, MaxCount: 28, Natives: NativeBramble},
		{Name: "Minotaur", Power: 4, Skill: 4, MaxCount: 21, Rangestriker: true, Natives: NativeSlope},
	})
	require.NoError(t, err)
	return c
}

// Helper to build a grid; hexes not listed are plain at elevation 0
func createTestGrid(t *testing.T, hexes map[string]HexLayout) *Grid {
	t.Helper()
	g, err := NewGrid(Layout{Name: "Test", Code: "T", Hexes: hexes})
	require.NoError(t, err)
	return g
}

func mustHex(t *testing.T, g *Grid, label string) *Hex {
	t.Helper()
	h, ok := g.Hex(label)
	require.True(t, ok, "hex %s", label)
	return h
}

func placed(tag int, name, at string) CritterSnapshot {
	return CritterSnapshot{Tag: tag, Name: name, Visible: true, CurrentHex: at, StartingHex: at}
}

// testState describes a battle restored mid-turn for a test.
type testState struct {
	turn      int
	phase     Phase
	active    Side
	summon    SummonState
	attackers []CritterSnapshot
	defenders []CritterSnapshot
}

func createTestBattle(t *testing.T, g *Grid, st testState, opts Options) *Battle {
	t.Helper()
	if st.turn == 0 {
		st.turn = 1
	}
	snap := Snapshot{
		ID:          "test-battle",
		MasterHex:   "100",
		Terrain:     g.Code(),
		Turn:        st.turn,
		ActiveSide:  st.active,
		Phase:       st.phase,
		SummonState: st.summon,
		Conceder:    NoSide,
		Attacker: LegionSnapshot{
			MarkerID:  "Rd01",
			Player:    &Player{Name: "red"},
			EntrySide: 3,
			Critters:  st.attackers,
		},
		Defender: LegionSnapshot{
			MarkerID:  "Bu01",
			Player:    &Player{Name: "blue"},
			EntrySide: 0,
			Critters:  st.defenders,
		},
	}
	b, err := Restore(g, createTestCatalog(t), snap, opts)
	require.NoError(t, err)
	return b
}

// testCampaign records what a battle reports to the game layer.
type testCampaign struct {
	allowSummon  bool
	allowRecruit bool
	returned     []string
	results      []Result
}

func (c *testCampaign) CanSummonAngel(*Legion) bool { return c.allowSummon }
func (c *testCampaign) CanRecruit(*Legion) bool     { return c.allowRecruit }

func (c *testCampaign) ReturnToDonor(donor string, cr *Critter) {
	c.returned = append(c.returned, donor+":"+cr.Name())
}

func (c *testCampaign) BattleOver(_ *Battle, r Result) {
	c.results = append(c.results, r)
}

// testPool is a creature pool with fixed counts.
type testPool struct {
	counts map[string]int
}

func (p *testPool) TakeOne(name string) bool {
	if p.counts[name] <= 0 {
		return false
	}
	p.counts[name]--
	return true
}

func (p *testPool) PutBack(name string) {
	p.counts[name]++
}
