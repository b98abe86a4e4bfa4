package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid_Shape(t *testing.T) {
	g := createTestGrid(t, nil)

	hexes := g.Hexes()
	assert.Len(t, hexes, 27)
	assert.Equal(t, "A1", hexes[0].Label())

	d4 := mustHex(t, g, "D4")
	assert.Equal(t, 3, d4.X())
	assert.Equal(t, 2, d4.Y())
	assert.Same(t, d4, g.At(3, 2))
	assert.Nil(t, g.At(0, 0))
	assert.Nil(t, g.At(-1, 2))

	want := map[Direction]string{
		North:     "D5",
		NorthEast: "E4",
		SouthEast: "E3",
		South:     "D3",
		SouthWest: "C3",
		NorthWest: "C4",
	}
	for d, label := range want {
		n := g.Neighbor(d4, d)
		require.NotNil(t, n, "neighbor %s", d)
		assert.Equal(t, label, n.Label(), "neighbor %s", d)
	}
}

func TestNewGrid_NeighborsAreSymmetric(t *testing.T) {
	g := createTestGrid(t, nil)
	for _, h := range g.Hexes() {
		for _, d := range Directions {
			n := h.Neighbor(d)
			if n == nil {
				continue
			}
			assert.Same(t, h, n.Neighbor(d.Opposite()), "%s %s", h, d)
		}
	}
}

func TestNewGrid_Entrances(t *testing.T) {
	g := createTestGrid(t, nil)
	for side := 0; side < 6; side++ {
		e := g.Entrance(side)
		require.NotNil(t, e)
		assert.True(t, e.IsEntrance())
		h, ok := g.Hex(e.Label())
		assert.True(t, ok)
		assert.Same(t, e, h)

		linked := 0
		for _, d := range Directions {
			if n := e.Neighbor(d); n != nil {
				assert.False(t, n.IsEntrance())
				linked++
			}
		}
		assert.GreaterOrEqual(t, linked, 3)
	}
	assert.Nil(t, g.Entrance(6))
	assert.Equal(t, "D6", g.Entrance(0).Neighbor(South).Label())
}

func TestNewGrid_RejectsBadLayout(t *testing.T) {
	_, err := NewGrid(Layout{Name: "Bad", Hexes: map[string]HexLayout{"Z9": {}}})
	assert.ErrorIs(t, err, ErrNoSuchHex)

	_, err = NewGrid(Layout{Name: "Bad", Hexes: map[string]HexLayout{"D4": {Elevation: 3}}})
	assert.Error(t, err)
}

func TestNewGrid_TowerStartList(t *testing.T) {
	g, err := NewGrid(Layout{Name: "Tower", Code: "T", Tower: true})
	require.NoError(t, err)
	assert.True(t, g.IsTower())

	var labels []string
	for _, h := range g.StartList() {
		labels = append(labels, h.Label())
	}
	assert.ElementsMatch(t, []string{"D4", "D5", "E4", "E3", "D3", "C3", "C4"}, labels)

	assert.Empty(t, createTestGrid(t, nil).StartList())
}

func TestEntryCost_Terrain(t *testing.T) {
	g := createTestGrid(t, map[string]HexLayout{
		"D4": {Terrain: Bramble},
		"C4": {Terrain: Tree},
		"E4": {Terrain: Sand},
		"D3": {Terrain: Bog},
		"E3": {Terrain: Volcano},
		"C3": {Terrain: Drift},
	})
	cat := createTestCatalog(t)
	kind := func(name string) *CreatureType {
		c, ok := cat.Lookup(name)
		require.True(t, ok)
		return c
	}

	tests := []struct {
		hex      string
		creature string
		want     Cost
	}{
		{"D5", "Ogre", CostNormal},
		{"D4", "Ogre", CostSlow},
		{"D4", "Cyclops", CostNormal},
		{"C4", "Ogre", CostImpassable},
		{"C4", "Gargoyle", CostImpassable},
		{"E4", "Ogre", CostSlow},
		{"E4", "Lion", CostNormal},
		{"E4", "Gargoyle", CostNormal},
		{"D3", "Ogre", CostNormal},
		{"D3", "Centaur", CostImpassable},
		{"E3", "Dragon", CostNormal},
		{"E3", "Gargoyle", CostImpassable},
		{"C3", "Troll", CostNormal},
		{"C3", "Centaur", CostSlow},
	}
	for _, tt := range tests {
		got := EntryCost(mustHex(t, g, tt.hex), kind(tt.creature), North, false)
		assert.Equal(t, tt.want, got, "%s entering %s", tt.creature, tt.hex)
	}

	assert.Equal(t, CostImpassable, EntryCost(mustHex(t, g, "D5"), kind("Ogre"), North, true))
}

func TestEntryCost_SlopeIsDirectional(t *testing.T) {
	var sides [6]Hexside
	sides[South] = Slope
	g := createTestGrid(t, map[string]HexLayout{
		"D5": {Elevation: 1, Hexsides: sides},
	})
	cat := createTestCatalog(t)
	ogre, _ := cat.Lookup("Ogre")
	minotaur, _ := cat.Lookup("Minotaur")
	gargoyle, _ := cat.Lookup("Gargoyle")

	d5, d4 := mustHex(t, g, "D5"), mustHex(t, g, "D4")

	// Up the slope from D4.
	assert.Equal(t, CostSlow, EntryCost(d5, ogre, South, false))
	assert.Equal(t, CostNormal, EntryCost(d5, minotaur, South, false))
	assert.Equal(t, CostNormal, EntryCost(d5, gargoyle, South, false))

	// Down the slope costs nothing extra.
	assert.Equal(t, CostNormal, EntryCost(d4, ogre, North, false))
}

func TestEntryCost_CliffBlocksWalkersBothWays(t *testing.T) {
	var sides [6]Hexside
	sides[NorthEast] = Cliff
	g := createTestGrid(t, map[string]HexLayout{
		"D5": {Elevation: 1, Hexsides: sides},
	})
	cat := createTestCatalog(t)
	ogre, _ := cat.Lookup("Ogre")
	gargoyle, _ := cat.Lookup("Gargoyle")

	d5, e5 := mustHex(t, g, "D5"), mustHex(t, g, "E5")
	require.Same(t, d5, e5.Neighbor(SouthWest))

	assert.Equal(t, CostImpassable, EntryCost(d5, ogre, NorthEast, false))
	assert.Equal(t, CostImpassable, EntryCost(e5, ogre, SouthWest, false))
	assert.Equal(t, CostNormal, EntryCost(d5, gargoyle, NorthEast, false))
	assert.Equal(t, CostNormal, EntryCost(e5, gargoyle, SouthWest, false))
	assert.True(t, d5.IsCliff(NorthEast))
	assert.True(t, e5.IsCliff(SouthWest))
}

func TestCanBeFlownOver(t *testing.T) {
	g := createTestGrid(t, map[string]HexLayout{
		"E3": {Terrain: Volcano},
		"C4": {Terrain: Tree},
	})
	cat := createTestCatalog(t)
	gargoyle, _ := cat.Lookup("Gargoyle")
	dragon, _ := cat.Lookup("Dragon")

	assert.False(t, CanBeFlownOver(mustHex(t, g, "E3"), gargoyle))
	assert.True(t, CanBeFlownOver(mustHex(t, g, "E3"), dragon))
	assert.True(t, CanBeFlownOver(mustHex(t, g, "C4"), gargoyle))
}

func TestHexDamage_Drift(t *testing.T) {
	g := createTestGrid(t, map[string]HexLayout{"C3": {Terrain: Drift}})
	cat := createTestCatalog(t)
	centaur, _ := cat.Lookup("Centaur")
	troll, _ := cat.Lookup("Troll")

	assert.Equal(t, 1, HexDamage(mustHex(t, g, "C3"), centaur))
	assert.Equal(t, 0, HexDamage(mustHex(t, g, "C3"), troll))
	assert.Equal(t, 0, HexDamage(mustHex(t, g, "D4"), centaur))
}

func TestParseNames(t *testing.T) {
	for _, d := range Directions {
		got, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	for _, tr := range []Terrain{Plain, Bramble, Sand, Tree, Bog, Volcano, Drift} {
		got, err := ParseTerrain(tr.String())
		require.NoError(t, err)
		assert.Equal(t, tr, got)
	}
	for _, s := range []Hexside{NoHexside, Dune, Cliff, Slope, Wall} {
		got, err := ParseHexside(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseTerrain("lava")
	assert.Error(t, err)
}
