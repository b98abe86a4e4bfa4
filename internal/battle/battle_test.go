package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PlacesLegionsInEntrances(t *testing.T) {
	g := createTestGrid(t, nil)
	var events []Event
	b, err := New(g, createTestCatalog(t), Setup{
		MasterHex: "100",
		Attacker:  LegionSetup{MarkerID: "Rd01", EntrySide: 1, Creatures: []string{"Ogre", "Centaur"}},
		Defender: LegionSetup{
			MarkerID:    "Bu01",
			Creatures:   []string{"Gargoyle"},
			RecruitName: "Gargoyle",
		},
	}, Options{Events: func(e Event) { events = append(events, e) }})
	require.NoError(t, err)

	assert.Equal(t, "100", b.MasterHex())
	assert.NotEmpty(t, b.ID())
	assert.Equal(t, 1, b.TurnNumber())
	assert.Equal(t, PhaseMove, b.Phase())
	assert.Equal(t, Defender, b.ActiveSide())
	assert.Equal(t, NoKills, b.SummonState())
	assert.False(t, b.IsOver())
	assert.Equal(t, NoSide, b.Winner())

	assert.Equal(t, 1, b.Attacker().EntrySide)
	assert.Equal(t, 4, b.Defender().EntrySide)
	assert.Empty(t, b.Defender().RecruitName)
	assert.Equal(t, "Rd01", b.Attacker().PlayerName(), "a legion without an owner gets a stand-in player")

	for _, c := range b.Attacker().Critters() {
		assert.Equal(t, "X1", c.Hex().Label())
		assert.True(t, c.Visible())
		assert.False(t, c.HasMoved())
	}
	gargoyle, ok := b.CritterAt("X4")
	require.True(t, ok)
	assert.Equal(t, 3, gargoyle.Tag())
	assert.Equal(t, Defender, gargoyle.Side())
	assert.Len(t, b.Critters(), 3)

	assert.Equal(t, []string{"X4"}, b.MobileCritters())
	assert.Empty(t, b.CrittersWithTargets())

	require.NotEmpty(t, events)
	assert.Equal(t, EventEngage, events[0].Kind)
}

func TestNew_FixesBogusEntrySide(t *testing.T) {
	g := createTestGrid(t, nil)
	b, err := New(g, createTestCatalog(t), Setup{
		Attacker: LegionSetup{MarkerID: "Rd01", EntrySide: 2, Creatures: []string{"Ogre"}},
		Defender: LegionSetup{MarkerID: "Bu01", Creatures: []string{"Ogre"}},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Attacker().EntrySide)
	assert.Equal(t, 0, b.Defender().EntrySide)
}

func TestNew_Rejects(t *testing.T) {
	g := createTestGrid(t, nil)
	cat := createTestCatalog(t)

	_, err := New(g, cat, Setup{
		Attacker: LegionSetup{MarkerID: "Rd01", EntrySide: 3, Creatures: []string{"Phoenix"}},
		Defender: LegionSetup{MarkerID: "Bu01", Creatures: []string{"Ogre"}},
	}, Options{})
	assert.ErrorIs(t, err, ErrUnknownCreature)

	_, err = New(g, cat, Setup{
		Attacker: LegionSetup{MarkerID: "Rd01", EntrySide: 3, Creatures: []string{"Ogre"}},
		Defender: LegionSetup{MarkerID: "Bu01", Creatures: []string{"Ogre", "Ogre", "Ogre", "Ogre", "Ogre", "Ogre", "Ogre", "Ogre"}},
	}, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = New(nil, cat, Setup{}, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCritter_TitanPowerFollowsScore(t *testing.T) {
	g := createTestGrid(t, nil)
	b, err := New(g, createTestCatalog(t), Setup{
		Attacker: LegionSetup{MarkerID: "Rd01", Player: &Player{Name: "red", Score: 250}, EntrySide: 3, Creatures: []string{"Titan"}},
		Defender: LegionSetup{MarkerID: "Bu01", Creatures: []string{"Ogre"}},
	}, Options{})
	require.NoError(t, err)

	titan := b.Attacker().Critters()[0]
	assert.Equal(t, 8, titan.Power())
	assert.Equal(t, 32, titan.PointValue())
	assert.True(t, b.Attacker().HasTitan())
	assert.False(t, b.Defender().HasTitan())
}

func TestSide_Text(t *testing.T) {
	for _, s := range []Side{Attacker, Defender, NoSide} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back Side
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	assert.Equal(t, Defender, Attacker.Other())
	var s Side
	assert.Error(t, s.UnmarshalText([]byte("referee")))
}

func TestCatalog(t *testing.T) {
	cat := createTestCatalog(t)
	ogre, ok := cat.Lookup("Ogre")
	require.True(t, ok)
	assert.Equal(t, 6, ogre.Power)
	assert.Contains(t, cat.Names(), "Warlock")

	warlock, _ := cat.Lookup("Warlock")
	assert.True(t, warlock.IsImmortal())
	assert.True(t, warlock.CanRangestrikeLords())
	assert.False(t, ogre.IsImmortal())

	_, err := NewCatalog([]*CreatureType{{Name: "Ogre", Power: 6, Skill: 2}, {Name: "Ogre", Power: 6, Skill: 2}})
	assert.Error(t, err)
	_, err = NewCatalog([]*CreatureType{{Name: "Ghost", Power: 0, Skill: 2}})
	assert.Error(t, err)

	n, err := ParseNative("dune")
	require.NoError(t, err)
	assert.Equal(t, NativeSandDune, n)
}
