package battle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	g := createTestGrid(t, nil)
	cat := createTestCatalog(t)
	b, err := New(g, cat, Setup{
		MasterHex: "100",
		Attacker:  LegionSetup{MarkerID: "Rd01", Player: &Player{Name: "red", Score: 120}, EntrySide: 3, Creatures: []string{"Titan", "Ogre"}},
		Defender:  LegionSetup{MarkerID: "Bu01", Player: &Player{Name: "blue"}, Creatures: []string{"Centaur", "Gargoyle"}},
	}, Options{ID: "round-trip"})
	require.NoError(t, err)

	def := b.Defender().Critters()
	require.NoError(t, b.Move(def[0].Tag(), "D6"))

	snap := b.Snapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snap, decoded)

	restored, err := Restore(g, cat, decoded, Options{})
	require.NoError(t, err)
	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, "round-trip", restored.ID())

	titan, ok := restored.CritterAt("X3")
	require.True(t, ok)
	assert.Equal(t, 7, titan.Power())

	moved, ok := restored.Critter(def[0].Tag())
	require.True(t, ok)
	assert.True(t, moved.HasMoved())
}

func TestSnapshot_KeepsPendingCarry(t *testing.T) {
	g := createTestGrid(t, nil)
	b := createFightBattle(t, g,
		[]CritterSnapshot{placed(1, "Ogre", "E3")},
		[]CritterSnapshot{
			placed(2, "Centaur", "D4"),
			placed(3, "Centaur", "D3"),
		},
		Options{})
	_, err := b.Strike(1, "D4", 6, 6, 6, 6, 6, 6)
	require.NoError(t, err)

	restored, err := Restore(g, createTestCatalog(t), b.Snapshot(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, restored.CarryDamage())
	assert.Equal(t, []string{"D3"}, restored.CarryTargets())

	striker, _ := restored.Critter(1)
	assert.True(t, striker.HasStruck())
	require.NoError(t, restored.ApplyCarry("D3"))
}

func TestRestore_Rejects(t *testing.T) {
	g := createTestGrid(t, nil)
	cat := createTestCatalog(t)
	valid := func() Snapshot {
		return Snapshot{
			Terrain:    g.Code(),
			Turn:       1,
			ActiveSide: Defender,
			Phase:      PhaseMove,
			Conceder:   NoSide,
			Attacker:   LegionSnapshot{MarkerID: "Rd01", EntrySide: 3, Critters: []CritterSnapshot{placed(1, "Ogre", "X3")}},
			Defender:   LegionSnapshot{MarkerID: "Bu01", EntrySide: 0, Critters: []CritterSnapshot{placed(2, "Centaur", "X0")}},
		}
	}

	_, err := Restore(g, cat, valid(), Options{})
	require.NoError(t, err)

	s := valid()
	s.Terrain = "Q"
	_, err = Restore(g, cat, s, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)

	s = valid()
	s.Attacker.Critters[0].Name = "Phoenix"
	_, err = Restore(g, cat, s, Options{})
	assert.ErrorIs(t, err, ErrUnknownCreature)

	s = valid()
	s.Defender.Critters[0].Tag = 1
	_, err = Restore(g, cat, s, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)

	s = valid()
	s.Defender.Critters[0].CurrentHex = "Z9"
	_, err = Restore(g, cat, s, Options{})
	assert.ErrorIs(t, err, ErrNoSuchHex)

	s = valid()
	s.Defender.Critters[0].Hits = 4
	_, err = Restore(g, cat, s, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)

	s = valid()
	s.Turn = 0
	_, err = Restore(g, cat, s, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)

	for _, p := range []Phase{-1, PhaseStrikeback + 1} {
		s = valid()
		s.Phase = p
		_, err = Restore(g, cat, s, Options{})
		assert.ErrorIs(t, err, ErrInvalidState, "phase %d", p)
	}

	s = valid()
	s.Awaiting = AwaitRecruit + 1
	_, err = Restore(g, cat, s, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = Restore(nil, cat, valid(), Options{})
	assert.ErrorIs(t, err, ErrInvalidState)
}
