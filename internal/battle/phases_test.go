package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummonAngel_AfterFirstBlood(t *testing.T) {
	g := createTestGrid(t, nil)
	campaign := &testCampaign{allowSummon: true}
	b := createTestBattle(t, g, testState{
		turn:      2,
		phase:     PhaseStrikeback,
		active:    Attacker,
		summon:    FirstBlood,
		attackers: []CritterSnapshot{placed(10, "Ogre", "A1")},
		defenders: []CritterSnapshot{placed(1, "Centaur", "D4")},
	}, Options{Campaign: campaign})

	require.NoError(t, b.DoneWithStrikes())
	assert.Equal(t, PhaseSummon, b.Phase())
	assert.Equal(t, AwaitSummon, b.Awaiting())
	assert.Equal(t, TooLate, b.SummonState())

	assert.ErrorIs(t, b.Move(10, "A2"), ErrWrongPhase)
	assert.ErrorIs(t, b.SummonAngel("Ogre", "Rd02"), ErrCannotSummon)
	assert.ErrorIs(t, b.SummonAngel("Phoenix", "Rd02"), ErrUnknownCreature)

	require.NoError(t, b.SummonAngel("Angel", "Rd02"))
	assert.Equal(t, AwaitNothing, b.Awaiting())
	assert.Equal(t, PhaseMove, b.Phase())
	assert.Equal(t, 2, b.Attacker().Height())
	assert.True(t, b.Attacker().Player.Summoned)
	assert.Equal(t, "Rd02", b.Attacker().Player.Donor)

	angel, ok := b.CritterAt("X3")
	require.True(t, ok)
	assert.Equal(t, "Angel", angel.Name())
	assert.Equal(t, 11, angel.Tag())

	// Left in the entrance, the angel goes back to its donor.
	require.NoError(t, b.DoneWithMoves())
	assert.Equal(t, []string{"Rd02:Angel"}, campaign.returned)
	assert.Equal(t, 1, b.Attacker().Height())
	assert.False(t, b.Attacker().Player.Summoned)
	assert.Zero(t, b.Defender().BattleTally())
}

func TestSkipSummon(t *testing.T) {
	g := createTestGrid(t, nil)
	b := createTestBattle(t, g, testState{
		turn:      2,
		phase:     PhaseStrikeback,
		active:    Attacker,
		summon:    FirstBlood,
		attackers: []CritterSnapshot{placed(10, "Ogre", "A1")},
		defenders: []CritterSnapshot{placed(1, "Centaur", "D4")},
	}, Options{Campaign: &testCampaign{allowSummon: true}})

	require.NoError(t, b.DoneWithStrikes())
	require.NoError(t, b.SkipSummon())
	assert.Equal(t, PhaseMove, b.Phase())
	assert.ErrorIs(t, b.SkipSummon(), ErrCannotSummon)
}

func TestReinforce_OnTurnFour(t *testing.T) {
	g := createTestGrid(t, nil)
	pool := &testPool{counts: map[string]int{"Centaur": 1}}
	b := createTestBattle(t, g, testState{
		turn:      3,
		phase:     PhaseStrikeback,
		active:    Defender,
		attackers: []CritterSnapshot{placed(10, "Ogre", "A1")},
		defenders: []CritterSnapshot{placed(1, "Centaur", "D4")},
	}, Options{Pool: pool, Campaign: &testCampaign{allowRecruit: true}})

	require.NoError(t, b.DoneWithStrikes())
	assert.Equal(t, 4, b.TurnNumber())
	assert.Equal(t, PhaseRecruit, b.Phase())
	assert.Equal(t, AwaitRecruit, b.Awaiting())

	assert.ErrorIs(t, b.Reinforce("Gargoyle"), ErrCannotRecruit)
	require.NoError(t, b.Reinforce("Centaur"))
	assert.Zero(t, pool.counts["Centaur"])
	assert.Equal(t, 2, b.Defender().Height())
	assert.Equal(t, "Centaur", b.Defender().RecruitName)
	assert.Equal(t, PhaseMove, b.Phase())

	// An unplaced reinforcement is undone.
	require.NoError(t, b.DoneWithMoves())
	assert.Equal(t, 1, pool.counts["Centaur"])
	assert.Equal(t, 1, b.Defender().Height())
	assert.Empty(t, b.Defender().RecruitName)
}

func TestSkipReinforce(t *testing.T) {
	g := createTestGrid(t, nil)
	b := createTestBattle(t, g, testState{
		turn:      3,
		phase:     PhaseStrikeback,
		active:    Defender,
		attackers: []CritterSnapshot{placed(10, "Ogre", "A1")},
		defenders: []CritterSnapshot{placed(1, "Centaur", "D4")},
	}, Options{Campaign: &testCampaign{allowRecruit: true}})

	assert.ErrorIs(t, b.Reinforce("Centaur"), ErrCannotRecruit)
	require.NoError(t, b.DoneWithStrikes())
	require.NoError(t, b.SkipReinforce())
	assert.Equal(t, PhaseMove, b.Phase())
	assert.Equal(t, Defender, b.ActiveSide())
}

func TestPhaseNames(t *testing.T) {
	for p := PhaseSummon; p <= PhaseStrikeback; p++ {
		got, err := ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePhase("muster")
	assert.ErrorIs(t, err, ErrInvalidState)

	for s := NoKills; s <= TooLate; s++ {
		got, err := ParseSummonState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for _, a := range []Awaiting{AwaitNothing, AwaitSummon, AwaitRecruit} {
		got, err := ParseAwaiting(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	assert.True(t, PhaseFight.IsFight())
	assert.True(t, PhaseStrikeback.IsFight())
	assert.False(t, PhaseMove.IsFight())
}
