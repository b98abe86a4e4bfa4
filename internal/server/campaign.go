package server

import (
	"go.uber.org/zap"

	"titan-battle/internal/battle"
	"titan-battle/internal/caretaker"
)

// reserveDonor names the off-board stock angels are summoned from when a
// battle is fought without a master board.
const reserveDonor = "reserve"

// skirmish is the campaign for stand-alone battles. Summoned angels come
// out of the shared creature pool and go back to it.
type skirmish struct {
	log  *zap.Logger
	pool *caretaker.Caretaker
}

func newSkirmish(log *zap.Logger, pool *caretaker.Caretaker) *skirmish {
	return &skirmish{log: log, pool: pool}
}

func (k *skirmish) CanSummonAngel(attacker *battle.Legion) bool {
	if attacker.Player != nil && attacker.Player.Summoned {
		return false
	}
	if attacker.Height() >= battle.MaxEntranceCritters {
		return false
	}
	return k.pool.Available("Angel") > 0 || k.pool.Available("Archangel") > 0
}

func (k *skirmish) CanRecruit(defender *battle.Legion) bool {
	return defender.Height() < battle.MaxEntranceCritters && defender.RecruitName == ""
}

func (k *skirmish) ReturnToDonor(donor string, c *battle.Critter) {
	k.pool.PutBack(c.Name())
	k.log.Info("summoned creature returned", zap.String("donor", donor), zap.String("creature", c.Name()))
}

func (k *skirmish) BattleOver(b *battle.Battle, r battle.Result) {
	k.log.Info("battle over",
		zap.String("battle", b.ID()),
		zap.String("outcome", r.Outcome.String()),
		zap.Int("attacker_points", r.AttackerPoints),
		zap.Int("defender_points", r.DefenderPoints))
	for _, d := range r.Deaths {
		k.log.Info("player eliminated", zap.String("player", d.Player), zap.String("slayer", d.Slayer))
	}
}
