package battle

import (
	"fmt"

	"go.uber.org/zap"
)

// CarryDamage returns the excess damage waiting to be carried.
func (b *Battle) CarryDamage() int { return b.carryDamage }

// CarryTargets returns the hexes the pending carry may go to, sorted.
func (b *Battle) CarryTargets() []string {
	return sortedLabels(b.carryTargets)
}

func (b *Battle) leaveCarryMode() {
	b.carryDamage = 0
	for l := range b.carryTargets {
		delete(b.carryTargets, l)
	}
}

// ApplyCarry sends the pending carry damage to the critter in the
// labelled hex. Whatever it does not absorb stays available for the
// remaining carry targets.
func (b *Battle) ApplyCarry(label string) error {
	if err := b.checkCommand(PhaseFight, PhaseStrikeback); err != nil {
		return b.reject("apply carry", err)
	}
	if b.carryDamage <= 0 || !b.carryTargets[label] {
		return b.reject("apply carry", fmt.Errorf("%w: %s", ErrNotCarryTarget, label))
	}
	target, ok := b.CritterAt(label)
	if !ok {
		return b.reject("apply carry", fmt.Errorf("%w: %s is empty", ErrNotCarryTarget, label))
	}

	dealt := b.carryDamage
	b.carryDamage = target.wound(b.carryDamage)
	dealt -= b.carryDamage
	delete(b.carryTargets, label)
	target.visible = true

	b.event(EventCarry, fmt.Sprintf("%d hits carry to %s in %s", dealt, target.Name(), label),
		zap.String("hex", label), zap.Int("hits", dealt), zap.Int("carry", b.carryDamage))

	if b.carryDamage <= 0 || len(b.carryTargets) == 0 {
		b.leaveCarryMode()
	}
	return nil
}
