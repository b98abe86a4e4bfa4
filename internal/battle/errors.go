package battle

import "errors"

// Battle errors
var (
	ErrWrongPhase          = errors.New("invalid action for current battle phase")
	ErrBattleOver          = errors.New("battle is over")
	ErrNoSuchCritter       = errors.New("no such critter")
	ErrNoSuchHex           = errors.New("no such hex")
	ErrNotActive           = errors.New("critter does not belong to the active legion")
	ErrIllegalMove         = errors.New("illegal move")
	ErrAlreadyStruck       = errors.New("critter has already struck this turn")
	ErrIllegalTarget       = errors.New("illegal strike target")
	ErrNotCarryTarget      = errors.New("hex is not a carry target")
	ErrNoPenaltyOption     = errors.New("no matching strike penalty option")
	ErrForcedStrikesRemain = errors.New("forced strikes remain")
	ErrCannotSummon        = errors.New("cannot summon now")
	ErrCannotRecruit       = errors.New("cannot recruit now")
	ErrUnknownCreature     = errors.New("unknown creature")
	ErrBadRolls            = errors.New("dice rolls do not match the strike")
	ErrInvalidState        = errors.New("invalid battle state")
)
