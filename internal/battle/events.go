package battle

import (
	"go.uber.org/zap"
)

// EventKind classifies an entry in the battle log.
type EventKind string

const (
	EventEngage      EventKind = "engage"
	EventPhase       EventKind = "phase"
	EventTurn        EventKind = "turn"
	EventMove        EventKind = "move"
	EventUndo        EventKind = "undo"
	EventStrike      EventKind = "strike"
	EventCarry       EventKind = "carry"
	EventDriftDamage EventKind = "drift_damage"
	EventDeath       EventKind = "death"
	EventSummon      EventKind = "summon"
	EventRecruit     EventKind = "recruit"
	EventConcede     EventKind = "concede"
	EventBattleOver  EventKind = "battle_over"
)

// Event is one human-readable line of the battle log.
type Event struct {
	Kind    EventKind `json:"kind"`
	Turn    int       `json:"turn"`
	Phase   Phase     `json:"phase"`
	Side    Side      `json:"side"`
	Message string    `json:"message"`
}

func (b *Battle) fields() []zap.Field {
	return []zap.Field{
		zap.String("battle", b.id),
		zap.Int("turn", b.turn),
		zap.Stringer("phase", b.phase),
		zap.Stringer("active", b.active),
	}
}

// event logs msg and hands it to the event sink, if any.
func (b *Battle) event(kind EventKind, msg string, fields ...zap.Field) {
	all := append(b.fields(), zap.String("event", string(kind)))
	b.log.Info(msg, append(all, fields...)...)
	if b.events != nil {
		b.events(Event{Kind: kind, Turn: b.turn, Phase: b.phase, Side: b.active, Message: msg})
	}
}

// reject logs a refused command and returns its error unchanged.
func (b *Battle) reject(command string, err error) error {
	b.log.Warn("command rejected", append(b.fields(), zap.String("command", command), zap.Error(err))...)
	return err
}
