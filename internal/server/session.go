package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"titan-battle/internal/battle"
	"titan-battle/internal/protocol"
)

// Session errors
var (
	ErrServerBusy  = errors.New("too many live battles")
	ErrSessionBusy = errors.New("battle command queue is full")
	ErrNoBattle    = errors.New("no live battle")
	ErrUnknownLand = errors.New("unknown battleland")
)

const commandQueueSize = 32

type command struct {
	client *Client
	msg    *protocol.Message
}

// Session owns one live battle. All commands for it run on the session's
// goroutine in arrival order.
type Session struct {
	id     string
	land   string
	server *Server
	log    *zap.Logger

	battle   *battle.Battle
	pending  []battle.Event
	commands chan command
	stopped  chan struct{}
	stopOnce sync.Once
}

func newSession(s *Server, id, land string) *Session {
	return &Session{
		id:       id,
		land:     land,
		server:   s,
		log:      s.log.Named("session").With(zap.String("battle", id)),
		commands: make(chan command, commandQueueSize),
		stopped:  make(chan struct{}),
	}
}

// record collects engine events until the next persist.
func (s *Session) record(e battle.Event) {
	s.pending = append(s.pending, e)
}

// Submit queues a command for the session.
func (s *Session) Submit(client *Client, msg *protocol.Message) error {
	select {
	case <-s.stopped:
		return battle.ErrBattleOver
	default:
	}

	select {
	case s.commands <- command{client: client, msg: msg}:
		return nil
	case <-s.stopped:
		return battle.ErrBattleOver
	default:
		return ErrSessionBusy
	}
}

func (s *Session) run(ctx context.Context) {
	defer s.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		case cmd := <-s.commands:
			s.execute(ctx, cmd)
			if s.battle.IsOver() {
				s.finish(ctx)
				return
			}
		}
	}
}

func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.server.sessions.remove(s.id)

		// Anything still queued loses the race with the end of the battle.
		for {
			select {
			case cmd := <-s.commands:
				s.server.handlers.sendError(cmd.client, cmd.msg.ID, battle.ErrBattleOver)
			default:
				return
			}
		}
	})
}

func (s *Session) execute(ctx context.Context, cmd command) {
	switch cmd.msg.Type {
	case protocol.TypeQuery:
		s.query(cmd)
		return
	case protocol.TypeLoadBattle:
		s.server.handlers.sendState(cmd.client, cmd.msg.ID, s.State())
		return
	}

	strike, err := s.apply(cmd.msg)
	if err != nil {
		s.log.Debug("command rejected", zap.String("type", string(cmd.msg.Type)), zap.Error(err))
		s.server.handlers.sendError(cmd.client, cmd.msg.ID, err)
		// A rejected command can still have logged events (a failed summon
		// that returned the creature, say); keep the log in step.
		s.persist(ctx)
		return
	}

	result := protocol.ActionResultPayload{
		ActionID: cmd.msg.ID,
		Action:   cmd.msg.Type,
		Success:  true,
		Strike:   strike,
	}
	reply, _ := protocol.NewMessage(protocol.TypeActionResult, result)
	reply.ID = cmd.msg.ID
	cmd.client.Send(reply)

	s.persist(ctx)
	s.broadcastState()
}

// apply runs one battle command against the engine.
func (s *Session) apply(msg *protocol.Message) (*battle.StrikeResult, error) {
	b := s.battle

	switch msg.Type {
	case protocol.TypeMove:
		var p protocol.MovePayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		return nil, b.Move(p.Tag, p.Hex)

	case protocol.TypeUndoMove:
		var p protocol.UndoMovePayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		if p.Tag == 0 {
			return nil, b.UndoLastMove()
		}
		return nil, b.UndoMove(p.Tag)

	case protocol.TypeUndoAllMoves:
		return nil, b.UndoAllMoves()

	case protocol.TypeDoneMoves:
		return nil, b.DoneWithMoves()

	case protocol.TypeStrike:
		var p protocol.StrikePayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		r, err := b.Strike(p.Tag, p.Target, p.Rolls...)
		if err != nil {
			return nil, err
		}
		return &r, nil

	case protocol.TypeChoosePenalty:
		var p protocol.ChoosePenaltyPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		r, err := b.ChooseStrikePenalty(p.Tag, p.Target, p.Dice, p.StrikeNumber, p.Rolls...)
		if err != nil {
			return nil, err
		}
		return &r, nil

	case protocol.TypeApplyCarry:
		var p protocol.ApplyCarryPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		return nil, b.ApplyCarry(p.Hex)

	case protocol.TypeForcedStrikes:
		var p protocol.ForcedStrikesPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		return nil, b.MakeForcedStrikes(p.AllowRangestrike)

	case protocol.TypeDoneStrikes:
		return nil, b.DoneWithStrikes()

	case protocol.TypeConcede:
		var p protocol.ConcedePayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		return nil, b.Concede(p.Side)

	case protocol.TypeSummon:
		var p protocol.SummonPayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		return nil, s.summon(p)

	case protocol.TypeSkipSummon:
		return nil, b.SkipSummon()

	case protocol.TypeReinforce:
		var p protocol.ReinforcePayload
		if err := msg.ParsePayload(&p); err != nil {
			return nil, errInvalidPayload(err)
		}
		return nil, b.Reinforce(p.Creature)

	case protocol.TypeSkipReinforce:
		return nil, b.SkipReinforce()
	}

	return nil, fmt.Errorf("%w: %s is not a battle command", errInvalidAction, msg.Type)
}

// summon takes the angel out of the shared pool, which stands in for the
// donor legion in a skirmish, and gives it back if the engine refuses.
func (s *Session) summon(p protocol.SummonPayload) error {
	donor := p.Donor
	if donor == "" {
		donor = reserveDonor
	}
	if !s.server.pool.TakeOne(p.Creature) {
		return fmt.Errorf("%w: no %s left", battle.ErrCannotSummon, p.Creature)
	}
	if err := s.battle.SummonAngel(p.Creature, donor); err != nil {
		s.server.pool.PutBack(p.Creature)
		return err
	}
	return nil
}

func (s *Session) query(cmd command) {
	var p protocol.QueryPayload
	if err := cmd.msg.ParsePayload(&p); err != nil {
		s.server.handlers.sendError(cmd.client, cmd.msg.ID, errInvalidPayload(err))
		return
	}

	b := s.battle
	result := protocol.QueryResultPayload{Kind: p.Kind, Tag: p.Tag}
	switch p.Kind {
	case protocol.QueryLegalMoves:
		result.Labels = b.LegalMoves(p.Tag)
	case protocol.QueryStrikeTargets:
		result.Labels = b.StrikeTargets(p.Tag)
	case protocol.QueryCarryTargets:
		result.Labels = b.CarryTargets()
	case protocol.QueryMobile:
		result.Labels = b.MobileCritters()
	case protocol.QueryWithTargets:
		result.Labels = b.CrittersWithTargets()
	default:
		s.server.handlers.sendError(cmd.client, cmd.msg.ID,
			fmt.Errorf("%w: unknown query %q", errInvalidAction, p.Kind))
		return
	}
	if result.Labels == nil {
		result.Labels = []string{}
	}

	reply, _ := protocol.NewMessage(protocol.TypeQueryResult, result)
	reply.ID = cmd.msg.ID
	cmd.client.Send(reply)
}

// persist writes logged events and the latest snapshot to the database.
func (s *Session) persist(ctx context.Context) {
	db := s.server.db
	for _, e := range s.pending {
		if err := db.AddHistoryEvent(ctx, s.id, e); err != nil {
			s.log.Error("failed to record event", zap.String("kind", string(e.Kind)), zap.Error(err))
		}
	}
	s.pending = s.pending[:0]

	if err := db.SaveSnapshot(ctx, s.id, s.battle.Snapshot()); err != nil {
		s.log.Error("failed to save snapshot", zap.Error(err))
	}
}

// State returns the payload describing the current battle.
func (s *Session) State() protocol.BattleStatePayload {
	b := s.battle
	state := protocol.BattleStatePayload{
		BattleID: s.id,
		Land:     s.land,
		State:    b.Snapshot(),
		CanUndo:  b.CanUndo(),
	}
	if !b.IsOver() {
		switch {
		case b.Phase() == battle.PhaseMove:
			state.MobileCritters = b.MobileCritters()
		case b.Phase().IsFight():
			state.CrittersWithTargets = b.CrittersWithTargets()
		}
	}
	return state
}

func (s *Session) broadcastState() {
	s.server.hub.notifyBattle(s.id, protocol.TypeBattleState, s.State())
}

// finish records the result and tells everyone watching.
func (s *Session) finish(ctx context.Context) {
	r, ok := s.battle.Result()
	if !ok {
		return
	}
	if err := s.server.db.FinishBattle(ctx, s.id, r); err != nil {
		s.log.Error("failed to record result", zap.Error(err))
	}
	s.log.Info("battle finished",
		zap.String("outcome", r.Outcome.String()),
		zap.Stringer("winner", r.Winner),
		zap.Int("turn", r.Turn))
	s.server.hub.notifyBattle(s.id, protocol.TypeBattleOver, protocol.BattleOverPayload{
		BattleID: s.id,
		Result:   r,
	})
}

// sessionManager tracks live sessions up to a limit.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	limit    int
}

func newSessionManager(limit int) *sessionManager {
	return &sessionManager{
		sessions: make(map[string]*Session),
		limit:    limit,
	}
}

func (m *sessionManager) get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// add registers s, or returns the session already live under its ID.
func (m *sessionManager) add(s *Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[s.id]; ok {
		return existing, nil
	}
	if len(m.sessions) >= m.limit {
		return nil, ErrServerBusy
	}
	m.sessions[s.id] = s
	return s, nil
}

func (m *sessionManager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *sessionManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
