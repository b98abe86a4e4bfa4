package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"titan-battle/internal/battle"
	"titan-battle/internal/protocol"
)

// ErrQuit is returned by Exec when the user asks to leave.
var ErrQuit = errors.New("quit")

const helpText = `commands:
  auth <name>                                 sign in (reuses the saved token)
  create <land> <marker:creature,...> <marker:creature,...> [entry side] [seed]
  load <battle id>    list [active|finished]  history [after id]
  move <tag> <hex>    undo [tag]              undoall
  strike <tag> <hex> [rolls...]               penalty <tag> <hex> <dice> <strike number> [rolls...]
  carry <hex>         forced [range]          done
  summon <creature> [donor]   nosummon        reinforce <creature>   noreinforce
  concede <attacker|defender>
  moves <tag>         targets <tag>           carries   mobile   ready
  show                ping                    help      quit`

// Console is a line-oriented battle client.
type Console struct {
	net *NetworkClient
	cfg *Config
	log *zap.Logger

	mu    sync.Mutex
	out   io.Writer
	state *protocol.BattleStatePayload
}

// NewConsole creates a console writing to out.
func NewConsole(net *NetworkClient, cfg *Config, out io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{net: net, cfg: cfg, out: out, log: log.Named("console")}
}

// Run reads commands from in until it is exhausted, ctx is done or the
// user quits.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := c.Exec(line); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				c.printf("! %v\n", err)
			}
		}
	}
}

// Exec runs one command line.
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "help", "?":
		c.printf("%s\n", helpText)
		return nil
	case "quit", "exit":
		return ErrQuit
	case "show":
		c.mu.Lock()
		state := c.state
		c.mu.Unlock()
		if state == nil {
			return errors.New("no battle yet")
		}
		c.render(*state)
		return nil
	case "auth":
		name := c.cfg.PlayerName
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		_, err := c.net.SendPayload(protocol.TypeAuthenticate, protocol.AuthenticatePayload{
			Token: c.cfg.PlayerToken,
			Name:  name,
		})
		return err
	case "done":
		// Ends whichever phase is running.
		msgType := protocol.TypeDoneStrikes
		if c.phase() == battle.PhaseMove {
			msgType = protocol.TypeDoneMoves
		}
		_, err := c.net.SendPayload(msgType, struct{}{})
		return err
	}

	msgType, payload, err := ParseCommand(fields)
	if err != nil {
		return err
	}
	_, err = c.net.SendPayload(msgType, payload)
	return err
}

func (c *Console) phase() battle.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return battle.PhaseMove
	}
	return c.state.State.Phase
}

// ParseCommand turns a split command line into a message.
func ParseCommand(fields []string) (protocol.MessageType, interface{}, error) {
	if len(fields) == 0 {
		return "", nil, errors.New("empty command")
	}
	cmd, args := fields[0], fields[1:]

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s), see help", cmd, n)
		}
		return nil
	}

	switch cmd {
	case "create":
		if err := need(3); err != nil {
			return "", nil, err
		}
		att, err := parseLegion(args[1])
		if err != nil {
			return "", nil, err
		}
		def, err := parseLegion(args[2])
		if err != nil {
			return "", nil, err
		}
		payload := protocol.CreateBattlePayload{Land: args[0], Attacker: att, Defender: def}
		if len(args) > 3 {
			if payload.Attacker.EntrySide, err = strconv.Atoi(args[3]); err != nil {
				return "", nil, fmt.Errorf("bad entry side %q", args[3])
			}
		}
		if len(args) > 4 {
			if payload.Seed, err = strconv.ParseInt(args[4], 10, 64); err != nil {
				return "", nil, fmt.Errorf("bad seed %q", args[4])
			}
		}
		return protocol.TypeCreateBattle, payload, nil

	case "load":
		if err := need(1); err != nil {
			return "", nil, err
		}
		return protocol.TypeLoadBattle, protocol.LoadBattlePayload{BattleID: args[0]}, nil

	case "list":
		p := protocol.ListBattlesPayload{}
		if len(args) > 0 {
			p.Status = args[0]
		}
		return protocol.TypeListBattles, p, nil

	case "history":
		p := protocol.GetHistoryPayload{}
		if len(args) > 0 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return "", nil, fmt.Errorf("bad event id %q", args[0])
			}
			p.AfterID = id
		}
		return protocol.TypeGetHistory, p, nil

	case "move":
		if err := need(2); err != nil {
			return "", nil, err
		}
		tag, err := parseTag(args[0])
		if err != nil {
			return "", nil, err
		}
		return protocol.TypeMove, protocol.MovePayload{Tag: tag, Hex: args[1]}, nil

	case "undo":
		p := protocol.UndoMovePayload{}
		if len(args) > 0 {
			tag, err := parseTag(args[0])
			if err != nil {
				return "", nil, err
			}
			p.Tag = tag
		}
		return protocol.TypeUndoMove, p, nil

	case "undoall":
		return protocol.TypeUndoAllMoves, struct{}{}, nil

	case "strike":
		if err := need(2); err != nil {
			return "", nil, err
		}
		tag, err := parseTag(args[0])
		if err != nil {
			return "", nil, err
		}
		rolls, err := parseInts(args[2:])
		if err != nil {
			return "", nil, err
		}
		return protocol.TypeStrike, protocol.StrikePayload{Tag: tag, Target: args[1], Rolls: rolls}, nil

	case "penalty":
		if err := need(4); err != nil {
			return "", nil, err
		}
		tag, err := parseTag(args[0])
		if err != nil {
			return "", nil, err
		}
		nums, err := parseInts(append([]string{args[2], args[3]}, args[4:]...))
		if err != nil {
			return "", nil, err
		}
		return protocol.TypeChoosePenalty, protocol.ChoosePenaltyPayload{
			Tag:          tag,
			Target:       args[1],
			Dice:         nums[0],
			StrikeNumber: nums[1],
			Rolls:        nums[2:],
		}, nil

	case "carry":
		if err := need(1); err != nil {
			return "", nil, err
		}
		return protocol.TypeApplyCarry, protocol.ApplyCarryPayload{Hex: args[0]}, nil

	case "forced":
		p := protocol.ForcedStrikesPayload{AllowRangestrike: len(args) > 0 && args[0] == "range"}
		return protocol.TypeForcedStrikes, p, nil

	case "concede":
		if err := need(1); err != nil {
			return "", nil, err
		}
		side, ok := battle.ParseSide(args[0])
		if !ok || side == battle.NoSide {
			return "", nil, fmt.Errorf("bad side %q", args[0])
		}
		return protocol.TypeConcede, protocol.ConcedePayload{Side: side}, nil

	case "summon":
		if err := need(1); err != nil {
			return "", nil, err
		}
		p := protocol.SummonPayload{Creature: args[0]}
		if len(args) > 1 {
			p.Donor = args[1]
		}
		return protocol.TypeSummon, p, nil

	case "nosummon":
		return protocol.TypeSkipSummon, struct{}{}, nil

	case "reinforce":
		if err := need(1); err != nil {
			return "", nil, err
		}
		return protocol.TypeReinforce, protocol.ReinforcePayload{Creature: args[0]}, nil

	case "noreinforce":
		return protocol.TypeSkipReinforce, struct{}{}, nil

	case "moves", "targets":
		if err := need(1); err != nil {
			return "", nil, err
		}
		tag, err := parseTag(args[0])
		if err != nil {
			return "", nil, err
		}
		kind := protocol.QueryLegalMoves
		if cmd == "targets" {
			kind = protocol.QueryStrikeTargets
		}
		return protocol.TypeQuery, protocol.QueryPayload{Kind: kind, Tag: tag}, nil

	case "carries":
		return protocol.TypeQuery, protocol.QueryPayload{Kind: protocol.QueryCarryTargets}, nil
	case "mobile":
		return protocol.TypeQuery, protocol.QueryPayload{Kind: protocol.QueryMobile}, nil
	case "ready":
		return protocol.TypeQuery, protocol.QueryPayload{Kind: protocol.QueryWithTargets}, nil

	case "ping":
		return protocol.TypePing, struct{}{}, nil
	}

	return "", nil, fmt.Errorf("unknown command %q, try help", cmd)
}

// parseLegion reads "Rd01:Titan,Angel,Ogre".
func parseLegion(s string) (protocol.LegionPayload, error) {
	marker, list, ok := strings.Cut(s, ":")
	if !ok || marker == "" || list == "" {
		return protocol.LegionPayload{}, fmt.Errorf("bad legion %q, want marker:creature,...", s)
	}
	return protocol.LegionPayload{
		MarkerID:  marker,
		Player:    marker,
		Creatures: strings.Split(list, ","),
	}, nil
}

func parseTag(s string) (int, error) {
	tag, err := strconv.Atoi(s)
	if err != nil || tag <= 0 {
		return 0, fmt.Errorf("bad critter tag %q", s)
	}
	return tag, nil
}

func parseInts(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", a)
		}
		out[i] = n
	}
	return out, nil
}

// Handle prints a server message. It is the network OnMessage callback.
func (c *Console) Handle(msg *protocol.Message) {
	var err error

	switch msg.Type {
	case protocol.TypeWelcome:
		var p protocol.WelcomePayload
		if err = msg.ParsePayload(&p); err == nil {
			c.printf("connected to %s %s, lands: %s\n", p.ServerName, p.ServerVersion, strings.Join(p.Lands, " "))
		}

	case protocol.TypeAuthResult:
		var p protocol.AuthResultPayload
		if err = msg.ParsePayload(&p); err == nil {
			c.remember(p)
			c.printf("signed in as %s\n", p.Name)
		}

	case protocol.TypeBattleState:
		var p protocol.BattleStatePayload
		if err = msg.ParsePayload(&p); err == nil {
			c.mu.Lock()
			c.state = &p
			c.mu.Unlock()
			c.rememberBattle(p.BattleID)
			c.render(p)
		}

	case protocol.TypeActionResult:
		var p protocol.ActionResultPayload
		if err = msg.ParsePayload(&p); err == nil && p.Strike != nil {
			c.printStrike(*p.Strike)
		}

	case protocol.TypeQueryResult:
		var p protocol.QueryResultPayload
		if err = msg.ParsePayload(&p); err == nil {
			c.printf("%s: %s\n", p.Kind, strings.Join(p.Labels, " "))
		}

	case protocol.TypeBattleOver:
		var p protocol.BattleOverPayload
		if err = msg.ParsePayload(&p); err == nil {
			c.printf("battle over on turn %d: %s, winner %s (attacker %d points, defender %d points)\n",
				p.Result.Turn, p.Result.Outcome, p.Result.Winner, p.Result.AttackerPoints, p.Result.DefenderPoints)
			for _, d := range p.Result.Deaths {
				c.printf("  %s is out of the game\n", d.Player)
			}
		}

	case protocol.TypeBattleList:
		var p protocol.BattleListPayload
		if err = msg.ParsePayload(&p); err == nil {
			for _, b := range p.Battles {
				c.printf("  %s  %-20s %s  %-8s turn %d %s\n", b.ID, b.Name, b.Land, b.Status, b.Turn, b.Phase)
			}
		}

	case protocol.TypeBattleLog:
		var p protocol.BattleHistoryPayload
		if err = msg.ParsePayload(&p); err == nil {
			for _, e := range p.Events {
				c.printf("  %4d  turn %d %-10s %-8s %s\n", e.ID, e.Turn, e.Phase, e.Side, e.Message)
			}
		}

	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err = msg.ParsePayload(&p); err == nil {
			c.printf("! %s: %s\n", p.Code, p.Message)
		}

	case protocol.TypePong:
		c.printf("pong\n")
	}

	if err != nil {
		c.log.Warn("bad payload", zap.String("type", string(msg.Type)), zap.Error(err))
	}
}

func (c *Console) remember(p protocol.AuthResultPayload) {
	c.cfg.PlayerToken = p.Token
	c.cfg.PlayerID = p.PlayerID
	c.cfg.PlayerName = p.Name
	if err := c.cfg.Save(); err != nil {
		c.log.Warn("failed to save config", zap.Error(err))
	}
}

func (c *Console) rememberBattle(id string) {
	if c.cfg.LastBattle == id {
		return
	}
	c.cfg.LastBattle = id
	if err := c.cfg.Save(); err != nil {
		c.log.Warn("failed to save config", zap.Error(err))
	}
}

func (c *Console) printStrike(r battle.StrikeResult) {
	if r.Pending() {
		c.printf("critter %d striking %s may take a penalty to carry:\n", r.Striker, r.Target)
		c.printf("  none: %d dice at %d\n", r.Dice, r.StrikeNumber)
		for _, o := range r.PenaltyOptions {
			c.printf("  penalty %d %s %d %d  carries to %s\n", r.Striker, r.Target, o.Dice, o.StrikeNumber, strings.Join(o.CarryTargets, " "))
		}
		return
	}
	c.printf("critter %d strikes %s: %d dice at %d, rolled %v, %d hit(s)", r.Striker, r.Target, r.Dice, r.StrikeNumber, r.Rolls, r.Hits)
	if r.Killed {
		c.printf(", killed")
	}
	if r.Carry > 0 {
		c.printf(", %d to carry to %s", r.Carry, strings.Join(r.CarryTargets, " "))
	}
	c.printf("\n")
}

func (c *Console) render(p protocol.BattleStatePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	RenderState(c.out, p)
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// RenderState writes a text view of a battle.
func RenderState(w io.Writer, p protocol.BattleStatePayload) {
	s := p.State
	fmt.Fprintf(w, "battle %s on %s, turn %d, %s phase, %s to act\n", p.BattleID, p.Land, s.Turn, s.Phase, s.ActiveSide)
	if s.Awaiting != battle.AwaitNothing {
		fmt.Fprintf(w, "  waiting for %s\n", s.Awaiting)
	}
	for _, l := range []struct {
		side   string
		legion battle.LegionSnapshot
	}{{"attacker", s.Attacker}, {"defender", s.Defender}} {
		fmt.Fprintf(w, "  %s %s", l.side, l.legion.MarkerID)
		if l.legion.Player != nil {
			fmt.Fprintf(w, " (%s)", l.legion.Player.Name)
		}
		fmt.Fprintf(w, ", %d points banked\n", l.legion.BattleTally)
		for _, c := range l.legion.Critters {
			fmt.Fprintf(w, "    %3d %-12s %-4s hits %d", c.Tag, c.Name, c.CurrentHex, c.Hits)
			if c.Struck {
				fmt.Fprint(w, " struck")
			}
			fmt.Fprintln(w)
		}
	}
	if s.CarryDamage > 0 {
		fmt.Fprintf(w, "  %d carry damage pending to %s\n", s.CarryDamage, strings.Join(s.CarryTargets, " "))
	}
	if len(p.MobileCritters) > 0 {
		fmt.Fprintf(w, "  can move from: %s\n", strings.Join(p.MobileCritters, " "))
	}
	if len(p.CrittersWithTargets) > 0 {
		fmt.Fprintf(w, "  can strike from: %s\n", strings.Join(p.CrittersWithTargets, " "))
	}
	if p.CanUndo {
		fmt.Fprintln(w, "  undo available")
	}
}
