// Package server implements the battle server: a WebSocket endpoint that
// runs battles one session per battle, plus a small read-only JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"titan-battle/internal/battle"
	"titan-battle/internal/caretaker"
	"titan-battle/internal/config"
	"titan-battle/internal/database"
	"titan-battle/internal/protocol"
	"titan-battle/pkg/variant"
)

// Version is reported to clients in the welcome message.
const Version = "1.0.0"

// Server is the main battle server.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *database.DB
	hub      *Hub
	handlers *Handlers
	sessions *sessionManager
	pool     *caretaker.Caretaker
	upgrader websocket.Upgrader
	server   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server and starts its hub. The variant data must be
// loaded first.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	catalog := variant.Catalog()
	if catalog == nil {
		return nil, errors.New("creature catalog not loaded")
	}
	if variant.Get(cfg.Battle.DefaultLand) == nil {
		return nil, fmt.Errorf("%w: default land %q", ErrUnknownLand, cfg.Battle.DefaultLand)
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		log:      log,
		db:       db,
		sessions: newSessionManager(cfg.Battle.MaxSessions),
		pool:     caretaker.New(catalog),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.hub = NewHub(s)
	s.handlers = NewHandlers(s.hub)

	go s.hub.Run(ctx)

	return s, nil
}

// Router returns the HTTP routes of the server.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	// WebSocket endpoint
	r.HandleFunc("/ws", s.handleWebSocket)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/lands", s.handleListLands).Methods(http.MethodGet)
	api.HandleFunc("/pool", s.handleGetPool).Methods(http.MethodGet)
	api.HandleFunc("/pool/{creature}", s.handleSetPool).Methods(http.MethodPut)
	api.HandleFunc("/battles", s.handleListBattles).Methods(http.MethodGet)
	api.HandleFunc("/battles/{id}", s.handleGetBattle).Methods(http.MethodGet)
	api.HandleFunc("/battles/{id}", s.handleDeleteBattle).Methods(http.MethodDelete)
	api.HandleFunc("/battles/{id}/history", s.handleBattleHistory).Methods(http.MethodGet)

	return r
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Router(),
	}

	s.log.Info("battle server listening",
		zap.String("addr", s.cfg.Server.Addr),
		zap.String("database", s.cfg.Database.Path),
		zap.Int("lands", len(variant.List())))

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.cancel()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// handleWebSocket upgrades HTTP connections to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(s.hub, conn)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	// Start client goroutines
	go client.WritePump()
	go client.ReadPump(s.handlers, s.cfg.Server.ReadLimit)
}

// battleOptions wires a battle to the server's shared collaborators.
func (s *Server) battleOptions(sess *Session, roller battle.Roller) battle.Options {
	return battle.Options{
		ID:       sess.id,
		Logger:   s.log.Named("battle"),
		Roller:   roller,
		Pool:     s.pool,
		Campaign: newSkirmish(s.log.Named("campaign"), s.pool),
		Events:   sess.record,
	}
}

func legionSetup(p protocol.LegionPayload) battle.LegionSetup {
	name := p.Player
	if name == "" {
		name = p.MarkerID
	}
	return battle.LegionSetup{
		MarkerID:  p.MarkerID,
		Player:    &battle.Player{Name: name, Score: p.Score},
		EntrySide: p.EntrySide,
		Creatures: p.Creatures,
	}
}

// createBattle starts a session for a new battle. The session is not yet
// running.
func (s *Server) createBattle(ctx context.Context, playerID string, p protocol.CreateBattlePayload) (*Session, error) {
	code := p.Land
	if code == "" {
		code = s.cfg.Battle.DefaultLand
	}
	land := variant.Get(code)
	if land == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLand, code)
	}
	if p.Attacker.MarkerID == "" || p.Defender.MarkerID == "" {
		return nil, fmt.Errorf("%w: both legions need a marker", errInvalidAction)
	}
	if p.Attacker.MarkerID == p.Defender.MarkerID {
		return nil, fmt.Errorf("%w: a legion cannot fight itself", errInvalidAction)
	}
	if len(p.Attacker.Creatures) == 0 || len(p.Defender.Creatures) == 0 {
		return nil, fmt.Errorf("%w: both legions need creatures", errInvalidAction)
	}

	grid, err := land.Grid()
	if err != nil {
		return nil, err
	}

	sess := newSession(s, uuid.New().String(), code)
	if _, err := s.sessions.add(sess); err != nil {
		return nil, err
	}

	b, err := battle.New(grid, variant.Catalog(), battle.Setup{
		MasterHex: p.MasterHex,
		Attacker:  legionSetup(p.Attacker),
		Defender:  legionSetup(p.Defender),
	}, s.battleOptions(sess, battle.NewRandomRoller(p.Seed)))
	if err != nil {
		s.sessions.remove(sess.id)
		return nil, fmt.Errorf("%w: %v", errInvalidAction, err)
	}
	sess.battle = b

	_, err = s.db.CreateBattle(ctx, database.BattleInfo{
		ID:        sess.id,
		Land:      code,
		MasterHex: p.MasterHex,
		Attacker:  p.Attacker.MarkerID,
		Defender:  p.Defender.MarkerID,
		CreatedBy: playerID,
	})
	if err != nil {
		s.sessions.remove(sess.id)
		return nil, err
	}
	sess.persist(ctx)

	s.log.Info("battle created",
		zap.String("battle", sess.id),
		zap.String("land", code),
		zap.String("attacker", p.Attacker.MarkerID),
		zap.String("defender", p.Defender.MarkerID))
	return sess, nil
}

// restoreBattle rebuilds a stored battle. When another client restored it
// first, that live session is returned with live set. A finished battle is
// returned without being registered.
func (s *Server) restoreBattle(ctx context.Context, id string) (*Session, bool, error) {
	info, err := s.db.GetBattle(ctx, id)
	if err != nil {
		return nil, false, err
	}
	snap, err := s.db.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, false, err
	}
	grid, err := variant.Grid(info.Land)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnknownLand, err)
	}

	sess := newSession(s, id, info.Land)
	b, err := battle.Restore(grid, variant.Catalog(), snap, s.battleOptions(sess, battle.NewRandomRoller(0)))
	if err != nil {
		return nil, false, err
	}
	sess.battle = b
	if b.IsOver() {
		return sess, false, nil
	}

	live, err := s.sessions.add(sess)
	if err != nil {
		return nil, false, err
	}
	if live != sess {
		return live, true, nil
	}
	s.log.Info("battle restored", zap.String("battle", id), zap.Int("turn", b.TurnNumber()))
	return sess, false, nil
}

// ==================== HTTP API ====================

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "sessions": s.sessions.count()})
}

func (s *Server) handleListLands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, variant.List())
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"available": s.pool.Counts(),
		"exhausted": s.pool.Exhausted(),
	})
}

func (s *Server) handleSetPool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["creature"]
	var body struct {
		Available int `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.pool.SetAvailable(name, body.Available); err != nil {
		if errors.Is(err, battle.ErrUnknownCreature) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]any{"creature": name, "available": s.pool.Available(name)})
}

func (s *Server) handleListBattles(w http.ResponseWriter, r *http.Request) {
	var (
		battles []*database.BattleInfo
		err     error
	)
	if player := r.URL.Query().Get("player"); player != "" {
		battles, err = s.db.GetPlayerBattles(r.Context(), player)
	} else {
		battles, err = s.db.ListBattles(r.Context(), database.BattleStatus(r.URL.Query().Get("status")))
	}
	if err != nil {
		s.log.Error("failed to list battles", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list battles")
		return
	}
	if battles == nil {
		battles = []*database.BattleInfo{}
	}
	writeJSON(w, battles)
}

func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, err := s.db.GetBattle(r.Context(), id)
	if errors.Is(err, database.ErrBattleNotFound) {
		writeError(w, http.StatusNotFound, "battle not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load battle")
		return
	}

	resp := map[string]any{"battle": info}
	if snap, err := s.db.LoadSnapshot(r.Context(), id); err == nil {
		resp["state"] = snap
	}
	if result, err := s.db.GetResult(r.Context(), id); err == nil && result != nil {
		resp["result"] = result
	}
	writeJSON(w, resp)
}

func (s *Server) handleDeleteBattle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.sessions.get(id) != nil {
		writeError(w, http.StatusConflict, "battle is being fought")
		return
	}
	err := s.db.DeleteBattle(r.Context(), id)
	if errors.Is(err, database.ErrBattleNotFound) {
		writeError(w, http.StatusNotFound, "battle not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete battle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBattleHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.db.GetBattle(r.Context(), id); errors.Is(err, database.ErrBattleNotFound) {
		writeError(w, http.StatusNotFound, "battle not found")
		return
	}
	events, err := s.db.GetBattleHistory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if events == nil {
		events = []*database.HistoryEvent{}
	}
	writeJSON(w, events)
}
