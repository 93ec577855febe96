/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package vote

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/filmvote/catalog"
)

// Conn is one live client connection. Send must not block; a full or broken
// connection returns an error instead.
type Conn interface {
	ID() string
	Send(msg any) error
	Close() error
}

// Player is a named participant. ID is stable across reconnections; conn is
// nil while the player is disconnected.
type Player struct {
	Name string
	ID   string

	conn Conn
}

// Connected reports whether the player currently holds a live connection.
func (p Player) Connected() bool {
	return p.conn != nil
}

// Host controls a session. It is tracked separately from the players.
type Host struct {
	ID string

	conn Conn
}

// Session is a single vote, addressed by code. All methods are safe for
// concurrent use; every mutation happens under mu and is followed by a
// snapshot broadcast before mu is released.
type Session struct {
	code       string
	codeLength int
	catalog    *catalog.Catalog
	logger     *zap.Logger

	mu          sync.Mutex
	host        Host
	clients     map[Conn]bool
	players     []Player
	currentTurn int
	started     bool
	engine      *Engine
	winner      *catalog.Item
	seq         uint64
	createdAt   time.Time
	lastActive  time.Time
}

func newSession(code string, opts Options) *Session {
	now := time.Now()

	return &Session{
		code:       code,
		codeLength: opts.CodeLength,
		catalog:    opts.Catalog,
		logger:     opts.Logger.With(zap.String("session", code)),
		host:       Host{ID: GenerateCode(opts.CodeLength)},
		clients:    make(map[Conn]bool),
		engine:     NewEngine(opts.Shuffle),
		createdAt:  now,
		lastActive: now,
	}
}

func (s *Session) Code() string {
	return s.code
}

// HostID returns the host reconnection token.
func (s *Session) HostID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.host.ID
}

// Players returns a copy of the roster in turn order.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Player, len(s.players))
	copy(out, s.players)

	return out
}

// Snapshot returns the current state without broadcasting it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActive
}

// attach registers a freshly opened connection. The connection that created
// the session becomes its host and is told the host token.
func (s *Session) attach(c Conn, isHost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	s.clients[c] = true

	if isHost {
		s.host.conn = c
		s.sendLocked(c, PlayerIDMessage{Type: "player_id", ID: s.host.ID, IsHost: true})
	}

	s.sendLocked(c, s.snapshotLocked())
}

// Handle applies one client event sent on c.
func (s *Session) Handle(c Conn, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	switch ev.Type {
	case EventJoin:
		s.joinLocked(c, ev)
	case EventHostReconnect:
		s.hostReconnectLocked(c, ev)
	case EventStart:
		s.startLocked(c, ev)
	case EventEliminate:
		s.eliminateLocked(c, ev)
	case EventReorder:
		s.reorderLocked(c, ev)
	case EventKickPlayer:
		s.kickLocked(c, ev)
	default:
		s.logger.Debug("ignoring event", zap.String("type", ev.Type), zap.String("conn", c.ID()))
	}
}

// Disconnect forgets c. Player and host records stay so they can reconnect.
func (s *Session) Disconnect(c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	delete(s.clients, c)

	for i := range s.players {
		if s.players[i].conn == c {
			s.players[i].conn = nil
			s.logger.Info("player disconnected", zap.String("player", s.players[i].Name))
		}
	}

	if s.host.conn == c {
		s.host.conn = nil
		s.logger.Info("host disconnected")
	}

	s.broadcastLocked()
}

func (s *Session) isHostLocked(c Conn) bool {
	return c != nil && s.host.conn == c
}

func (s *Session) playerByIDLocked(id string) int {
	if id == "" {
		return -1
	}

	for i, p := range s.players {
		if p.ID == id {
			return i
		}
	}

	return -1
}

func (s *Session) playerByConnLocked(c Conn) int {
	for i, p := range s.players {
		if p.conn != nil && p.conn == c {
			return i
		}
	}

	return -1
}

// playerByNameLocked resolves a display name to the first matching player.
func (s *Session) playerByNameLocked(name string) int {
	for i, p := range s.players {
		if p.Name == name {
			return i
		}
	}

	return -1
}

func (s *Session) nameTakenLocked(name string, except int) bool {
	for i, p := range s.players {
		if i != except && p.Name == name {
			return true
		}
	}

	return false
}

func (s *Session) newPlayerIDLocked() string {
	for {
		id := GenerateCode(s.codeLength)
		if id != s.host.ID && s.playerByIDLocked(id) < 0 {
			return id
		}
	}
}

func (s *Session) joinLocked(c Conn, ev Event) {
	name := strings.TrimSpace(ev.Name)

	idx := s.playerByIDLocked(ev.PlayerID)
	if idx < 0 {
		idx = s.playerByConnLocked(c)
	}

	if s.started && idx < 0 {
		s.sendLocked(c, ErrorMessage{
			Type:           "error",
			Message:        "Cannot join after voting has started. Please wait for the host to start a new session.",
			VoteInProgress: true,
		})
		s.logger.Info("rejected join during active vote", zap.String("name", name))

		return
	}

	s.clients[c] = true

	if idx >= 0 {
		p := &s.players[idx]
		p.conn = c

		if name != "" && name != p.Name {
			if s.nameTakenLocked(name, idx) {
				s.logger.Info("kept name on reconnect, requested name taken",
					zap.String("player", p.Name), zap.String("requested", name))
			} else {
				s.logger.Info("player renamed", zap.String("from", p.Name), zap.String("to", name))
				p.Name = name
			}
		}

		s.sendLocked(c, ReconnectMessage{Type: "reconnect_success", Name: p.Name})
		s.logger.Info("player reconnected", zap.String("player", p.Name), zap.String("id", p.ID))
		s.broadcastLocked()

		return
	}

	if name == "" {
		s.sendLocked(c, errorMessage("A name is required to join."))
		return
	}

	if s.nameTakenLocked(name, -1) {
		s.sendLocked(c, errorMessage("That name is already taken. Please choose a different name."))
		return
	}

	id := s.newPlayerIDLocked()
	s.players = append(s.players, Player{Name: name, ID: id, conn: c})

	s.sendLocked(c, PlayerIDMessage{Type: "player_id", ID: id})
	s.logger.Info("player joined", zap.String("player", name), zap.String("id", id))
	s.broadcastLocked()
}

func (s *Session) hostReconnectLocked(c Conn, ev Event) {
	if ev.HostID == "" || ev.HostID != s.host.ID {
		return
	}

	s.host.conn = c
	s.clients[c] = true

	s.sendLocked(c, ReconnectMessage{Type: "reconnect_success", IsHost: true})
	s.logger.Info("host reconnected", zap.String("conn", c.ID()))
	s.broadcastLocked()
}

func (s *Session) startLocked(c Conn, ev Event) {
	if !s.isHostLocked(c) {
		return
	}

	if s.started {
		s.sendLocked(c, errorMessage("Voting has already started."))
		return
	}

	style, ok := ParseStyle(ev.VoteStyle)
	if !ok {
		s.sendLocked(c, errorMessage("Unknown vote style: "+ev.VoteStyle))
		return
	}

	threshold := DefaultHybridThreshold
	if ev.HybridThreshold != nil {
		if *ev.HybridThreshold < 0 {
			s.sendLocked(c, errorMessage("Hybrid threshold cannot be negative."))
			return
		}
		threshold = *ev.HybridThreshold
	}

	films := s.catalog.Resolve(ev.Films)
	if len(films) < 2 {
		s.sendLocked(c, errorMessage("At least two films are needed to start a vote."))
		return
	}

	if len(s.players) == 0 {
		s.sendLocked(c, errorMessage("At least one player must join before voting can start."))
		return
	}

	s.engine.Start(films, style, threshold)
	s.currentTurn = 0
	s.winner = nil
	s.started = true

	s.logger.Info("vote started",
		zap.Int("films", len(films)),
		zap.Int("players", len(s.players)),
		zap.String("style", string(style)),
		zap.Int("hybrid_threshold", threshold),
	)
	s.broadcastLocked()
}

func (s *Session) eliminateLocked(c Conn, ev Event) {
	if !s.started {
		s.sendLocked(c, errorMessage("Voting has not started yet."))
		return
	}

	if s.winner != nil {
		s.sendLocked(c, errorMessage("Voting is over."))
		return
	}

	if len(s.players) == 0 {
		return
	}

	s.clampTurnLocked()

	current := s.players[s.currentTurn]
	if current.conn == nil || current.conn != c {
		s.sendLocked(c, errorMessage("It is not your turn."))
		return
	}

	if !s.engine.Eliminate(ev.Film, ev.Group) {
		s.logger.Debug("elimination did not apply",
			zap.String("player", current.Name),
			zap.String("film", ev.Film),
			zap.String("group", ev.Group),
		)

		return
	}

	s.logger.Info("eliminated",
		zap.String("player", current.Name),
		zap.String("film", ev.Film),
		zap.String("group", ev.Group),
		zap.Int("remaining", len(s.engine.Remaining)),
	)

	switch remaining := len(s.engine.Remaining); {
	case remaining == 1:
		winner := s.engine.Remaining[0]
		s.winner = &winner
		s.logger.Info("winner decided", zap.String("film", winner.Title))
	case remaining > 1:
		s.currentTurn = (s.currentTurn + 1) % len(s.players)
	}

	s.broadcastLocked()
}

// reorderLocked rebuilds the roster from display names. Names left out are
// dropped from the roster; unknown names are skipped.
func (s *Session) reorderLocked(c Conn, ev Event) {
	if !s.isHostLocked(c) {
		return
	}

	used := make([]bool, len(s.players))
	reordered := make([]Player, 0, len(ev.Order))

	for _, name := range ev.Order {
		for i, p := range s.players {
			if used[i] || p.Name != name {
				continue
			}
			used[i] = true
			reordered = append(reordered, p)

			break
		}
	}

	for i, p := range s.players {
		if !used[i] {
			s.logger.Info("player dropped by reorder", zap.String("player", p.Name))
		}
	}

	s.players = reordered
	s.currentTurn = 0

	s.broadcastLocked()
}

func (s *Session) kickLocked(c Conn, ev Event) {
	if !s.isHostLocked(c) {
		return
	}

	idx := s.playerByNameLocked(ev.Player)
	if idx < 0 {
		return
	}

	kicked := s.players[idx]
	s.players = append(s.players[:idx:idx], s.players[idx+1:]...)

	if kicked.conn != nil {
		s.sendLocked(kicked.conn, KickedMessage{
			Type:      "kicked",
			Message:   "You have been removed from the session by the host.",
			CanRejoin: true,
		})
		if kicked.conn != s.host.conn {
			delete(s.clients, kicked.conn)
		}
	}

	if idx < s.currentTurn {
		s.currentTurn--
	}
	if s.currentTurn >= len(s.players) {
		s.currentTurn = 0
	}

	s.logger.Info("player kicked", zap.String("player", kicked.Name), zap.String("id", kicked.ID))
	s.broadcastLocked()
}

// clampTurnLocked pulls the turn cursor back into range after the roster
// shrinks between turns.
func (s *Session) clampTurnLocked() {
	if s.started && len(s.players) > 0 && (s.currentTurn < 0 || s.currentTurn >= len(s.players)) {
		s.currentTurn = 0
	}
}

// closeAll drops every connection, used when the registry reaps the session.
func (s *Session) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if err := c.Close(); err != nil {
			s.logger.Debug("close failed", zap.String("conn", c.ID()), zap.Error(err))
		}
		delete(s.clients, c)
	}

	for i := range s.players {
		s.players[i].conn = nil
	}
	s.host.conn = nil
}
