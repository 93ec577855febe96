/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package vote

import (
	"go.uber.org/zap"

	"github.com/Seednode/filmvote/catalog"
)

func cloneItems(items []catalog.Item) []catalog.Item {
	out := make([]catalog.Item, len(items))
	copy(out, items)

	return out
}

// snapshotLocked copies the state so the result is safe to hand to writers
// after mu is released.
func (s *Session) snapshotLocked() Snapshot {
	s.clampTurnLocked()

	names := make([]string, 0, len(s.players))
	connected := make([]string, 0, len(s.players))
	for _, p := range s.players {
		names = append(names, p.Name)
		if p.Connected() {
			connected = append(connected, p.Name)
		}
	}

	var current *string
	if s.started && len(s.players) > 0 && len(s.engine.Remaining) > 0 && s.winner == nil {
		name := s.players[s.currentTurn].Name
		current = &name
	}

	var winner *catalog.Item
	if s.winner != nil {
		w := *s.winner
		winner = &w
	}

	return Snapshot{
		Type:             "state_update",
		Seq:              s.seq,
		Code:             s.code,
		FilmsRemaining:   cloneItems(s.engine.Remaining),
		Eliminated:       cloneItems(s.engine.Eliminated),
		Players:          names,
		CurrentPlayer:    current,
		CurrentTurn:      s.currentTurn,
		Started:          s.started,
		ConnectedPlayers: connected,
		Winner:           winner,
		VoteStyle:        s.engine.Style,
		HybridThreshold:  s.engine.Threshold,
		GroupA:           cloneItems(s.engine.GroupA),
		GroupB:           cloneItems(s.engine.GroupB),
	}
}

// broadcastLocked sends one new snapshot to every live client. A failed send
// is logged and does not stop delivery to the rest.
func (s *Session) broadcastLocked() {
	s.seq++
	snap := s.snapshotLocked()

	for c := range s.clients {
		s.sendLocked(c, snap)
	}

	s.logger.Debug("broadcast state",
		zap.Uint64("seq", snap.Seq),
		zap.Bool("started", snap.Started),
		zap.Int("players", len(snap.Players)),
		zap.Int("current_turn", snap.CurrentTurn),
		zap.Int("clients", len(s.clients)),
	)
}

func (s *Session) sendLocked(c Conn, msg any) {
	if c == nil {
		return
	}

	if err := c.Send(msg); err != nil {
		s.logger.Warn("send failed", zap.String("conn", c.ID()), zap.Error(err))
	}
}
