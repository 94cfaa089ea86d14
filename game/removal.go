package game

import (
	"slices"

	"kittens-server/matcherrors"
	"kittens-server/protocol"
)

// RemovePlayer takes p out of a started game: a running game loses the seat
// and the hand goes to the discard pile, a finished game just forgets p.
func (g *Game) RemovePlayer(p *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.Started {
		return matcherrors.ErrGameNotStarted
	}
	if i := slices.Index(g.Spectators, p); i >= 0 {
		g.Spectators = slices.Delete(g.Spectators, i, i+1)
		return nil
	}
	i := slices.Index(g.Players, p)
	if i < 0 {
		return matcherrors.ErrNotInGame
	}
	if g.Finished {
		g.Players = slices.Delete(g.Players, i, i+1)
		g.reassignOwner(p)
		return nil
	}
	g.removePlayer(p)
	return nil
}

func (g *Game) removePlayer(p *Player) {
	g.DiscardPile = append(g.DiscardPile, p.Hand...)
	p.Hand = nil
	g.removeSeat(p)
	g.last = nil
	g.broadcast(protocol.OngoingGamePlayerInfo(entries(g.Players)))
	g.checkFinished()
	g.broadcastTurn()
}

// eliminate turns p into a spectator, discarding their hand.
func (g *Game) eliminate(p *Player) {
	g.DiscardPile = append(g.DiscardPile, p.Hand...)
	p.Hand = nil
	g.removeSeat(p)
	g.Spectators = append(g.Spectators, p)
	g.last = nil
	g.broadcast(protocol.PlayerEliminated(p.ID))
	g.broadcast(protocol.OngoingGamePlayerInfo(entries(g.Players)))
	p.sendHand()
	g.checkFinished()
	g.broadcastTurn()
}

// removeSeat deletes p from the turn order and keeps Turn pointing at the same
// player, or at the next one in play direction when p was the current player.
func (g *Game) removeSeat(p *Player) {
	idx := slices.Index(g.Players, p)
	if idx < 0 {
		return
	}
	g.Players = slices.Delete(g.Players, idx, idx+1)
	if g.pending != nil && (g.pending.player == p || g.pending.from == p) {
		g.pending = nil
	}
	g.reassignOwner(p)

	n := len(g.Players)
	if n == 0 {
		g.Turn = 0
		return
	}
	switch {
	case idx < g.Turn:
		g.Turn--
	case idx == g.Turn:
		if g.TurnDirection > 0 {
			g.Turn = idx % n
		} else {
			g.Turn = (idx - 1 + n) % n
		}
		g.TurnCount = 1
	}
}

func (g *Game) checkFinished() {
	if g.Finished || len(g.Players) > 1 {
		return
	}
	g.Finished = true
	g.pending = nil
	g.last = nil
	if len(g.Players) == 1 {
		g.Winner = g.Players[0]
		g.broadcast(protocol.GameOver(g.Winner.ID))
	}
	if g.OnFinish != nil {
		g.OnFinish(g)
	}
}
