package game

import (
	"slices"

	"kittens-server/matcherrors"
	"kittens-server/protocol"
)

// snapshot is the part of a game a nope can roll back.
type snapshot struct {
	deck      []Kind
	discard   []Kind
	hands     map[*Player][]Kind
	turn      int
	turnCount int
	direction int
	faceUp    bool
	pending   *pending
}

// nopeable is the most recent action a Nope can cancel. before and after
// bracket its effect; each Nope flips between them.
type nopeable struct {
	actor  *Player
	card   Kind
	before snapshot
	after  snapshot
	nopes  []*Player
	noped  bool
}

func (g *Game) snapshot() snapshot {
	s := snapshot{
		deck:      slices.Clone(g.Deck),
		discard:   slices.Clone(g.DiscardPile),
		hands:     make(map[*Player][]Kind, len(g.Players)),
		turn:      g.Turn,
		turnCount: g.TurnCount,
		direction: g.TurnDirection,
		faceUp:    g.implodingFaceUp,
	}
	for _, p := range g.Players {
		s.hands[p] = slices.Clone(p.Hand)
	}
	if g.pending != nil {
		pd := *g.pending
		pd.revealed = slices.Clone(pd.revealed)
		s.pending = &pd
	}
	return s
}

// record makes the action just applied by actor the target of the next Nope.
func (g *Game) record(actor *Player, card Kind, before snapshot) {
	g.last = &nopeable{actor: actor, card: card, before: before, after: g.snapshot()}
}

// restore rolls the game back to s. Nope cards played since s was taken stay
// spent: they are removed from the nopers' hands and kept on the discard pile.
func (g *Game) restore(s snapshot, nopes []*Player) {
	g.Deck = slices.Clone(s.deck)
	g.DiscardPile = slices.Clone(s.discard)
	for p, hand := range s.hands {
		p.Hand = slices.Clone(hand)
	}
	for _, p := range nopes {
		p.take(Nope)
		g.DiscardPile = append(g.DiscardPile, Nope)
	}
	g.Turn = s.turn
	g.TurnCount = s.turnCount
	g.TurnDirection = s.direction
	g.implodingFaceUp = s.faceUp
	g.pending = nil
	if s.pending != nil {
		pd := *s.pending
		pd.revealed = slices.Clone(pd.revealed)
		g.pending = &pd
	}
	g.deckChanged()
}

// PlayNope cancels the last nope-able action, or restores it when the action
// was already noped. Any seated player may nope, in or out of turn.
func (g *Game) PlayNope(p *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playNope(p)
}

func (g *Game) playNope(p *Player) error {
	switch {
	case !g.Started:
		return matcherrors.ErrGameNotStarted
	case g.Finished:
		return matcherrors.ErrGameFinished
	case !slices.Contains(g.Players, p):
		return matcherrors.ErrNotInGame
	case g.last == nil:
		return matcherrors.ErrNothingToNope
	case p.holds(Nope) == 0:
		return matcherrors.ErrCardNotHeld
	}

	n := g.last
	n.nopes = append(n.nopes, p)
	n.noped = !n.noped
	target := n.after
	if n.noped {
		target = n.before
	}
	g.restore(target, n.nopes)

	g.broadcast(protocol.CardAnimation(protocol.AnimNope, uint16(n.card), p.ID))
	for _, pl := range g.Players {
		pl.sendHand()
	}
	g.broadcastTurn()
	if pd := g.pending; pd != nil {
		switch pd.kind {
		case pendingPeek, pendingAlter:
			pd.player.Queue(protocol.SeeTheFuture(pd.kind == pendingAlter, kindsToWire(pd.revealed)))
		case pendingFavor:
			pd.player.Queue(protocol.CardAnimation(protocol.AnimFavor, pd.player.ID, pd.from.ID))
		}
	}
	return nil
}
