package game

import (
	"slices"

	"kittens-server/matcherrors"
	"kittens-server/protocol"
)

// requireTurn checks that p may act now: the game is running, it is p's turn
// and no earlier action is waiting to be resolved.
func (g *Game) requireTurn(p *Player) error {
	switch {
	case !g.Started:
		return matcherrors.ErrGameNotStarted
	case g.Finished:
		return matcherrors.ErrGameFinished
	case !slices.Contains(g.Players, p):
		return matcherrors.ErrNotInGame
	case g.current() != p:
		return matcherrors.ErrNotYourTurn
	case g.pending != nil:
		return matcherrors.ErrAwaitingAction
	}
	return nil
}

// AdvanceTurn consumes one owed turn and passes play once nothing is owed.
func (g *Game) AdvanceTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advanceTurn()
}

func (g *Game) advanceTurn() {
	g.TurnCount--
	if g.TurnCount <= 0 {
		g.Turn = g.nextSeat(g.Turn)
		g.TurnCount = 1
	}
	g.broadcastTurn()
}

func (g *Game) nextSeat(from int) int {
	n := len(g.Players)
	return ((from+g.TurnDirection)%n + n) % n
}

// passTurn hands an attack on to seat to: it owes the attacker's remaining
// turns plus two when the attacker was already under attack, otherwise one.
func (g *Game) passTurn(to int) {
	extra := 1
	if g.TurnCount > 1 {
		extra = 2
	}
	owed := g.TurnCount + extra
	g.Turn = to
	g.TurnCount = owed
	g.broadcastTurn()
}

// PlayCard plays a single card from p's hand. Nope is accepted from any
// seated player at any time; everything else needs p's turn.
func (g *Game) PlayCard(p *Player, k Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if k == Nope {
		return g.playNope(p)
	}
	if err := g.requireTurn(p); err != nil {
		return err
	}
	if !k.Playable() {
		return matcherrors.ErrCardNotPlayable
	}
	if k == TargetedAttack || k == Favor {
		return matcherrors.ErrInvalidTarget
	}
	if !p.take(k) {
		return matcherrors.ErrCardNotHeld
	}
	g.DiscardPile = append(g.DiscardPile, k)
	g.broadcast(protocol.CardAnimation(protocol.AnimPlay, uint16(k), p.ID))
	p.sendHand()

	before := g.snapshot()
	eliminated := false
	switch k {
	case Attack:
		g.passTurn(g.nextSeat(g.Turn))
	case Shuffle:
		shuffle(g.rng, g.Deck)
		g.deckChanged()
		g.advanceTurn()
	case Skip:
		g.advanceTurn()
	case Reverse:
		g.TurnDirection = -g.TurnDirection
		g.advanceTurn()
	case DrawFromBottom:
		if len(g.Deck) == 0 {
			g.advanceTurn()
			break
		}
		card := g.Deck[len(g.Deck)-1]
		g.Deck = g.Deck[:len(g.Deck)-1]
		eliminated = g.resolveDraw(p, card)
	case SeeTheFuture, AlterTheFuture:
		kind := pendingPeek
		if k == AlterTheFuture {
			kind = pendingAlter
		}
		revealed := slices.Clone(g.Deck[:min(protocol.PeekSize, len(g.Deck))])
		g.pending = &pending{kind: kind, player: p, revealed: revealed}
		p.Queue(protocol.SeeTheFuture(k == AlterTheFuture, kindsToWire(revealed)))
	default:
		// Lone cat cards have no effect of their own.
		g.advanceTurn()
	}

	if eliminated {
		g.last = nil
		return nil
	}
	g.record(p, k, before)
	return nil
}

// PlayTargetedAttack plays a targeted attack against the seated player with
// the given id, who then owes the attacker's turns.
func (g *Game) PlayTargetedAttack(p *Player, targetID uint16) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurn(p); err != nil {
		return err
	}
	target := g.seatByID(targetID)
	if target == nil {
		return matcherrors.ErrPlayerNotFound
	}
	if target == p {
		return matcherrors.ErrInvalidTarget
	}
	if !p.take(TargetedAttack) {
		return matcherrors.ErrCardNotHeld
	}
	g.DiscardPile = append(g.DiscardPile, TargetedAttack)
	g.broadcast(protocol.CardAnimation(protocol.AnimTargetedAttack, target.ID, p.ID))
	p.sendHand()

	before := g.snapshot()
	g.passTurn(slices.Index(g.Players, target))
	g.record(p, TargetedAttack, before)
	return nil
}

// PlayFavor asks the seated player with the given id for a card of their
// choice. The turn does not end; it is blocked until the target answers with
// ReturnFavor. A target with an empty hand has nothing to give.
func (g *Game) PlayFavor(p *Player, targetID uint16) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurn(p); err != nil {
		return err
	}
	target := g.seatByID(targetID)
	if target == nil {
		return matcherrors.ErrPlayerNotFound
	}
	if target == p {
		return matcherrors.ErrInvalidTarget
	}
	if !p.take(Favor) {
		return matcherrors.ErrCardNotHeld
	}
	g.DiscardPile = append(g.DiscardPile, Favor)
	g.broadcast(protocol.CardAnimation(protocol.AnimFavor, target.ID, p.ID))
	p.sendHand()

	before := g.snapshot()
	if len(target.Hand) > 0 {
		g.pending = &pending{kind: pendingFavor, player: target, from: p}
	}
	g.record(p, Favor, before)
	return nil
}

// ReturnFavor resolves a pending Favor: p hands one k from their hand to the
// player who asked. Once the card has moved the Favor can no longer be noped.
func (g *Game) ReturnFavor(p *Player, k Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	pd := g.pending
	if pd == nil || pd.player != p || pd.kind != pendingFavor {
		return matcherrors.ErrNothingPending
	}
	if !p.take(k) {
		return matcherrors.ErrCardNotHeld
	}
	pd.from.Hand = append(pd.from.Hand, k)
	pd.from.Queue(protocol.CardDrawn(uint16(k)))
	g.pending = nil
	g.last = nil

	g.broadcast(protocol.CardAnimation(protocol.AnimSteal, p.ID, pd.from.ID))
	p.sendHand()
	pd.from.sendHand()
	return nil
}

// AcknowledgePeek resolves a See the Future or Alter the Future. For Alter the
// Future, order must be a permutation of the revealed cards and becomes the new
// top of the deck; See the Future takes no order.
func (g *Game) AcknowledgePeek(p *Player, order []Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	pd := g.pending
	if pd == nil || pd.player != p || (pd.kind != pendingPeek && pd.kind != pendingAlter) {
		return matcherrors.ErrNothingPending
	}
	if pd.kind == pendingAlter {
		if !samePile(order, pd.revealed) {
			return matcherrors.ErrInvalidOrder
		}
		copy(g.Deck, order)
		g.deckChanged()
	} else if len(order) > 0 {
		return matcherrors.ErrInvalidOrder
	}
	g.pending = nil
	g.last = nil
	g.advanceTurn()
	return nil
}

// Draw takes the top card of the deck for p and ends one owed turn, unless
// the card is a kitten.
func (g *Game) Draw(p *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurn(p); err != nil {
		return err
	}
	g.last = nil
	if len(g.Deck) == 0 {
		g.advanceTurn()
		return nil
	}
	card := g.Deck[0]
	g.Deck = g.Deck[1:]
	g.resolveDraw(p, card)
	return nil
}

// resolveDraw puts a card drawn by p into play and reports whether p was
// eliminated by it. Kittens stay in the hand while their placement is pending.
func (g *Game) resolveDraw(p *Player, card Kind) bool {
	p.Hand = append(p.Hand, card)
	p.Queue(protocol.CardDrawn(uint16(card)))
	g.deckChanged()

	switch {
	case card == ExplodingKitten && p.holds(Defuse) > 0:
		g.pending = &pending{kind: pendingDefuse, player: p, card: card}
		g.broadcast(protocol.CardAnimation(protocol.AnimDraw, uint16(card), p.ID))
	case card == ImplodingKitten && !g.implodingFaceUp:
		g.implodingFaceUp = true
		g.pending = &pending{kind: pendingImplode, player: p, card: card}
		g.broadcast(protocol.CardAnimation(protocol.AnimDraw, uint16(card), p.ID))
	case card == ExplodingKitten || card == ImplodingKitten:
		g.broadcast(protocol.CardAnimation(protocol.AnimDraw, uint16(card), p.ID))
		g.eliminate(p)
		return true
	default:
		g.broadcast(protocol.CardAnimation(protocol.AnimDraw, protocol.NoCard, p.ID))
		p.sendHand()
		g.advanceTurn()
	}
	return false
}

// Defuse puts the kitten p just drew back into the deck at position (0 is the
// top; larger values are clamped to the bottom). An exploding kitten costs a
// defuse; a freshly revealed imploding kitten does not.
func (g *Game) Defuse(p *Player, position int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	pd := g.pending
	if pd == nil || pd.player != p || (pd.kind != pendingDefuse && pd.kind != pendingImplode) {
		return matcherrors.ErrNothingPending
	}
	if pd.kind == pendingDefuse {
		if !p.take(Defuse) {
			return matcherrors.ErrCardNotHeld
		}
		g.DiscardPile = append(g.DiscardPile, Defuse)
	}
	p.take(pd.card)
	position = max(0, min(position, len(g.Deck)))
	g.Deck = slices.Insert(g.Deck, position, pd.card)
	g.deckChanged()
	g.pending = nil
	g.last = nil

	g.broadcast(protocol.CardAnimation(protocol.AnimDefuse, uint16(pd.card), p.ID))
	p.sendHand()
	g.advanceTurn()
	return nil
}

// Die forfeits: p is eliminated as if they had exploded.
func (g *Game) Die(p *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case !g.Started:
		return matcherrors.ErrGameNotStarted
	case g.Finished:
		return matcherrors.ErrGameFinished
	case !slices.Contains(g.Players, p):
		return matcherrors.ErrNotInGame
	}
	g.eliminate(p)
	return nil
}

// deckChanged keeps the implosion distance in step with the deck.
func (g *Game) deckChanged() {
	g.ImplosionDistance = implosionDistance(g.Deck, g.HasImploding)
}

// samePile reports whether a and b hold the same cards in any order.
func samePile(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
