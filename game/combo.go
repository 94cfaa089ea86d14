package game

import (
	"slices"

	"kittens-server/matcherrors"
	"kittens-server/protocol"
)

// PlayCombo plays two or three matching cards to steal from another player,
// or five different cards to take a named card from the discard pile. Feral
// cats match any cat. A combo does not end the turn.
//
// Two matching cards steal a random card from target; three take the named
// kind from target if they hold one.
func (g *Game) PlayCombo(p *Player, kinds []Kind, targetID uint16, named Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.requireTurn(p); err != nil {
		return err
	}

	var target *Player
	switch len(kinds) {
	case 2, 3:
		if !matching(kinds) {
			return matcherrors.ErrInvalidCombo
		}
		if len(kinds) == 3 && !named.Valid() {
			return matcherrors.ErrInvalidCombo
		}
		target = g.seatByID(targetID)
		if target == nil {
			return matcherrors.ErrPlayerNotFound
		}
		if target == p {
			return matcherrors.ErrInvalidTarget
		}
	case 5:
		if !distinct(kinds) || !slices.Contains(g.DiscardPile, named) {
			return matcherrors.ErrInvalidCombo
		}
	default:
		return matcherrors.ErrInvalidCombo
	}
	if !holdsAll(p, kinds) {
		return matcherrors.ErrCardNotHeld
	}

	for _, k := range kinds {
		p.take(k)
		g.DiscardPile = append(g.DiscardPile, k)
	}
	g.broadcast(protocol.CardAnimation(protocol.AnimCombo, uint16(len(kinds)), p.ID))

	before := g.snapshot()
	var (
		got   Kind
		stole bool
	)
	switch len(kinds) {
	case 2:
		if len(target.Hand) > 0 {
			i := g.rng.Intn(len(target.Hand))
			got = target.Hand[i]
			target.Hand = slices.Delete(target.Hand, i, i+1)
			stole = true
		}
	case 3:
		if target.take(named) {
			got, stole = named, true
		}
	case 5:
		i := slices.Index(g.DiscardPile, named)
		got = named
		g.DiscardPile = slices.Delete(g.DiscardPile, i, i+1)
		stole = true
	}

	if stole {
		p.Hand = append(p.Hand, got)
		p.Queue(protocol.CardDrawn(uint16(got)))
		from := protocol.NoCard
		if target != nil {
			from = target.ID
		}
		g.broadcast(protocol.CardAnimation(protocol.AnimSteal, from, p.ID))
	}
	p.sendHand()
	if target != nil {
		target.sendHand()
	}
	g.record(p, kinds[0], before)
	return nil
}

// matching reports whether the cards are all the same kind, treating feral
// cats as any cat.
func matching(kinds []Kind) bool {
	base, haveBase, feral := Kind(0), false, false
	for _, k := range kinds {
		if !k.Valid() {
			return false
		}
		if k == FeralCat {
			feral = true
			continue
		}
		if !haveBase {
			base, haveBase = k, true
		} else if k != base {
			return false
		}
	}
	return !feral || !haveBase || base.IsCat()
}

func distinct(kinds []Kind) bool {
	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		if !k.Valid() || seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}

func holdsAll(p *Player, kinds []Kind) bool {
	need := make(map[Kind]int, len(kinds))
	for _, k := range kinds {
		need[k]++
	}
	for k, n := range need {
		if p.holds(k) < n {
			return false
		}
	}
	return true
}
