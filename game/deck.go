package game

import (
	"math/rand"
	"slices"
)

// Deal is the result of building a deck for a set of players.
type Deal struct {
	// Deck is the draw pile; index 0 is the top card.
	Deck []Kind
	// Hands holds one opening hand per player, in seat order.
	Hands [][]Kind
	// ImplosionDistance is the 1-based position of the imploding kitten from
	// the top of Deck, or 0 when the game has none.
	ImplosionDistance int
}

// BuildDeck builds, shuffles and deals a deck for the given number of players.
// It fails for fewer than two players and for player counts with no tier.
func BuildDeck(rng *rand.Rand, players int, imploding, hasImploding bool) (*Deal, error) {
	tier, err := Tier(players)
	if err != nil {
		return nil, err
	}

	counts := Composition(tier, imploding, hasImploding)
	deck := make([]Kind, 0, 64*tier)
	for k := Kind(0); k < kindCount; k++ {
		if k == ImplodingKitten {
			continue
		}
		for i := 0; i < counts[k]; i++ {
			deck = append(deck, k)
		}
	}
	shuffle(rng, deck)

	hands := make([][]Kind, players)
	for i := range hands {
		hand := make([]Kind, 0, OpeningHandSize+1)
		hand = append(hand, deck[:OpeningHandSize]...)
		deck = deck[OpeningHandSize:]
		// The defuse is minted rather than drawn from the pool.
		hands[i] = append(hand, Defuse)
	}

	// Kittens of both sorts join after the deal so no opening hand holds one.
	for i := 0; i < players-1; i++ {
		deck = append(deck, ExplodingKitten)
	}
	if hasImploding {
		deck = append(deck, ImplodingKitten)
	}
	for i := 0; i < DefusesPerTier*tier-players; i++ {
		deck = append(deck, Defuse)
	}
	shuffle(rng, deck)

	return &Deal{
		Deck:              deck,
		Hands:             hands,
		ImplosionDistance: implosionDistance(deck, hasImploding),
	}, nil
}

func shuffle(rng *rand.Rand, cards []Kind) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

func implosionDistance(deck []Kind, hasImploding bool) int {
	if !hasImploding {
		return 0
	}
	return slices.Index(deck, ImplodingKitten) + 1
}
