package game

import "kittens-server/matcherrors"

// Kind is a card kind. Its numeric value is what travels on the wire.
type Kind uint16

const (
	ExplodingKitten Kind = iota
	Defuse
	Tacocat
	Beardcat
	RainbowRalphingCat
	HairyPotatoCat
	Cattermelon
	Attack
	Favor
	Nope
	Shuffle
	Skip
	SeeTheFuture
	ImplodingKitten
	Reverse
	DrawFromBottom
	FeralCat
	AlterTheFuture
	TargetedAttack

	kindCount
)

// String returns the card name.
func (k Kind) String() string {
	switch k {
	case ExplodingKitten:
		return "exploding_kitten"
	case Defuse:
		return "defuse"
	case Tacocat:
		return "tacocat"
	case Beardcat:
		return "beardcat"
	case RainbowRalphingCat:
		return "rainbow_ralphing_cat"
	case HairyPotatoCat:
		return "hairy_potato_cat"
	case Cattermelon:
		return "cattermelon"
	case Attack:
		return "attack"
	case Favor:
		return "favor"
	case Nope:
		return "nope"
	case Shuffle:
		return "shuffle"
	case Skip:
		return "skip"
	case SeeTheFuture:
		return "see_the_future"
	case ImplodingKitten:
		return "imploding_kitten"
	case Reverse:
		return "reverse"
	case DrawFromBottom:
		return "draw_from_bottom"
	case FeralCat:
		return "feral_cat"
	case AlterTheFuture:
		return "alter_the_future"
	case TargetedAttack:
		return "targeted_attack"
	default:
		return "unknown"
	}
}

// Valid reports whether k names a known card kind.
func (k Kind) Valid() bool { return k < kindCount }

// IsCat reports whether k is a cat card usable in combos.
func (k Kind) IsCat() bool {
	switch k {
	case Tacocat, Beardcat, RainbowRalphingCat, HairyPotatoCat, Cattermelon, FeralCat:
		return true
	}
	return false
}

// Playable reports whether k may be played on its own with Play Card.
func (k Kind) Playable() bool {
	switch k {
	case ExplodingKitten, ImplodingKitten, Defuse:
		return false
	}
	return k.Valid()
}

// rule is one row of the deck composition table: PerTier copies of Kind for
// every tier, only when the alternate card set is enabled if Alternate is set.
type rule struct {
	Kind      Kind
	PerTier   int
	Alternate bool
}

var ruleTable = []rule{
	{Tacocat, 4, false},
	{Beardcat, 4, false},
	{RainbowRalphingCat, 4, false},
	{HairyPotatoCat, 4, false},
	{Cattermelon, 4, false},
	{Attack, 4, false},
	{Favor, 4, false},
	{Nope, 5, false},
	{Shuffle, 4, false},
	{Skip, 4, false},
	{SeeTheFuture, 5, false},

	{Reverse, 4, true},
	{DrawFromBottom, 4, true},
	{FeralCat, 4, true},
	{AlterTheFuture, 4, true},
	{TargetedAttack, 3, true},
}

const (
	// DefusesPerTier is the canonical number of defuses in one deck's worth of cards.
	DefusesPerTier = 6
	// OpeningHandSize is the number of cards drawn from the shared pool at deal time.
	OpeningHandSize = 4

	MinPlayers = 2
	MaxPlayers = 18
)

// Tier returns how many decks' worth of cards a game for the given number of
// players uses: 1 for 2-6 players, 2 for 7-12 and 3 for 13-18.
func Tier(players int) (int, error) {
	switch {
	case players < MinPlayers:
		return 0, matcherrors.ErrTooFewPlayers
	case players <= 6:
		return 1, nil
	case players <= 12:
		return 2, nil
	case players <= MaxPlayers:
		return 3, nil
	default:
		return 0, matcherrors.ErrNoTier
	}
}

// Composition returns the number of copies of each kind in the pre-deal pool
// (before defuses and exploding kittens are added).
func Composition(tier int, imploding, hasImploding bool) map[Kind]int {
	counts := make(map[Kind]int)
	for _, r := range ruleTable {
		if r.Alternate && !imploding {
			continue
		}
		counts[r.Kind] += r.PerTier * tier
	}
	if hasImploding {
		counts[ImplodingKitten]++
	}
	return counts
}

// CanonicalTotal is the total number of cards in play once a game for players
// seats has been dealt: the pre-deal pool, 6 defuses per tier and one exploding
// kitten per player but one.
func CanonicalTotal(players int, imploding, hasImploding bool) (int, error) {
	tier, err := Tier(players)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range Composition(tier, imploding, hasImploding) {
		total += n
	}
	return total + DefusesPerTier*tier + players - 1, nil
}
