package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kittens-server/matcherrors"
	"kittens-server/protocol"
)

func TestAdvanceTurn_Wraps(t *testing.T) {
	g, players := newStartedGame(t, 3)
	for i := 1; i <= 3; i++ {
		g.AdvanceTurn()
		assert.Equal(t, players[i%3], g.Current())
	}
}

func TestPlayCard_Refusals(t *testing.T) {
	g, players := newStartedGame(t, 3)
	players[0].Hand = []Kind{Skip, Defuse}
	players[1].Hand = []Kind{Skip}
	total := g.CardCount()

	assert.ErrorIs(t, g.PlayCard(players[1], Skip), matcherrors.ErrNotYourTurn)
	assert.ErrorIs(t, g.PlayCard(players[0], Defuse), matcherrors.ErrCardNotPlayable)
	assert.ErrorIs(t, g.PlayCard(players[0], Attack), matcherrors.ErrCardNotHeld)

	assert.Equal(t, players[0], g.Current())
	assert.Equal(t, []Kind{Skip, Defuse}, players[0].Hand)
	assert.Equal(t, total, g.CardCount())
}

func TestPlayCard_NotStarted(t *testing.T) {
	g, players := newLobby(t, 2, 2)
	assert.ErrorIs(t, g.PlayCard(players[0], Skip), matcherrors.ErrGameNotStarted)
}

func TestReverseTwiceRestoresDirection(t *testing.T) {
	g, players := newStartedGame(t, 3)
	players[0].Hand = []Kind{Reverse}
	players[2].Hand = []Kind{Reverse}

	require.NoError(t, g.PlayCard(players[0], Reverse))
	assert.Equal(t, -1, g.TurnDirection)
	assert.Equal(t, players[2], g.Current())

	require.NoError(t, g.PlayCard(players[2], Reverse))
	assert.Equal(t, 1, g.TurnDirection)
	assert.Equal(t, players[0], g.Current())
}

func TestAttack_StacksByTwo(t *testing.T) {
	g, players := newStartedGame(t, 3)
	players[0].Hand = []Kind{Attack}
	players[1].Hand = []Kind{Attack}

	require.NoError(t, g.PlayCard(players[0], Attack))
	assert.Equal(t, players[1], g.Current())
	assert.Equal(t, 2, g.TurnCount)

	require.NoError(t, g.PlayCard(players[1], Attack))
	assert.Equal(t, players[2], g.Current())
	assert.Equal(t, 4, g.TurnCount)
}

func TestAttack_OwedTurnsConsumedByDraws(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = []Kind{Attack}
	g.Deck = []Kind{Tacocat, Beardcat, Cattermelon}

	require.NoError(t, g.PlayCard(players[0], Attack))
	require.NoError(t, g.Draw(players[1]))
	assert.Equal(t, players[1], g.Current())
	assert.Equal(t, 1, g.TurnCount)
	require.NoError(t, g.Draw(players[1]))
	assert.Equal(t, players[0], g.Current())
}

func TestTargetedAttack(t *testing.T) {
	g, players := newStartedGame(t, 4)
	players[0].Hand = []Kind{TargetedAttack, TargetedAttack}

	assert.ErrorIs(t, g.PlayCard(players[0], TargetedAttack), matcherrors.ErrInvalidTarget)
	assert.ErrorIs(t, g.PlayTargetedAttack(players[0], players[0].ID), matcherrors.ErrInvalidTarget)
	assert.ErrorIs(t, g.PlayTargetedAttack(players[0], 77), matcherrors.ErrPlayerNotFound)

	require.NoError(t, g.PlayTargetedAttack(players[0], players[2].ID))
	assert.Equal(t, players[2], g.Current())
	assert.Equal(t, 2, g.TurnCount)
	assert.Equal(t, TargetedAttack, g.DiscardPile[len(g.DiscardPile)-1])
}

func TestSkipAndShuffle(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = []Kind{Shuffle}
	players[1].Hand = []Kind{Skip}
	deck := len(g.Deck)

	require.NoError(t, g.PlayCard(players[0], Shuffle))
	assert.Len(t, g.Deck, deck)
	assert.Equal(t, players[1], g.Current())

	require.NoError(t, g.PlayCard(players[1], Skip))
	assert.Equal(t, players[0], g.Current())
	assert.Equal(t, []Kind{Shuffle, Skip}, g.DiscardPile)
}

func TestDraw_PlainCard(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = nil
	g.Deck = []Kind{Favor, ExplodingKitten}

	require.NoError(t, g.Draw(players[0]))
	assert.Equal(t, []Kind{Favor}, players[0].Hand)
	assert.Equal(t, []Kind{ExplodingKitten}, g.Deck)
	assert.Equal(t, players[1], g.Current())
	assert.True(t, received(players[0], protocol.CardDrawn(uint16(Favor))))
}

func TestDraw_ExplodingKittenDefused(t *testing.T) {
	g, players := newStartedGame(t, 3)
	players[0].Hand = []Kind{Defuse, Skip}
	g.Deck = []Kind{ExplodingKitten, Tacocat, Beardcat}
	g.DiscardPile = nil
	total := g.CardCount()

	require.NoError(t, g.Draw(players[0]))
	assert.Equal(t, players[0], g.Current())
	assert.ErrorIs(t, g.Draw(players[0]), matcherrors.ErrAwaitingAction)
	assert.ErrorIs(t, g.PlayCard(players[0], Skip), matcherrors.ErrAwaitingAction)
	assert.ErrorIs(t, g.Defuse(players[1], 0), matcherrors.ErrNothingPending)

	require.NoError(t, g.Defuse(players[0], 99))
	assert.Equal(t, []Kind{Tacocat, Beardcat, ExplodingKitten}, g.Deck)
	assert.Equal(t, []Kind{Skip}, players[0].Hand)
	assert.Equal(t, []Kind{Defuse}, g.DiscardPile)
	assert.Equal(t, players[1], g.Current())
	assert.Equal(t, total, g.CardCount())
}

func TestDraw_ExplodingKittenWithoutDefuse(t *testing.T) {
	g, players := newStartedGame(t, 2)
	var finished *Game
	g.OnFinish = func(g *Game) { finished = g }
	players[0].Hand = []Kind{Skip, Tacocat}
	g.Deck = []Kind{ExplodingKitten, Beardcat}
	total := g.CardCount()

	require.NoError(t, g.Draw(players[0]))

	assert.True(t, g.Finished)
	assert.Equal(t, players[1], g.Winner)
	assert.Equal(t, g, finished)
	assert.Equal(t, []*Player{players[0]}, g.Spectators)
	assert.Empty(t, players[0].Hand)
	assert.Contains(t, g.DiscardPile, ExplodingKitten)
	assert.Equal(t, total, g.CardCount())
	assert.True(t, received(players[1], protocol.GameOver(players[1].ID)))
	assert.ErrorIs(t, g.Draw(players[1]), matcherrors.ErrGameFinished)
}

func TestDraw_EliminationPassesTurn(t *testing.T) {
	g, players := newStartedGame(t, 3)
	players[1].Hand = nil
	g.AdvanceTurn()
	g.Deck = []Kind{ExplodingKitten, Tacocat}

	require.NoError(t, g.Draw(players[1]))

	assert.Equal(t, []*Player{players[0], players[2]}, g.Players)
	assert.Equal(t, players[2], g.Current())
	assert.False(t, g.Finished)
}

func TestDraw_ImplodingKitten(t *testing.T) {
	g, players := newStartedGame(t, 3)
	g.HasImploding = true
	players[0].Hand = []Kind{Defuse}
	g.Deck = []Kind{ImplodingKitten, Tacocat, Beardcat}
	g.deckChanged()
	assert.Equal(t, 1, g.ImplosionDistance)

	require.NoError(t, g.Draw(players[0]))
	assert.Zero(t, g.ImplosionDistance)
	require.NoError(t, g.Defuse(players[0], 1))
	assert.Equal(t, []Kind{Defuse}, players[0].Hand, "a revealed imploding kitten costs no defuse")
	assert.Equal(t, 2, g.ImplosionDistance)
	assert.Equal(t, players[1], g.Current())

	require.NoError(t, g.Draw(players[1]))
	require.NoError(t, g.Draw(players[2]))
	assert.Contains(t, g.Spectators, players[2], "the face-up imploding kitten cannot be defused")
	assert.Contains(t, g.DiscardPile, ImplodingKitten)
}

func TestDrawFromBottom(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = []Kind{DrawFromBottom}
	g.Deck = []Kind{ExplodingKitten, Nope}

	require.NoError(t, g.PlayCard(players[0], DrawFromBottom))
	assert.Equal(t, []Kind{Nope}, players[0].Hand)
	assert.Equal(t, []Kind{ExplodingKitten}, g.Deck)
	assert.Equal(t, players[1], g.Current())
}

func TestSeeTheFuture(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = []Kind{SeeTheFuture}
	g.Deck = []Kind{Tacocat, ExplodingKitten}

	require.NoError(t, g.PlayCard(players[0], SeeTheFuture))
	want := protocol.SeeTheFuture(false, []uint16{uint16(Tacocat), uint16(ExplodingKitten)})
	assert.True(t, received(players[0], want))
	assert.False(t, received(players[1], want))
	assert.Equal(t, players[0], g.Current())
	assert.ErrorIs(t, g.Draw(players[0]), matcherrors.ErrAwaitingAction)

	assert.ErrorIs(t, g.AcknowledgePeek(players[0], []Kind{Tacocat}), matcherrors.ErrInvalidOrder)
	require.NoError(t, g.AcknowledgePeek(players[0], nil))
	assert.Equal(t, players[1], g.Current())
	assert.Equal(t, []Kind{Tacocat, ExplodingKitten}, g.Deck)
	assert.ErrorIs(t, g.AcknowledgePeek(players[0], nil), matcherrors.ErrNothingPending)
}

func TestAlterTheFuture(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = []Kind{AlterTheFuture}
	g.Deck = []Kind{Tacocat, ExplodingKitten, Skip, Favor}

	require.NoError(t, g.PlayCard(players[0], AlterTheFuture))
	assert.ErrorIs(t, g.AcknowledgePeek(players[0], nil), matcherrors.ErrInvalidOrder)
	assert.ErrorIs(t, g.AcknowledgePeek(players[0], []Kind{Skip, Skip, Tacocat}), matcherrors.ErrInvalidOrder)

	require.NoError(t, g.AcknowledgePeek(players[0], []Kind{Skip, Tacocat, ExplodingKitten}))
	assert.Equal(t, []Kind{Skip, Tacocat, ExplodingKitten, Favor}, g.Deck)
	assert.Equal(t, players[1], g.Current())
}

func TestDie(t *testing.T) {
	g, players := newStartedGame(t, 3)
	total := g.CardCount()

	require.NoError(t, g.Die(players[2]))
	assert.Equal(t, []*Player{players[0], players[1]}, g.Players)
	assert.Equal(t, players[0], g.Current())
	assert.Equal(t, total, g.CardCount())
	assert.ErrorIs(t, g.Die(players[2]), matcherrors.ErrNotInGame)
}

func TestRemovePlayer(t *testing.T) {
	t.Run("before the current seat", func(t *testing.T) {
		g, players := newStartedGame(t, 4)
		g.AdvanceTurn()
		g.AdvanceTurn()
		require.NoError(t, g.RemovePlayer(players[0]))
		assert.Equal(t, players[2], g.Current())
	})
	t.Run("current seat passes forward", func(t *testing.T) {
		g, players := newStartedGame(t, 4)
		players[0].Hand = []Kind{Attack}
		require.NoError(t, g.PlayCard(players[0], Attack))
		require.NoError(t, g.RemovePlayer(players[1]))
		assert.Equal(t, players[2], g.Current())
		assert.Equal(t, 1, g.TurnCount)
	})
	t.Run("current seat passes backward", func(t *testing.T) {
		g, players := newStartedGame(t, 4)
		players[0].Hand = []Kind{Reverse}
		require.NoError(t, g.PlayCard(players[0], Reverse))
		require.NoError(t, g.RemovePlayer(players[3]))
		assert.Equal(t, players[2], g.Current())
	})
	t.Run("last seat wraps", func(t *testing.T) {
		g, players := newStartedGame(t, 3)
		g.AdvanceTurn()
		g.AdvanceTurn()
		require.NoError(t, g.RemovePlayer(players[2]))
		assert.Equal(t, players[0], g.Current())
	})
	t.Run("last opponent leaving ends the game", func(t *testing.T) {
		g, players := newStartedGame(t, 2)
		total := g.CardCount()
		require.NoError(t, g.RemovePlayer(players[0]))
		assert.True(t, g.Finished)
		assert.Equal(t, players[1], g.Winner)
		assert.Equal(t, players[1], g.Owner)
		assert.Equal(t, total, g.CardCount())
	})
	t.Run("lobby refused", func(t *testing.T) {
		g, players := newLobby(t, 2, 2)
		assert.ErrorIs(t, g.RemovePlayer(players[1]), matcherrors.ErrGameNotStarted)
	})
}

func TestCardCountConserved(t *testing.T) {
	g, players := newStartedGame(t, 5)
	total := g.CardCount()

	for step := 0; step < 200 && !g.Finished; step++ {
		p := g.Current()
		switch {
		case g.pending != nil:
			require.NoError(t, g.Defuse(p, step%7))
		case p.holds(Skip) > 0:
			require.NoError(t, g.PlayCard(p, Skip))
		case p.holds(Nope) > 0 && g.last != nil:
			require.NoError(t, g.PlayCard(p, Nope))
		default:
			require.NoError(t, g.Draw(p))
		}
		require.Equal(t, total, g.CardCount(), "step %d", step)
	}
	_ = players
}

func TestFavor_TargetHandsOverCard(t *testing.T) {
	g, players := newStartedGame(t, 3)
	players[0].Hand = []Kind{Favor}
	players[1].Hand = []Kind{Skip, Tacocat}
	total := g.CardCount()

	require.NoError(t, g.PlayFavor(players[0], players[1].ID))
	assert.True(t, received(players[1], protocol.CardAnimation(protocol.AnimFavor, players[1].ID, players[0].ID)))
	assert.ErrorIs(t, g.Draw(players[0]), matcherrors.ErrAwaitingAction)
	assert.ErrorIs(t, g.ReturnFavor(players[0], Favor), matcherrors.ErrNothingPending)
	assert.ErrorIs(t, g.ReturnFavor(players[2], Skip), matcherrors.ErrNothingPending)
	assert.ErrorIs(t, g.ReturnFavor(players[1], Attack), matcherrors.ErrCardNotHeld)

	require.NoError(t, g.ReturnFavor(players[1], Tacocat))
	assert.Equal(t, []Kind{Tacocat}, players[0].Hand)
	assert.Equal(t, []Kind{Skip}, players[1].Hand)
	assert.True(t, received(players[0], protocol.CardDrawn(uint16(Tacocat))))
	assert.Equal(t, players[0], g.Current(), "a favor does not end the turn")
	assert.Equal(t, total, g.CardCount())
	assert.ErrorIs(t, g.ReturnFavor(players[1], Skip), matcherrors.ErrNothingPending)
	require.NoError(t, g.Draw(players[0]))
}

func TestFavor_Refusals(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = []Kind{Favor}

	assert.ErrorIs(t, g.PlayCard(players[0], Favor), matcherrors.ErrInvalidTarget)
	assert.ErrorIs(t, g.PlayFavor(players[0], players[0].ID), matcherrors.ErrInvalidTarget)
	assert.ErrorIs(t, g.PlayFavor(players[0], 99), matcherrors.ErrPlayerNotFound)
	assert.ErrorIs(t, g.PlayFavor(players[1], players[0].ID), matcherrors.ErrNotYourTurn)
	assert.Equal(t, []Kind{Favor}, players[0].Hand)

	players[0].Hand = nil
	assert.ErrorIs(t, g.PlayFavor(players[0], players[1].ID), matcherrors.ErrCardNotHeld)
}

func TestFavor_EmptyHandGivesNothing(t *testing.T) {
	g, players := newStartedGame(t, 2)
	players[0].Hand = []Kind{Favor}
	players[1].Hand = nil

	require.NoError(t, g.PlayFavor(players[0], players[1].ID))
	assert.Empty(t, players[0].Hand)
	require.NoError(t, g.Draw(players[0]), "nothing is pending")
}

func TestFavor_TargetLeavingClearsPending(t *testing.T) {
	g, players := newStartedGame(t, 3)
	players[0].Hand = []Kind{Favor}
	players[2].Hand = []Kind{Skip}

	require.NoError(t, g.PlayFavor(players[0], players[2].ID))
	require.NoError(t, g.Die(players[2]))
	require.NoError(t, g.Draw(players[0]))
}
