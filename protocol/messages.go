package protocol

import (
	"fmt"

	"kittens-server/matcherrors"
)

// --- Upstream payloads ---

// Hello is the payload of OpSecret and OpReconnect.
type Hello struct {
	Secret [SecretSize]byte
	Name   string
}

// ReadHello decodes a handshake payload.
func ReadHello(r *Reader, maxName int) (Hello, error) {
	var h Hello
	copy(h.Secret[:], r.Bytes(SecretSize))
	h.Name = r.String(maxName)
	return h, r.Err()
}

// NewGame is the payload of OpNewGame.
type NewGame struct {
	Imploding    bool
	HasImploding bool
	PlayerLimit  uint16
}

// ReadNewGame decodes OpNewGame.
func ReadNewGame(r *Reader) (NewGame, error) {
	imploding, has := UnpackSettings(r.Byte())
	limit := r.Uint16()
	return NewGame{Imploding: imploding, HasImploding: has, PlayerLimit: limit}, r.Err()
}

// Combo is the payload of OpPlayCombo.
type Combo struct {
	Kinds  []uint16
	Target uint16
	Named  uint16
}

// MaxComboCards is the largest combo the protocol accepts.
const MaxComboCards = 5

// ReadCombo decodes OpPlayCombo.
func ReadCombo(r *Reader) (Combo, error) {
	var c Combo
	n := int(r.Byte())
	if r.Err() == nil && n > MaxComboCards {
		return c, fmt.Errorf("combo of %d cards: %w", n, matcherrors.ErrFieldTooLong)
	}
	c.Kinds = readKinds(r, n)
	c.Target = r.Uint16()
	c.Named = r.Uint16()
	return c, r.Err()
}

// ReadOrder decodes OpAlterTheFuture: a byte count followed by that many kinds.
func ReadOrder(r *Reader) ([]uint16, error) {
	n := int(r.Byte())
	if r.Err() == nil && n > PeekSize {
		return nil, fmt.Errorf("order of %d cards: %w", n, matcherrors.ErrFieldTooLong)
	}
	return readKinds(r, n), r.Err()
}

func readKinds(r *Reader, n int) []uint16 {
	kinds := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		kinds = append(kinds, r.Uint16())
	}
	return kinds
}

// --- Downstream messages ---

// PeekSize is the number of cards revealed by See the Future and Alter the Future.
const PeekSize = 3

// GameSummary is one entry of MsgListGames.
type GameSummary struct {
	ID           uint16
	Imploding    bool
	HasImploding bool
	Players      uint16
	PlayerLimit  uint16
	Owner        string
}

// PlayerEntry is one entry of the player info messages.
type PlayerEntry struct {
	ID   uint16
	Name string
}

// Pubkey announces the server key material.
func Pubkey(key []byte) []byte {
	return NewWriter(MsgPubkey).Raw(key).Bytes()
}

// Ack answers the handshake.
func Ack(ok bool) []byte {
	return NewWriter(MsgAck).Bool(ok).Bytes()
}

// ListGames encodes the open lobbies.
func ListGames(games []GameSummary) []byte {
	w := NewWriter(MsgListGames).Uint16(uint16(len(games)))
	for _, g := range games {
		w.Uint16(g.ID).
			Byte(PackSettings(g.Imploding, g.HasImploding)).
			Uint16(g.Players).
			Uint16(g.PlayerLimit).
			String(g.Owner)
	}
	return w.Bytes()
}

// JoinGame confirms a seat in the game.
func JoinGame(id uint16) []byte {
	return NewWriter(MsgJoinGame).Uint16(id).Bytes()
}

// PregameInfo describes a lobby's settings.
func PregameInfo(imploding, hasImploding bool, limit uint16) []byte {
	return NewWriter(MsgPregameInfo).Byte(PackSettings(imploding, hasImploding)).Uint16(limit).Bytes()
}

// PregamePlayerInfo lists a lobby's members in seat order.
func PregamePlayerInfo(players []PlayerEntry) []byte {
	return playerList(MsgPregamePlayerInfo, players)
}

// OngoingGameInfo describes a started game. distance is NoCard when the game
// has no imploding kitten.
func OngoingGameInfo(imploding, hasImploding bool, owner string, startUnix uint32, distance uint16) []byte {
	return NewWriter(MsgOngoingGameInfo).
		Byte(PackSettings(imploding, hasImploding)).
		String(owner).
		Uint32(startUnix).
		Uint16(distance).
		Bytes()
}

// OngoingGamePlayerInfo lists a started game's players in turn order.
func OngoingGamePlayerInfo(players []PlayerEntry) []byte {
	return playerList(MsgOngoingGamePlayerInfo, players)
}

func playerList(code byte, players []PlayerEntry) []byte {
	w := NewWriter(code).Uint16(uint16(len(players)))
	for _, p := range players {
		w.Uint16(p.ID).String(p.Name)
	}
	return w.Bytes()
}

// CardsInfo sends a player's hand.
func CardsInfo(kinds []uint16) []byte {
	w := NewWriter(MsgCardsInfo).Uint16(uint16(len(kinds)))
	for _, k := range kinds {
		w.Uint16(k)
	}
	return w.Bytes()
}

// Chat relays a chat line.
func Chat(playerID uint16, msg string) []byte {
	return NewWriter(MsgChat).Uint16(playerID).String(msg).Bytes()
}

// GameOver announces the winner.
func GameOver(winnerID uint16) []byte {
	return NewWriter(MsgGameOver).Uint16(winnerID).Bytes()
}

// Kick tells the game a player was kicked (and possibly banned).
func Kick(playerID uint16, ban bool) []byte {
	return NewWriter(MsgKick).Uint16(playerID).Bool(ban).Bytes()
}

// CardAnimation is the public notice of a card event.
func CardAnimation(class, kind, playerID uint16) []byte {
	return NewWriter(MsgCardAnimation).Uint16(class).Uint16(kind).Uint16(playerID).Bytes()
}

// SeeTheFuture reveals up to PeekSize cards; missing slots carry NoCard.
func SeeTheFuture(alter bool, kinds []uint16) []byte {
	w := NewWriter(MsgSeeTheFuture).Bool(alter)
	for i := 0; i < PeekSize; i++ {
		if i < len(kinds) {
			w.Uint16(kinds[i])
		} else {
			w.Uint16(NoCard)
		}
	}
	return w.Bytes()
}

// MakeOwner announces a new game owner.
func MakeOwner(playerID uint16) []byte {
	return NewWriter(MsgMakeOwner).Uint16(playerID).Bytes()
}

// Error reports a refused operation.
func Error(msg string) []byte {
	return NewWriter(MsgError).String(msg).Bytes()
}

// GameStarted announces that a lobby turned into a running game.
func GameStarted(id uint16) []byte {
	return NewWriter(MsgGameStarted).Uint16(id).Bytes()
}

// Turn announces whose turn it is and how many turns they owe.
func Turn(playerID, turnCount uint16, reversed bool, deckSize uint16) []byte {
	return NewWriter(MsgTurn).Uint16(playerID).Uint16(turnCount).Bool(reversed).Uint16(deckSize).Bytes()
}

// CardDrawn privately tells a player which card they drew.
func CardDrawn(kind uint16) []byte {
	return NewWriter(MsgCardDrawn).Uint16(kind).Bytes()
}

// PlayerEliminated announces an elimination.
func PlayerEliminated(playerID uint16) []byte {
	return NewWriter(MsgPlayerEliminated).Uint16(playerID).Bytes()
}
