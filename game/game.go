package game

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"kittens-server/matcherrors"
	"kittens-server/protocol"
)

// pendingKind enumerates the interactions that suspend turn advancement until
// the acting player sends a follow-up message.
type pendingKind int

const (
	pendingPeek    pendingKind = iota // See the Future: waiting for End Turn
	pendingAlter                      // Alter the Future: waiting for a new order
	pendingDefuse                     // exploding kitten drawn: waiting for a position
	pendingImplode                    // imploding kitten turned face up: waiting for a position
	pendingFavor                      // Favor: waiting for the target to hand over a card
)

type pending struct {
	kind     pendingKind
	player   *Player
	revealed []Kind  // peeks only
	card     Kind    // placements only
	from     *Player // favors only: who receives the card
}

// Game is one lobby or running game. All fields are guarded by mu; the
// exported methods take the lock themselves.
type Game struct {
	ID uint16

	mu sync.Mutex

	// Owner is the player who may start, shuffle and kick. It is the creator
	// until they leave, then passes to the first remaining seat.
	Owner *Player

	Players     []*Player // seat order is turn order
	Spectators  []*Player // eliminated players still watching
	Banned      map[string]bool
	PlayerLimit int

	Imploding    bool // alternate card set
	HasImploding bool // extra imploding kitten

	Deck        []Kind // index 0 is the top
	DiscardPile []Kind

	Turn          int
	TurnCount     int
	TurnDirection int

	// ImplosionDistance is the 1-based position of the imploding kitten from
	// the top of the deck; 0 when it is not in the deck.
	ImplosionDistance int
	implodingFaceUp   bool

	Started   bool
	Finished  bool
	StartedAt time.Time
	Seats     int // players dealt in at the start
	Winner    *Player

	Seed int64
	rng  *rand.Rand

	pending *pending
	last    *nopeable

	// OnFinish runs with the game lock held once a winner is known. It must
	// not call back into the game or the lobby.
	OnFinish func(g *Game)
}

// NewGame creates a lobby owned by owner. seed drives every random choice the
// game makes, so a game can be replayed from its seed and its inputs.
func NewGame(id uint16, owner *Player, playerLimit int, imploding, hasImploding bool, seed int64) *Game {
	return &Game{
		ID:            id,
		Owner:         owner,
		Players:       []*Player{owner},
		Banned:        make(map[string]bool),
		PlayerLimit:   playerLimit,
		Imploding:     imploding,
		HasImploding:  hasImploding,
		TurnCount:     1,
		TurnDirection: 1,
		Seed:          seed,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Summary returns the List Games entry for the game.
func (g *Game) Summary() protocol.GameSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	owner := ""
	if g.Owner != nil {
		owner = g.Owner.Name()
	}
	return protocol.GameSummary{
		ID:           g.ID,
		Imploding:    g.Imploding,
		HasImploding: g.HasImploding,
		Players:      uint16(len(g.Players)),
		PlayerLimit:  uint16(g.PlayerLimit),
		Owner:        owner,
	}
}

// Status reports the lifecycle flags.
func (g *Game) Status() (started, finished bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Started, g.Finished
}

// Empty reports whether nobody is seated or watching.
func (g *Game) Empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Players) == 0 && len(g.Spectators) == 0
}

// Seat adds p to a lobby that has not started.
func (g *Game) Seat(p *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.Started:
		return matcherrors.ErrGameStarted
	case g.Banned[p.Identity]:
		return matcherrors.ErrBanned
	case slices.Contains(g.Players, p):
		return matcherrors.ErrAlreadyInGame
	case len(g.Players) >= g.PlayerLimit:
		return matcherrors.ErrGameFull
	}
	g.Players = append(g.Players, p)
	p.Queue(protocol.JoinGame(g.ID))
	g.broadcastLobby()
	return nil
}

// Unseat removes p from a lobby or from a finished game, or drops a
// spectator. Players of a running game leave through RemovePlayer.
func (g *Game) Unseat(p *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i := slices.Index(g.Spectators, p); i >= 0 {
		g.Spectators = slices.Delete(g.Spectators, i, i+1)
		return nil
	}
	i := slices.Index(g.Players, p)
	if i < 0 {
		return matcherrors.ErrNotInGame
	}
	if g.Started && !g.Finished {
		return matcherrors.ErrGameStarted
	}
	g.Players = slices.Delete(g.Players, i, i+1)
	g.reassignOwner(p)
	if !g.Started {
		g.broadcastLobby()
	}
	return nil
}

// ShuffleTurnOrder randomly permutes the seats. Lobby only.
func (g *Game) ShuffleTurnOrder(by *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if by != g.Owner {
		return matcherrors.ErrNotOwner
	}
	if g.Started {
		return matcherrors.ErrGameStarted
	}
	g.rng.Shuffle(len(g.Players), func(i, j int) {
		g.Players[i], g.Players[j] = g.Players[j], g.Players[i]
	})
	g.broadcastLobby()
	return nil
}

// Start deals the cards and turns the lobby into a running game. It can
// succeed only once.
func (g *Game) Start(by *Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if by != g.Owner {
		return matcherrors.ErrNotOwner
	}
	if g.Started {
		return matcherrors.ErrGameStarted
	}
	if len(g.Players) < MinPlayers {
		return matcherrors.ErrNotEnoughPlayers
	}
	deal, err := BuildDeck(g.rng, len(g.Players), g.Imploding, g.HasImploding)
	if err != nil {
		return err
	}
	for i, p := range g.Players {
		p.Hand = deal.Hands[i]
	}
	g.Deck = deal.Deck
	g.ImplosionDistance = deal.ImplosionDistance
	g.Started = true
	g.StartedAt = time.Now()
	g.Seats = len(g.Players)
	g.Turn = 0
	g.TurnCount = 1
	g.TurnDirection = 1

	g.broadcast(protocol.GameStarted(g.ID))
	for _, p := range g.Players {
		g.sendGameInfo(p)
	}
	return nil
}

// Kick removes target from the game on the owner's behalf, banning their
// identity when ban is set. It returns the removed player.
func (g *Game) Kick(by *Player, targetID uint16, ban bool) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if by != g.Owner {
		return nil, matcherrors.ErrNotOwner
	}
	target := g.seatByID(targetID)
	if target == nil {
		return nil, matcherrors.ErrPlayerNotFound
	}
	if target == by {
		return nil, matcherrors.ErrInvalidTarget
	}
	if ban {
		g.Banned[target.Identity] = true
	}
	msg := protocol.Kick(target.ID, ban)
	g.broadcast(msg)
	if g.Started && !g.Finished {
		g.removePlayer(target)
		return target, nil
	}
	i := slices.Index(g.Players, target)
	g.Players = slices.Delete(g.Players, i, i+1)
	if !g.Started {
		g.broadcastLobby()
	}
	return target, nil
}

// Chat relays a message to everyone in the game.
func (g *Game) Chat(from *Player, msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcast(protocol.Chat(from.ID, msg))
}

// Resync queues everything p needs to rebuild its view, used after a
// reconnection.
func (g *Game) Resync(p *Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.Started {
		p.Queue(protocol.PregameInfo(g.Imploding, g.HasImploding, uint16(g.PlayerLimit)))
		p.Queue(protocol.PregamePlayerInfo(entries(g.Players)))
		return
	}
	g.sendGameInfo(p)
	if g.pending == nil || g.pending.player != p {
		return
	}
	switch g.pending.kind {
	case pendingPeek, pendingAlter:
		p.Queue(protocol.SeeTheFuture(g.pending.kind == pendingAlter, kindsToWire(g.pending.revealed)))
	case pendingDefuse, pendingImplode:
		p.Queue(protocol.CardDrawn(uint16(g.pending.card)))
	case pendingFavor:
		p.Queue(protocol.CardAnimation(protocol.AnimFavor, p.ID, g.pending.from.ID))
	}
}

// CardCount is the number of cards in the deck, the discard pile and every
// hand. It never changes once the game has started.
func (g *Game) CardCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.Deck) + len(g.DiscardPile)
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	for _, p := range g.Spectators {
		n += len(p.Hand)
	}
	return n
}

// Current returns the player whose turn it is, or nil before the start.
func (g *Game) Current() *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current()
}

func (g *Game) current() *Player {
	if !g.Started || len(g.Players) == 0 {
		return nil
	}
	return g.Players[g.Turn]
}

func (g *Game) seatByID(id uint16) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) reassignOwner(leaving *Player) {
	if leaving != g.Owner {
		return
	}
	g.Owner = nil
	if len(g.Players) > 0 {
		g.Owner = g.Players[0]
		g.broadcast(protocol.MakeOwner(g.Owner.ID))
	}
}

func (g *Game) audience() []*Player {
	out := make([]*Player, 0, len(g.Players)+len(g.Spectators))
	out = append(out, g.Players...)
	return append(out, g.Spectators...)
}

func (g *Game) broadcast(msg []byte) {
	for _, p := range g.audience() {
		p.Queue(msg)
	}
}

func (g *Game) broadcastLobby() {
	info := protocol.PregameInfo(g.Imploding, g.HasImploding, uint16(g.PlayerLimit))
	list := protocol.PregamePlayerInfo(entries(g.Players))
	for _, p := range g.Players {
		p.Queue(info)
		p.Queue(list)
	}
}

func (g *Game) broadcastTurn() {
	cur := g.current()
	if cur == nil || g.Finished {
		return
	}
	g.broadcast(protocol.Turn(cur.ID, uint16(g.TurnCount), g.TurnDirection < 0, uint16(len(g.Deck))))
}

func (g *Game) sendGameInfo(p *Player) {
	owner := ""
	if g.Owner != nil {
		owner = g.Owner.Name()
	}
	distance := protocol.NoCard
	if g.ImplosionDistance > 0 {
		distance = uint16(g.ImplosionDistance)
	}
	p.Queue(protocol.OngoingGameInfo(g.Imploding, g.HasImploding, owner, uint32(g.StartedAt.Unix()), distance))
	p.Queue(protocol.OngoingGamePlayerInfo(entries(g.Players)))
	p.sendHand()
	if cur := g.current(); cur != nil && !g.Finished {
		p.Queue(protocol.Turn(cur.ID, uint16(g.TurnCount), g.TurnDirection < 0, uint16(len(g.Deck))))
	}
	if g.Finished && g.Winner != nil {
		p.Queue(protocol.GameOver(g.Winner.ID))
	}
}

func entries(players []*Player) []protocol.PlayerEntry {
	out := make([]protocol.PlayerEntry, len(players))
	for i, p := range players {
		out[i] = p.entry()
	}
	return out
}

func kindsToWire(kinds []Kind) []uint16 {
	out := make([]uint16, len(kinds))
	for i, k := range kinds {
		out[i] = uint16(k)
	}
	return out
}
