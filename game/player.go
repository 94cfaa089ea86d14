package game

import (
	"slices"
	"sync"

	"kittens-server/protocol"
)

// Secret is the opaque credential a client presents during the handshake.
type Secret [protocol.SecretSize]byte

// Player is a registered participant. It outlives individual connections: a
// dropped connection leaves the Player (and its seat and hand) in place until
// it reconnects or its removal timer fires.
type Player struct {
	ID       uint16
	Secret   Secret
	Identity string // secret-derived, safe to log and persist

	mu   sync.Mutex // guards name and game
	name string
	game *Game

	// Hand is the player's cards. It is only touched while holding the lock of
	// the game the player is seated in.
	Hand []Kind

	queueMu sync.Mutex
	queue   []byte
	wake    chan struct{}

	// flushMu spans drain and delivery, so two connections of the same
	// player never interleave or reorder a flush.
	flushMu sync.Mutex
}

// NewPlayer creates a Player with an empty hand and queue.
func NewPlayer(id uint16, secret Secret, identity, name string) *Player {
	return &Player{
		ID:       id,
		Secret:   secret,
		Identity: identity,
		name:     name,
		wake:     make(chan struct{}, 1),
	}
}

// Name returns the display name.
func (p *Player) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// SetName updates the display name.
func (p *Player) SetName(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

// Game returns the game the player belongs to, or nil.
func (p *Player) Game() *Game {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.game
}

// SetGame records the player's current game. Only the lobby manager calls it.
func (p *Player) SetGame(g *Game) {
	p.mu.Lock()
	p.game = g
	p.mu.Unlock()
}

// Queue appends an encoded message to the outbound queue and signals the
// connection that there is something to flush.
func (p *Player) Queue(msg []byte) {
	p.queueMu.Lock()
	p.queue = append(p.queue, msg...)
	p.queueMu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// SendError queues an Error message.
func (p *Player) SendError(msg string) {
	p.Queue(protocol.Error(msg))
}

// Drain returns the queued bytes and empties the queue in one step, so no
// message appended concurrently can be both sent and kept.
func (p *Player) Drain() []byte {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	out := p.queue
	p.queue = nil
	return out
}

// Flush drains the queue and hands it to send as one frame. When send
// refuses the frame (its connection is already closed) the bytes go back to
// the front of the queue for the next connection.
func (p *Player) Flush(send func(frame []byte) bool) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()
	out := p.Drain()
	if len(out) == 0 || send(out) {
		return
	}
	p.queueMu.Lock()
	p.queue = append(out, p.queue...)
	p.queueMu.Unlock()
}

// Wake is signalled whenever something is queued.
func (p *Player) Wake() <-chan struct{} { return p.wake }

// entry is the wire representation used in player lists.
func (p *Player) entry() protocol.PlayerEntry {
	return protocol.PlayerEntry{ID: p.ID, Name: p.Name()}
}

// holds reports how many copies of k are in the hand.
func (p *Player) holds(k Kind) int {
	n := 0
	for _, c := range p.Hand {
		if c == k {
			n++
		}
	}
	return n
}

// take removes one copy of k from the hand.
func (p *Player) take(k Kind) bool {
	i := slices.Index(p.Hand, k)
	if i < 0 {
		return false
	}
	p.Hand = slices.Delete(p.Hand, i, i+1)
	return true
}

// SortedHand returns a copy of the hand in display order.
func (p *Player) SortedHand() []Kind {
	hand := slices.Clone(p.Hand)
	slices.Sort(hand)
	return hand
}

func (p *Player) sendHand() {
	hand := p.SortedHand()
	kinds := make([]uint16, len(hand))
	for i, k := range hand {
		kinds[i] = uint16(k)
	}
	p.Queue(protocol.CardsInfo(kinds))
}
