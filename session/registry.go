// Package session keeps track of registered players across connections:
// credential lookup, connection binding and the removal timer that runs while
// a player is disconnected.
package session

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"kittens-server/game"
	"kittens-server/matcherrors"
	"kittens-server/metrics"
)

// Closer is the part of a connection the registry needs: it closes a
// connection that has been superseded by a reconnection.
type Closer interface {
	Close()
}

type entry struct {
	player *game.Player
	conn   Closer // nil while disconnected
	token  uint64
	timer  *time.Timer
	gen    uint64 // bumped on every schedule and cancel
}

// Registry maps credentials to players. It is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	bySecret  map[game.Secret]*entry
	byID      map[uint16]*entry
	lastID    uint16
	lastToken uint64
	closed    bool

	grace    time.Duration
	identity func(secret []byte) string
	logger   *zap.Logger

	// OnExpire runs, without the registry lock, after a disconnected player's
	// grace period has elapsed and the player has been purged.
	OnExpire func(p *game.Player)
}

// NewRegistry creates an empty registry. identity derives the ban and history
// identity of a secret.
func NewRegistry(grace time.Duration, identity func(secret []byte) string, logger *zap.Logger) *Registry {
	return &Registry{
		bySecret: make(map[game.Secret]*entry),
		byID:     make(map[uint16]*entry),
		grace:    grace,
		identity: identity,
		logger:   logger.Named("session"),
	}
}

// Authenticate registers a new player for secret and binds it to conn. A
// credential that is already registered is refused; the client has to use
// Reconnect instead. The returned token identifies this binding in Disconnect.
func (r *Registry) Authenticate(secret game.Secret, name string, conn Closer) (*game.Player, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySecret[secret]; ok {
		return nil, 0, matcherrors.ErrCredentialInUse
	}
	if r.lastID == math.MaxUint16 {
		return nil, 0, matcherrors.ErrRegistryFull
	}
	r.lastID++
	p := game.NewPlayer(r.lastID, secret, r.identity(secret[:]), name)
	r.lastToken++
	e := &entry{player: p, conn: conn, token: r.lastToken}
	r.bySecret[secret] = e
	r.byID[p.ID] = e
	metrics.PlayersRegistered.Set(float64(len(r.bySecret)))
	r.logger.Info("player registered", zap.Uint16("player", p.ID), zap.String("name", name))
	return p, e.token, nil
}

// Reconnect rebinds a registered player to conn: any pending removal is
// cancelled, a still-open previous connection is closed and the name is
// updated.
func (r *Registry) Reconnect(secret game.Secret, name string, conn Closer) (*game.Player, uint64, error) {
	r.mu.Lock()
	e, ok := r.bySecret[secret]
	if !ok {
		r.mu.Unlock()
		return nil, 0, matcherrors.ErrUnknownCredential
	}
	r.cancelRemoval(e)
	old := e.conn
	e.conn = conn
	r.lastToken++
	e.token = r.lastToken
	token := e.token
	p := e.player
	r.mu.Unlock()

	p.SetName(name)
	if old != nil && old != conn {
		old.Close()
	}
	metrics.Reconnects.Inc()
	r.logger.Info("player reconnected", zap.Uint16("player", p.ID), zap.String("name", name))
	return p, token, nil
}

// Disconnect unbinds p's connection and schedules its removal. It is a no-op
// when token is stale, i.e. p has already reconnected on another connection.
func (r *Registry) Disconnect(p *game.Player, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[p.ID]
	if !ok || e.player != p || e.token != token {
		return
	}
	e.conn = nil
	r.schedule(e)
}

// ScheduleRemoval (re)starts the removal timer of p.
func (r *Registry) ScheduleRemoval(p *game.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[p.ID]; ok && e.player == p {
		r.schedule(e)
	}
}

func (r *Registry) schedule(e *entry) {
	if r.closed {
		return
	}
	r.cancelRemoval(e)
	gen := e.gen
	secret := e.player.Secret
	e.timer = time.AfterFunc(r.grace, func() { r.expire(secret, gen) })
	r.logger.Debug("removal scheduled", zap.Uint16("player", e.player.ID), zap.Duration("grace", r.grace))
}

func (r *Registry) cancelRemoval(e *entry) {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (r *Registry) expire(secret game.Secret, gen uint64) {
	r.mu.Lock()
	e, ok := r.bySecret[secret]
	if !ok || e.gen != gen || e.conn != nil {
		r.mu.Unlock()
		return
	}
	delete(r.bySecret, secret)
	delete(r.byID, e.player.ID)
	metrics.PlayersRegistered.Set(float64(len(r.bySecret)))
	hook := r.OnExpire
	r.mu.Unlock()

	metrics.Expirations.Inc()
	r.logger.Info("player expired", zap.Uint16("player", e.player.ID))
	if hook != nil {
		hook(e.player)
	}
}

// Lookup returns the registered player with the given id.
func (r *Registry) Lookup(id uint16) (*game.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.player, true
}

// Connected reports whether p currently has a bound connection.
func (r *Registry) Connected(p *game.Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[p.ID]
	return ok && e.player == p && e.conn != nil
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySecret)
}

// Close stops every pending removal timer. Registrations stay readable.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, e := range r.bySecret {
		r.cancelRemoval(e)
	}
}
