// Package lobby owns the set of games: creating them, seating players and
// taking them out again.
package lobby

import (
	"errors"
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"kittens-server/game"
	"kittens-server/matcherrors"
	"kittens-server/metrics"
	"kittens-server/protocol"
)

// Manager is the game registry. Its lock is always taken before any game lock.
type Manager struct {
	mu     sync.Mutex
	games  map[uint16]*game.Game
	lastID uint16

	seed   func() int64
	logger *zap.Logger

	// OnFinish runs with the finished game's lock held; it may read the game's
	// fields directly but must not call its methods.
	OnFinish func(g *game.Game)
}

// NewManager creates an empty registry. seed supplies the RNG seed of each new
// game; nil seeds from the clock.
func NewManager(logger *zap.Logger, seed func() int64) *Manager {
	if seed == nil {
		seed = func() int64 { return time.Now().UnixNano() }
	}
	return &Manager{
		games:  make(map[uint16]*game.Game),
		seed:   seed,
		logger: logger.Named("lobby"),
	}
}

// CreateGame opens a lobby owned by owner. Ids come from a counter that wraps
// around and skips ids still in use, so no two live games share one.
func (m *Manager) CreateGame(owner *game.Player, limit int, imploding, hasImploding bool) (*game.Game, error) {
	if owner.Game() != nil {
		return nil, matcherrors.ErrAlreadyInGame
	}
	if limit < game.MinPlayers || limit > game.MaxPlayers {
		return nil, matcherrors.ErrInvalidPlayerLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.nextID()
	if !ok {
		return nil, matcherrors.ErrGameIDSpaceExhausted
	}
	g := game.NewGame(id, owner, limit, imploding, hasImploding, m.seed())
	g.OnFinish = m.finished
	m.games[g.ID] = g
	owner.SetGame(g)
	metrics.GamesActive.Set(float64(len(m.games)))

	owner.Queue(protocol.JoinGame(g.ID))
	g.Resync(owner)
	m.logger.Info("game created",
		zap.Uint16("game", g.ID),
		zap.Uint16("owner", owner.ID),
		zap.Int("limit", limit),
		zap.Bool("imploding", imploding),
		zap.Bool("has_imploding", hasImploding),
	)
	return g, nil
}

// nextID advances the counter to the next id in [1, MaxUint16] no live game
// holds. Callers hold m.mu.
func (m *Manager) nextID() (uint16, bool) {
	for range math.MaxUint16 {
		if m.lastID == math.MaxUint16 {
			m.lastID = 0
		}
		m.lastID++
		if _, used := m.games[m.lastID]; !used {
			return m.lastID, true
		}
	}
	return 0, false
}

// Join seats p in the lobby with the given id.
func (m *Manager) Join(p *game.Player, id uint16) error {
	if p.Game() != nil {
		return matcherrors.ErrAlreadyInGame
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return matcherrors.ErrGameNotFound
	}
	if err := g.Seat(p); err != nil {
		return err
	}
	p.SetGame(g)
	m.logger.Info("player joined", zap.Uint16("game", id), zap.Uint16("player", p.ID))
	return nil
}

// Leave takes p out of their game. In a running game the seat is given up for
// good; in a lobby or a finished game p is simply dropped. Empty games are
// deleted. Leaving without a game is a no-op.
func (m *Manager) Leave(p *game.Player) error {
	g := p.Game()
	if g == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if started, finished := g.Status(); started && !finished {
		err = g.RemovePlayer(p)
	} else {
		err = g.Unseat(p)
	}
	if err != nil && !errors.Is(err, matcherrors.ErrNotInGame) {
		return err
	}
	p.SetGame(nil)
	m.logger.Info("player left", zap.Uint16("game", g.ID), zap.Uint16("player", p.ID))
	m.dropIfEmpty(g)
	return nil
}

// RemovePlayer is Leave for players whose session expired.
func (m *Manager) RemovePlayer(p *game.Player) {
	if err := m.Leave(p); err != nil {
		m.logger.Warn("remove expired player", zap.Uint16("player", p.ID), zap.Error(err))
	}
}

// ShuffleTurnOrder permutes the seats of p's lobby.
func (m *Manager) ShuffleTurnOrder(p *game.Player) error {
	g := p.Game()
	if g == nil {
		return matcherrors.ErrNotInGame
	}
	return g.ShuffleTurnOrder(p)
}

// Start deals p's lobby and starts play.
func (m *Manager) Start(p *game.Player) error {
	g := p.Game()
	if g == nil {
		return matcherrors.ErrNotInGame
	}
	if err := g.Start(p); err != nil {
		return err
	}
	m.logger.Info("game started", zap.Uint16("game", g.ID), zap.Int64("seed", g.Seed))
	return nil
}

// Kick removes the player with targetID from p's game, banning them when ban
// is set. Only the owner may kick.
func (m *Manager) Kick(p *game.Player, targetID uint16, ban bool) error {
	g := p.Game()
	if g == nil {
		return matcherrors.ErrNotInGame
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	target, err := g.Kick(p, targetID, ban)
	if err != nil {
		return err
	}
	target.SetGame(nil)
	m.logger.Info("player kicked",
		zap.Uint16("game", g.ID),
		zap.Uint16("player", target.ID),
		zap.Bool("ban", ban),
	)
	return nil
}

// List returns the open lobbies ordered by id.
func (m *Manager) List() []protocol.GameSummary {
	return m.summaries(func(g *game.Game) bool {
		started, _ := g.Status()
		return !started
	})
}

// All returns every game ordered by id.
func (m *Manager) All() []protocol.GameSummary {
	return m.summaries(func(*game.Game) bool { return true })
}

func (m *Manager) summaries(keep func(*game.Game) bool) []protocol.GameSummary {
	m.mu.Lock()
	games := make([]*game.Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.Unlock()

	slices.SortFunc(games, func(a, b *game.Game) int { return int(a.ID) - int(b.ID) })
	out := make([]protocol.GameSummary, 0, len(games))
	for _, g := range games {
		if keep(g) {
			out = append(out, g.Summary())
		}
	}
	return out
}

// Get returns the game with the given id.
func (m *Manager) Get(id uint16) (*game.Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	return g, ok
}

// Count returns the number of games held.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

func (m *Manager) dropIfEmpty(g *game.Game) {
	if !g.Empty() {
		return
	}
	delete(m.games, g.ID)
	metrics.GamesActive.Set(float64(len(m.games)))
	m.logger.Info("game deleted", zap.Uint16("game", g.ID))
}

func (m *Manager) finished(g *game.Game) {
	metrics.GamesFinished.Inc()
	fields := []zap.Field{zap.Uint16("game", g.ID), zap.Int("seats", g.Seats)}
	if g.Winner != nil {
		fields = append(fields, zap.Uint16("winner", g.Winner.ID))
	}
	m.logger.Info("game finished", fields...)
	if m.OnFinish != nil {
		m.OnFinish(g)
	}
}
