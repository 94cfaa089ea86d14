// Package dispatch turns inbound frames into player actions. It runs the
// per-connection handshake, strips opcodes off each frame and routes the
// coalesced messages to the lobby and game handlers in order.
package dispatch

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kittens-server/game"
	"kittens-server/lobby"
	"kittens-server/matcherrors"
	"kittens-server/metrics"
	"kittens-server/protocol"
	"kittens-server/session"
)

// Conn is the transport side of a connection. Send must not block and
// reports false once the connection is closed; Close may be called more than
// once.
type Conn interface {
	Send(frame []byte) bool
	Close()
}

// Server holds what every connection shares.
type Server struct {
	Sessions *session.Registry
	Lobby    *lobby.Manager
	Pubkey   []byte

	MaxNameLength int
	MaxChatLength int

	logger *zap.Logger
}

// NewServer wires a dispatcher to the registries.
func NewServer(sessions *session.Registry, games *lobby.Manager, pubkey []byte, maxName, maxChat int, logger *zap.Logger) *Server {
	return &Server{
		Sessions:      sessions,
		Lobby:         games,
		Pubkey:        pubkey,
		MaxNameLength: maxName,
		MaxChatLength: maxChat,
		logger:        logger.Named("dispatch"),
	}
}

// Session is the dispatcher state of one connection. Calls on a Session must
// not run concurrently.
type Session struct {
	srv    *Server
	conn   Conn
	id     string
	player *game.Player
	token  uint64
	logger *zap.Logger
}

// NewSession starts a connection by sending the server key.
func (s *Server) NewSession(conn Conn) *Session {
	id := uuid.NewString()
	sess := &Session{
		srv:    s,
		conn:   conn,
		id:     id,
		logger: s.logger.With(zap.String("conn", id)),
	}
	conn.Send(protocol.Pubkey(s.Pubkey))
	return sess
}

// ID returns the connection id used in logs.
func (s *Session) ID() string { return s.id }

// Player returns the authenticated player, or nil before the handshake.
func (s *Session) Player() *game.Player { return s.player }

// Receive processes one inbound frame. A non-nil error means the connection
// must be closed: it is returned for protocol violations and refused
// handshakes. Gameplay errors are reported to the player instead.
func (s *Session) Receive(frame []byte) error {
	r := protocol.NewReader(frame)
	if s.player == nil {
		if len(frame) == 0 {
			return nil
		}
		op := protocol.Opcode(r.Byte())
		if op != protocol.OpSecret && op != protocol.OpReconnect {
			s.logger.Debug("discarding frame before handshake", zap.Stringer("opcode", op))
			return nil
		}
		if err := s.handshake(op, r); err != nil {
			return err
		}
	}

	err := s.run(r)
	if err == nil && s.player.Game() == nil {
		s.player.Queue(protocol.ListGames(s.srv.Lobby.List()))
	}
	s.Flush()
	return err
}

func (s *Session) handshake(op protocol.Opcode, r *protocol.Reader) error {
	hello, err := protocol.ReadHello(r, math.MaxUint16)
	if err == nil && (hello.Name == "" || len(hello.Name) > s.srv.MaxNameLength) {
		err = matcherrors.ErrInvalidName
	}
	if err != nil {
		s.conn.Send(protocol.Ack(false))
		return fmt.Errorf("handshake: %w", err)
	}

	secret := game.Secret(hello.Secret)
	var (
		p     *game.Player
		token uint64
	)
	if op == protocol.OpSecret {
		p, token, err = s.srv.Sessions.Authenticate(secret, hello.Name, s.conn)
	} else {
		p, token, err = s.srv.Sessions.Reconnect(secret, hello.Name, s.conn)
	}
	if err != nil {
		metrics.Errors.WithLabelValues(class(err)).Inc()
		s.conn.Send(protocol.Ack(false))
		return fmt.Errorf("handshake: %w", err)
	}

	s.player, s.token = p, token
	s.logger = s.logger.With(zap.Uint16("player", p.ID))
	s.conn.Send(protocol.Ack(true))
	if op == protocol.OpReconnect {
		if g := p.Game(); g != nil {
			g.Resync(p)
		}
	}
	s.logger.Info("handshake complete", zap.Stringer("opcode", op), zap.String("name", hello.Name))
	return nil
}

// run dispatches every message left in r.
func (s *Session) run(r *protocol.Reader) error {
	for len(r.Rest()) > 0 {
		op := protocol.Opcode(r.Byte())
		metrics.Messages.WithLabelValues(op.String()).Inc()
		err := s.handle(op, r)
		if err == nil {
			continue
		}
		metrics.Errors.WithLabelValues(class(err)).Inc()
		if !errors.Is(err, matcherrors.ErrGameplay) && !errors.Is(err, matcherrors.ErrConfiguration) {
			s.logger.Warn("closing connection", zap.Stringer("opcode", op), zap.Error(err))
			return err
		}
		s.logger.Debug("refused", zap.Stringer("opcode", op), zap.Error(err))
		s.player.SendError(err.Error())
	}
	return nil
}

func (s *Session) handle(op protocol.Opcode, r *protocol.Reader) error {
	p := s.player
	lb := s.srv.Lobby

	switch op {
	case protocol.OpNop:
		return nil

	case protocol.OpSecret, protocol.OpReconnect:
		return matcherrors.ErrAlreadyHandshaken

	case protocol.OpNewGame:
		ng, err := protocol.ReadNewGame(r)
		if err != nil {
			return err
		}
		_, err = lb.CreateGame(p, int(ng.PlayerLimit), ng.Imploding, ng.HasImploding)
		return err

	case protocol.OpJoinGame:
		id := r.Uint16()
		if err := r.Err(); err != nil {
			return err
		}
		return lb.Join(p, id)

	case protocol.OpLeaveGame:
		return lb.Leave(p)

	case protocol.OpShuffleTurnOrder:
		return lb.ShuffleTurnOrder(p)

	case protocol.OpStartGame:
		return lb.Start(p)

	case protocol.OpPlayCard:
		kind := r.Uint16()
		return s.withGame(r, func(g *game.Game) error { return g.PlayCard(p, game.Kind(kind)) })

	case protocol.OpPlayCombo:
		c, err := protocol.ReadCombo(r)
		if err != nil {
			return err
		}
		return s.withGame(r, func(g *game.Game) error {
			return g.PlayCombo(p, toKinds(c.Kinds), c.Target, game.Kind(c.Named))
		})

	case protocol.OpPlayTargetedAttack:
		target := r.Uint16()
		return s.withGame(r, func(g *game.Game) error { return g.PlayTargetedAttack(p, target) })

	case protocol.OpPlayFavor:
		target := r.Uint16()
		return s.withGame(r, func(g *game.Game) error { return g.PlayFavor(p, target) })

	case protocol.OpReturnFavor:
		kind := r.Uint16()
		return s.withGame(r, func(g *game.Game) error { return g.ReturnFavor(p, game.Kind(kind)) })

	case protocol.OpPlayNope:
		return s.withGame(r, func(g *game.Game) error { return g.PlayNope(p) })

	case protocol.OpAlterTheFuture:
		order, err := protocol.ReadOrder(r)
		if err != nil {
			return err
		}
		return s.withGame(r, func(g *game.Game) error { return g.AcknowledgePeek(p, toKinds(order)) })

	case protocol.OpDrawCard:
		return s.withGame(r, func(g *game.Game) error { return g.Draw(p) })

	case protocol.OpDie:
		return s.withGame(r, func(g *game.Game) error { return g.Die(p) })

	case protocol.OpDefuse:
		pos := r.Uint16()
		return s.withGame(r, func(g *game.Game) error { return g.Defuse(p, int(pos)) })

	case protocol.OpEndTurn:
		return s.withGame(r, func(g *game.Game) error { return g.AcknowledgePeek(p, nil) })

	case protocol.OpChat:
		msg := r.String(math.MaxUint16)
		if err := r.Err(); err != nil {
			return err
		}
		if msg == "" || len(msg) > s.srv.MaxChatLength {
			return matcherrors.ErrInvalidName
		}
		return s.withGame(r, func(g *game.Game) error {
			g.Chat(p, msg)
			return nil
		})

	case protocol.OpKick, protocol.OpBan:
		target := r.Uint16()
		if err := r.Err(); err != nil {
			return err
		}
		return lb.Kick(p, target, op == protocol.OpBan)

	default:
		return fmt.Errorf("opcode 0x%02x: %w", byte(op), matcherrors.ErrUnknownOpcode)
	}
}

// withGame runs fn against the player's game once the payload has been read
// successfully.
func (s *Session) withGame(r *protocol.Reader, fn func(g *game.Game) error) error {
	if err := r.Err(); err != nil {
		return err
	}
	g := s.player.Game()
	if g == nil {
		return matcherrors.ErrNotInGame
	}
	return fn(g)
}

// Flush sends everything queued for the player as one frame. A closed
// connection leaves the queue intact for the player's next connection.
func (s *Session) Flush() {
	if s.player == nil {
		return
	}
	s.player.Flush(s.conn.Send)
}

// Closed reports that the transport is gone. The player keeps their seat
// until the session registry's grace period runs out.
func (s *Session) Closed() {
	if s.player == nil {
		return
	}
	s.srv.Sessions.Disconnect(s.player, s.token)
	s.logger.Info("connection closed")
}

func toKinds(raw []uint16) []game.Kind {
	out := make([]game.Kind, len(raw))
	for i, k := range raw {
		out[i] = game.Kind(k)
	}
	return out
}

func class(err error) string {
	switch {
	case errors.Is(err, matcherrors.ErrProtocol):
		return "protocol"
	case errors.Is(err, matcherrors.ErrAuth):
		return "auth"
	case errors.Is(err, matcherrors.ErrGameplay):
		return "gameplay"
	case errors.Is(err, matcherrors.ErrConfiguration):
		return "configuration"
	default:
		return "other"
	}
}
