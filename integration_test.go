package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kittens-server/auth"
	"kittens-server/config"
	"kittens-server/protocol"
)

// setupTestServer starts the full server stack on an httptest listener.
func setupTestServer(t *testing.T) (*httptest.Server, *server) {
	t.Helper()

	cfg := config.Defaults()
	keys, err := auth.GenerateKeyPair()
	require.NoError(t, err)

	srv := newServer(cfg, keys, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx)

	hs := httptest.NewServer(srv.handler)
	t.Cleanup(func() {
		cancel()
		hs.Close()
		srv.sessions.Close()
	})
	return hs, srv
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	buf  []byte
}

// connectWS dials the game socket and consumes the Pubkey greeting.
func connectWS(t *testing.T, hs *httptest.Server) *testClient {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testClient{t: t, conn: conn}
	c.expect([]byte{protocol.MsgPubkey})
	return c
}

func (c *testClient) send(msgs ...[]byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, bytes.Join(msgs, nil)))
}

// expect reads frames until want appears in the received stream and discards
// everything up to and including it. Messages may arrive split across frames
// or coalesced, so matching is on the byte stream.
func (c *testClient) expect(want []byte) {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if i := bytes.Index(c.buf, want); i >= 0 {
			c.buf = c.buf[i+len(want):]
			return
		}
		c.conn.SetReadDeadline(deadline)
		_, frame, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for % x", want)
		c.buf = append(c.buf, frame...)
	}
}

func hello(op protocol.Opcode, secret byte, name string) []byte {
	s := make([]byte, protocol.SecretSize)
	s[0] = secret
	return protocol.NewWriter(byte(op)).Raw(s).String(name).Bytes()
}

func op(o protocol.Opcode) *protocol.Writer { return protocol.NewWriter(byte(o)) }

func TestIntegration_LobbyToGame(t *testing.T) {
	hs, _ := setupTestServer(t)

	alice := connectWS(t, hs)
	alice.send(hello(protocol.OpSecret, 1, "alice"))
	alice.expect(protocol.Ack(true))
	alice.expect(protocol.ListGames(nil))

	alice.send(op(protocol.OpNewGame).Byte(0).Uint16(2).Bytes())
	alice.expect(protocol.JoinGame(1))
	alice.expect(protocol.PregameInfo(false, false, 2))

	bob := connectWS(t, hs)
	bob.send(hello(protocol.OpSecret, 2, "bob"))
	bob.expect(protocol.Ack(true))
	bob.expect(protocol.ListGames([]protocol.GameSummary{{ID: 1, Players: 1, PlayerLimit: 2, Owner: "alice"}}))

	bob.send(op(protocol.OpJoinGame).Uint16(1).Bytes())
	players := protocol.PregamePlayerInfo([]protocol.PlayerEntry{{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"}})
	bob.expect(players)
	alice.expect(players)

	carol := connectWS(t, hs)
	carol.send(hello(protocol.OpSecret, 3, "carol"), op(protocol.OpJoinGame).Uint16(1).Bytes())
	carol.expect(protocol.Ack(true))
	carol.expect(protocol.Error("That game is full."))

	alice.send(op(protocol.OpStartGame).Bytes())
	alice.expect(protocol.GameStarted(1))
	bob.expect(protocol.GameStarted(1))
	bob.expect(protocol.Turn(1, 1, false, 0)[:3])

	bob.send(op(protocol.OpDrawCard).Bytes())
	bob.expect(protocol.Error("It is not your turn."))
}

func TestIntegration_Reconnect(t *testing.T) {
	hs, srv := setupTestServer(t)

	alice := connectWS(t, hs)
	alice.send(hello(protocol.OpSecret, 1, "alice"), op(protocol.OpNewGame).Byte(0).Uint16(2).Bytes())
	alice.expect(protocol.JoinGame(1))

	bob := connectWS(t, hs)
	bob.send(hello(protocol.OpSecret, 2, "bob"), op(protocol.OpJoinGame).Uint16(1).Bytes())
	bob.expect(protocol.JoinGame(1))
	alice.send(op(protocol.OpStartGame).Bytes())
	bob.expect(protocol.GameStarted(1))

	bob.conn.Close()
	again := connectWS(t, hs)
	again.send(hello(protocol.OpReconnect, 2, "robert"))
	again.expect(protocol.Ack(true))
	again.expect(protocol.OngoingGamePlayerInfo([]protocol.PlayerEntry{{ID: 1, Name: "alice"}, {ID: 2, Name: "robert"}}))

	g, ok := srv.games.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint16(2), g.Summary().Players)

	ghost := connectWS(t, hs)
	ghost.send(hello(protocol.OpReconnect, 9, "ghost"))
	ghost.expect(protocol.Ack(false))
}

func TestIntegration_HTTP(t *testing.T) {
	hs, _ := setupTestServer(t)

	alice := connectWS(t, hs)
	alice.send(hello(protocol.OpSecret, 1, "alice"), op(protocol.OpNewGame).Byte(protocol.SettingHasImploding).Uint16(3).Bytes())
	alice.expect(protocol.JoinGame(1))

	resp, err := http.Get(hs.URL + "/api/games")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var games []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&games))
	require.Len(t, games, 1)
	assert.Equal(t, "alice", games[0]["owner"])
	assert.Equal(t, true, games[0]["has_imploding"])
	assert.Equal(t, true, games[0]["open"])

	health, err := http.Get(hs.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
