package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kittens-server/game"
	"kittens-server/lobby"
	"kittens-server/storage"
)

type fakeResults struct {
	results []storage.Result
	err     error
	limit   int
}

func (f *fakeResults) RecordResult(context.Context, storage.Result) error { return nil }

func (f *fakeResults) Recent(_ context.Context, limit int) ([]storage.Result, error) {
	f.limit = limit
	return f.results, f.err
}

func (f *fakeResults) Close() {}

func newTestRouter(t *testing.T, results storage.ResultStore) (*gin.Engine, *lobby.Manager) {
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	m := lobby.NewManager(logger, func() int64 { return 1 })
	h := NewHandler(m, results, 20, logger)
	ws := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }
	return NewRouter(h, ws), m
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &fakeResults{})
	w := get(r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","games":0}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGames(t *testing.T) {
	r, m := newTestRouter(t, &fakeResults{})
	alice := game.NewPlayer(1, game.Secret{1}, "a", "alice")
	bob := game.NewPlayer(2, game.Secret{2}, "b", "bob")
	carol := game.NewPlayer(3, game.Secret{3}, "c", "carol")

	_, err := m.CreateGame(alice, 2, false, false)
	require.NoError(t, err)
	running, err := m.CreateGame(bob, 4, false, true)
	require.NoError(t, err)
	require.NoError(t, m.Join(carol, running.ID))
	require.NoError(t, m.Start(bob))

	w := get(r, "/api/games")
	require.Equal(t, http.StatusOK, w.Code)
	var got []GameView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []GameView{
		{ID: 1, Owner: "alice", Players: 1, PlayerLimit: 2, Open: true},
		{ID: 2, Owner: "bob", Players: 2, PlayerLimit: 4, HasImploding: true},
	}, got)
}

func TestHistory(t *testing.T) {
	results := &fakeResults{results: []storage.Result{{ID: "r1", GameID: 3, WinnerName: "alice", Seats: 2}}}
	r, _ := newTestRouter(t, results)

	w := get(r, "/api/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, results.limit)
	var got []storage.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].WinnerName)

	get(r, "/api/history?limit=5")
	assert.Equal(t, 5, results.limit)

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/history?limit=x").Code)

	results.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(r, "/api/history").Code)
}

func TestHistory_NoDatabase(t *testing.T) {
	var store *storage.Store
	r, _ := newTestRouter(t, store)
	w := get(r, "/api/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRoutes(t *testing.T) {
	r, _ := newTestRouter(t, &fakeResults{})
	assert.Equal(t, http.StatusTeapot, get(r, "/ws").Code)
	assert.Equal(t, http.StatusOK, get(r, "/metrics").Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/games", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
