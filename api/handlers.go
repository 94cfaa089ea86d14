// Package api serves the HTTP side of the server: the websocket upgrade route,
// health, the lobby listing, recent results and prometheus metrics.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kittens-server/lobby"
	"kittens-server/storage"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	Lobby        *lobby.Manager
	Results      storage.ResultStore
	HistoryLimit int

	logger *zap.Logger
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(games *lobby.Manager, results storage.ResultStore, historyLimit int, logger *zap.Logger) *Handler {
	return &Handler{
		Lobby:        games,
		Results:      results,
		HistoryLimit: historyLimit,
		logger:       logger.Named("api"),
	}
}

// NewRouter registers every route. ws serves the game socket upgrade.
func NewRouter(h *Handler, ws http.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), CORS())

	r.GET("/ws", gin.WrapF(ws))
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/games", h.Games)
	api.GET("/history", h.History)
	return r
}

// CORS allows read-only cross-origin access to the API.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "games": h.Lobby.Count()})
}

// GameView is one entry of /api/games.
type GameView struct {
	ID           uint16 `json:"id"`
	Owner        string `json:"owner"`
	Players      int    `json:"players"`
	PlayerLimit  int    `json:"player_limit"`
	Imploding    bool   `json:"imploding"`
	HasImploding bool   `json:"has_imploding"`
	Open         bool   `json:"open"`
}

// Games lists every game, open lobbies and running games alike.
func (h *Handler) Games(c *gin.Context) {
	open := make(map[uint16]bool)
	for _, s := range h.Lobby.List() {
		open[s.ID] = true
	}
	all := h.Lobby.All()
	out := make([]GameView, 0, len(all))
	for _, s := range all {
		out = append(out, GameView{
			ID:           s.ID,
			Owner:        s.Owner,
			Players:      int(s.Players),
			PlayerLimit:  int(s.PlayerLimit),
			Imploding:    s.Imploding,
			HasImploding: s.HasImploding,
			Open:         open[s.ID],
		})
	}
	c.JSON(http.StatusOK, out)
}

// History returns recently finished games. The optional limit query
// parameter overrides the configured default.
func (h *Handler) History(c *gin.Context) {
	limit := h.HistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	list, err := h.Results.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("load history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, list)
}
