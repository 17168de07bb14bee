package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/miipal/internal/config"
	"github.com/vovakirdan/miipal/internal/core"
	"github.com/vovakirdan/miipal/internal/store"
	"github.com/vovakirdan/miipal/internal/transport/socketio"
)

// NewServer builds the HTTP server. Websocket transports are served straight
// from the mux since they hijack the connection; gin handles health and the
// presence API. st may be nil.
func NewServer(hub core.Hub, st store.PresenceStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	if cfg.SocketIO.Enabled {
		mux.Handle("/socket.io/", socketio.NewServer(hub, cfg, logger))
	}
	mux.Handle("/", newAPIRouter(hub, st, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func newAPIRouter(hub core.Hub, st store.PresenceStore, logger *zerolog.Logger) *gin.Engine {
	if gin.Mode() == gin.DebugMode && logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	api := NewAPIHandlers(hub, st, logger)
	router.GET("/health", api.Health)
	router.GET("/api/users", api.Users)
	router.GET("/api/sessions", api.Sessions)

	return router
}
