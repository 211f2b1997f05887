package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/config"
	"tuss-cogs/internal/game"
	"tuss-cogs/internal/models"
	"tuss-cogs/internal/persistence"
)

// LevelSource supplies level data by number.
type LevelSource interface {
	Level(n int) (models.LevelData, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Config config.Config
	Store  *persistence.Store
	Levels LevelSource
	Logger logrus.FieldLogger
	Clock  game.Clock // nil for wall time
}

// Server is the HTTP and websocket front of the game.
type Server struct {
	cfg      config.Config
	log      logrus.FieldLogger
	store    *persistence.Store
	levels   LevelSource
	auth     *AuthManager
	sessions *SessionManager
	upgrader websocket.Upgrader
	router   *gin.Engine
	http     *http.Server
}

// NewServer wires the router. Call Start to listen.
func NewServer(deps Deps) *Server {
	s := &Server{
		cfg:    deps.Config,
		log:    deps.Logger,
		store:  deps.Store,
		levels: deps.Levels,
		auth:   NewAuthManager(deps.Store, deps.Config.Auth.JWTSecret, deps.Config.Auth.TokenTTL),
	}
	s.sessions = NewSessionManager(deps.Store, deps.Config.GameSettings(), deps.Clock, deps.Logger)
	s.upgrader = newUpgrader(s.checkOrigin)
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              deps.Config.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), cors.New(corsConfig(s.cfg.Server.AllowedOrigins)))

	r.GET("/health", s.health)

	preAuthGroup := r.Group("/preauth")
	preAuthGroup.POST("/register", s.register)
	preAuthGroup.POST("/login", s.login)

	authGroup := r.Group("/auth", AuthzMiddleware(s.auth))
	authGroup.GET("/profile", s.profile)
	authGroup.POST("/characters/:name/upgrade", s.upgradeCharacter)
	authGroup.POST("/deposits/:name/upgrade", s.upgradeDeposit)
	authGroup.POST("/game/session", s.createSession)
	authGroup.GET("/game/ws", s.gameSocket)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop ends every session and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping server")
	s.sessions.CloseAll()
	return s.http.Shutdown(ctx)
}
