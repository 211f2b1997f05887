package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/models"
	"tuss-cogs/internal/network"
)

func (s *Server) health(c *gin.Context) {
	res := newResponse()
	res.Data = gin.H{"sessions": s.sessions.Len()}
	reply(c, res)
}

func (s *Server) register(c *gin.Context) {
	var req network.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, CodeBadParams, "username and password are required")
		return
	}
	acc, err := s.auth.Register(req.Username, req.Password)
	if err != nil {
		fail(c, codeFor(err), err.Error())
		return
	}
	s.log.WithField("player", acc.Username).Info("account registered")

	res := newResponse()
	res.Data = network.NewPlayerProfile(acc)
	reply(c, res)
}

func (s *Server) login(c *gin.Context) {
	var req network.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, CodeBadParams, "username and password are required")
		return
	}
	token, exp, acc, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.log.WithField("player", req.Username).Debug("login failed")
		fail(c, codeFor(err), err.Error())
		return
	}

	res := newResponse()
	res.Data = network.LoginResponse{Token: token, ExpiresAt: exp.Unix(), Player: network.NewPlayerProfile(acc)}
	reply(c, res)
}

func (s *Server) profile(c *gin.Context) {
	acc, err := s.store.Load(c.GetString(ctxUsername))
	if err != nil {
		fail(c, codeFor(err), err.Error())
		return
	}
	res := newResponse()
	res.Data = network.NewPlayerProfile(acc)
	reply(c, res)
}

func (s *Server) upgradeCharacter(c *gin.Context) {
	username := c.GetString(ctxUsername)
	acc, bought, err := s.store.UpgradeCharacter(username, models.Sprite(c.Param("name")))
	if err != nil {
		fail(c, codeFor(err), err.Error())
		return
	}
	s.log.WithFields(logrus.Fields{"player": username, "character": bought.Name, "level": bought.Level, "xp": bought.XP}).Info("character upgraded")

	res := newResponse()
	res.Data = gin.H{"character": bought, "player": network.NewPlayerProfile(acc)}
	reply(c, res)
}

func (s *Server) upgradeDeposit(c *gin.Context) {
	username := c.GetString(ctxUsername)
	acc, bought, err := s.store.UpgradeDeposit(username, c.Param("name"))
	if err != nil {
		fail(c, codeFor(err), err.Error())
		return
	}
	s.log.WithFields(logrus.Fields{"player": username, "deposit": bought.Name}).Info("deposit upgraded")

	res := newResponse()
	res.Data = gin.H{"deposit": bought, "player": network.NewPlayerProfile(acc)}
	reply(c, res)
}

// createSession starts a session on the player's current level.
func (s *Server) createSession(c *gin.Context) {
	acc, err := s.store.Load(c.GetString(ctxUsername))
	if err != nil {
		fail(c, codeFor(err), err.Error())
		return
	}
	level, err := s.levels.Level(acc.Progress.CurrentLevel)
	if err != nil {
		s.log.WithError(err).WithField("level", acc.Progress.CurrentLevel).Error("failed to load level")
		fail(c, CodeInternal, "level unavailable")
		return
	}
	session := s.sessions.Create(acc, level)

	res := newResponse()
	res.Data = network.SessionCreated{SessionID: session.ID, Level: level.Number}
	reply(c, res)
}

// gameSocket upgrades to a websocket bound to one of the caller's sessions.
func (s *Server) gameSocket(c *gin.Context) {
	session, ok := s.sessions.Get(c.Query("session_id"))
	if !ok {
		fail(c, CodeNotFound, "session not found")
		return
	}
	if session.Username != c.GetString(ctxUsername) {
		fail(c, CodeForbidden, "session belongs to another player")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	session.Attach(conn)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func newUpgrader(check func(*http.Request) bool) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     check,
	}
}

// requestLogger logs each request once it has been served.
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
			"ip":     c.ClientIP(),
		}).Debug("request served")
	}
}
