package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tuss-cogs/internal/models"
	"tuss-cogs/internal/persistence"
)

const ctxUsername = "username"

var errInvalidToken = errors.New("invalid token")

// AuthManager registers players, checks credentials and issues access tokens.
type AuthManager struct {
	store  *persistence.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthManager returns a manager signing HS256 tokens with secret.
func NewAuthManager(store *persistence.Store, secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Register creates an account.
func (am *AuthManager) Register(username, password string) (*models.PlayerAccount, error) {
	return am.store.CreateAccount(username, password)
}

// Login checks the credentials and returns a signed token with its expiry.
func (am *AuthManager) Login(username, password string) (string, time.Time, *models.PlayerAccount, error) {
	acc, err := am.store.Authenticate(username, password)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	token, exp, err := am.IssueToken(acc)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, exp, acc, nil
}

// IssueToken signs a token whose subject is the username.
func (am *AuthManager) IssueToken(acc *models.PlayerAccount) (string, time.Time, error) {
	now := am.now()
	exp := now.Add(am.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   acc.Username,
		ID:        acc.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(am.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates a token and returns its username.
func (am *AuthManager) ParseToken(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		// HS256 only
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return am.secret, nil
	}, jwt.WithTimeFunc(am.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// AuthzMiddleware requires a valid bearer token. Browsers opening a websocket
// cannot set headers, so a "token" query parameter is accepted too.
func AuthzMiddleware(am *AuthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
			tokenStr = strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
		} else {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized("missing_bearer"))
			return
		}
		username, err := am.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized("invalid_token"))
			return
		}
		c.Set(ctxUsername, username)
		c.Next()
	}
}

func unauthorized(msg string) Response {
	res := newResponse()
	res.Code = CodeUnauthorized
	res.Msg = msg
	return res
}
