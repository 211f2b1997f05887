package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tuss-cogs/internal/models"
	"tuss-cogs/internal/persistence"
)

// Response codes carried in Response.Code. HTTP status stays 200 for
// application errors; only the auth middleware answers 401.
const (
	CodeSuccess           = 0
	CodeBadParams         = 1001
	CodeUnauthorized      = 1002
	CodeForbidden         = 1003
	CodeNotFound          = 1004
	CodeConflict          = 1005
	CodeInsufficientFunds = 1006
	CodeRejected          = 1007
	CodeInternal          = 1500
)

// Response is the body of every HTTP answer.
type Response struct {
	Code      int         `json:"code"`
	Msg       string      `json:"msg"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

func newResponse() Response {
	return Response{Code: CodeSuccess, Msg: "success", Timestamp: time.Now().Unix()}
}

func reply(c *gin.Context, res Response) {
	c.JSON(http.StatusOK, res)
}

func fail(c *gin.Context, code int, msg string) {
	res := newResponse()
	res.Code = code
	res.Msg = msg
	reply(c, res)
}

// codeFor maps store and progression errors onto response codes.
func codeFor(err error) int {
	switch {
	case errors.Is(err, persistence.ErrAccountNotFound):
		return CodeNotFound
	case errors.Is(err, persistence.ErrAccountExists):
		return CodeConflict
	case errors.Is(err, persistence.ErrInvalidCredentials):
		return CodeUnauthorized
	case errors.Is(err, persistence.ErrInvalidUsername), errors.Is(err, persistence.ErrWeakPassword):
		return CodeBadParams
	case errors.Is(err, models.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, models.ErrMaxedOut), errors.Is(err, models.ErrLockedTier):
		return CodeRejected
	case errors.Is(err, models.ErrUnknownUpgrade):
		return CodeNotFound
	}
	return CodeInternal
}
