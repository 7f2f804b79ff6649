// Package httpx holds the response envelope and the gin middleware shared by
// every route of the API.
package httpx

import (
	"net/http"
	"time"

	"github.com/NordCoder/firmbook/internal/apperr"
	"github.com/NordCoder/firmbook/internal/obs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId,omitempty"`
}

type SuccessBody struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
	Meta    Meta   `json:"meta"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorBody struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
	Meta    Meta        `json:"meta"`
}

// Responder renders envelopes. In production internal error messages are
// replaced by a generic one.
type Responder struct {
	production bool
	log        *zap.Logger
	now        func() time.Time
}

func NewResponder(production bool, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{production: production, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Responder) meta(c *gin.Context) Meta {
	return Meta{Timestamp: r.now(), RequestID: c.GetString(requestIDKey)}
}

func (r *Responder) OK(c *gin.Context, data any, msg string) {
	r.Success(c, http.StatusOK, data, msg)
}

func (r *Responder) Created(c *gin.Context, data any, msg string) {
	r.Success(c, http.StatusCreated, data, msg)
}

func (r *Responder) Success(c *gin.Context, status int, data any, msg string) {
	c.JSON(status, SuccessBody{Success: true, Data: data, Message: msg, Meta: r.meta(c)})
}

// Error writes err as an envelope and aborts the chain.
func (r *Responder) Error(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}

	msg := e.Message
	if e.Kind == apperr.KindInternal {
		obs.WithTrace(c.Request.Context(), r.log).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if !r.production && e.Cause != nil {
			msg = e.Cause.Error()
		}
	}

	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), ErrorBody{
		Error: ErrorDetail{Code: e.Kind.Code(), Message: msg, Details: e.Details},
		Meta:  r.meta(c),
	})
}
