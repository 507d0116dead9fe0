// Package apperr centralizes the mapping from domain errors to HTTP status
// codes and response bodies, so every handler in internal/transport/http
// shares one place that decides "what status, what message" instead of
// choosing both per call site.
package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Code is a stable, machine-readable error identifier that selects the HTTP
// status; it is not included in the response body, which carries only the
// human-readable message.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "room_not_found"
)

var statusByCode = map[Code]int{
	CodeBadRequest:   http.StatusBadRequest,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeNotFound:     http.StatusNotFound,
}

// Error is a domain error that already knows which HTTP status it maps to.
// Handlers construct one with BadRequest/Unauthorized/NotFound and hand it
// to Write instead of picking a status and JSON body inline.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func BadRequest(msg string) *Error   { return &Error{Code: CodeBadRequest, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Code: CodeNotFound, Message: msg} }

type body struct {
	Error string `json:"error"`
}

// Write maps err onto a status and JSON body and writes it to c. An *Error
// is unwrapped and reported verbatim; anything else is logged at error
// level and reported as an opaque internal error, so store/driver detail
// never reaches the client.
func Write(c *gin.Context, log *zerolog.Logger, err error) {
	var appErr *Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.status(), body{Error: appErr.Message})
		return
	}
	log.Error().Err(err).Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, body{Error: "internal server error"})
}

// WriteInternal reports a generic internal error, for callers that already
// logged err with request-specific fields and don't want it logged twice.
func WriteInternal(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, body{Error: "internal server error"})
}
