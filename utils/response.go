package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qaforge/qaforge/engine"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// EngineError maps a dispatcher error to an HTTP response. The base business
// code is offset per error kind so clients can classify rejections while the
// message carries the specific reason.
func EngineError(ctx *gin.Context, baseCode int, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		Error(ctx, http.StatusBadRequest, baseCode, err.Error())
	case errors.Is(err, engine.ErrConflict):
		Error(ctx, http.StatusConflict, baseCode+1, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		Error(ctx, http.StatusNotFound, baseCode+2, err.Error())
	default:
		Error(ctx, http.StatusInternalServerError, baseCode+3, "internal error")
	}
}
