package httputil

import (
	"errors"
	"net/http"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	zap.L().Error(msg, zap.Error(err))
	JSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		zap.L().Warn("bad request", zap.String("message", msg), zap.Error(err))
	} else {
		zap.L().Warn("bad request", zap.String("message", msg))
	}
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		zap.L().Warn("not found", zap.String("message", msg), zap.Error(err))
	} else {
		zap.L().Warn("not found", zap.String("message", msg))
	}
	JSON(w, http.StatusNotFound, errorBody{Error: msg})
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	zap.L().Info("conflict", zap.String("message", msg), zap.Error(err))
	JSON(w, http.StatusConflict, errorBody{Error: msg})
}

// StatusFor maps an engine error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, bracket.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, bracket.ErrForbiddenTransition), errors.Is(err, bracket.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, bracket.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status of its kind. Unclassified errors are
// logged and hidden behind a generic 500.
func Error(w http.ResponseWriter, msg string, err error) {
	switch StatusFor(err) {
	case http.StatusBadRequest:
		BadRequest(w, err.Error(), err)
	case http.StatusConflict:
		Conflict(w, err.Error(), err)
	case http.StatusNotFound:
		NotFound(w, err.Error(), err)
	default:
		InternalServerError(w, msg, err)
	}
}
