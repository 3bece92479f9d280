package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/internal/core"
	"github.com/xob0t/ProfileStencil/pkg/compositor"
	"github.com/xob0t/ProfileStencil/pkg/upload"
)

var (
	errBadRequest      = errors.New("bad request")
	errSessionNotFound = errors.New("session not found")
	errAttribution     = errors.New("download does not show the requested message")
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, compositor.ErrNoSource), errors.Is(err, errAttribution):
		return http.StatusConflict
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, compositor.ErrDecode),
		errors.Is(err, compositor.ErrLogoDecode),
		errors.Is(err, compositor.ErrInvalidTransform),
		errors.Is(err, upload.ErrEmpty),
		errors.Is(err, core.ErrInvalid),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound), errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}
