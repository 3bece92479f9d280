// handlers.go — Render session endpoints.
package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/internal/core"
	"github.com/xob0t/ProfileStencil/pkg/compositor"
	"github.com/xob0t/ProfileStencil/pkg/upload"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const sessionHeader = "X-Session-ID"

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 1 << 20

type ctxKey struct{}

// renderRequest is compositor.Request plus an optional catalog message,
// whose text replaces Text.
type renderRequest struct {
	compositor.Request
	MessageID string `json:"messageId"`
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: decode json: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, ok := s.sessions.get(id)
		if !ok {
			s.writeError(w, r, fmt.Errorf("%w: %s", errSessionNotFound, id))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session {
	return r.Context().Value(ctxKey{}).(*session)
}

// readUpload reads and validates the multipart "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.cfg.Upload.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, _, err := r.FormFile("file")
	if err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			return nil, err
		}
		return nil, fmt.Errorf("%w: file is required: %v", errBadRequest, err)
	}
	defer file.Close()

	data, err := upload.ReadLimited(file, limit)
	if err != nil {
		return nil, err
	}
	limits := upload.Limits{MaxBytes: limit, MaxPixels: s.cfg.Upload.MaxPixels}
	if _, err := upload.ValidateLimits(data, limits); err != nil {
		return nil, err
	}
	return data, nil
}

// resolve turns a render request into compositor options. A named catalog
// message is drawn verbatim; only free-form text gets the "none" mapping.
func (s *Server) resolve(ctx context.Context, req renderRequest) (*compositor.Options, error) {
	opts := req.Options()
	if req.MessageID != "" {
		m, err := s.store.Get(ctx, req.MessageID)
		if err != nil {
			return nil, err
		}
		opts.Text.Text = compositor.TextOf(m.Text)
	}
	return opts, nil
}

func textOf(opts *compositor.Options) string {
	if opts.Text == nil {
		return ""
	}
	msg, _ := opts.Text.Text.Get()
	return msg
}

func writePNG(w http.ResponseWriter, code int, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(png)
}

// handleCreateSession decodes the uploaded photo into a new session and
// returns the first render.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req renderRequest
	if raw := r.FormValue("options"); strings.TrimSpace(raw) != "" {
		if err := decodeJSON(strings.NewReader(raw), &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	opts, err := s.resolve(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	comp, err := s.newCompositor()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := comp.ProcessImage(r.Context(), bytes.NewReader(data), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess := s.sessions.add(comp)
	sess.remember(res.PNG, textOf(opts), req.MessageID)
	s.log.Info("session created",
		zap.String("session_id", sess.id), zap.Int("bytes", len(data)), zap.Int("sessions", s.sessions.len()))

	w.Header().Set(sessionHeader, sess.id)
	writePNG(w, http.StatusCreated, res.PNG)
}

// handleReplaceImage swaps the session photo. A photo that fails to decode
// leaves the previous one in place.
func (s *Server) handleReplaceImage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req renderRequest
	if raw := r.FormValue("options"); strings.TrimSpace(raw) != "" {
		if err := decodeJSON(strings.NewReader(raw), &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	opts, err := s.resolve(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := sess.apply(func() (*compositor.RenderResult, error) {
		return sess.comp.ProcessImage(r.Context(), bytes.NewReader(data), opts)
	}, textOf(opts), req.MessageID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePNG(w, http.StatusOK, res.PNG)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req renderRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.resolve(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := sess.apply(func() (*compositor.RenderResult, error) {
		return sess.comp.Reprocess(r.Context(), opts.Transform, opts.Text)
	}, textOf(opts), req.MessageID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePNG(w, http.StatusOK, res.PNG)
}

func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.comp.SetLogo(r.Context(), bytes.NewReader(data)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDownload serves the latest render as an attachment and records it.
// messageId attributes the download to a catalog message, which must carry
// the text the render shows.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	png, text, messageID := sess.latest()
	if png == nil {
		s.writeError(w, r, compositor.ErrNoSource)
		return
	}

	if id := r.URL.Query().Get("messageId"); id != "" && id != messageID {
		m, err := s.store.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if m.Text != text {
			s.writeError(w, r, fmt.Errorf("%w: render shows %q, message %s is %q", errAttribution, text, m.ID, m.Text))
			return
		}
		messageID = m.ID
	}

	if _, err := s.store.Record(r.Context(), core.Download{MessageID: messageID, Text: text}); err != nil {
		s.log.Error("record download", zap.String("session_id", sess.id), zap.Error(err))
	}

	w.Header().Set("Content-Disposition", `attachment; filename="profile-picture.png"`)
	writePNG(w, http.StatusOK, png)
}

func (s *Server) handleStartOver(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).forget()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, compositor.Palette)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"status": "ok", "sessions": s.sessions.len()})
}
