// messages.go — Message catalog and download statistics endpoints.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/xob0t/ProfileStencil/internal/core"
)

type messageRequest struct {
	Label  string `json:"label"`
	Text   string `json:"text"`
	Active *bool  `json:"active"`
}

func (q messageRequest) message(id string) core.Message {
	active := true
	if q.Active != nil {
		active = *q.Active
	}
	return core.Message{ID: id, Label: q.Label, Text: q.Text, Active: active}
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all")
	msgs, err := s.store.List(r.Context(), all != "1" && all != "true")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, msgs)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.store.Create(r.Context(), req.message(""))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, m)
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.store.Update(r.Context(), req.message(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, m)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
