package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/messagely/internal/server/authz"
	"github.com/dmitrijs2005/messagely/internal/server/models"
	"github.com/dmitrijs2005/messagely/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type tokenResponse struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.users.IssueToken(u.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.users.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.All(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct {
		Users []models.UserSummary `json:"users"`
	}{users})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct {
		User *models.User `json:"user"`
	}{u})
}

func (s *Server) handleMessagesTo(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.users.MessagesTo(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct {
		Messages []models.ReceivedMessage `json:"messages"`
	}{msgs})
}

func (s *Server) handleMessagesFrom(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.users.MessagesFrom(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct {
		Messages []models.SentMessage `json:"messages"`
	}{msgs})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var in services.NewMessageInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	from, _ := authz.IdentityFrom(r.Context())

	msg, err := s.messages.Create(r.Context(), from, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct {
		Message *models.Message `json:"message"`
	}{msg})
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := authz.MessageID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.messages.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct {
		Message *models.MessageDetail `json:"message"`
	}{msg})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := authz.MessageID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	receipt, err := s.messages.MarkRead(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct {
		Message *models.ReadReceipt `json:"message"`
	}{receipt})
}
