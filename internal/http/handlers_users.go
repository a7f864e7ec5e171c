package http

import (
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpRegister, err)
		return
	}

	sess, err := s.auth.Register(r.Context(), sanitizeInput(in.Name), sanitizeInput(in.Email), in.Password)
	if err != nil {
		s.writeError(w, r, log.OpRegister, err)
		return
	}
	s.sendSession(w, http.StatusCreated, sess, "Registered Successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}

	sess, err := s.auth.Login(r.Context(), sanitizeInput(in.Email), in.Password)
	if err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}
	s.sendSession(w, http.StatusOK, sess, "Welcome back, "+sess.User.Name)
}

// handleLogout clears the cookie whether or not one was sent.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearedCookie(s.secureCookies))
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	writeJSON(w, http.StatusOK, envelope{Success: true, User: &user})
}

func (s *Server) sendSession(w http.ResponseWriter, status int, sess services.Session, msg string) {
	http.SetCookie(w, auth.SessionCookie(sess.Token, sess.ExpiresAt, s.secureCookies))
	writeJSON(w, status, envelope{Success: true, Message: msg, User: &sess.User})
}
