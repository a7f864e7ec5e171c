package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.refs.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// handleSubcategories accepts the category as a path segment (id or name)
// or as the category query parameter.
func (s *Server) handleSubcategories(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if category == "" {
		category = r.URL.Query().Get("category")
	}

	subs, err := s.refs.ListSubcategories(r.Context(), sanitizeInput(category))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := s.refs.ListPaymentMethods(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, methods)
}
