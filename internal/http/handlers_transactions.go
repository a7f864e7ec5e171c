package http

import (
	"bytes"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	in.Description = sanitizeInput(in.Description)

	view, err := s.transactions.Create(r.Context(), user.ID, in)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	s.logWrite(r, log.OpCreate, view.Transaction)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}

	views, err := s.transactions.List(r.Context(), user.ID, filter)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if views == nil {
		views = []core.TransactionView{}
	}
	writeJSON(w, http.StatusOK, listEnvelope{
		Success:           true,
		Transactions:      views,
		TotalTransactions: len(views),
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}

	// The body is decoded only once the record is known to exist and belong
	// to the caller, so a bad payload never masks a 404 or 403.
	view, err := s.transactions.UpdateWith(r.Context(), r.PathValue("id"), user.ID, func(patch *core.TransactionPatch) error {
		if err := decodeFrom(bytes.NewReader(body), patch); err != nil {
			return err
		}
		if patch.Description.Present() {
			patch.Description.Value = sanitizeInput(patch.Description.Value)
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.logWrite(r, log.OpUpdate, view.Transaction)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	id := r.PathValue("id")

	if err := s.transactions.Delete(r.Context(), id, user.ID); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	s.logWrite(r, log.OpDelete, core.Transaction{ID: id, UserID: user.ID})
	writeMessage(w, http.StatusOK, "Transaction deleted successfully")
}

func (s *Server) logWrite(r *http.Request, op string, t core.Transaction) {
	s.recordWrite()
	amount := ""
	if op != log.OpDelete {
		amount = core.FormatAmount(t.Amount)
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionWritten(r.Context(), op, t.UserID, t.ID, t.Type.String(), amount, t.CategoryID)
}
