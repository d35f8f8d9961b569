package http

import (
	"net/http"
	"strings"

	"piggy/internal/core"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: "empty account name"})
		return
	}

	acct, err := s.accounts.CreateAccount(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   acct.ID,
		"name": acct.Name,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}

	t, err := req.toTransaction(accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stored, err := s.accounts.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         stored.ID,
		"account_id": stored.AccountID,
		"amount":     core.FormatAmount(stored.Amount),
	})
}
