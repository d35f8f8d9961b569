package http

import (
	"net/http"
	"time"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.List(r.Context(), userID(r), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	goals := make([]goalViewJSON, 0, len(result.Goals))
	for _, v := range result.Goals {
		goals = append(goals, toGoalViewJSON(v))
	}
	accounts := make([]accountSummaryJSON, 0, len(result.Accounts))
	for _, a := range result.Accounts {
		accounts = append(accounts, toAccountSummaryJSON(a))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"goals":    goals,
		"accounts": accounts,
	})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}

	goal, err := req.toGoal(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	stored, err := s.ledger.StoreGoal(r.Context(), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalJSON(stored))
}

func (s *Server) handleShowGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := s.ledger.Goal(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailJSON(detail))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req goalRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}

	goal, err := req.toGoal(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal.ID = id

	updated, err := s.ledger.UpdateGoal(r.Context(), userID(r), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalJSON(updated))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.DeleteGoal(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderGoals(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}

	if err := s.ledger.Reorder(r.Context(), userID(r), req.Order); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
