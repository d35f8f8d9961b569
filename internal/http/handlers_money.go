package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"piggy/internal/core"
)

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleMoneyMove(w, r, s.ledger.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleMoneyMove(w, r, s.ledger.Withdraw)
}

func (s *Server) handleMoneyMove(w http.ResponseWriter, r *http.Request,
	move func(ctx context.Context, userID, goalID int64, amount decimal.Decimal) (core.Repetition, error),
) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := move(r.Context(), userID(r), id, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"goal_id":        id,
		"current_amount": core.FormatAmount(rep.CurrentAmount),
	})
}

func (s *Server) handleMaxDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	max, err := s.ledger.MaxDeposit(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Raw headroom can be negative when the account is over-committed;
	// the form limit clamps to zero.
	writeJSON(w, http.StatusOK, map[string]any{
		"goal_id":     id,
		"max_deposit": core.FormatAmount(core.ClampToZero(max)),
	})
}
