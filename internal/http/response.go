package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"piggy/internal/core"
	"piggy/internal/ledger"
)

// Wire representations. Money travels as fixed two-decimal strings.
type (
	goalJSON struct {
		ID           int64   `json:"id"`
		AccountID    int64   `json:"account_id"`
		Name         string  `json:"name"`
		TargetAmount string  `json:"target_amount"`
		TargetDate   *string `json:"target_date,omitempty"`
		Order        int     `json:"order"`
		Note         string  `json:"note,omitempty"`
	}

	goalViewJSON struct {
		goalJSON
		SavedSoFar string `json:"saved_so_far"`
		LeftToSave string `json:"left_to_save"`
		Percentage int    `json:"percentage"`
	}

	accountSummaryJSON struct {
		AccountID         int64  `json:"account_id"`
		AccountName       string `json:"account_name"`
		Balance           string `json:"balance"`
		SumOfSaved        string `json:"sum_of_saved"`
		SumOfTargets      string `json:"sum_of_targets"`
		LeftToSave        string `json:"left_to_save"`
		AvailableForGoals string `json:"available_for_goals"`
	}

	eventJSON struct {
		ID        int64     `json:"id"`
		Amount    string    `json:"amount"`
		CreatedAt time.Time `json:"created_at"`
	}

	exportJobJSON struct {
		ID       int64  `json:"id"`
		Key      string `json:"key"`
		Status   string `json:"status"`
		FileName string `json:"file_name"`
	}

	errorJSON struct {
		Error string `json:"error"`
		// Present on headroom/saved rejections so the client can show the
		// corrective limit.
		MaxAmount   *string `json:"max_amount,omitempty"`
		SavedAmount *string `json:"saved_amount,omitempty"`
	}
)

func toGoalJSON(g core.Goal) goalJSON {
	out := goalJSON{
		ID:           g.ID,
		AccountID:    g.AccountID,
		Name:         g.Name,
		TargetAmount: core.FormatAmount(g.TargetAmount),
		Order:        g.Order,
		Note:         g.Note,
	}
	if g.TargetDate != nil {
		s := g.TargetDate.Format("2006-01-02")
		out.TargetDate = &s
	}
	return out
}

func toGoalViewJSON(v core.GoalView) goalViewJSON {
	return goalViewJSON{
		goalJSON:   toGoalJSON(v.Goal),
		SavedSoFar: core.FormatAmount(v.SavedSoFar),
		LeftToSave: core.FormatAmount(v.LeftToSave),
		Percentage: v.Percentage,
	}
}

func toAccountSummaryJSON(s core.AccountSummary) accountSummaryJSON {
	return accountSummaryJSON{
		AccountID:         s.AccountID,
		AccountName:       s.AccountName,
		Balance:           core.FormatAmount(s.Balance),
		SumOfSaved:        core.FormatAmount(s.SumOfSaved),
		SumOfTargets:      core.FormatAmount(s.SumOfTargets),
		LeftToSave:        core.FormatAmount(s.LeftToSave),
		AvailableForGoals: core.FormatAmount(s.AvailableForGoals),
	}
}

func toEventsJSON(events []core.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{ID: e.ID, Amount: core.FormatAmount(e.Amount), CreatedAt: e.CreatedAt})
	}
	return out
}

func toDetailJSON(d ledger.GoalDetail) map[string]any {
	return map[string]any{
		"goal":         toGoalJSON(d.Goal),
		"saved_so_far": core.FormatAmount(d.SavedSoFar),
		"left_to_save": core.FormatAmount(d.LeftToSave),
		"percentage":   d.Percentage,
		"events":       toEventsJSON(d.Events),
	}
}

func toExportJobJSON(j core.ExportJob) exportJobJSON {
	return exportJobJSON{ID: j.ID, Key: j.Key, Status: j.Status, FileName: j.FileName}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors to statuses. Rejections stay user-facing
// and carry the computed limit; anything unrecognized is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		headroom *core.InsufficientHeadroomError
		saved    *core.InsufficientSavedError
	)
	switch {
	case errors.As(err, &headroom):
		max := core.FormatAmount(headroom.Max)
		writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: headroom.Error(), MaxAmount: &max})
	case errors.As(err, &saved):
		s := core.FormatAmount(saved.Saved)
		writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: saved.Error(), SavedAmount: &s})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorJSON{Error: err.Error()})
	case errors.Is(err, core.ErrConflict):
		writeJSON(w, http.StatusConflict, errorJSON{Error: err.Error()})
	case isValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"url", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal error"})
	}
}

func isValidation(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrEmptyName,
		core.ErrMissingAccount,
		core.ErrBadTargetDate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
