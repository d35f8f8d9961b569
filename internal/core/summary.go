package core

import "github.com/shopspring/decimal"

// GoalView is a goal decorated with the derived figures the list view needs.
type GoalView struct {
	Goal       Goal
	SavedSoFar decimal.Decimal
	LeftToSave decimal.Decimal
	Percentage int
}

// AccountSummary accumulates the goals of one account for display.
// AvailableForGoals is the account balance minus the unsaved remainder of
// every goal on it; it may be negative when the account is over-committed.
type AccountSummary struct {
	AccountID         int64
	AccountName       string
	Balance           decimal.Decimal
	SumOfSaved        decimal.Decimal
	SumOfTargets      decimal.Decimal
	LeftToSave        decimal.Decimal
	AvailableForGoals decimal.Decimal
}

// SummarizeAccounts groups goal views by account and accumulates per-account
// sums decimal-exactly. Balances are looked up from the supplied map, keyed
// by account id; accounts appear in first-goal order.
func SummarizeAccounts(views []GoalView, accounts map[int64]Account, balances map[int64]decimal.Decimal) []AccountSummary {
	index := make(map[int64]int)
	var out []AccountSummary

	for _, v := range views {
		id := v.Goal.AccountID
		i, ok := index[id]
		if !ok {
			acct := accounts[id]
			out = append(out, AccountSummary{
				AccountID:   id,
				AccountName: acct.Name,
				Balance:     balances[id],
			})
			i = len(out) - 1
			index[id] = i
		}
		out[i].SumOfSaved = out[i].SumOfSaved.Add(v.SavedSoFar)
		out[i].SumOfTargets = out[i].SumOfTargets.Add(v.Goal.TargetAmount)
		out[i].LeftToSave = out[i].LeftToSave.Add(v.LeftToSave)
	}

	for i := range out {
		out[i].AvailableForGoals = out[i].Balance.Sub(out[i].LeftToSave)
	}
	return out
}
