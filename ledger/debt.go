package ledger

import "sort"

// HistoryEntry is one atomic adjustment applied to a single Debt.
// ExpenseID names the opposing expense that caused the adjustment (or, for
// a debt's first entry, the debt's own expense id — the initial booking).
// Amount is the debt's resulting amount after Grants is applied; it never
// goes negative.
type HistoryEntry struct {
	ExpenseID ExpenseID
	Grants    int64
	Amount    int64
}

// Debt is the lifetime of a single expense's outstanding claim: the
// expense that originated it, plus its append-only adjustment history.
type Debt struct {
	ExpenseID ExpenseID
	History   []HistoryEntry
}

// currentAmount is the amount field of the last history entry, or zero for
// a debt with no history yet.
func currentAmount(d *Debt) int64 {
	if len(d.History) == 0 {
		return 0
	}
	return d.History[len(d.History)-1].Amount
}

// DebtorRecord is the claim one participant holds against another: a
// scalar cache (Owes) plus the individual Debts that sum to it.
type DebtorRecord struct {
	Owes  int64
	Debts []*Debt
}

// sortDebtsAscending orders a debtor record's debts ascending by current
// amount, as required before every simplify pass. Ties among equal-amount
// debts are broken arbitrarily — spec does not require a stable order, and
// no tested invariant depends on one.
func sortDebtsAscending(debts []*Debt) {
	sort.Slice(debts, func(i, j int) bool {
		return currentAmount(debts[i]) < currentAmount(debts[j])
	})
}

// upsert locates or creates the debt identified by toExpense within rec,
// appends a history entry recording a grants-sized adjustment attributed
// to fromExpense, and folds grants into rec.Owes. The caller must choose
// grants such that the debt's resulting amount is non-negative; the
// netting algorithm guarantees this by construction.
func upsert(rec *DebtorRecord, fromExpense, toExpense ExpenseID, grants int64) {
	debt := findDebt(rec, toExpense)
	if debt == nil {
		debt = &Debt{ExpenseID: toExpense}
		rec.Debts = append(rec.Debts, debt)
	}
	appendAdjustment(debt, fromExpense, grants)
	rec.Owes += grants
}

func findDebt(rec *DebtorRecord, expenseID ExpenseID) *Debt {
	for _, d := range rec.Debts {
		if d.ExpenseID == expenseID {
			return d
		}
	}
	return nil
}

// appendAdjustment appends a history entry to debt, attributed to
// opposingExpense, carrying the given signed delta.
func appendAdjustment(debt *Debt, opposingExpense ExpenseID, grants int64) {
	prev := int64(0)
	if n := len(debt.History); n > 0 {
		prev = debt.History[n-1].Amount
	}
	debt.History = append(debt.History, HistoryEntry{
		ExpenseID: opposingExpense,
		Grants:    grants,
		Amount:    prev + grants,
	})
}
