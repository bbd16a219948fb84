package ledger

import "testing"

func debtsOf(amounts ...int64) []*Debt {
	debts := make([]*Debt, len(amounts))
	for i, a := range amounts {
		debts[i] = &Debt{
			ExpenseID: ExpenseID(i),
			History:   []HistoryEntry{{ExpenseID: ExpenseID(i), Grants: a, Amount: a}},
		}
	}
	return debts
}

func TestFindRightmostIndexEmpty(t *testing.T) {
	t.Parallel()
	if got := findRightmostIndex(5, nil); got != -1 {
		t.Errorf("empty slice: got %d, want -1", got)
	}
}

func TestFindRightmostIndexExactMatchRightmost(t *testing.T) {
	t.Parallel()
	debts := debtsOf(1, 5, 5, 9)
	if got := findRightmostIndex(5, debts); got != 2 {
		t.Errorf("got %d, want 2 (rightmost exact match)", got)
	}
}

func TestFindRightmostIndexInsertionPointMinusOne(t *testing.T) {
	t.Parallel()
	debts := debtsOf(1, 4, 9)
	if got := findRightmostIndex(7, debts); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestFindRightmostIndexClampedToZero(t *testing.T) {
	t.Parallel()
	debts := debtsOf(5, 7, 9)
	if got := findRightmostIndex(1, debts); got != 0 {
		t.Errorf("got %d, want 0 (clamped)", got)
	}
}

func TestFindRightmostIndexSkipZero(t *testing.T) {
	t.Parallel()
	debts := debtsOf(0, 0, 6, 9)
	if got := findRightmostIndex(3, debts); got != 2 {
		t.Errorf("got %d, want 2 (skip-zero rule)", got)
	}
}

func TestFindRightmostIndexSkipZeroNoNext(t *testing.T) {
	t.Parallel()
	debts := debtsOf(0, 0)
	if got := findRightmostIndex(3, debts); got != 1 {
		t.Errorf("got %d, want 1 (last index kept when no next exists)", got)
	}
}
