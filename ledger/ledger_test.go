package ledger

import "testing"

// checkInvariants verifies P1, P2, P3 across every pair the ledger has
// ever recorded.
func checkInvariants(t *testing.T, l *Ledger) {
	t.Helper()
	for creditor, debtors := range l.accounts {
		for debtor, rec := range debtors {
			var sum int64
			for _, d := range rec.Debts {
				amt := currentAmount(d)
				if amt < 0 {
					t.Errorf("P2 violated: %s->%s debt %d has negative current amount %d", creditor, debtor, d.ExpenseID, amt)
				}
				for _, h := range d.History {
					if h.Amount < 0 {
						t.Errorf("P2 violated: %s->%s debt %d history entry has negative amount %d", creditor, debtor, d.ExpenseID, h.Amount)
					}
				}
				sum += amt
			}
			if sum != rec.Owes {
				t.Errorf("P1 violated: %s->%s owes=%d but debts sum to %d", creditor, debtor, rec.Owes, sum)
			}
			if rec.Owes < 0 {
				t.Errorf("P2 violated: %s->%s owes is negative: %d", creditor, debtor, rec.Owes)
			}
			if opposite, ok := l.accounts[debtor][creditor]; ok {
				if rec.Owes != 0 && opposite.Owes != 0 {
					t.Errorf("P3 violated: both %s->%s (%d) and %s->%s (%d) are nonzero", creditor, debtor, rec.Owes, debtor, creditor, opposite.Owes)
				}
			}
		}
	}
}

// checkHistoryContinuity verifies P4: each debt's amount sequence is the
// prefix sum of its grants sequence.
func checkHistoryContinuity(t *testing.T, l *Ledger) {
	t.Helper()
	for creditor, debtors := range l.accounts {
		for debtor, rec := range debtors {
			for _, d := range rec.Debts {
				var running int64
				for i, h := range d.History {
					running += h.Grants
					if h.Amount != running {
						t.Errorf("P4 violated: %s->%s debt %d entry %d: amount %d != prefix sum %d", creditor, debtor, d.ExpenseID, i, h.Amount, running)
					}
				}
			}
		}
	}
}

func owes(t *testing.T, l *Ledger, creditor, debtor Participant) int64 {
	t.Helper()
	debtors, ok := l.accounts[creditor]
	if !ok {
		t.Fatalf("no creditor %q in ledger", creditor)
	}
	rec, ok := debtors[debtor]
	if !ok {
		t.Fatalf("no debtor %q under creditor %q", debtor, creditor)
	}
	return rec.Owes
}

func mustAdd(t *testing.T, l *Ledger, creditor, debtor Participant, amount int64, expenseID ExpenseID) {
	t.Helper()
	if err := l.Add(creditor, debtor, amount, expenseID); err != nil {
		t.Fatalf("Add(%s,%s,%d,%d): %v", creditor, debtor, amount, expenseID, err)
	}
}

const (
	A Participant = "A"
	B Participant = "B"
	C Participant = "C"
)

func TestSimpleNetting(t *testing.T) {
	t.Parallel()
	l := New()
	mustAdd(t, l, A, B, 10, 0)
	mustAdd(t, l, A, B, 5, 1)
	mustAdd(t, l, B, A, 7, 2)

	if got := owes(t, l, A, B); got != 8 {
		t.Errorf("A->B owes = %d, want 8", got)
	}
	if got := owes(t, l, B, A); got != 0 {
		t.Errorf("B->A owes = %d, want 0", got)
	}
	checkInvariants(t, l)
	checkHistoryContinuity(t, l)
}

func TestMultipleBackAndForth(t *testing.T) {
	t.Parallel()
	l := New()
	mustAdd(t, l, A, B, 10, 0)
	mustAdd(t, l, A, B, 5, 1)
	mustAdd(t, l, B, A, 7, 2)
	mustAdd(t, l, A, B, 12, 3)
	mustAdd(t, l, B, A, 3, 4)

	if got := owes(t, l, A, B); got != 17 {
		t.Errorf("A->B owes = %d, want 17", got)
	}
	if got := owes(t, l, B, A); got != 0 {
		t.Errorf("B->A owes = %d, want 0", got)
	}
	checkInvariants(t, l)
	checkHistoryContinuity(t, l)
}

func currentAmountOfExpense(t *testing.T, l *Ledger, creditor, debtor Participant, expenseID ExpenseID) int64 {
	t.Helper()
	rec, err := l.debtorRecord(creditor, debtor)
	if err != nil {
		t.Fatalf("debtorRecord(%s,%s): %v", creditor, debtor, err)
	}
	d := findDebt(rec, expenseID)
	if d == nil {
		t.Fatalf("no debt %d under %s->%s", expenseID, creditor, debtor)
	}
	return currentAmount(d)
}

func TestCoverAllSmallFirst(t *testing.T) {
	t.Parallel()
	l := New()
	mustAdd(t, l, A, B, 7, 0)
	mustAdd(t, l, A, B, 3, 1)
	mustAdd(t, l, A, B, 2, 2)
	mustAdd(t, l, A, B, 1, 3)
	mustAdd(t, l, A, B, 1, 4)
	mustAdd(t, l, A, B, 1, 5)
	mustAdd(t, l, B, A, 14, 6)

	// Every expense but one is fully absorbed; which of the three
	// equal-amount 1-debts (expenses 3, 4, 5) survives is a tie-break the
	// comparator doesn't promise to resolve a particular way, so only the
	// conservation-derived total and the structural invariants are checked.
	if got := owes(t, l, A, B); got != 1 {
		t.Errorf("A->B owes = %d, want 1", got)
	}
	checkInvariants(t, l)
	checkHistoryContinuity(t, l)
}

func TestCoverAllSmallWhenPartial(t *testing.T) {
	t.Parallel()
	l := New()
	mustAdd(t, l, A, B, 7, 0)
	mustAdd(t, l, A, B, 3, 1)
	mustAdd(t, l, A, B, 2, 2)
	mustAdd(t, l, A, B, 1, 3)
	mustAdd(t, l, A, B, 1, 4)
	mustAdd(t, l, A, B, 1, 5)
	mustAdd(t, l, B, A, 7, 6)

	// B->A only ever holds 7, and the sorted sweep finds an exact match at
	// expense 0's 7-debt: that single debt absorbs the whole opposing
	// claim in one step and the sweep stops, leaving expenses 1-5 (3+2+1+1+1)
	// untouched and 15-7=8 outstanding.
	want := []int64{0, 3, 2, 1, 1, 1}
	for i, w := range want {
		if got := currentAmountOfExpense(t, l, A, B, ExpenseID(i)); got != w {
			t.Errorf("expense %d current amount = %d, want %d", i, got, w)
		}
	}
	if got := owes(t, l, A, B); got != 8 {
		t.Errorf("A->B owes = %d, want 8", got)
	}
	checkInvariants(t, l)
	checkHistoryContinuity(t, l)
}

func TestPartialAbsorption(t *testing.T) {
	t.Parallel()
	l := New()
	mustAdd(t, l, A, B, 7, 0)
	mustAdd(t, l, A, B, 2, 1)
	mustAdd(t, l, A, B, 2, 2)
	mustAdd(t, l, A, B, 1, 3)
	mustAdd(t, l, A, B, 1, 4)
	mustAdd(t, l, A, B, 1, 5)
	mustAdd(t, l, B, A, 11, 6)

	want := []int64{0, 0, 0, 1, 1, 1}
	for i, w := range want {
		if got := currentAmountOfExpense(t, l, A, B, ExpenseID(i)); got != w {
			t.Errorf("expense %d current amount = %d, want %d", i, got, w)
		}
	}
	if got := owes(t, l, A, B); got != 3 {
		t.Errorf("A->B owes = %d, want 3", got)
	}
	checkInvariants(t, l)
	checkHistoryContinuity(t, l)
}

func TestThreePartyIsolation(t *testing.T) {
	t.Parallel()

	run := func(t *testing.T, adds func(l *Ledger)) *Ledger {
		l := New()
		adds(l)
		return l
	}

	inOrder := func(l *Ledger) {
		mustAdd(t, l, A, B, 10, 0)
		mustAdd(t, l, A, B, 5, 1)
		mustAdd(t, l, A, C, 5, 2)
		mustAdd(t, l, B, A, 7, 3)
		mustAdd(t, l, B, A, 3, 4)
		mustAdd(t, l, C, B, 10, 5)
		mustAdd(t, l, C, A, 10, 6)
	}

	assertFinal := func(t *testing.T, l *Ledger) {
		t.Helper()
		cases := []struct {
			c, d Participant
			want int64
		}{
			{A, B, 5}, {A, C, 0},
			{B, A, 0}, {B, C, 0},
			{C, A, 5}, {C, B, 10},
		}
		for _, tc := range cases {
			if got := owes(t, l, tc.c, tc.d); got != tc.want {
				t.Errorf("%s->%s owes = %d, want %d", tc.c, tc.d, got, tc.want)
			}
		}
		checkInvariants(t, l)
		checkHistoryContinuity(t, l)
	}

	t.Run("given order", func(t *testing.T) {
		l := run(t, inOrder)
		assertFinal(t, l)
	})

	// A different issuance order for the same seven facts must yield the
	// same final owes per pair (section 8: "must yield the same final
	// owes regardless of the order in which its seven adds are issued").
	reordered := func(l *Ledger) {
		mustAdd(t, l, A, C, 5, 2)
		mustAdd(t, l, C, A, 10, 6)
		mustAdd(t, l, A, B, 10, 0)
		mustAdd(t, l, B, A, 7, 3)
		mustAdd(t, l, A, B, 5, 1)
		mustAdd(t, l, C, B, 10, 5)
		mustAdd(t, l, B, A, 3, 4)
	}

	t.Run("reordered", func(t *testing.T) {
		l := run(t, reordered)
		assertFinal(t, l)
	})
}

func TestAddZeroAmountIsNoOp(t *testing.T) {
	t.Parallel()
	l := New()
	if err := l.Add(A, B, 0, 0); err != nil {
		t.Fatalf("Add with zero amount: %v", err)
	}
	if !l.hasDebtor(A, B) || !l.hasDebtor(B, A) {
		t.Error("zero-amount Add must still establish symmetric presence")
	}
	if got := owes(t, l, A, B); got != 0 {
		t.Errorf("A->B owes = %d, want 0", got)
	}
}

func TestDuplicateExpenseIDAppendsToExistingDebt(t *testing.T) {
	t.Parallel()
	l := New()
	mustAdd(t, l, A, B, 10, 0)
	mustAdd(t, l, A, B, 5, 0) // reuses expense id 0

	rec, err := l.debtorRecord(A, B)
	if err != nil {
		t.Fatalf("debtorRecord: %v", err)
	}
	if len(rec.Debts) != 1 {
		t.Fatalf("expected a single debt for the reused expense id, got %d", len(rec.Debts))
	}
	if got := currentAmount(rec.Debts[0]); got != 15 {
		t.Errorf("debt 0 current amount = %d, want 15", got)
	}
}
