package ledger

// simplify folds the largest outstanding debt owed by debtor to creditor
// against debtor's opposing debts (owed by creditor to debtor), absorbing
// as many small opposing debts as possible before spending any remainder
// on a larger one. It is invoked once per Add, against the pair that call
// just updated.
func (l *Ledger) simplify(creditor, debtor Participant) error {
	a, err := l.debtorRecord(creditor, debtor) // the side holding the new claim
	if err != nil {
		return err
	}
	b, err := l.debtorRecord(debtor, creditor) // the opposing side
	if err != nil {
		return err
	}

	if len(a.Debts) == 0 {
		return nil
	}

	sortDebtsAscending(a.Debts)
	debtA := a.Debts[len(a.Debts)-1]
	x := currentAmount(debtA)

	sortDebtsAscending(b.Debts)
	j := findRightmostIndex(x, b.Debts)
	jStart := j
	prefixSum := sumThrough(b.Debts, j)

	for x > 0 {
		if j < 0 {
			break
		}
		debtB := b.Debts[j]
		y := currentAmount(debtB)
		if y <= 0 {
			break
		}
		prefixSum -= y

		newY := max64(y-x, 0)
		newX := x - (y - newY)
		grants := -(x - newX)

		appendAdjustment(debtA, debtB.ExpenseID, grants)
		a.Owes += grants
		appendAdjustment(debtB, debtA.ExpenseID, grants)
		b.Owes += grants

		x = newX

		if prefixSum > 0 {
			j--
		} else if jStart+1 < len(b.Debts) {
			j = jStart + 1
		} else {
			j = len(b.Debts) - 1
		}
	}

	return nil
}

// sumThrough sums the current amounts of debts[0..j] inclusive. j < 0
// yields 0.
func sumThrough(debts []*Debt, j int) int64 {
	var sum int64
	for i := 0; i <= j && i < len(debts); i++ {
		sum += currentAmount(debts[i])
	}
	return sum
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
