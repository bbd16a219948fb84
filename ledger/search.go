package ledger

// findRightmostIndex locates, within debts sorted ascending by current
// amount, the offset target to absorb first:
//
//   - if some debt's current amount equals target exactly, the rightmost
//     such index;
//   - otherwise, the index of the largest debt whose current amount is
//     strictly less than target (the insertion point minus one), clamped
//     to 0 when target is smaller than every debt's amount;
//   - -1 on an empty slice.
//
// The skip-zero rule then applies: if the chosen index's amount is zero
// and a next index exists, that next index is returned instead — paid-off
// debts cluster at the front of the ascending list and must never be
// picked as the offset target.
func findRightmostIndex(target int64, debts []*Debt) int {
	n := len(debts)
	if n == 0 {
		return -1
	}

	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if currentAmount(debts[mid]) > target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	idx := lo - 1
	if idx < 0 {
		idx = 0
	}

	if currentAmount(debts[idx]) == 0 && idx+1 < n {
		idx++
	}
	return idx
}
