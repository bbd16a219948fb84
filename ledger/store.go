package ledger

// hasCreditor reports whether the ledger has ever seen creditor as a
// top-level key, regardless of whether any of its debtor records carry a
// nonzero balance.
func (l *Ledger) hasCreditor(creditor Participant) bool {
	_, ok := l.accounts[creditor]
	return ok
}

// hasDebtor reports whether ledger[creditor][debtor] exists.
func (l *Ledger) hasDebtor(creditor, debtor Participant) bool {
	debtors, ok := l.accounts[creditor]
	if !ok {
		return false
	}
	_, ok = debtors[debtor]
	return ok
}

// ensureDebtor idempotently creates ledger[creditor][debtor] with
// Owes = 0 and an empty Debts list, returning the (possibly
// pre-existing) record.
func (l *Ledger) ensureDebtor(creditor, debtor Participant) *DebtorRecord {
	debtors, ok := l.accounts[creditor]
	if !ok {
		debtors = make(map[Participant]*DebtorRecord)
		l.accounts[creditor] = debtors
	}
	rec, ok := debtors[debtor]
	if !ok {
		rec = &DebtorRecord{}
		debtors[debtor] = rec
	}
	return rec
}

// ensureTwoWayRelation ensures both ledger[creditor][debtor] and
// ledger[debtor][creditor] exist, preserving invariant 1 (symmetric
// presence).
func (l *Ledger) ensureTwoWayRelation(creditor, debtor Participant) {
	l.ensureDebtor(creditor, debtor)
	l.ensureDebtor(debtor, creditor)
}

// debtorRecord looks up ledger[creditor][debtor], returning a
// ProgrammerError if either level is missing. Used by operations that
// require the pair to already exist (the caller is responsible for having
// called ensureTwoWayRelation first).
func (l *Ledger) debtorRecord(creditor, debtor Participant) (*DebtorRecord, error) {
	debtors, ok := l.accounts[creditor]
	if !ok {
		return nil, &ProgrammerError{Op: "debtorRecord", Creditor: creditor}
	}
	rec, ok := debtors[debtor]
	if !ok {
		return nil, &ProgrammerError{Op: "debtorRecord", Creditor: creditor, Debtor: debtor, HasDebtor: true}
	}
	return rec, nil
}
