package ledger

import (
	"encoding/json"
	"fmt"
)

// Textual encoding: each level of the two-level mapping that is itself a
// keyed mapping is emitted as a tagged object (a tag name plus an ordered
// entry list of [key, value] pairs), so a reader of the text can tell a
// mapping apart from an ordinary record. The nested debtor record, debt,
// and history entry structures need no tag — they are plain records.

const (
	tagCreditorMap = "CreditorMap"
	tagDebtorMap   = "DebtorMap"
)

type textHistoryEntry struct {
	ExpenseID ExpenseID `json:"expense_id"`
	Grants    int64     `json:"grants"`
	Amount    int64     `json:"amount"`
}

type textDebt struct {
	ExpenseID ExpenseID          `json:"expense_id"`
	History   []textHistoryEntry `json:"history"`
}

type textDebtorRecord struct {
	Owes  int64      `json:"owes"`
	Debts []textDebt `json:"debts"`
}

type textDebtorMapEntry struct {
	Key   Participant      `json:"key"`
	Value textDebtorRecord `json:"value"`
}

type textDebtorMap struct {
	Tag     string               `json:"tag"`
	Entries []textDebtorMapEntry `json:"entries"`
}

type textCreditorMapEntry struct {
	Key   Participant   `json:"key"`
	Value textDebtorMap `json:"value"`
}

type textCreditorMap struct {
	Tag     string                 `json:"tag"`
	Entries []textCreditorMapEntry `json:"entries"`
}

// ToText renders the ledger to a self-describing textual form that
// round-trips through FromText.
func (l *Ledger) ToText() (string, error) {
	root := textCreditorMap{Tag: tagCreditorMap}

	for creditor, debtors := range l.accounts {
		dmap := textDebtorMap{Tag: tagDebtorMap}
		for debtor, rec := range debtors {
			dmap.Entries = append(dmap.Entries, textDebtorMapEntry{
				Key:   debtor,
				Value: encodeDebtorRecord(rec),
			})
		}
		root.Entries = append(root.Entries, textCreditorMapEntry{
			Key:   creditor,
			Value: dmap,
		})
	}

	b, err := json.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeDebtorRecord(rec *DebtorRecord) textDebtorRecord {
	out := textDebtorRecord{Owes: rec.Owes}
	for _, d := range rec.Debts {
		td := textDebt{ExpenseID: d.ExpenseID}
		for _, h := range d.History {
			td.History = append(td.History, textHistoryEntry{
				ExpenseID: h.ExpenseID,
				Grants:    h.Grants,
				Amount:    h.Amount,
			})
		}
		out.Debts = append(out.Debts, td)
	}
	return out
}

// FromText parses s and, on success, replaces the ledger's current state.
// On failure the ledger is left unchanged and a *DecodeError describing
// the offending structure is returned.
func (l *Ledger) FromText(s string) error {
	var root textCreditorMap
	if err := json.Unmarshal([]byte(s), &root); err != nil {
		return &DecodeError{Reason: "malformed JSON", Err: err}
	}
	if root.Tag != tagCreditorMap {
		return &DecodeError{Reason: fmt.Sprintf("expected tag %q at top level, got %q", tagCreditorMap, root.Tag)}
	}

	accounts := make(map[Participant]map[Participant]*DebtorRecord, len(root.Entries))
	for _, ce := range root.Entries {
		if ce.Value.Tag != tagDebtorMap {
			return &DecodeError{Reason: fmt.Sprintf("expected tag %q for creditor %q, got %q", tagDebtorMap, ce.Key, ce.Value.Tag)}
		}
		debtors := make(map[Participant]*DebtorRecord, len(ce.Value.Entries))
		for _, de := range ce.Value.Entries {
			debtors[de.Key] = decodeDebtorRecord(de.Value)
		}
		accounts[ce.Key] = debtors
	}

	l.accounts = accounts
	return nil
}

func decodeDebtorRecord(in textDebtorRecord) *DebtorRecord {
	rec := &DebtorRecord{Owes: in.Owes}
	for _, td := range in.Debts {
		d := &Debt{ExpenseID: td.ExpenseID}
		for _, h := range td.History {
			d.History = append(d.History, HistoryEntry{
				ExpenseID: h.ExpenseID,
				Grants:    h.Grants,
				Amount:    h.Amount,
			})
		}
		rec.Debts = append(rec.Debts, d)
	}
	return rec
}
