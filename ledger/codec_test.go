package ledger

import (
	"strings"
	"testing"
)

func TestToTextProducesTaggedStructure(t *testing.T) {
	t.Parallel()
	l := New()
	mustAdd(t, l, A, B, 10, 0)

	text, err := l.ToText()
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if !strings.Contains(text, tagCreditorMap) {
		t.Errorf("expected the outer tag %q in the textual form, got: %s", tagCreditorMap, text)
	}
	if !strings.Contains(text, tagDebtorMap) {
		t.Errorf("expected an inner tag %q in the textual form, got: %s", tagDebtorMap, text)
	}
}

func TestToTextOnEmptyLedger(t *testing.T) {
	t.Parallel()
	l := New()
	text, err := l.ToText()
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}

	restored := New()
	if err := restored.FromText(text); err != nil {
		t.Fatalf("FromText: %v", err)
	}
	if len(restored.accounts) != 0 {
		t.Errorf("expected an empty restored ledger, got %d creditors", len(restored.accounts))
	}
}
