package ledgerservice

import (
	"context"
	"testing"

	"splitnet/config"
	"splitnet/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.Load()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.LedgerEvent{}, &models.LedgerSnapshot{}, &models.LedgerSequence{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestRecordExpenseSplitsAmongMembers(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	ctx := context.Background()

	group := uuid.New()
	payer := uuid.New()
	a := uuid.New()
	b := uuid.New()
	expenseID := uuid.New()

	shares := map[uuid.UUID]int64{payer: 1000, a: 1000, b: 1000}
	seq, _, err := svc.RecordExpense(ctx, group, expenseID, payer, shares)
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected first ledger sequence to be 1, got %d", seq)
	}

	creditors, err := svc.Balances(ctx, group)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	rec := creditors[participant(payer)][participant(a)]
	if rec == nil || rec.Owes != 1000 {
		t.Fatalf("expected a to owe payer 1000, got %+v", rec)
	}
	recB := creditors[participant(payer)][participant(b)]
	if recB == nil || recB.Owes != 1000 {
		t.Fatalf("expected b to owe payer 1000, got %+v", recB)
	}
}

func TestRecordSettlementFoldsAgainstStandingDebt(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	ctx := context.Background()

	group := uuid.New()
	payer := uuid.New()
	member := uuid.New()

	if _, _, err := svc.RecordExpense(ctx, group, uuid.New(), payer, map[uuid.UUID]int64{payer: 0, member: 1000}); err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}

	_, simplifications, err := svc.RecordSettlement(ctx, group, uuid.New(), member, payer, 400)
	if err != nil {
		t.Fatalf("RecordSettlement: %v", err)
	}
	if len(simplifications) != 1 {
		t.Fatalf("expected one simplification event, got %d", len(simplifications))
	}
	if simplifications[0].OffsetMinor != 400 {
		t.Fatalf("expected offset of 400, got %d", simplifications[0].OffsetMinor)
	}

	creditors, err := svc.Balances(ctx, group)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	rec := creditors[participant(payer)][participant(member)]
	if rec == nil || rec.Owes != 600 {
		t.Fatalf("expected remaining debt of 600, got %+v", rec)
	}
}

func TestAdjustExpensePostsDeltaUnderSameSequence(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	ctx := context.Background()

	group := uuid.New()
	payer := uuid.New()
	member := uuid.New()
	expenseID := uuid.New()

	seq, _, err := svc.RecordExpense(ctx, group, expenseID, payer, map[uuid.UUID]int64{member: 1000})
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}

	ledgerExpenseID, found, err := svc.LedgerExpenseIDFor(ctx, group, expenseID)
	if err != nil || !found {
		t.Fatalf("LedgerExpenseIDFor: found=%v err=%v", found, err)
	}
	if ledgerExpenseID != seq {
		t.Fatalf("expected ledger expense id %d, got %d", seq, ledgerExpenseID)
	}

	if err := svc.AdjustExpense(ctx, group, ledgerExpenseID, payer, map[uuid.UUID]int64{member: 500}); err != nil {
		t.Fatalf("AdjustExpense grow: %v", err)
	}

	creditors, err := svc.Balances(ctx, group)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	rec := creditors[participant(payer)][participant(member)]
	if rec == nil || rec.Owes != 1500 {
		t.Fatalf("expected owes 1500 after +500 delta, got %+v", rec)
	}

	if err := svc.AdjustExpense(ctx, group, ledgerExpenseID, payer, map[uuid.UUID]int64{member: -700}); err != nil {
		t.Fatalf("AdjustExpense shrink: %v", err)
	}

	creditors, err = svc.Balances(ctx, group)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	rec = creditors[participant(payer)][participant(member)]
	if rec == nil || rec.Owes != 800 {
		t.Fatalf("expected owes 800 after -700 delta, got %+v", rec)
	}

	history, err := svc.ExpenseHistory(ctx, group, ledgerExpenseID)
	if err != nil {
		t.Fatalf("ExpenseHistory: %v", err)
	}
	if len(history[member]) == 0 {
		t.Fatalf("expected at least one history entry for member")
	}
}

func TestBootstrapReplaysEventsFromFreshService(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil)
	ctx := context.Background()

	group := uuid.New()
	payer := uuid.New()
	member := uuid.New()

	if _, _, err := svc.RecordExpense(ctx, group, uuid.New(), payer, map[uuid.UUID]int64{member: 2000}); err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}

	fresh := New(db, nil)
	creditors, err := fresh.Balances(ctx, group)
	if err != nil {
		t.Fatalf("Balances on fresh service: %v", err)
	}
	rec := creditors[participant(payer)][participant(member)]
	if rec == nil || rec.Owes != 2000 {
		t.Fatalf("expected replayed debt of 2000, got %+v", rec)
	}
}

func TestToAndFromMinorUnitsRoundTrip(t *testing.T) {
	const scale = int64(100)
	minor := ToMinorUnits(19.99, scale)
	if minor != 1999 {
		t.Fatalf("expected 1999 minor units, got %d", minor)
	}
	major := FromMinorUnits(minor, scale)
	if major != 19.99 {
		t.Fatalf("expected 19.99 back, got %v", major)
	}
}
