package ledgerservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"splitnet/config"
	"splitnet/ledger"
	"splitnet/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// GroupLedger wraps a single group's *ledger.Ledger with the external
// mutual-exclusion primitive the core requires around every public call.
type GroupLedger struct {
	mu                  sync.Mutex
	ledger              *ledger.Ledger
	eventsSinceSnapshot int
}

// Service is the mutex-per-group, durable front end to the in-memory
// ledger core: every Add call is first appended to the group's event log,
// then applied in memory, then optionally snapshotted.
type Service struct {
	db               *gorm.DB
	rdb              *redis.Client
	seq              *sequencer
	snapshotInterval int

	mu     sync.Mutex
	groups map[uuid.UUID]*GroupLedger
}

func New(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		db:               db,
		rdb:              rdb,
		seq:              newSequencer(db, rdb),
		snapshotInterval: config.AppConfig.LedgerSnapshotInterval,
		groups:           make(map[uuid.UUID]*GroupLedger),
	}
}

func participant(id uuid.UUID) ledger.Participant {
	return ledger.Participant(id.String())
}

func (s *Service) groupLedger(groupID uuid.UUID) (*GroupLedger, error) {
	s.mu.Lock()
	gl, ok := s.groups[groupID]
	s.mu.Unlock()
	if ok {
		return gl, nil
	}

	built, err := s.bootstrap(groupID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.groups[groupID]; ok {
		return existing, nil
	}
	s.groups[groupID] = built
	return built, nil
}

// bootstrap rebuilds a group's ledger from its newest snapshot (if any)
// plus every event recorded after it, per spec.md's replay-from-snapshot
// strategy for bounding cold-start cost.
func (s *Service) bootstrap(groupID uuid.UUID) (*GroupLedger, error) {
	l := ledger.New()
	var watermark int64

	var snap models.LedgerSnapshot
	err := s.db.Where("group_id = ?", groupID).Order("watermark_seq DESC").First(&snap).Error
	switch {
	case err == nil:
		if decodeErr := l.FromText(snap.Blob); decodeErr != nil {
			return nil, fmt.Errorf("ledgerservice: corrupt snapshot for group %s: %w", groupID, decodeErr)
		}
		watermark = snap.WatermarkSeq
	case err == gorm.ErrRecordNotFound:
		// no snapshot yet, replay the full event log
	default:
		return nil, err
	}

	var events []models.LedgerEvent
	q := s.db.Where("group_id = ?", groupID)
	if watermark > 0 {
		q = q.Where("ledger_expense_id > ?", watermark)
	}
	if err := q.Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}

	for _, ev := range events {
		creditor := participant(ev.Creditor)
		debtor := participant(ev.Debtor)
		if err := l.Add(creditor, debtor, ev.AmountMinor, ledger.ExpenseID(ev.LedgerExpenseID)); err != nil {
			return nil, fmt.Errorf("ledgerservice: replay failed for group %s event %s: %w", groupID, ev.ID, err)
		}
	}

	log.Printf("✅ ledger for group %s rebuilt (snapshot watermark %d, %d events replayed)", groupID, watermark, len(events))
	return &GroupLedger{ledger: l, eventsSinceSnapshot: len(events)}, nil
}

// claim is one pairwise claim an action grants: creditor grants debtor a
// debt of amountMinor.
type claim struct {
	Creditor    uuid.UUID
	Debtor      uuid.UUID
	AmountMinor int64
}

// SimplificationEvent records that a pairwise claim shrank as a side
// effect of absorbing an opposing one, for the activity feed's
// debt_simplified entries.
type SimplificationEvent struct {
	GroupID     uuid.UUID
	Creditor    uuid.UUID
	Debtor      uuid.UUID
	OffsetMinor int64
}

// apply persists events for claims under a single allocated ledger
// sequence number, applies them to the in-memory ledger under its mutex,
// snapshots when the interval has elapsed, and invalidates the balances
// cache.
func (s *Service) apply(ctx context.Context, groupID uuid.UUID, kind string, referenceID uuid.UUID, claims []claim) (int64, []SimplificationEvent, error) {
	if len(claims) == 0 {
		return 0, nil, nil
	}

	seq, err := s.seq.next(ctx, groupID)
	if err != nil {
		return 0, nil, fmt.Errorf("ledgerservice: allocate sequence: %w", err)
	}

	return s.applyWithSeq(ctx, groupID, kind, referenceID, seq, claims)
}

// applyWithSeq is apply's implementation, parameterized on an already
// allocated ledger sequence number. AdjustExpense reuses an expense's
// original sequence number so an edit or reversal appends to the same
// per-pair debt history rather than allocating a fresh one.
func (s *Service) applyWithSeq(ctx context.Context, groupID uuid.UUID, kind string, referenceID uuid.UUID, seq int64, claims []claim) (int64, []SimplificationEvent, error) {
	if len(claims) == 0 {
		return 0, nil, nil
	}

	events := make([]models.LedgerEvent, 0, len(claims))
	for _, c := range claims {
		events = append(events, models.LedgerEvent{
			GroupID:         groupID,
			LedgerExpenseID: seq,
			Creditor:        c.Creditor,
			Debtor:          c.Debtor,
			AmountMinor:     c.AmountMinor,
			Kind:            kind,
			ReferenceID:     referenceID,
		})
	}
	if err := s.db.Create(&events).Error; err != nil {
		return 0, nil, fmt.Errorf("ledgerservice: persist events: %w", err)
	}

	gl, err := s.groupLedger(groupID)
	if err != nil {
		return 0, nil, err
	}

	gl.mu.Lock()
	var simplifications []SimplificationEvent
	for _, c := range claims {
		before := opposingOwes(gl.ledger, c.Creditor, c.Debtor)
		if err := gl.ledger.Add(participant(c.Creditor), participant(c.Debtor), c.AmountMinor, ledger.ExpenseID(seq)); err != nil {
			gl.mu.Unlock()
			return 0, nil, fmt.Errorf("ledgerservice: apply claim: %w", err)
		}
		after := opposingOwes(gl.ledger, c.Creditor, c.Debtor)
		if after < before {
			simplifications = append(simplifications, SimplificationEvent{
				GroupID:     groupID,
				Creditor:    c.Debtor,
				Debtor:      c.Creditor,
				OffsetMinor: before - after,
			})
		}
	}
	gl.eventsSinceSnapshot += len(claims)

	var snapshotText string
	shouldSnapshot := s.snapshotInterval > 0 && gl.eventsSinceSnapshot >= s.snapshotInterval
	if shouldSnapshot {
		text, encodeErr := gl.ledger.ToText()
		if encodeErr == nil {
			snapshotText = text
			gl.eventsSinceSnapshot = 0
		}
	}
	gl.mu.Unlock()

	if snapshotText != "" {
		if err := s.db.Create(&models.LedgerSnapshot{GroupID: groupID, WatermarkSeq: seq, Blob: snapshotText}).Error; err != nil {
			log.Printf("⚠️  ledger snapshot failed for group %s: %v", groupID, err)
		}
	}

	s.invalidateBalances(ctx, groupID)
	return seq, simplifications, nil
}

// RecordExpense records one expense as a set of pairwise claims from the
// payer against each non-payer member, sharing a single ledger sequence
// number so the whole expense replays as one atomic unit. The returned
// SimplificationEvents describe any standing balance that shrank as a
// side effect, for the activity feed's debt_simplified entries.
func (s *Service) RecordExpense(ctx context.Context, groupID, expenseID, payer uuid.UUID, sharesMinor map[uuid.UUID]int64) (int64, []SimplificationEvent, error) {
	claims := make([]claim, 0, len(sharesMinor))
	for member, amount := range sharesMinor {
		if member == payer || amount <= 0 {
			continue
		}
		claims = append(claims, claim{Creditor: payer, Debtor: member, AmountMinor: amount})
	}
	return s.apply(ctx, groupID, "expense", expenseID, claims)
}

// RecordSettlement records a cash payment from payer to payee: payer
// becomes the momentary creditor of the settlement's own claim, which
// folds against any standing debt where payee was the creditor from an
// earlier expense.
func (s *Service) RecordSettlement(ctx context.Context, groupID, settlementID, payer, payee uuid.UUID, amountMinor int64) (int64, []SimplificationEvent, error) {
	if amountMinor <= 0 {
		return 0, nil, nil
	}
	return s.apply(ctx, groupID, "settlement", settlementID, []claim{{Creditor: payer, Debtor: payee, AmountMinor: amountMinor}})
}

// LedgerExpenseIDFor looks up the ledger sequence number an earlier
// RecordExpense/RecordSettlement call was assigned, keyed by its domain
// reference id (an Expense or Settlement row's UUID).
func (s *Service) LedgerExpenseIDFor(ctx context.Context, groupID, referenceID uuid.UUID) (int64, bool, error) {
	var event models.LedgerEvent
	err := s.db.Where("group_id = ? AND reference_id = ?", groupID, referenceID).First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return event.LedgerExpenseID, true, nil
}

// AdjustExpense posts the delta between an expense's previous and updated
// per-member shares under the expense's existing ledger sequence number,
// so the edit folds into the same per-pair debt history rather than
// starting a new one. A positive delta grows the payer's claim against a
// member; a negative delta is posted as the member granting a claim back
// against the payer, following the same momentary-creditor reversal
// shape a settlement uses.
func (s *Service) AdjustExpense(ctx context.Context, groupID uuid.UUID, ledgerExpenseID int64, payer uuid.UUID, deltasMinor map[uuid.UUID]int64) error {
	claims := make([]claim, 0, len(deltasMinor))
	for member, delta := range deltasMinor {
		switch {
		case member == payer || delta == 0:
			continue
		case delta > 0:
			claims = append(claims, claim{Creditor: payer, Debtor: member, AmountMinor: delta})
		default:
			claims = append(claims, claim{Creditor: member, Debtor: payer, AmountMinor: -delta})
		}
	}
	_, _, err := s.applyWithSeq(ctx, groupID, "expense_adjustment", uuid.Nil, ledgerExpenseID, claims)
	return err
}

// opposingOwes returns how much debtor's own claim against creditor
// currently stands at, i.e. the reverse pairing from the claim about to be
// posted. A fresh Add(creditor, debtor, ...) folds against exactly this
// amount, so comparing it before and after detects simplification.
func opposingOwes(l *ledger.Ledger, creditor, debtor uuid.UUID) int64 {
	debtors, ok := l.GetCreditors()[participant(debtor)]
	if !ok {
		return 0
	}
	rec, ok := debtors[participant(creditor)]
	if !ok {
		return 0
	}
	return rec.Owes
}

// Balances returns the group's netted creditor map, read through the
// Redis cache when available.
func (s *Service) Balances(ctx context.Context, groupID uuid.UUID) (map[ledger.Participant]map[ledger.Participant]*ledger.DebtorRecord, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, balancesKey(groupID)).Result(); err == nil {
			var out map[ledger.Participant]map[ledger.Participant]*ledger.DebtorRecord
			if jsonErr := json.Unmarshal([]byte(cached), &out); jsonErr == nil {
				return out, nil
			}
		}
	}

	gl, err := s.groupLedger(groupID)
	if err != nil {
		return nil, err
	}
	gl.mu.Lock()
	creditors := gl.ledger.GetCreditors()
	gl.mu.Unlock()

	if s.rdb != nil {
		if b, marshalErr := json.Marshal(creditors); marshalErr == nil {
			s.rdb.Set(ctx, balancesKey(groupID), b, 0)
		}
	}
	return creditors, nil
}

// ExpenseHistory returns the audit trail for the given ledger sequence
// number: one entry per debtor whose claim originated from it, each with
// the full sequence of later adjustments that netted against it.
func (s *Service) ExpenseHistory(ctx context.Context, groupID uuid.UUID, ledgerExpenseID int64) (map[uuid.UUID][]ledger.HistoryEntry, error) {
	gl, err := s.groupLedger(groupID)
	if err != nil {
		return nil, err
	}

	gl.mu.Lock()
	defer gl.mu.Unlock()

	out := make(map[uuid.UUID][]ledger.HistoryEntry)
	for _, debtors := range gl.ledger.GetCreditors() {
		for debtorParticipant, rec := range debtors {
			for _, debt := range rec.Debts {
				if int64(debt.ExpenseID) != ledgerExpenseID {
					continue
				}
				debtorID, parseErr := uuid.Parse(string(debtorParticipant))
				if parseErr != nil {
					continue
				}
				out[debtorID] = debt.History
			}
		}
	}
	return out, nil
}

func (s *Service) invalidateBalances(ctx context.Context, groupID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, balancesKey(groupID)).Err(); err != nil {
		log.Printf("⚠️  balances cache invalidation failed for group %s: %v", groupID, err)
	}
}

func balancesKey(groupID uuid.UUID) string {
	return "balances:" + groupID.String()
}
