package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerEvent is the durable, replayable record of a single ledger.Add
// call. The in-memory *ledger.Ledger for a group is rebuilt by replaying
// its events (optionally starting from the nearest LedgerSnapshot) in
// CreatedAt order.
type LedgerEvent struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID         uuid.UUID `gorm:"type:uuid;index:idx_ledger_events_group" json:"group_id"`
	LedgerExpenseID int64     `gorm:"not null;index:idx_ledger_events_group" json:"ledger_expense_id"`
	Creditor        uuid.UUID `gorm:"type:uuid;not null" json:"creditor"`
	Debtor          uuid.UUID `gorm:"type:uuid;not null" json:"debtor"`
	AmountMinor     int64     `gorm:"not null" json:"amount_minor"`
	Kind            string    `gorm:"not null;size:20" json:"kind"` // expense, settlement, expense_adjustment
	ReferenceID     uuid.UUID `gorm:"type:uuid" json:"reference_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func (e *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// LedgerSnapshot is a point-in-time ledger.ToText() dump taken every
// LEDGER_SNAPSHOT_INTERVAL events, so a cold start only has to replay the
// events after the newest snapshot instead of the group's entire history.
type LedgerSnapshot struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID      uuid.UUID `gorm:"type:uuid;index" json:"group_id"`
	WatermarkSeq int64     `gorm:"not null" json:"watermark_seq"`
	Blob         string    `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *LedgerSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// LedgerSequence is the database fallback for allocating monotonically
// increasing ledger.ExpenseID values per group when Redis is unavailable.
type LedgerSequence struct {
	GroupID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"group_id"`
	NextValue int64     `gorm:"not null;default:0" json:"next_value"`
}
