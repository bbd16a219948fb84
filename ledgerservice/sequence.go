package ledgerservice

import (
	"context"
	"log"

	"splitnet/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sequencer allocates the per-group, monotonically increasing integers
// used as ledger.ExpenseID. Redis INCR is tried first to avoid a DB round
// trip on every write; when Redis is unavailable it falls back to a
// row-locked counter table, mirroring the optional-Redis pattern the rest
// of the service uses.
type sequencer struct {
	db  *gorm.DB
	rdb *redis.Client
}

func newSequencer(db *gorm.DB, rdb *redis.Client) *sequencer {
	return &sequencer{db: db, rdb: rdb}
}

func (s *sequencer) next(ctx context.Context, groupID uuid.UUID) (int64, error) {
	if s.rdb != nil {
		val, err := s.rdb.Incr(ctx, seqKey(groupID)).Result()
		if err == nil {
			return val, nil
		}
		log.Printf("⚠️  sequence: redis INCR failed for group %s, falling back to db: %v", groupID, err)
	}
	return s.nextFromDB(groupID)
}

func (s *sequencer) nextFromDB(groupID uuid.UUID) (int64, error) {
	var next int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var seq models.LedgerSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("group_id = ?", groupID).First(&seq).Error
		if err == gorm.ErrRecordNotFound {
			seq = models.LedgerSequence{GroupID: groupID, NextValue: 0}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		seq.NextValue++
		next = seq.NextValue
		return tx.Save(&seq).Error
	})
	return next, err
}

func seqKey(groupID uuid.UUID) string {
	return "seq:" + groupID.String() + ":expense"
}
