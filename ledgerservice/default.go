package ledgerservice

import (
	"gorm.io/gorm"

	"github.com/redis/go-redis/v9"
)

// Default is the process-wide ledger service, wired up once in main.go
// after database.Connect()/database.ConnectRedis() the same way the
// teacher wires up its single package-level database.DB.
var Default *Service

func Init(db *gorm.DB, rdb *redis.Client) {
	Default = New(db, rdb)
}
