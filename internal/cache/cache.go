package cache

import (
	"strconv"
	"time"

	"github.com/ppiankov/clientscore/internal/model"
)

// Cache defines the interface for caching client records
type Cache interface {
	Get(id int64) (*model.ClientRecord, bool)
	Set(record *model.ClientRecord, ttl time.Duration)
	Delete(id int64)
	Clear()
}

// CacheKey generates a cache key for a client id
func CacheKey(id int64) string {
	return "clientscore:v1:client:" + strconv.FormatInt(id, 10)
}
