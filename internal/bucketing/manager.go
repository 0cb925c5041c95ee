package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"citizen-auth/internal/config"
)

// BucketingManager assigns accounts and events to fixed-size hash buckets so
// wide rows stay bounded in the backing store.
type BucketingManager struct {
	userBuckets  int
	eventBuckets int
	hasherPool   sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		userBuckets:  cfg.Bucketing.UserBuckets,
		eventBuckets: cfg.Bucketing.EventBuckets,
	}

	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// AccountBucket returns a stable bucket in [0, userBuckets) for an account id.
func (bm *BucketingManager) AccountBucket(accountID string) int {
	return bm.bucketFor(accountID, bm.userBuckets)
}

// EventBucket returns a stable bucket in [0, eventBuckets) for an event key.
func (bm *BucketingManager) EventBucket(key string) int {
	return bm.bucketFor(key, bm.eventBuckets)
}

// TimeBucket returns the hour bucket a timestamp falls into.
func (bm *BucketingManager) TimeBucket(t time.Time) int64 {
	return t.UTC().Unix() / 3600
}

func (bm *BucketingManager) bucketFor(key string, buckets int) int {
	if buckets <= 0 {
		return 0
	}

	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	_, _ = hasher.Write([]byte(key))

	return int(hasher.Sum64() % uint64(buckets))
}
