package service

import (
	"context"
	"hash/fnv"
	"sync"

	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// txShardCount is the number of lock shards. Distinct users may share a
// shard, which costs some parallelism but never correctness.
const txShardCount = 128

// ShardedAtomic serializes critical sections per user with in-process
// mutexes, sharded by FNV-1a of the user id. Pairs with the in-memory
// stores; deployments backed by Postgres use PostgresAtomic instead.
type ShardedAtomic struct {
	shards [txShardCount]sync.Mutex
}

func NewShardedAtomic() *ShardedAtomic {
	return &ShardedAtomic{}
}

// RunInUserTx runs fn while holding the user's shard lock. The context is
// checked before and after acquiring the lock so a cancelled request does
// not execute a stale critical section.
func (a *ShardedAtomic) RunInUserTx(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled before acquiring user lock")
	}

	shard := &a.shards[shardIndex(userID)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled while holding user lock")
	}
	return fn(ctx)
}

func shardIndex(userID id.UserID) uint32 {
	h := fnv.New32a()
	h.Write([]byte(userID.String()))
	return h.Sum32() % txShardCount
}
