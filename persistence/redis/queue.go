package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/persistence"
	"go.uber.org/zap"
)

var _ persistence.Queue = new(redisQueue)

// redisQueue spreads one logical topic over partitionCount redis lists,
// hashed by partition key so that all continuations of one runtime land in
// the same list.
type redisQueue struct {
	baseDao
	mu               sync.Mutex
	currentPartition int
}

func NewRedisQueue(conf Config) *redisQueue {
	return &redisQueue{
		baseDao: *newBaseDao(conf),
	}
}

func (rq *redisQueue) Push(queueName string, partitionKey string, message []byte) error {
	partition := strconv.Itoa(rq.getPartition(partitionKey))
	key := rq.getNamespaceKey(queueName, partition)
	ctx := context.Background()
	if err := rq.redisClient.LPush(ctx, key, message).Err(); err != nil {
		logger.Error("error while push to redis list", zap.String("queue", key), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	return nil
}

func (rq *redisQueue) Pop(queueName string, batchSize int) ([]string, error) {
	result := make([]string, 0, batchSize)
	for i := 0; i < rq.partitionCount && len(result) < batchSize; i++ {
		partition := rq.nextPartition()
		key := rq.getNamespaceKey(queueName, strconv.Itoa(partition))
		items, err := rq.pop(key, batchSize-len(result))
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	if len(result) == 0 {
		return nil, persistence.EmptyQueueError{QueueName: queueName}
	}
	return result, nil
}

func (rq *redisQueue) pop(key string, batchSize int) ([]string, error) {
	ctx := context.Background()
	res, err := rq.redisClient.LPopCount(ctx, key, batchSize).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []string{}, nil
		}
		logger.Error("error while pop from redis list", zap.String("queue", key), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	return res, nil
}

func (rq *redisQueue) PushDLQ(queueName string, message []byte) error {
	key := rq.getNamespaceKey(queueName, "dlq")
	ctx := context.Background()
	if err := rq.redisClient.RPush(ctx, key, message).Err(); err != nil {
		logger.Error("error while push to dead letter queue", zap.String("queue", key), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	return nil
}

func (rq *redisQueue) nextPartition() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	rq.currentPartition = (rq.currentPartition + 1) % rq.partitionCount
	return rq.currentPartition
}
