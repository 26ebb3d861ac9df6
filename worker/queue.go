package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrQueueEmpty is returned by Pop when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("worker: queue empty")

// Queue is a set of named FIFO lists of string payloads.
type Queue interface {
	Push(ctx context.Context, queue, payload string) error
	// Pop blocks for up to timeout and returns the queue the payload came from.
	Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, string, error)
}

// RedisQueue keeps each queue in a Redis list: LPUSH to add, BRPOP to take.
type RedisQueue struct {
	RDB *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{RDB: rdb}
}

func (q *RedisQueue) Push(ctx context.Context, queue, payload string) error {
	return q.RDB.LPush(ctx, queue, payload).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration, queues ...string) (string, string, error) {
	// result[0] is the queue name, result[1] is the payload
	result, err := q.RDB.BRPop(ctx, timeout, queues...).Result()
	if errors.Is(err, redis.Nil) {
		return "", "", ErrQueueEmpty
	}
	if err != nil {
		return "", "", err
	}
	return result[0], result[1], nil
}

// Len reports how many tasks wait in queue.
func (q *RedisQueue) Len(ctx context.Context, queue string) (int64, error) {
	return q.RDB.LLen(ctx, queue).Result()
}
