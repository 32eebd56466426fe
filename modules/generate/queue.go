package generate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue - ジョブキューと付随する一時状態（入力スタッシュ・重複ガード）の操作
// ハンドラとワーカーはこのインターフェース越しに Redis に触れる
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error)
	StashInput(ctx context.Context, jobID string, data []byte, ttl time.Duration) error
	TakeInput(ctx context.Context, jobID string) ([]byte, error)
	DropInput(ctx context.Context, jobID string) error
	LookupGuard(ctx context.Context, uploadHash string) (string, bool, error)
	SetGuard(ctx context.Context, uploadHash string, recordID string, ttl time.Duration) error
}

type redisQueue struct {
	rdb *redis.Client
}

// NewQueue - Redis バックエンドのジョブキュー
func NewQueue(rdb *redis.Client) Queue {
	return &redisQueue{rdb: rdb}
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, QueueKey, jobID).Err()
}

// Dequeue - BRPOP。タイムアウト時は ok=false で戻る
func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	result, err := q.rdb.BRPop(ctx, timeout, QueueKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return result[1], true, nil
}

func (q *redisQueue) StashInput(ctx context.Context, jobID string, data []byte, ttl time.Duration) error {
	return q.rdb.Set(ctx, InputKey(jobID), data, ttl).Err()
}

func (q *redisQueue) TakeInput(ctx context.Context, jobID string) ([]byte, error) {
	return q.rdb.Get(ctx, InputKey(jobID)).Bytes()
}

func (q *redisQueue) DropInput(ctx context.Context, jobID string) error {
	return q.rdb.Del(ctx, InputKey(jobID)).Err()
}

// LookupGuard - 完了済み同一アップロードのレコードIDを引く
func (q *redisQueue) LookupGuard(ctx context.Context, uploadHash string) (string, bool, error) {
	recordID, err := q.rdb.Get(ctx, GuardKey(uploadHash)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return recordID, recordID != "", nil
}

func (q *redisQueue) SetGuard(ctx context.Context, uploadHash string, recordID string, ttl time.Duration) error {
	return q.rdb.Set(ctx, GuardKey(uploadHash), recordID, ttl).Err()
}
