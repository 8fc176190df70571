package cache

import (
	"context"
	"encoding/json"
	"time"

	"healthpulse/internal/model"

	"github.com/redis/go-redis/v9"
)

// ReportQueue is a FIFO of report jobs on a Redis list.
type ReportQueue interface {
	Enqueue(ctx context.Context, job *model.ReportJob) error
	// Dequeue blocks up to wait for a job and returns nil when none arrived.
	Dequeue(ctx context.Context, wait time.Duration) (*model.ReportJob, error)
}

type reportQueue struct {
	client *redis.Client
	key    string
}

func NewReportQueue(client *redis.Client, key string) ReportQueue {
	if key == "" {
		key = "healthpulse:reports"
	}
	return &reportQueue{client: client, key: key}
}

func (q *reportQueue) Enqueue(ctx context.Context, job *model.ReportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

func (q *reportQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.ReportJob, error) {
	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res is [key, value]
	var job model.ReportJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
