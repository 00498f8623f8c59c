package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// ScreeningQueueKey is the Redis list carrying pending screening jobs.
const ScreeningQueueKey = "queue:screen_post"

// TaskQueue is the fire-and-forget dispatch contract consumed by the post
// creation flow. Delivery is at-least-once.
type TaskQueue interface {
	EnqueueScreening(ctx context.Context, postID uint) error
}

// ScreeningJob is the wire payload for one queued screening task.
type ScreeningJob struct {
	JobID  string `json:"job_id"`
	PostID uint   `json:"post_id"`
}

// RedisTaskQueue pushes screening jobs onto a Redis list.
type RedisTaskQueue struct {
	rdb *redis.Client
}

// NewRedisTaskQueue creates a RedisTaskQueue.
func NewRedisTaskQueue(rdb *redis.Client) *RedisTaskQueue {
	return &RedisTaskQueue{rdb: rdb}
}

// EnqueueScreening pushes a job for postID.
func (q *RedisTaskQueue) EnqueueScreening(ctx context.Context, postID uint) error {
	job := ScreeningJob{JobID: uuid.NewString(), PostID: postID}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, ScreeningQueueKey, payload).Err()
}

// Dequeue blocks for up to timeout waiting for the next job. A nil job with
// nil error means the wait timed out with nothing queued.
func (q *RedisTaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (*ScreeningJob, error) {
	vals, err := q.rdb.BRPop(ctx, timeout, ScreeningQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job ScreeningJob
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ScreeningWorker consumes screening jobs and applies verdicts to posts.
// Every failure inside a job is logged and absorbed: the post simply stays
// unflagged and the worker moves on.
type ScreeningWorker struct {
	db       *gorm.DB
	queue    *RedisTaskQueue
	screener Screener // nil when no credential is configured
	log      *zap.SugaredLogger
}

// NewScreeningWorker creates a ScreeningWorker. Pass a nil screener to run
// with screening disabled (jobs drain without effect).
func NewScreeningWorker(db *gorm.DB, queue *RedisTaskQueue, screener Screener, log *zap.SugaredLogger) *ScreeningWorker {
	return &ScreeningWorker{db: db, queue: queue, screener: screener, log: log}
}

// Run consumes jobs until ctx is cancelled.
func (w *ScreeningWorker) Run(ctx context.Context) {
	w.log.Info("screening worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("screening worker stopped")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("screening worker stopped")
				return
			}
			w.log.Warnf("screening queue read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.Process(ctx, job.PostID)
	}
}

// Process screens one post and stores the verdict. It never returns an
// error; post creation must succeed regardless of screening outcomes.
func (w *ScreeningWorker) Process(ctx context.Context, postID uint) {
	if w.screener == nil {
		w.log.Debugf("screening skipped for post %d: no credential configured", postID)
		return
	}

	var post models.Post
	if err := w.db.First(&post, postID).Error; err != nil {
		w.log.Warnf("screening skipped, post %d not found: %v", postID, err)
		return
	}

	result, err := w.screener.Screen(ctx, post.Title+"\n\n"+post.Body)
	if err != nil {
		w.log.Warnf("screening failed for post %d: %v", postID, err)
		return
	}

	categories, _ := json.Marshal(result.Categories)
	scores, _ := json.Marshal(result.Scores)
	err = w.db.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]any{
		"ai_flagged":     result.Flagged,
		"ai_categories":  string(categories),
		"ai_scores":      string(scores),
		"ai_screened_at": time.Now(),
	}).Error
	if err != nil {
		w.log.Errorf("failed to store screening verdict for post %d: %v", postID, err)
		return
	}
	if result.Flagged {
		w.log.Infof("post %d flagged by content screening", postID)
	}
}
