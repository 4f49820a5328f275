package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-assess/internal/metrics"
)

const cacheKeyPrefix = "assess:quiz:"

// CachedStore is a read-through Redis cache over a Store. Reads fall back to
// the inner store when Redis misbehaves; writes invalidate the quiz entry.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{Store: inner, rdb: rdb, ttl: ttl, log: logger}
}

func cacheKey(id string) string { return cacheKeyPrefix + id }

func (c *CachedStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var q Quiz
		if jerr := json.Unmarshal(raw, &q); jerr == nil {
			metrics.QuizCacheLookups.WithLabelValues("hit").Inc()
			return q, nil
		}
		c.log.Warn("quiz cache: corrupt entry", "quiz_id", id)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("quiz cache: get failed", "quiz_id", id, "err", err)
	}
	metrics.QuizCacheLookups.WithLabelValues("miss").Inc()

	q, err := c.Store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	c.put(ctx, q)
	return q, nil
}

func (c *CachedStore) CreateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	out, err := c.Store.CreateQuiz(ctx, q)
	if err != nil {
		return Quiz{}, err
	}
	c.put(ctx, out)
	return out, nil
}

func (c *CachedStore) UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	out, err := c.Store.UpdateQuiz(ctx, q)
	c.invalidate(ctx, q.ID)
	return out, err
}

func (c *CachedStore) DeleteQuiz(ctx context.Context, id string) error {
	err := c.Store.DeleteQuiz(ctx, id)
	if err == nil {
		c.invalidate(ctx, id)
	}
	return err
}

func (c *CachedStore) AddQuestion(ctx context.Context, quizID string, q Question) (Question, error) {
	out, err := c.Store.AddQuestion(ctx, quizID, q)
	c.invalidate(ctx, quizID)
	return out, err
}

func (c *CachedStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	out, err := c.Store.UpdateQuestion(ctx, q)
	if err != nil {
		return Question{}, err
	}
	c.invalidate(ctx, out.QuizID)
	return out, nil
}

func (c *CachedStore) DeleteQuestion(ctx context.Context, questionID string) (string, error) {
	quizID, err := c.Store.DeleteQuestion(ctx, questionID)
	if err != nil {
		return "", err
	}
	c.invalidate(ctx, quizID)
	return quizID, nil
}

func (c *CachedStore) ReorderQuestions(ctx context.Context, quizID string, ids []string) error {
	err := c.Store.ReorderQuestions(ctx, quizID, ids)
	c.invalidate(ctx, quizID)
	return err
}

func (c *CachedStore) put(ctx context.Context, q Quiz) {
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(q.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("quiz cache: set failed", "quiz_id", q.ID, "err", err)
	}
}

func (c *CachedStore) invalidate(ctx context.Context, quizID string) {
	if quizID == "" {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(quizID)).Err(); err != nil {
		c.log.Warn("quiz cache: invalidate failed", "quiz_id", quizID, "err", err)
	}
}
