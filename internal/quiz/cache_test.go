package quiz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-assess/internal/quiz"
)

type countingStore struct {
	quiz.Store
	gets int
}

func (c *countingStore) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	c.gets++
	return c.Store.GetQuiz(ctx, id)
}

func newCached(t *testing.T) (*quiz.CachedStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	inner := &countingStore{Store: newStore(t)}
	return quiz.NewCachedStore(inner, rdb, 0, nil), inner, mr
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	c, inner, mr := newCached(t)

	q, err := c.CreateQuiz(ctx, sampleQuiz())
	if err != nil {
		t.Fatal(err)
	}
	mr.Del("assess:quiz:" + q.ID)

	for i := 0; i < 3; i++ {
		got, err := c.GetQuiz(ctx, q.ID)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if len(got.Questions) != 3 || got.Questions[0].CorrectAnswer != "Mitochondria" {
			t.Fatalf("cached quiz lost data: %+v", got)
		}
	}
	if inner.gets != 1 {
		t.Fatalf("inner gets=%d want 1", inner.gets)
	}
}

func TestCachedStoreInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	c, inner, _ := newCached(t)

	q, err := c.CreateQuiz(ctx, sampleQuiz())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetQuiz(ctx, q.ID); err != nil {
		t.Fatal(err)
	}
	if inner.gets != 0 {
		t.Fatalf("create should warm the cache, inner gets=%d", inner.gets)
	}

	if _, err := c.AddQuestion(ctx, q.ID, quiz.Question{Type: quiz.ShortAnswer, Prompt: "Define ATP", Points: 1}); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetQuiz(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Questions) != 4 {
		t.Fatalf("stale cache: %d questions", len(got.Questions))
	}
	if inner.gets != 1 {
		t.Fatalf("inner gets=%d want 1", inner.gets)
	}

	if _, err := c.DeleteQuestion(ctx, got.Questions[0].ID); err != nil {
		t.Fatal(err)
	}
	got, _ = c.GetQuiz(ctx, q.ID)
	if len(got.Questions) != 3 {
		t.Fatalf("stale cache after delete: %d questions", len(got.Questions))
	}
}

func TestCachedStoreInvalidatesOnQuizUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	c, _, mr := newCached(t)

	q, err := c.CreateQuiz(ctx, sampleQuiz())
	if err != nil {
		t.Fatal(err)
	}
	q.Title = "Renamed"
	if _, err := c.UpdateQuiz(ctx, q); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("assess:quiz:" + q.ID) {
		t.Fatal("update left the cached entry")
	}
	got, err := c.GetQuiz(ctx, q.ID)
	if err != nil || got.Title != "Renamed" {
		t.Fatalf("got %q err=%v", got.Title, err)
	}

	if err := c.DeleteQuiz(ctx, q.ID); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("assess:quiz:" + q.ID) {
		t.Fatal("delete left the cached entry")
	}
	if _, err := c.GetQuiz(ctx, q.ID); !errors.Is(err, quiz.ErrNotFound) {
		t.Fatalf("deleted quiz served: %v", err)
	}
}

func TestCachedStoreSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	c, inner, mr := newCached(t)

	q, err := c.CreateQuiz(ctx, sampleQuiz())
	if err != nil {
		t.Fatal(err)
	}
	mr.Close()

	got, err := c.GetQuiz(ctx, q.ID)
	if err != nil {
		t.Fatalf("get with redis down: %v", err)
	}
	if got.ID != q.ID || inner.gets != 1 {
		t.Fatalf("fallback failed: id=%s gets=%d", got.ID, inner.gets)
	}
}
