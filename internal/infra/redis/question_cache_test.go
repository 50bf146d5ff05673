package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"campus-assessment-service/internal/domain"
)

// countingLoader records how many times the backing store was hit.
type countingLoader struct {
	questions []domain.Question
	err       error
	calls     int
}

func (l *countingLoader) QuestionsByEvent(_ context.Context, _ string) ([]domain.Question, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.questions, nil
}

func newCacheEnv(t *testing.T, loader QuestionLoader) (*QuestionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQuestionCache(client, loader, time.Minute), mr
}

func TestQuestionCacheFillsOnMiss(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{questions: []domain.Question{
		{ID: "q1", EventID: "event-1", Text: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1, Marks: 5, Penalty: 1},
	}}
	cache, mr := newCacheEnv(t, loader)

	questions, err := cache.QuestionsByEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != "q1" {
		t.Fatalf("unexpected questions: %+v", questions)
	}
	if loader.calls != 1 {
		t.Fatalf("expected one loader call, got %d", loader.calls)
	}
	if !mr.Exists("event:event-1:questions") {
		t.Fatalf("cache entry was not written")
	}

	// Second read is served from Redis.
	if _, err := cache.QuestionsByEvent(ctx, "event-1"); err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("cached read must not hit the loader, calls=%d", loader.calls)
	}
}

func TestQuestionCacheKeepsGradingData(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{questions: []domain.Question{
		{ID: "q1", CorrectOption: 2, Marks: 5, Penalty: 1},
	}}
	cache, _ := newCacheEnv(t, loader)

	if _, err := cache.QuestionsByEvent(ctx, "event-1"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cached, err := cache.QuestionsByEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	// The cache stores the grading view; stripping happens upstream.
	if cached[0].CorrectOption != 2 || cached[0].Penalty != 1 {
		t.Fatalf("grading data lost in cache round trip: %+v", cached[0])
	}
}

func TestQuestionCacheExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{questions: []domain.Question{{ID: "q1"}}}
	cache, mr := newCacheEnv(t, loader)

	if _, err := cache.QuestionsByEvent(ctx, "event-1"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := cache.QuestionsByEvent(ctx, "event-1"); err != nil {
		t.Fatalf("load after expiry failed: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expired entry must reload, calls=%d", loader.calls)
	}
}

func TestQuestionCacheCorruptEntryRefills(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{questions: []domain.Question{{ID: "q1"}}}
	cache, mr := newCacheEnv(t, loader)

	if err := mr.Set("event:event-1:questions", "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	questions, err := cache.QuestionsByEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(questions) != 1 || loader.calls != 1 {
		t.Fatalf("corrupt entry must fall back to the loader: %+v calls=%d", questions, loader.calls)
	}
}

func TestQuestionCacheLoaderError(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("store down")
	loader := &countingLoader{err: wantErr}
	cache, _ := newCacheEnv(t, loader)

	if _, err := cache.QuestionsByEvent(ctx, "event-1"); !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error to surface, got %v", err)
	}
}
