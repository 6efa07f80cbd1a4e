package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
	"quizdesk-service/internal/infra/memory"
)

func TestQuizCacheStoresDocumentInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	store := &countingStore{QuizStore: seededStore(t)}
	cache := NewQuizCache(client, store, time.Minute)

	quiz, err := cache.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Questions[0].CorrectOption != 1 {
		t.Fatalf("expected full document cached, got %+v", quiz.Questions[0])
	}
	if store.calls != 1 {
		t.Fatalf("expected store hit once, got %d", store.calls)
	}
	if !mr.Exists("quiz:quiz-1:doc") {
		t.Fatalf("expected document cached in redis")
	}

	// Second read is served from Redis.
	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected cache hit, store calls=%d", store.calls)
	}
}

func TestQuizCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	store := &countingStore{QuizStore: seededStore(t)}
	cache := NewQuizCache(client, store, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	cache.Invalidate(context.Background(), "quiz-1")
	if mr.Exists("quiz:quiz-1:doc") {
		t.Fatalf("expected cached document removed")
	}

	if _, err := cache.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected store reloaded after invalidate, calls=%d", store.calls)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type countingStore struct {
	app.QuizStore
	calls int
}

func (s *countingStore) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	s.calls++
	return s.QuizStore.GetQuiz(ctx, id)
}

func seededStore(t *testing.T) *memory.QuizStore {
	t.Helper()
	store := memory.NewQuizStore()
	err := store.CreateQuiz(context.Background(), domain.Quiz{
		ID:    "quiz-1",
		Title: "Sample",
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectOption: 1},
		},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return store
}
