package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/metrics"
)

// QuizCache caches quiz records in Redis and falls back to the backing
// repository on a miss. Records are stored as JSON:
//
//	SET quiz:{quizID}:record {json} EX ttl
//
// Saves go through to the backing repository and drop the cached copy so
// every instance reloads it.
type QuizCache struct {
	app.QuizRepository
	client  *redis.Client
	ttl     time.Duration
	sf      singleflight.Group
	metrics *metrics.Metrics

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCache(client *redis.Client, backing app.QuizRepository, ttl time.Duration, m *metrics.Metrics) *QuizCache {
	return &QuizCache{
		QuizRepository: backing,
		client:         client,
		ttl:            ttl,
		metrics:        m,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizCache) GetQuizByID(ctx context.Context, quizID string) (domain.QuizRecord, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		r.metrics.CacheLookup("redis", true)
		return quiz, nil
	}
	r.metrics.CacheLookup("redis", false)

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := r.QuizRepository.GetQuizByID(ctx, quizID)
		if err != nil {
			return domain.QuizRecord{}, err
		}
		if payload, err := json.Marshal(quiz); err == nil {
			_ = r.client.Set(ctx, r.key(quizID), payload, r.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.QuizRecord{}, err
	}
	return result.(domain.QuizRecord), nil
}

func (r *QuizCache) SaveQuiz(ctx context.Context, quiz domain.QuizRecord) error {
	if err := r.QuizRepository.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	return r.Invalidate(ctx, quiz.ID)
}

// Invalidate drops the cached record of a quiz.
func (r *QuizCache) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.key(quizID)).Err()
}

func (r *QuizCache) cached(ctx context.Context, quizID string) (domain.QuizRecord, bool) {
	payload, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if err != nil {
		return domain.QuizRecord{}, false
	}
	var quiz domain.QuizRecord
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return domain.QuizRecord{}, false
	}
	return quiz, true
}

func (r *QuizCache) key(quizID string) string {
	return "quiz:" + quizID + ":record"
}

func (r *QuizCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// isMiss reports a missing key.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
