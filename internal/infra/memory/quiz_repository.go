package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/metrics"
)

// QuizCache decorates an app.QuizRepository with a TTL cache of quiz records
// to avoid repeated document store hits. Saves go through and invalidate.
type QuizCache struct {
	app.QuizRepository
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	metrics *metrics.Metrics

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.QuizRecord
	expiresAt time.Time
}

func NewQuizCache(backing app.QuizRepository, ttl time.Duration, m *metrics.Metrics) *QuizCache {
	return &QuizCache{
		QuizRepository: backing,
		ttl:            ttl,
		clock:          time.Now,
		metrics:        m,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:          make(map[string]cachedQuiz),
	}
}

func (r *QuizCache) GetQuizByID(ctx context.Context, quizID string) (domain.QuizRecord, error) {
	if quiz, ok := r.lookup(quizID); ok {
		r.metrics.CacheLookup("memory", true)
		return cloneQuiz(quiz), nil
	}
	r.metrics.CacheLookup("memory", false)

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if quiz, ok := r.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.QuizRepository.GetQuizByID(ctx, quizID)
		if err != nil {
			return domain.QuizRecord{}, err
		}
		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.QuizRecord{}, err
	}
	return cloneQuiz(result.(domain.QuizRecord)), nil
}

func (r *QuizCache) SaveQuiz(ctx context.Context, quiz domain.QuizRecord) error {
	if err := r.QuizRepository.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	r.Invalidate(quiz.ID)
	return nil
}

// Invalidate drops a cached quiz.
func (r *QuizCache) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
}

func (r *QuizCache) lookup(quizID string) (domain.QuizRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizRecord{}, false
	}
	return entry.quiz, true
}

// ttlWithJitter must be called with mu held.
func (r *QuizCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
