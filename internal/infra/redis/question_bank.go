package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"skillsprint-arena/internal/domain"
)

// BankLoader fetches question-bank content from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// QuestionBank caches a bank in Redis (hash per bank, one JSON question per
// field) and falls back to a loader on cache miss.
// Questions are stored as: HSET arena:bank:{bankID} {questionID} {json}
type QuestionBank struct {
	client *redis.Client
	loader BankLoader
	bankID string
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader BankLoader, bankID string, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		bankID: bankID,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Draw samples n distinct questions from the configured bank in random order.
func (r *QuestionBank) Draw(ctx context.Context, n int) ([]domain.Question, error) {
	bank, err := r.GetBank(ctx, r.bankID)
	if err != nil {
		return nil, err
	}
	if len(bank.Questions) == 0 {
		return nil, domain.ErrBankEmpty
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return bank.Sample(r.rnd, n), nil
}

func (r *QuestionBank) GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	key := r.bankKey(bankID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return bankFromCache(bankID, fields)
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			bank, err := bankFromCache(bankID, fields)
			if err != nil {
				return domain.QuestionBank{}, err
			}
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, q := range bank.Questions {
			data, err := json.Marshal(q)
			if err != nil {
				return domain.QuestionBank{}, err
			}
			pipe.HSet(ctx, key, strconv.Itoa(q.ID), string(data))
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *QuestionBank) bankKey(bankID string) string {
	return "arena:bank:" + bankID
}

func bankFromCache(bankID string, fields map[string]string) (domain.QuestionBank, error) {
	questions := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return domain.QuestionBank{}, err
		}
		questions = append(questions, q)
	}
	// Hash iteration order is arbitrary; keep the bank stable across reads.
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return domain.QuestionBank{ID: bankID, Questions: questions}, nil
}

func (r *QuestionBank) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
