package answers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/internal/cache"
)

// KEYS: answers hash, created hash, updated hash, order list.
// ARGV: question, answer, separator, now (ms), ttl (ms).
var appendScript = redis.NewScript(`
local existing = redis.call("HGET", KEYS[1], ARGV[1])
if not existing then
  redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
  redis.call("HSET", KEYS[2], ARGV[1], ARGV[4])
  redis.call("RPUSH", KEYS[4], ARGV[1])
elseif existing == "" then
  redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
else
  redis.call("HSET", KEYS[1], ARGV[1], existing .. ARGV[3] .. ARGV[2])
end
redis.call("HSET", KEYS[3], ARGV[1], ARGV[4])
local ttl = tonumber(ARGV[5])
if ttl > 0 then
  for i = 1, #KEYS do redis.call("PEXPIRE", KEYS[i], ttl) end
end
return redis.call("HLEN", KEYS[1])
`)

// RedisStore keeps answers in Redis so they survive process restarts
// and can be read by other instances.
type RedisStore struct {
	manager *cache.Manager
	prefix  string
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisStore creates a store whose keys start with "voiceweb:<namespace>".
func NewRedisStore(manager *cache.Manager, namespace string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if namespace == "" {
		namespace = "default"
	}
	return &RedisStore{
		manager: manager,
		prefix:  "voiceweb:" + namespace,
		logger:  logger.With(zap.String("component", "answers_redis"), zap.String("namespace", namespace)),
		now:     time.Now,
	}
}

func (s *RedisStore) keys() []string {
	return []string{
		s.prefix + ":answers",
		s.prefix + ":created",
		s.prefix + ":updated",
		s.prefix + ":order",
	}
}

func (s *RedisStore) Append(ctx context.Context, question, answer string) (int, error) {
	q, err := normalize(question)
	if err != nil {
		return 0, err
	}

	res, err := s.manager.RunScript(ctx, appendScript, s.keys(),
		q, answer, Separator, s.now().UnixMilli(), s.manager.TTL().Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("append answer: %w", err)
	}
	n, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("append answer: unexpected script result %T", res)
	}
	return int(n), nil
}

func (s *RedisStore) All(ctx context.Context) ([]Entry, error) {
	client, err := s.manager.Client()
	if err != nil {
		return nil, err
	}
	keys := s.keys()

	questions, err := client.LRange(ctx, keys[3], 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if len(questions) == 0 {
		return []Entry{}, nil
	}

	pipe := client.Pipeline()
	answers := pipe.HMGet(ctx, keys[0], questions...)
	created := pipe.HMGet(ctx, keys[1], questions...)
	updated := pipe.HMGet(ctx, keys[2], questions...)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	out := make([]Entry, 0, len(questions))
	for i, q := range questions {
		a, _ := answers.Val()[i].(string)
		out = append(out, Entry{
			Question:  q,
			Answer:    a,
			CreatedAt: millis(created.Val()[i]),
			UpdatedAt: millis(updated.Val()[i]),
		})
	}
	return out, nil
}

func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.manager.Delete(ctx, s.keys()...); err != nil {
		return fmt.Errorf("reset answers: %w", err)
	}
	s.logger.Debug("answers reset")
	return nil
}

func millis(v interface{}) time.Time {
	str, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
