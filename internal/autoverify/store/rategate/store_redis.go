package rategate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/internal/autoverify/models"
	id "custodia/pkg/domain"
)

const (
	counterKeyPrefix = "custodia:autoverify:count:"
	historyKeyPrefix = "custodia:autoverify:history:"
)

// reserveScript atomically checks the counter against the cap and increments
// it. Refreshing the TTL on every increment gives the implicit reset: the
// counter disappears once the most recent trigger is older than the window.
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
	return 0
end
redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

// RedisStore is the shared rate gate for multi-instance deployments.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, docID id.DocumentID, kind models.TriggerKind, now time.Time, maxPerDay int) (bool, error) {
	key := fmt.Sprintf("%s%d", counterKeyPrefix, uint64(docID))
	allowed, err := reserveScript.Run(ctx, s.client, []string{key}, maxPerDay, Window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("reserve auto-verification slot: %w", err)
	}
	if allowed == 0 {
		return false, nil
	}

	trigger := models.Trigger{DocumentID: docID, Kind: kind, At: now}
	payload, err := json.Marshal(trigger)
	if err != nil {
		return false, fmt.Errorf("encode trigger: %w", err)
	}
	historyKey := fmt.Sprintf("%s%d", historyKeyPrefix, uint64(docID))
	if err := s.client.RPush(ctx, historyKey, payload).Err(); err != nil {
		return false, fmt.Errorf("record trigger: %w", err)
	}
	return true, nil
}

func (s *RedisStore) History(ctx context.Context, docID id.DocumentID) ([]models.Trigger, error) {
	historyKey := fmt.Sprintf("%s%d", historyKeyPrefix, uint64(docID))
	raw, err := s.client.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load trigger history: %w", err)
	}
	out := make([]models.Trigger, 0, len(raw))
	for _, item := range raw {
		var trigger models.Trigger
		if err := json.Unmarshal([]byte(item), &trigger); err != nil {
			return nil, fmt.Errorf("decode trigger: %w", err)
		}
		out = append(out, trigger)
	}
	return out, nil
}
