package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/charette/internal/models"
)

const messageTTL = 30 * 24 * time.Hour

// appendScript reserves the next timestamp of a room stream and adds the
// message under it in one step, so a reader polling with a timestamp cursor
// can never observe a later message before an earlier one.
//
// KEYS[1] stream sorted set, KEYS[2] last timestamp
// ARGV[1] now (ms), ARGV[2] member, ARGV[3] ttl (s)
var appendScript = redis.NewScript(`
local last = tonumber(redis.call('GET', KEYS[2]) or '0')
local ts = tonumber(ARGV[1])
if ts <= last then ts = last + 1 end
redis.call('SET', KEYS[2], ts, 'EX', ARGV[3])
redis.call('ZADD', KEYS[1], ts, ARGV[2])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return ts
`)

// RedisStore keeps room message streams in Redis sorted sets scored by
// timestamp. Its client is shared with the rate limiter.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// roomMessagesKey returns the key for a room's message sorted set.
func roomMessagesKey(charetteID, roomID string) string {
	return fmt.Sprintf("charette:%s:room:%s:messages", charetteID, roomID)
}

// roomClockKey returns the key holding the last timestamp issued in a room.
func roomClockKey(charetteID, roomID string) string {
	return fmt.Sprintf("charette:%s:room:%s:clock", charetteID, roomID)
}

// storedMessage is the sorted set member. The timestamp is the member's score.
type storedMessage struct {
	ID       string      `json:"id"`
	UserName string      `json:"user"`
	Role     models.Role `json:"role"`
	Text     string      `json:"text"`
}

// AddMessage stores a message in its room stream.
func (s *RedisStore) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = newMessageID()
	}

	data, err := json.Marshal(storedMessage{
		ID:       msg.ID,
		UserName: msg.UserName,
		Role:     msg.Role,
		Text:     msg.Text,
	})
	if err != nil {
		return err
	}

	ts, err := appendScript.Run(ctx, s.client,
		[]string{roomMessagesKey(msg.CharetteID, msg.RoomID), roomClockKey(msg.CharetteID, msg.RoomID)},
		time.Now().UnixMilli(), string(data), int64(messageTTL.Seconds()),
	).Int64()
	if err != nil {
		return err
	}

	msg.Timestamp = ts
	return nil
}

// ListMessages returns messages newer than since in ascending order.
func (s *RedisStore) ListMessages(ctx context.Context, charetteID, roomID string, since int64, limit int) ([]models.Message, error) {
	results, err := s.client.ZRangeByScoreWithScores(ctx, roomMessagesKey(charetteID, roomID), &redis.ZRangeBy{
		Min:   "(" + strconv.FormatInt(since, 10), // exclusive
		Max:   "+inf",
		Count: int64(normalizeLimit(limit)),
	}).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var stored storedMessage
		if err := json.Unmarshal([]byte(member), &stored); err != nil {
			continue
		}
		messages = append(messages, models.Message{
			ID:         stored.ID,
			CharetteID: charetteID,
			RoomID:     roomID,
			UserName:   stored.UserName,
			Role:       stored.Role,
			Text:       stored.Text,
			Timestamp:  int64(z.Score),
		})
	}

	return messages, nil
}

// DeleteMessages drops every room stream of a charette.
func (s *RedisStore) DeleteMessages(ctx context.Context, charetteID string) error {
	iter := s.client.Scan(ctx, 0, fmt.Sprintf("charette:%s:room:*", charetteID), 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
